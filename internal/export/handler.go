// Package export renders layers, animation frames and sprite sheets as images.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/inamate/pixelkit/internal/engine"
	"github.com/inamate/pixelkit/internal/pixel"
	"github.com/inamate/pixelkit/internal/project"
	"github.com/inamate/pixelkit/internal/raster"
)

const maxScale = 32

var errBadRequest = errors.New("bad request")

// Viewer gives read access to a project's engine.
type Viewer interface {
	View(ctx context.Context, projectID string, fn func(*engine.Engine) error) error
}

type Handler struct {
	rooms Viewer
}

func NewHandler(rooms Viewer) *Handler {
	return &Handler{rooms: rooms}
}

type request struct {
	format raster.Format
	scale  int
	name   string
}

func parseRequest(r *http.Request) (request, error) {
	q := r.URL.Query()
	format, err := raster.ParseFormat(q.Get("format"))
	if err != nil {
		return request{}, fmt.Errorf("%w: %w", errBadRequest, err)
	}

	scale := 1
	if s := q.Get("scale"); s != "" {
		scale, err = strconv.Atoi(s)
		if err != nil || scale < 1 || scale > maxScale {
			return request{}, fmt.Errorf("%w: scale must be 1..%d", errBadRequest, maxScale)
		}
	}

	name := q.Get("name")
	if name == "" {
		name = "export"
	}
	// Sanitize filename
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)

	return request{format: format, scale: scale, name: name}, nil
}

// Layer handles GET /api/projects/{projectId}/export/layers/{layerId}.
func (h *Handler) Layer(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	h.render(w, r, func(e *engine.Engine, req request) (image.Image, error) {
		doc := e.Document()
		if doc == nil {
			return nil, engine.ErrNoDocument
		}
		l, ok := doc.Layer(vars["layerId"])
		if !ok {
			return nil, fmt.Errorf("layer %s: %w", vars["layerId"], engine.ErrNotFound)
		}
		return raster.Scale(l.Pixels, req.scale), nil
	})
}

// Frame handles GET /api/projects/{projectId}/export/frame?animation=&frame=.
// Without an animation the rest pose is rendered.
func (h *Handler) Frame(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	frame := 0.0
	if s := q.Get("frame"); s != "" {
		var err error
		if frame, err = strconv.ParseFloat(s, 64); err != nil {
			http.Error(w, "invalid frame", http.StatusBadRequest)
			return
		}
	}
	h.render(w, r, func(e *engine.Engine, req request) (image.Image, error) {
		buf, err := e.RenderFrame(q.Get("animation"), frame)
		if err != nil {
			return nil, err
		}
		return raster.Scale(buf, req.scale), nil
	})
}

// Sheet handles GET /api/projects/{projectId}/export/sheet?animation=&columns=,
// laying out every frame of the animation.
func (h *Handler) Sheet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	columns, _ := strconv.Atoi(q.Get("columns"))
	h.render(w, r, func(e *engine.Engine, req request) (image.Image, error) {
		doc := e.Document()
		if doc == nil {
			return nil, engine.ErrNoDocument
		}
		a, ok := doc.Animations.Get(q.Get("animation"))
		if !ok {
			return nil, fmt.Errorf("animation %q: %w", q.Get("animation"), engine.ErrNotFound)
		}
		frames := make([]*pixel.Buffer, 0, a.Length)
		for f := range a.Length {
			buf, err := e.RenderFrame(a.ID, float64(f))
			if err != nil {
				return nil, err
			}
			frames = append(frames, buf)
		}
		if columns <= 0 {
			columns = len(frames)
		}
		sheet := raster.SpriteSheet(frames, columns)
		if req.scale > 1 {
			return raster.Scale(raster.FromImage(sheet), req.scale), nil
		}
		return sheet, nil
	})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, draw func(*engine.Engine, request) (image.Image, error)) {
	req, err := parseRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var img image.Image
	err = h.rooms.View(r.Context(), mux.Vars(r)["projectId"], func(e *engine.Engine) error {
		img, err = draw(e, req)
		return err
	})
	if err != nil {
		handleError(w, err)
		return
	}

	var out bytes.Buffer
	if err := raster.Encode(&out, img, req.format); err != nil {
		handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", req.format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, req.name, req.format))
	w.Header().Set("Content-Length", strconv.Itoa(out.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := out.WriteTo(w); err != nil {
		slog.Error("write export", "error", err)
	}
}

func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, project.ErrNotFound), errors.Is(err, engine.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, engine.ErrNoDocument):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		slog.Error("export", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
