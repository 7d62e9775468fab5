// Package asset imports uploaded images into a project as new layers.
package asset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/gorilla/mux"

	"github.com/inamate/pixelkit/internal/auth"
	"github.com/inamate/pixelkit/internal/engine"
	"github.com/inamate/pixelkit/internal/pixel"
	"github.com/inamate/pixelkit/internal/project"
	"github.com/inamate/pixelkit/internal/raster"
)

// Rooms applies commands to a project's shared engine.
type Rooms interface {
	Apply(ctx context.Context, projectID, userID string, cmd engine.Command) (engine.Response, error)
	View(ctx context.Context, projectID string, fn func(*engine.Engine) error) error
}

// ImportResponse is returned from the import endpoint.
type ImportResponse struct {
	LayerID       string `json:"layerId"`
	Name          string `json:"name"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	SourceWidth   int    `json:"sourceWidth"`
	SourceHeight  int    `json:"sourceHeight"`
	PixelsVersion int    `json:"pixelsVersion"`
}

// Handler serves the layer import endpoint.
type Handler struct {
	rooms   Rooms
	maxSize int64
}

func NewHandler(rooms Rooms, maxSize int64) *Handler {
	return &Handler{rooms: rooms, maxSize: maxSize}
}

// Import handles POST /api/projects/{projectId}/layers/import (multipart form
// with a "file" field). The image is scaled down to fit the canvas and centered
// unless fit=exact, which requires the canvas size.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["projectId"]
	claims, _ := auth.ClaimsFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize)
	if err := r.ParseMultipartForm(h.maxSize); err != nil {
		http.Error(w, fmt.Sprintf("file too large (max %d bytes)", h.maxSize), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	img, err := raster.Decode(file)
	if err != nil {
		http.Error(w, "invalid image: "+err.Error(), http.StatusBadRequest)
		return
	}

	var cw, ch int
	err = h.rooms.View(r.Context(), projectID, func(e *engine.Engine) error {
		if e.Document() == nil {
			return engine.ErrNoDocument
		}
		cw, ch = e.Document().Size()
		return nil
	})
	if err != nil {
		handleError(w, err)
		return
	}

	var buf *pixel.Buffer
	b := img.Bounds()
	switch r.FormValue("fit") {
	case "exact":
		if b.Dx() != cw || b.Dy() != ch {
			http.Error(w, fmt.Sprintf("image is %dx%d, canvas is %dx%d", b.Dx(), b.Dy(), cw, ch), http.StatusBadRequest)
			return
		}
		buf = raster.FromImage(img)
	case "", "contain":
		buf = raster.FitCanvas(img, cw, ch)
	default:
		http.Error(w, "fit must be contain or exact", http.StatusBadRequest)
		return
	}

	name := layerName(r.FormValue("name"), header.Filename)
	args, err := json.Marshal(map[string]any{"name": name, "buffer": buf})
	if err != nil {
		handleError(w, err)
		return
	}
	resp, err := h.rooms.Apply(r.Context(), projectID, claims.UserID, engine.Command{Type: "layer.import", Args: args})
	if err != nil {
		handleError(w, err)
		return
	}
	if !resp.OK {
		http.Error(w, resp.Error, http.StatusConflict)
		return
	}

	ref, _ := resp.Result.(engine.Ref)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(ImportResponse{
		LayerID:       ref.ID,
		Name:          name,
		Width:         cw,
		Height:        ch,
		SourceWidth:   b.Dx(),
		SourceHeight:  b.Dy(),
		PixelsVersion: resp.PixelsVersion,
	})
}

// layerName prefers the form value, then the file name without its extension.
func layerName(name, filename string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" {
		return "Imported"
	}
	return base
}

func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, project.ErrNotFound):
		http.Error(w, "project not found", http.StatusNotFound)
	default:
		slog.Error("import layer", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
