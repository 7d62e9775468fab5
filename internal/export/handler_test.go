package export

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/pixelkit/internal/engine"
	"github.com/inamate/pixelkit/internal/project"
	"github.com/inamate/pixelkit/internal/raster"
)

type viewer struct {
	e *engine.Engine
}

func (v viewer) View(_ context.Context, projectID string, fn func(*engine.Engine) error) error {
	if projectID != "proj_a" {
		return project.ErrNotFound
	}
	return fn(v.e)
}

func newRouter() (*mux.Router, *engine.Engine) {
	e := engine.NewEngine(engine.DefaultOptions())
	e.LoadSampleDocument("proj_a")
	h := NewHandler(viewer{e: e})

	r := mux.NewRouter()
	r.HandleFunc("/projects/{projectId}/export/layers/{layerId}", h.Layer)
	r.HandleFunc("/projects/{projectId}/export/frame", h.Frame)
	r.HandleFunc("/projects/{projectId}/export/sheet", h.Sheet)
	return r, e
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	return rec
}

func TestExport_Layer(t *testing.T) {
	assert := assert.New(t)
	r, e := newRouter()
	layerID := e.Document().Layers[0].ID

	rec := get(r, "/projects/proj_a/export/layers/"+layerID+"?scale=2&name=hero%20art")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal("image/png", rec.Header().Get("Content-Type"))
	assert.Contains(rec.Header().Get("Content-Disposition"), `filename="hero-art.png"`)

	img, err := raster.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(64, img.Bounds().Dx())

	rec = get(r, "/projects/proj_a/export/layers/"+layerID+"?format=bmp")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal("image/bmp", rec.Header().Get("Content-Type"))

	assert.Equal(http.StatusNotFound, get(r, "/projects/proj_a/export/layers/layer_missing").Code)
	assert.Equal(http.StatusNotFound, get(r, "/projects/proj_b/export/layers/"+layerID).Code)
	assert.Equal(http.StatusBadRequest, get(r, "/projects/proj_a/export/layers/"+layerID+"?format=webp").Code)
	assert.Equal(http.StatusBadRequest, get(r, "/projects/proj_a/export/layers/"+layerID+"?scale=0").Code)
}

func TestExport_FrameAndSheet(t *testing.T) {
	assert := assert.New(t)
	r, e := newRouter()
	animID := e.Document().Animations.Animations[0].ID

	rec := get(r, "/projects/proj_a/export/frame?animation="+animID+"&frame=6")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	img, err := raster.Decode(rec.Body)
	require.NoError(t, err)
	frame := raster.FromImage(img)
	want, err := e.RenderFrame(animID, 6)
	require.NoError(t, err)
	assert.True(want.Equal(frame))

	rec = get(r, "/projects/proj_a/export/frame")
	assert.Equal(http.StatusOK, rec.Code, "rest pose")
	assert.Equal(http.StatusNotFound, get(r, "/projects/proj_a/export/frame?animation=anim_missing").Code)
	assert.Equal(http.StatusBadRequest, get(r, "/projects/proj_a/export/frame?frame=x").Code)

	rec = get(r, "/projects/proj_a/export/sheet?animation="+animID+"&columns=4")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	img, err = raster.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(32*4, img.Bounds().Dx())
	assert.Equal(32*3, img.Bounds().Dy(), "12 frames in rows of 4")

	assert.Equal(http.StatusNotFound, get(r, "/projects/proj_a/export/sheet").Code)
}
