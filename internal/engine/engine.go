package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/inamate/pixelkit/internal/bone"
	"github.com/inamate/pixelkit/internal/document"
	"github.com/inamate/pixelkit/internal/fill"
	"github.com/inamate/pixelkit/internal/pixel"
	"github.com/inamate/pixelkit/internal/smartselect"
	"github.com/inamate/pixelkit/internal/transform"
)

var (
	ErrNoDocument     = errors.New("no document loaded")
	ErrSessionActive  = errors.New("a transform is in progress")
	ErrNoSession      = errors.New("no transform in progress")
	ErrUnknownCommand = errors.New("unknown command")
	ErrNotFound       = errors.New("not found")
	ErrNoSelection    = errors.New("selection is empty")
	ErrLayerLocked    = errors.New("active layer is locked or missing")
	ErrRejected       = errors.New("operation rejected")
)

// Options are the engine tunables.
type Options struct {
	Transform       transform.Options
	Fill            fill.Options
	Tolerance       int
	DragSampleLimit int
	AutoBindRadius  float64
}

func DefaultOptions() Options {
	return Options{
		Transform:       transform.DefaultOptions(),
		Fill:            fill.DefaultOptions(),
		Tolerance:       10,
		DragSampleLimit: smartselect.DefaultSampleLimit,
		AutoBindRadius:  bone.DefaultAutoBindRadius,
	}
}

// Engine owns a document and the single tool operating on it. It is not safe for
// concurrent use.
type Engine struct {
	opts Options
	doc  *document.Document

	// Active transform, nil when idle.
	tool tool
	// Smart-select drag in progress.
	wand *smartselect.Tracker

	playback playback

	onSnapshot func(document.Snapshot)
}

// NewEngine returns an engine with no document.
func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts}
}

func (e *Engine) Options() Options { return e.opts }

// OnSnapshot registers fn to receive every snapshot the document saves.
func (e *Engine) OnSnapshot(fn func(document.Snapshot)) {
	e.onSnapshot = fn
	if e.doc != nil {
		e.doc.OnSnapshot(fn)
	}
}

// --- Document ---

// LoadDocument replaces the document. Any transform in progress is dropped without
// touching the new document.
func (e *Engine) LoadDocument(data []byte) error {
	doc, err := document.Parse(data)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	e.setDocument(doc)
	return nil
}

// UpdateDocument replaces the document while keeping playback state. It is refused
// while a transform is in progress.
func (e *Engine) UpdateDocument(data []byte) error {
	if e.tool != nil {
		return ErrSessionActive
	}
	doc, err := document.Parse(data)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	pb := e.playback
	e.setDocument(doc)
	e.playback = pb
	e.playback.clamp(doc)
	return nil
}

// LoadSampleDocument loads the built-in rigged sprite.
func (e *Engine) LoadSampleDocument(projectID string) {
	e.setDocument(document.NewSampleDocument(projectID))
}

// NewDocument starts an empty document.
func (e *Engine) NewDocument(projectID, name string, width, height int) {
	e.setDocument(document.New(projectID, name, width, height))
}

func (e *Engine) setDocument(doc *document.Document) {
	if e.tool != nil {
		slog.Debug("dropping transform on document load", "kind", e.tool.Kind())
	}
	e.doc = doc
	e.tool = nil
	e.wand = nil
	e.playback = playback{}
	if len(doc.Animations.Animations) > 0 {
		e.playback.animationID = doc.Animations.Animations[0].ID
	}
	doc.OnSnapshot(e.onSnapshot)
}

// Document returns the live document, or nil.
func (e *Engine) Document() *document.Document {
	return e.doc
}

// DocumentJSON serializes the document.
func (e *Engine) DocumentJSON() ([]byte, error) {
	if e.doc == nil {
		return nil, ErrNoDocument
	}
	data, err := json.Marshal(e.doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// PixelsVersion returns the document's pixel version, or 0 without a document.
func (e *Engine) PixelsVersion() int {
	if e.doc == nil {
		return 0
	}
	return e.doc.PixelsVersion
}

// idle returns the document when no transform is in progress.
func (e *Engine) idle() (*document.Document, error) {
	if e.doc == nil {
		return nil, ErrNoDocument
	}
	if e.tool != nil {
		return nil, ErrSessionActive
	}
	return e.doc, nil
}

// activeBuffer returns the editable pixels of the active layer.
func (e *Engine) activeBuffer() (*pixel.Buffer, error) {
	doc, err := e.idle()
	if err != nil {
		return nil, err
	}
	buf := doc.LayerBuffer(doc.ActiveLayer)
	if buf == nil {
		return nil, ErrLayerLocked
	}
	return buf, nil
}

// --- Layers ---

// AddLayer adds an empty layer above the active one and makes it active.
func (e *Engine) AddLayer(name string) (string, error) {
	doc, err := e.idle()
	if err != nil {
		return "", err
	}
	if name == "" {
		name = fmt.Sprintf("Layer %d", len(doc.Layers)+1)
	}
	id, _ := doc.AddLayer(name)
	doc.ActiveLayer = id
	doc.Touch()
	return id, nil
}

// ImportLayer adds a layer holding buf, which must match the canvas size.
func (e *Engine) ImportLayer(name string, buf *pixel.Buffer) (string, error) {
	doc, err := e.idle()
	if err != nil {
		return "", err
	}
	w, h := doc.Size()
	if buf == nil || buf.Width != w || buf.Height != h || len(buf.Pix) != w*h {
		return "", fmt.Errorf("import layer: %w: size does not match the %dx%d canvas", ErrRejected, w, h)
	}
	id, dst := doc.AddLayer(name)
	dst.CopyFrom(buf)
	doc.ActiveLayer = id
	doc.Touch()
	doc.SaveSnapshot("Import " + name)
	return id, nil
}

func (e *Engine) RemoveLayer(id string) error {
	doc, err := e.idle()
	if err != nil {
		return err
	}
	if !doc.RemoveLayer(id) {
		return fmt.Errorf("remove layer %q: %w", id, ErrRejected)
	}
	return nil
}

func (e *Engine) SetActiveLayer(id string) error {
	doc, err := e.idle()
	if err != nil {
		return err
	}
	if !doc.SetActiveLayer(id) {
		return fmt.Errorf("layer %q: %w", id, ErrNotFound)
	}
	return nil
}

func (e *Engine) SetLayerVisible(id string, visible bool) error {
	doc, err := e.idle()
	if err != nil {
		return err
	}
	if !doc.SetLayerVisible(id, visible) {
		return fmt.Errorf("layer %q: %w", id, ErrNotFound)
	}
	return nil
}

func (e *Engine) SetLayerLocked(id string, locked bool) error {
	doc, err := e.idle()
	if err != nil {
		return err
	}
	if !doc.SetLayerLocked(id, locked) {
		return fmt.Errorf("layer %q: %w", id, ErrNotFound)
	}
	return nil
}

// RestoreSnapshot rolls the layers back to an in-memory snapshot.
func (e *Engine) RestoreSnapshot(id string) error {
	doc, err := e.idle()
	if err != nil {
		return err
	}
	if !doc.RestoreID(id) {
		return fmt.Errorf("snapshot %q: %w", id, ErrNotFound)
	}
	slog.Debug("snapshot restored", "id", id)
	return nil
}
