package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/inamate/pixelkit/internal/document"
	"github.com/inamate/pixelkit/internal/engine"
)

var (
	ErrTransformBusy = errors.New("another collaborator is transforming")
	ErrNotShared     = errors.New("command not allowed in a shared room")
)

// Loader opens the engine of a project, usually from its latest snapshot.
type Loader func(ctx context.Context, projectID string) (*engine.Engine, error)

// Saver persists a serialized document under a snapshot label.
type Saver func(ctx context.Context, projectID, label string, doc json.RawMessage) error

// AutosaveLabel labels documents saved on room close without a snapshot.
const AutosaveLabel = "Autosave"

// Commands that would replace the shared document with another one.
var localOnly = map[string]bool{
	"document.load":   true,
	"document.new":    true,
	"document.sample": true,
}

// transformScoped reports whether a command drives the transform session.
func transformScoped(typ string) bool {
	prefix, _, _ := strings.Cut(typ, ".")
	switch prefix {
	case "transform", "free", "distort", "perspective", "warp", "puppet":
		return typ != "transform.state"
	}
	return false
}

// Session is the authoritative engine of one room. Commands are applied one at a
// time; the client that begins a transform owns it until commit or cancel.
type Session struct {
	mu        sync.Mutex
	projectID string
	eng       *engine.Engine
	save      Saver
	serverSeq int64
	owner     string   // clientID driving the active transform
	labels    []string // snapshots taken since the last save
	dirty     bool
}

func NewSession(projectID string, eng *engine.Engine, save Saver) *Session {
	s := &Session{projectID: projectID, eng: eng, save: save}
	// Runs inside Apply, with mu held.
	eng.OnSnapshot(func(snap document.Snapshot) {
		s.labels = append(s.labels, snap.Label)
	})
	return s
}

// Outcome is the result of a submitted command. Seq is non-zero when the
// command changed the document.
type Outcome struct {
	Response engine.Response
	Seq      int64
}

// Submit applies cmd on behalf of clientID. Snapshots taken by the command are
// persisted before Submit returns.
func (s *Session) Submit(ctx context.Context, clientID string, cmd engine.Command) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if localOnly[cmd.Type] {
		return s.reject(fmt.Errorf("%s: %w", cmd.Type, ErrNotShared))
	}
	if _, active := s.eng.ActiveTransform(); active && transformScoped(cmd.Type) && s.owner != clientID {
		return s.reject(fmt.Errorf("%s: %w", cmd.Type, ErrTransformBusy))
	}

	resp := s.eng.Apply(cmd)
	if _, active := s.eng.ActiveTransform(); !active {
		s.owner = ""
	} else if cmd.Type == "transform.begin" && resp.OK {
		s.owner = clientID
	}

	out := Outcome{Response: resp}
	if resp.OK && engine.Mutates(cmd.Type) {
		s.serverSeq++
		s.dirty = true
		out.Seq = s.serverSeq
	}
	if len(s.labels) > 0 {
		label := s.labels[len(s.labels)-1]
		s.labels = s.labels[:0]
		if err := s.persistLocked(ctx, label); err != nil {
			slog.Error("save snapshot", "error", err, "project", s.projectID, "label", label)
		}
	}
	return out
}

func (s *Session) reject(err error) Outcome {
	return Outcome{Response: engine.Response{Error: err.Error(), PixelsVersion: s.eng.PixelsVersion()}}
}

// Release cancels the transform owned by clientID, if any, and reports whether
// it did along with the pixel version afterwards.
func (s *Session) Release(clientID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.owner != clientID || clientID == "" {
		return 0, false
	}
	s.owner = ""
	if err := s.eng.CancelTransform(); err != nil {
		return 0, false
	}
	return s.eng.PixelsVersion(), true
}

// Flush cancels any transform in progress and saves the document if it changed
// since the last save.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, active := s.eng.ActiveTransform(); active {
		if err := s.eng.CancelTransform(); err != nil {
			return fmt.Errorf("cancel transform: %w", err)
		}
		slog.Info("transform cancelled on close", "project", s.projectID, "owner", s.owner)
	}
	s.owner = ""
	if !s.dirty {
		return nil
	}
	return s.persistLocked(ctx, AutosaveLabel)
}

func (s *Session) persistLocked(ctx context.Context, label string) error {
	if s.save == nil {
		s.dirty = false
		return nil
	}
	doc, err := s.eng.DocumentJSON()
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := s.save(ctx, s.projectID, label, doc); err != nil {
		return fmt.Errorf("persist %q: %w", label, err)
	}
	s.dirty = false
	return nil
}

// Sync returns the full document state without any transform preview.
func (s *Session) Sync() (DocSyncPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc []byte
	err := s.eng.Settled(func(e *engine.Engine) error {
		var err error
		doc, err = e.DocumentJSON()
		return err
	})
	if err != nil {
		return DocSyncPayload{}, err
	}
	return DocSyncPayload{Document: doc, ServerSeq: s.serverSeq, PixelsVersion: s.eng.PixelsVersion()}, nil
}

// View runs fn with the settled engine while no command can run.
func (s *Session) View(fn func(*engine.Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.Settled(fn)
}
