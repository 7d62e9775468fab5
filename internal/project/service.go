package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/inamate/pixelkit/internal/auth"
	"github.com/inamate/pixelkit/internal/document"
	"github.com/inamate/pixelkit/internal/engine"
	"github.com/inamate/pixelkit/internal/store"
	"github.com/inamate/pixelkit/internal/typeid"
)

var (
	ErrNotFound = errors.New("project not found")
	ErrInvalid  = errors.New("invalid project")
)

// PlaygroundID is the open project every server seeds with the sample document.
const PlaygroundID = "proj_playground"

const initialLabel = "Initial"

type Service struct {
	store store.Store
	auth  *auth.Service
	opts  engine.Options
}

func NewService(st store.Store, authService *auth.Service, opts engine.Options) *Service {
	return &Service{store: st, auth: authService, opts: opts}
}

type CreateParams struct {
	Name       string `json:"name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Passphrase string `json:"passphrase"`
}

// Create stores a new project with an empty document as its first snapshot.
func (s *Service) Create(ctx context.Context, p CreateParams) (store.Project, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return store.Project{}, fmt.Errorf("%w: name is required", ErrInvalid)
	}

	hash, err := s.auth.HashPassphrase(p.Passphrase)
	if err != nil {
		return store.Project{}, err
	}

	doc := document.New(typeid.NewProjectID(), name, p.Width, p.Height)
	return s.create(ctx, doc, hash)
}

func (s *Service) create(ctx context.Context, doc *document.Document, hash string) (store.Project, error) {
	proj, err := s.store.CreateProject(ctx, store.Project{
		ID:             doc.Project.ID,
		Name:           doc.Project.Name,
		Width:          doc.Project.Width,
		Height:         doc.Project.Height,
		PassphraseHash: hash,
	})
	if err != nil {
		return store.Project{}, fmt.Errorf("create project: %w", err)
	}

	if err := s.Save(ctx, proj.ID, initialLabel, mustJSON(doc)); err != nil {
		return store.Project{}, err
	}
	return proj, nil
}

// EnsurePlayground creates the open playground project if it does not exist.
func (s *Service) EnsurePlayground(ctx context.Context) error {
	_, err := s.store.GetProject(ctx, PlaygroundID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("get playground: %w", err)
	}
	doc := document.NewSampleDocument(PlaygroundID)
	doc.Project.Name = "Playground"
	if _, err := s.create(ctx, doc, ""); err != nil && !errors.Is(err, store.ErrExists) {
		return err
	}
	return nil
}

func (s *Service) Get(ctx context.Context, projectID string) (store.Project, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return store.Project{}, mapErr(err)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context) ([]store.Project, error) {
	return s.store.ListProjects(ctx)
}

func (s *Service) Delete(ctx context.Context, projectID string) error {
	if projectID == PlaygroundID {
		return fmt.Errorf("%w: the playground cannot be deleted", ErrInvalid)
	}
	return mapErr(s.store.DeleteProject(ctx, projectID))
}

func (s *Service) Snapshots(ctx context.Context, projectID string) ([]store.Snapshot, error) {
	if _, err := s.Get(ctx, projectID); err != nil {
		return nil, err
	}
	return s.store.ListSnapshots(ctx, projectID)
}

// Snapshot returns one snapshot with its document; "latest" selects the newest.
func (s *Service) Snapshot(ctx context.Context, projectID, snapshotID string) (store.Snapshot, error) {
	var (
		snap store.Snapshot
		err  error
	)
	if snapshotID == "latest" {
		snap, err = s.store.LatestSnapshot(ctx, projectID)
	} else {
		if err := typeid.Validate(snapshotID, typeid.PrefixSnapshot); err != nil {
			return store.Snapshot{}, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		snap, err = s.store.GetSnapshot(ctx, projectID, snapshotID)
	}
	if err != nil {
		return store.Snapshot{}, mapErr(err)
	}
	return snap, nil
}

// Open returns an engine holding the project's latest document. It satisfies
// collab.Loader.
func (s *Service) Open(ctx context.Context, projectID string) (*engine.Engine, error) {
	proj, err := s.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	e := engine.NewEngine(s.opts)
	snap, err := s.store.LatestSnapshot(ctx, projectID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		e.NewDocument(proj.ID, proj.Name, proj.Width, proj.Height)
	case err != nil:
		return nil, fmt.Errorf("latest snapshot: %w", err)
	default:
		if err := e.LoadDocument(snap.Document); err != nil {
			return nil, fmt.Errorf("load snapshot %s: %w", snap.ID, err)
		}
	}
	return e, nil
}

// Save stores doc as the project's newest snapshot. It satisfies collab.Saver.
func (s *Service) Save(ctx context.Context, projectID, label string, doc json.RawMessage) error {
	_, err := s.store.SaveSnapshot(ctx, store.Snapshot{
		ID:        typeid.NewSnapshotID(),
		ProjectID: projectID,
		Label:     label,
		Document:  doc,
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", mapErr(err))
	}
	return nil
}

func mapErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func mustJSON(doc *document.Document) json.RawMessage {
	data, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("encode new document: %v", err))
	}
	return data
}
