// Package store persists projects and their document snapshots.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")
)

// Project is the persisted header of a document. PassphraseHash is empty for
// open projects.
type Project struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Width          int       `json:"width"`
	Height         int       `json:"height"`
	PassphraseHash string    `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Protected reports whether joining the project needs a passphrase.
func (p Project) Protected() bool {
	return p.PassphraseHash != ""
}

// Snapshot is one saved version of a project's serialized document. Version is
// assigned by the store, counting up from 1 per project.
type Snapshot struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"projectId"`
	Label     string          `json:"label"`
	Version   int             `json:"version"`
	Document  json.RawMessage `json:"document,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

type Store interface {
	CreateProject(ctx context.Context, p Project) (Project, error)
	GetProject(ctx context.Context, id string) (Project, error)
	ListProjects(ctx context.Context) ([]Project, error)
	// DeleteProject removes the project and all of its snapshots.
	DeleteProject(ctx context.Context, id string) error

	SaveSnapshot(ctx context.Context, s Snapshot) (Snapshot, error)
	LatestSnapshot(ctx context.Context, projectID string) (Snapshot, error)
	// ListSnapshots returns snapshot headers, newest first, without documents.
	ListSnapshots(ctx context.Context, projectID string) ([]Snapshot, error)
	GetSnapshot(ctx context.Context, projectID, id string) (Snapshot, error)
}
