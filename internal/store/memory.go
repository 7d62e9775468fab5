package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Memory is a Store held in process memory. The zero value is not usable; call
// NewMemory.
type Memory struct {
	mu        sync.RWMutex
	projects  map[string]Project
	snapshots map[string][]Snapshot // per project, oldest first
}

func NewMemory() *Memory {
	return &Memory{
		projects:  make(map[string]Project),
		snapshots: make(map[string][]Snapshot),
	}
}

func (m *Memory) CreateProject(_ context.Context, p Project) (Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[p.ID]; ok {
		return Project{}, fmt.Errorf("create project %s: %w", p.ID, ErrExists)
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	m.projects[p.ID] = p
	return p, nil
}

func (m *Memory) GetProject(_ context.Context, id string) (Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.projects[id]
	if !ok {
		return Project{}, fmt.Errorf("get project %s: %w", id, ErrNotFound)
	}
	return p, nil
}

func (m *Memory) ListProjects(_ context.Context) ([]Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Project, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Project) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return out, nil
}

func (m *Memory) DeleteProject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[id]; !ok {
		return fmt.Errorf("delete project %s: %w", id, ErrNotFound)
	}
	delete(m.projects, id)
	delete(m.snapshots, id)
	return nil
}

func (m *Memory) SaveSnapshot(_ context.Context, s Snapshot) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[s.ProjectID]
	if !ok {
		return Snapshot{}, fmt.Errorf("save snapshot: project %s: %w", s.ProjectID, ErrNotFound)
	}
	list := m.snapshots[s.ProjectID]
	s.Version = len(list) + 1
	s.CreatedAt = time.Now().UTC()
	s.Document = append([]byte(nil), s.Document...)
	m.snapshots[s.ProjectID] = append(list, s)

	p.UpdatedAt = s.CreatedAt
	m.projects[p.ID] = p
	return s, nil
}

func (m *Memory) LatestSnapshot(_ context.Context, projectID string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.snapshots[projectID]
	if len(list) == 0 {
		return Snapshot{}, fmt.Errorf("latest snapshot %s: %w", projectID, ErrNotFound)
	}
	return list[len(list)-1], nil
}

func (m *Memory) ListSnapshots(_ context.Context, projectID string) ([]Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.snapshots[projectID]
	out := make([]Snapshot, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		s := list[i]
		s.Document = nil
		out = append(out, s)
	}
	return out, nil
}

func (m *Memory) GetSnapshot(_ context.Context, projectID, id string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.snapshots[projectID] {
		if s.ID == id {
			return s, nil
		}
	}
	return Snapshot{}, fmt.Errorf("get snapshot %s: %w", id, ErrNotFound)
}
