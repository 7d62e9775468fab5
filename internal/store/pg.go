package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the tables PG needs. It is safe to run repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS projects (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	width           INTEGER NOT NULL,
	height          INTEGER NOT NULL,
	passphrase_hash TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	label      TEXT NOT NULL DEFAULT '',
	version    INTEGER NOT NULL,
	document   JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (project_id, version)
);
`

// PG is a Store backed by PostgreSQL.
type PG struct {
	pool *pgxpool.Pool
}

// NewPool connects to databaseURL and checks the connection.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool}
}

// Migrate applies Schema.
func (s *PG) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *PG) CreateProject(ctx context.Context, p Project) (Project, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO projects (id, name, width, height, passphrase_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Width, p.Height, p.PassphraseHash,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return Project{}, fmt.Errorf("create project %s: %w", p.ID, ErrExists)
		}
		return Project{}, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

const projectColumns = `id, name, width, height, passphrase_hash, created_at, updated_at`

func scanProject(row pgx.Row) (Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Name, &p.Width, &p.Height, &p.PassphraseHash, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *PG) GetProject(ctx context.Context, id string) (Project, error) {
	p, err := scanProject(s.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, fmt.Errorf("get project %s: %w", id, ErrNotFound)
		}
		return Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (s *PG) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := []Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return out, nil
}

func (s *PG) DeleteProject(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete project %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PG) SaveSnapshot(ctx context.Context, snap Snapshot) (Snapshot, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// Locking the project row serializes version numbering per project.
	var exists bool
	err = tx.QueryRow(ctx, `SELECT true FROM projects WHERE id = $1 FOR UPDATE`, snap.ProjectID).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, fmt.Errorf("save snapshot: project %s: %w", snap.ProjectID, ErrNotFound)
		}
		return Snapshot{}, fmt.Errorf("lock project: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO snapshots (id, project_id, label, version, document)
		SELECT $1, $2, $3, COALESCE(MAX(version), 0) + 1, $4
		FROM snapshots WHERE project_id = $2
		RETURNING version, created_at`,
		snap.ID, snap.ProjectID, snap.Label, snap.Document,
	).Scan(&snap.Version, &snap.CreatedAt)
	if err != nil {
		return Snapshot{}, fmt.Errorf("insert snapshot: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE projects SET updated_at = $2 WHERE id = $1`, snap.ProjectID, snap.CreatedAt); err != nil {
		return Snapshot{}, fmt.Errorf("touch project: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("commit snapshot: %w", err)
	}
	return snap, nil
}

func (s *PG) LatestSnapshot(ctx context.Context, projectID string) (Snapshot, error) {
	var snap Snapshot
	err := s.pool.QueryRow(ctx, `
		SELECT id, project_id, label, version, document, created_at
		FROM snapshots WHERE project_id = $1
		ORDER BY version DESC LIMIT 1`, projectID,
	).Scan(&snap.ID, &snap.ProjectID, &snap.Label, &snap.Version, &snap.Document, &snap.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, fmt.Errorf("latest snapshot %s: %w", projectID, ErrNotFound)
		}
		return Snapshot{}, fmt.Errorf("latest snapshot: %w", err)
	}
	return snap, nil
}

func (s *PG) ListSnapshots(ctx context.Context, projectID string) ([]Snapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, project_id, label, version, created_at
		FROM snapshots WHERE project_id = $1
		ORDER BY version DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	snaps, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Snapshot, error) {
		var snap Snapshot
		err := row.Scan(&snap.ID, &snap.ProjectID, &snap.Label, &snap.Version, &snap.CreatedAt)
		return snap, err
	})
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snaps, nil
}

func (s *PG) GetSnapshot(ctx context.Context, projectID, id string) (Snapshot, error) {
	var snap Snapshot
	err := s.pool.QueryRow(ctx, `
		SELECT id, project_id, label, version, document, created_at
		FROM snapshots WHERE project_id = $1 AND id = $2`, projectID, id,
	).Scan(&snap.ID, &snap.ProjectID, &snap.Label, &snap.Version, &snap.Document, &snap.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, fmt.Errorf("get snapshot %s: %w", id, ErrNotFound)
		}
		return Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}
	return snap, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
