package source

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// querier is satisfied by both *sql.DB and *sql.Tx so the cache refresh
// can run inside a mutation transaction or standalone.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *PostgresRepo) List(ctx context.Context) ([]Source, error) {
	query := `SELECT id, name, feed_url, active, created_at FROM sources ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Name, &s.FeedURL, &s.Active, &s.CreatedAt); err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

func (r *PostgresRepo) CreateWithVersion(ctx context.Context, src *Source) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	insert := `INSERT INTO sources (name, feed_url, active) VALUES ($1, $2, TRUE) RETURNING id, active, created_at`
	if err := tx.QueryRowContext(ctx, insert, src.Name, src.FeedURL).Scan(&src.ID, &src.Active, &src.CreatedAt); err != nil {
		return 0, err
	}

	version, err := bumpVersion(ctx, tx)
	if err != nil {
		return 0, err
	}
	if _, err := refreshCache(ctx, tx, version); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return version, nil
}

func (r *PostgresRepo) DeleteWithVersion(ctx context.Context, id int64) (int64, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return 0, false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}
	if affected == 0 {
		// Nothing changed, so the version must not move.
		return 0, false, nil
	}

	version, err := bumpVersion(ctx, tx)
	if err != nil {
		return 0, false, err
	}
	if _, err := refreshCache(ctx, tx, version); err != nil {
		return 0, false, err
	}

	if err := tx.Commit(); err != nil {
		return 0, false, err
	}
	return version, true, nil
}

func (r *PostgresRepo) Version(ctx context.Context) (int64, error) {
	var version int64
	err := r.db.QueryRowContext(ctx, `SELECT version FROM sources_version WHERE id = 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (r *PostgresRepo) Cache(ctx context.Context) (*Snapshot, bool, error) {
	var (
		version     int64
		generatedAt time.Time
		payload     []byte
	)
	query := `SELECT version, generated_at, payload FROM sources_cache WHERE id = 1`
	err := r.db.QueryRowContext(ctx, query).Scan(&version, &generatedAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	snap := &Snapshot{}
	if err := json.Unmarshal(payload, snap); err != nil {
		return nil, false, fmt.Errorf("decode sources cache payload: %w", err)
	}
	snap.Version = version
	snap.GeneratedAt = generatedAt
	return snap, true, nil
}

func (r *PostgresRepo) RefreshCache(ctx context.Context, version int64) (*Snapshot, error) {
	return refreshCache(ctx, r.db, version)
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sources`).Scan(&count)
	return count, err
}

func bumpVersion(ctx context.Context, q querier) (int64, error) {
	seed := `INSERT INTO sources_version (id, version) VALUES (1, 0) ON CONFLICT (id) DO NOTHING`
	if _, err := q.ExecContext(ctx, seed); err != nil {
		return 0, err
	}

	var version int64
	bump := `UPDATE sources_version SET version = version + 1, updated_at = NOW() WHERE id = 1 RETURNING version`
	if err := q.QueryRowContext(ctx, bump).Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

func refreshCache(ctx context.Context, q querier, version int64) (*Snapshot, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name, feed_url, active FROM sources WHERE active ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := &Snapshot{
		Version:     version,
		GeneratedAt: time.Now().UTC(),
		Sources:     []SnapshotSource{},
	}
	for rows.Next() {
		var s SnapshotSource
		if err := rows.Scan(&s.ID, &s.Name, &s.FeedURL, &s.Active); err != nil {
			return nil, err
		}
		snap.Sources = append(snap.Sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}

	upsert := `
		INSERT INTO sources_cache (id, version, generated_at, payload) VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET version = EXCLUDED.version, generated_at = EXCLUDED.generated_at, payload = EXCLUDED.payload
	`
	if _, err := q.ExecContext(ctx, upsert, snap.Version, snap.GeneratedAt, payload); err != nil {
		return nil, err
	}
	return snap, nil
}
