package settings

import (
	"context"
	"database/sql"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Ensure(ctx context.Context) (*Prefs, error) {
	insert := `INSERT INTO ingest_prefs (id, cluster_similarity_threshold, cluster_time_window_days) VALUES (1, $1, $2) ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, DefaultThreshold, DefaultWindowDays); err != nil {
		return nil, err
	}

	p := &Prefs{}
	query := `SELECT cluster_similarity_threshold, cluster_time_window_days FROM ingest_prefs WHERE id = 1`
	if err := r.db.QueryRowContext(ctx, query).Scan(&p.Threshold, &p.WindowDays); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepo) Update(ctx context.Context, p *Prefs) error {
	query := `UPDATE ingest_prefs SET cluster_similarity_threshold = $1, cluster_time_window_days = $2, updated_at = NOW() WHERE id = 1`
	_, err := r.db.ExecContext(ctx, query, p.Threshold, p.WindowDays)
	return err
}
