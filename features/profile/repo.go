package profile

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

func (r *PostgresRepo) Ensure(ctx context.Context) (*Profile, error) {
	seed := `INSERT INTO profile (id, include_terms, exclude_terms) VALUES (1, '', '') ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, seed); err != nil {
		return nil, err
	}

	p := &Profile{}
	query := `SELECT include_terms, exclude_terms, updated_at FROM profile WHERE id = 1`
	if err := r.db.QueryRowContext(ctx, query).Scan(&p.IncludeTerms, &p.ExcludeTerms, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepo) Update(ctx context.Context, p *Profile) error {
	query := `UPDATE profile SET include_terms = $1, exclude_terms = $2, updated_at = NOW() WHERE id = 1`
	_, err := r.db.ExecContext(ctx, query, p.IncludeTerms, p.ExcludeTerms)
	return err
}
