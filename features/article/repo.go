package article

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"storyinbox/backend/internal/cluster"
	"storyinbox/backend/internal/rank"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// UpsertBatch inserts candidate rows with insert-if-absent semantics on
// the URL. A URL collision is not an error; it just does not count
// toward the returned inserted total.
func (r *PostgresRepo) UpsertBatch(ctx context.Context, rows []NewArticle) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO articles (source_id, url, title, raw_excerpt, published_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (url) DO NOTHING
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, row := range rows {
		res, err := stmt.ExecContext(ctx, row.SourceID, row.URL, row.Title, nullString(row.RawExcerpt), row.PublishedAt, StatusInbox)
		if err != nil {
			return 0, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// ArticlesInWindow implements cluster.Store.
func (r *PostgresRepo) ArticlesInWindow(ctx context.Context, cutoff time.Time) ([]cluster.Article, error) {
	query := `
		SELECT id, source_id, title, published_at FROM articles
		WHERE published_at IS NOT NULL AND published_at >= $1
		ORDER BY published_at DESC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []cluster.Article
	for rows.Next() {
		var a cluster.Article
		if err := rows.Scan(&a.ID, &a.SourceID, &a.Title, &a.PublishedAt); err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// ReplaceClusters implements cluster.Store: clears the assignment of
// every window article and writes the rebuilt clusters, all in one
// transaction.
func (r *PostgresRepo) ReplaceClusters(ctx context.Context, cutoff time.Time, results []cluster.Result, threshold float64, windowDays int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	clear := `UPDATE articles SET cluster_id = NULL WHERE published_at IS NOT NULL AND published_at >= $1`
	if _, err := tx.ExecContext(ctx, clear, cutoff); err != nil {
		return err
	}

	insert := `
		INSERT INTO clusters (cluster_title, canonical_article_id, coverage_count, latest_published_at, similarity_score, created_with_threshold, created_with_time_window_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	assign := `UPDATE articles SET cluster_id = $1 WHERE id = ANY($2)`

	for _, res := range results {
		var clusterID int64
		err := tx.QueryRowContext(ctx, insert,
			res.Title, res.CanonicalID, res.CoverageCount, res.LatestPublishedAt,
			res.SimilarityScore, threshold, windowDays,
		).Scan(&clusterID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, assign, clusterID, pq.Array(res.MemberIDs)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListClusters implements rank.Store.
func (r *PostgresRepo) ListClusters(ctx context.Context) ([]rank.ClusterRow, error) {
	query := `SELECT id, cluster_title, coverage_count, latest_published_at FROM clusters`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clusters []rank.ClusterRow
	for rows.Next() {
		var c rank.ClusterRow
		if err := rows.Scan(&c.ID, &c.Title, &c.CoverageCount, &c.LatestPublishedAt); err != nil {
			return nil, err
		}
		clusters = append(clusters, c)
	}
	return clusters, rows.Err()
}

// UpdateRankScore implements rank.Store.
func (r *PostgresRepo) UpdateRankScore(ctx context.Context, id int64, score float64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE clusters SET rank_score = $1 WHERE id = $2`, score, id)
	return err
}

// Queue returns clusters ordered by ranking score, best first.
func (r *PostgresRepo) Queue(ctx context.Context, limit int) ([]QueueCluster, error) {
	query := `
		SELECT id, cluster_title, canonical_article_id, coverage_count, latest_published_at, similarity_score, rank_score
		FROM clusters
		ORDER BY rank_score DESC, id ASC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clusters []QueueCluster
	for rows.Next() {
		var c QueueCluster
		if err := rows.Scan(&c.ID, &c.Title, &c.CanonicalArticleID, &c.CoverageCount, &c.LatestPublishedAt, &c.SimilarityScore, &c.RankScore); err != nil {
			return nil, err
		}
		clusters = append(clusters, c)
	}
	return clusters, rows.Err()
}

func (r *PostgresRepo) CountArticles(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&count)
	return count, err
}

func (r *PostgresRepo) CountClusters(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clusters`).Scan(&count)
	return count, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
