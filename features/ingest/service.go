package ingest

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lib/pq"

	"storyinbox/backend/features/article"
	"storyinbox/backend/features/source"
	"storyinbox/backend/internal/adapter/feed"
)

const maxTitleLen = 512

type SnapshotProvider interface {
	Snapshot(ctx context.Context) (*source.Snapshot, error)
}

type ArticleStore interface {
	UpsertBatch(ctx context.Context, rows []article.NewArticle) (int, error)
}

type Clusterer interface {
	Recluster(ctx context.Context, threshold float64, windowDays int) error
}

type Ranker interface {
	ScoreAll(ctx context.Context) error
}

// Service drives the fetch, upsert, cluster, score sequence. Start is
// fire-and-forget: the pipeline runs on its own goroutine with a
// detached context and callers poll the job store for status.
type Service struct {
	jobs      *JobStore
	sources   SnapshotProvider
	fetcher   feed.Fetcher
	articles  ArticleStore
	clusterer Clusterer
	ranker    Ranker
}

func NewService(jobs *JobStore, sources SnapshotProvider, fetcher feed.Fetcher, articles ArticleStore, clusterer Clusterer, ranker Ranker) *Service {
	return &Service{
		jobs:      jobs,
		sources:   sources,
		fetcher:   fetcher,
		articles:  articles,
		clusterer: clusterer,
		ranker:    ranker,
	}
}

// Start claims the single-flight slot and, if this call won it,
// launches the pipeline in the background.
func (s *Service) Start(threshold float64, windowDays int) (string, bool) {
	jobID, alreadyRunning := s.jobs.Start(threshold, windowDays)
	if !alreadyRunning {
		go s.runPipeline(context.Background(), jobID, threshold, windowDays)
	}
	return jobID, alreadyRunning
}

func (s *Service) Job(id string) (*JobRecord, bool) {
	return s.jobs.Get(id)
}

func (s *Service) CurrentRunning() (*JobRecord, bool) {
	return s.jobs.CurrentRunning()
}

func (s *Service) runPipeline(ctx context.Context, jobID string, threshold float64, windowDays int) {
	slog.Info("ingestion job started", "job_id", jobID, "threshold", threshold, "window_days", windowDays)

	inserted, attempted, err := s.execute(ctx, threshold, windowDays)

	switch {
	case err == nil:
		skipped := attempted - inserted
		s.jobs.Finish(jobID, JobCompleted, func(j *JobRecord) {
			j.Inserted = &inserted
			j.Skipped = &skipped
			j.Message = "Ingestion complete."
		})
		slog.Info("ingestion job completed", "job_id", jobID, "inserted", inserted, "skipped", skipped)
	case isUniqueViolation(err):
		s.jobs.Finish(jobID, JobFailed, func(j *JobRecord) {
			j.Error = "Integrity error while ingesting articles. Please retry after resolving duplicates."
			j.Message = "Ingestion failed."
		})
		slog.Error("ingestion job failed on integrity violation", "job_id", jobID, "error", err)
	default:
		s.jobs.Finish(jobID, JobFailed, func(j *JobRecord) {
			j.Error = err.Error()
			j.Message = "Ingestion failed."
		})
		slog.Error("ingestion job failed", "job_id", jobID, "error", err)
	}
}

// execute runs the pipeline phases in order, each committing before the
// next begins. A fetch failure for one source fails the whole run.
func (s *Service) execute(ctx context.Context, threshold float64, windowDays int) (inserted, attempted int, err error) {
	snap, err := s.sources.Snapshot(ctx)
	if err != nil {
		return 0, 0, err
	}

	for _, src := range snap.Sources {
		items, err := s.fetcher.Fetch(ctx, src.FeedURL)
		if err != nil {
			return inserted, attempted, err
		}

		rows := make([]article.NewArticle, 0, len(items))
		for _, it := range items {
			if it.URL == "" {
				continue
			}
			rows = append(rows, article.NewArticle{
				SourceID:    src.ID,
				URL:         it.URL,
				Title:       truncate(it.Title, maxTitleLen),
				RawExcerpt:  it.Summary,
				PublishedAt: it.PublishedAt,
			})
		}
		if len(rows) == 0 {
			continue
		}

		attempted += len(rows)
		n, err := s.articles.UpsertBatch(ctx, rows)
		if err != nil {
			return inserted, attempted, err
		}
		inserted += n
	}

	if err := s.clusterer.Recluster(ctx, threshold, windowDays); err != nil {
		return inserted, attempted, err
	}
	if err := s.ranker.ScoreAll(ctx); err != nil {
		return inserted, attempted, err
	}
	return inserted, attempted, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// truncate limits a title to n characters, never splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
