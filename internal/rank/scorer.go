package rank

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ClusterRow is the slice of a cluster the ranking pass reads.
type ClusterRow struct {
	ID                int64
	Title             string
	CoverageCount     int
	LatestPublishedAt *time.Time
}

type Store interface {
	ListClusters(ctx context.Context) ([]ClusterRow, error)
	UpdateRankScore(ctx context.Context, id int64, score float64) error
}

// TermProvider supplies the global profile's include terms, already
// trimmed, lower-cased and with empty entries dropped.
type TermProvider interface {
	IncludeTerms(ctx context.Context) ([]string, error)
}

// Scorer recomputes the ranking score of every cluster. The ranking
// score is a separate value from the intra-cluster similarity score the
// clustering pass stores.
type Scorer struct {
	store Store
	terms TermProvider
	now   func() time.Time
}

func NewScorer(store Store, terms TermProvider) *Scorer {
	return &Scorer{store: store, terms: terms, now: time.Now}
}

func (s *Scorer) ScoreAll(ctx context.Context) error {
	includeTerms, err := s.terms.IncludeTerms(ctx)
	if err != nil {
		return fmt.Errorf("load include terms: %w", err)
	}

	clusters, err := s.store.ListClusters(ctx)
	if err != nil {
		return fmt.Errorf("list clusters: %w", err)
	}

	now := s.now().UTC()
	for _, c := range clusters {
		score := rankScore(c, includeTerms, now)
		if err := s.store.UpdateRankScore(ctx, c.ID, score); err != nil {
			return fmt.Errorf("update rank score for cluster %d: %w", c.ID, err)
		}
	}
	return nil
}

func rankScore(c ClusterRow, includeTerms []string, now time.Time) float64 {
	coverage := float64(c.CoverageCount)
	if coverage == 0 {
		coverage = 1
	}

	recencyBoost := 0.0
	if c.LatestPublishedAt != nil {
		ageHours := now.Sub(*c.LatestPublishedAt).Hours()
		recencyBoost = max(0, 48.0-ageHours) / 48.0
	}

	termBoost := 0.0
	if len(includeTerms) > 0 {
		title := strings.ToLower(c.Title)
		hits := 0
		for _, term := range includeTerms {
			if strings.Contains(title, term) {
				hits++
			}
		}
		termBoost = min(1.0, float64(hits)*0.25)
	}

	return coverage*10.0 + recencyBoost*5.0 + termBoost*2.0
}
