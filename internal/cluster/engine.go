package cluster

import (
	"context"
	"fmt"
	"time"
)

// Article is the slice of an article the clustering pass operates on.
type Article struct {
	ID          int64
	SourceID    int64
	Title       string
	PublishedAt *time.Time
}

// Result describes one rebuilt cluster, ready to be persisted.
type Result struct {
	Title             string
	CanonicalID       int64
	MemberIDs         []int64
	CoverageCount     int
	LatestPublishedAt *time.Time
	SimilarityScore   float64
}

// Store is the persistence boundary of the engine. ArticlesInWindow must
// return articles with a non-null publish time at or after the cutoff,
// ordered by publish time descending. ReplaceClusters must clear the
// cluster assignment of every window article and write the new clusters
// in a single transaction.
type Store interface {
	ArticlesInWindow(ctx context.Context, cutoff time.Time) ([]Article, error)
	ReplaceClusters(ctx context.Context, cutoff time.Time, results []Result, threshold float64, windowDays int) error
}

// Engine groups near-duplicate coverage of the same story. Each
// Recluster call is a full rebuild over the trailing window, not an
// incremental update.
type Engine struct {
	store Store
	now   func() time.Time
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

func (e *Engine) Recluster(ctx context.Context, threshold float64, windowDays int) error {
	cutoff := e.now().UTC().AddDate(0, 0, -windowDays)

	articles, err := e.store.ArticlesInWindow(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("load window articles: %w", err)
	}
	if len(articles) == 0 {
		return nil
	}

	groups := assign(articles, threshold)

	results := make([]Result, 0, len(groups))
	for _, g := range groups {
		results = append(results, summarize(g.members))
	}

	if err := e.store.ReplaceClusters(ctx, cutoff, results, threshold, windowDays); err != nil {
		return fmt.Errorf("persist clusters: %w", err)
	}
	return nil
}

type group struct {
	rep     string
	members []Article
	sources map[int64]bool
}

// assign runs the greedy pass: articles arrive in descending publish
// order, open groups are scanned in creation order, and a group that
// already holds the candidate's source is skipped no matter how similar
// the titles are.
func assign(articles []Article, threshold float64) []*group {
	var groups []*group

	for _, a := range articles {
		tnorm := NormalizeTitle(a.Title)

		var target *group
		for _, g := range groups {
			if g.sources[a.SourceID] {
				continue
			}
			if similarityNormalized(tnorm, g.rep) >= threshold {
				target = g
				break
			}
		}

		if target == nil {
			target = &group{rep: tnorm, sources: make(map[int64]bool)}
			groups = append(groups, target)
		}
		target.members = append(target.members, a)
		target.sources[a.SourceID] = true
	}

	return groups
}

func summarize(members []Article) Result {
	canonical := pickCanonical(members)

	var sum float64
	var counted int
	for _, m := range members {
		if m.ID == canonical.ID {
			continue
		}
		sum += Similarity(canonical.Title, m.Title)
		counted++
	}
	score := 1.0
	if counted > 0 {
		score = sum / float64(counted)
	}

	sources := make(map[int64]bool, len(members))
	ids := make([]int64, 0, len(members))
	var latest *time.Time
	for _, m := range members {
		sources[m.SourceID] = true
		ids = append(ids, m.ID)
		if m.PublishedAt != nil && (latest == nil || m.PublishedAt.After(*latest)) {
			t := *m.PublishedAt
			latest = &t
		}
	}

	return Result{
		Title:             canonical.Title,
		CanonicalID:       canonical.ID,
		MemberIDs:         ids,
		CoverageCount:     len(sources),
		LatestPublishedAt: latest,
		SimilarityScore:   score,
	}
}

// pickCanonical selects the member with the highest average pairwise
// similarity to the rest. Ties go to the earliest publish time; a member
// without one sorts as latest possible and loses every tie-break.
func pickCanonical(members []Article) Article {
	if len(members) == 1 {
		return members[0]
	}

	best := members[0]
	bestScore := -1.0
	for _, candidate := range members {
		var sum float64
		var others int
		for _, o := range members {
			if o.ID == candidate.ID {
				continue
			}
			sum += Similarity(candidate.Title, o.Title)
			others++
		}
		avg := 1.0
		if others > 0 {
			avg = sum / float64(others)
		}

		switch {
		case avg > bestScore:
			best = candidate
			bestScore = avg
		case avg == bestScore:
			if tieBreakTime(candidate).Before(tieBreakTime(best)) {
				best = candidate
			}
		}
	}
	return best
}

var maxTime = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

func tieBreakTime(a Article) time.Time {
	if a.PublishedAt == nil {
		return maxTime
	}
	return *a.PublishedAt
}
