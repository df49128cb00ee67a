package cluster

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	articles []Article

	replaceCalls  int
	lastResults   []Result
	lastCutoff    time.Time
	lastThreshold float64
	lastWindow    int
}

func (f *fakeStore) ArticlesInWindow(ctx context.Context, cutoff time.Time) ([]Article, error) {
	f.lastCutoff = cutoff
	return f.articles, nil
}

func (f *fakeStore) ReplaceClusters(ctx context.Context, cutoff time.Time, results []Result, threshold float64, windowDays int) error {
	f.replaceCalls++
	f.lastResults = results
	f.lastThreshold = threshold
	f.lastWindow = windowDays
	return nil
}

func ts(hoursAgo int) *time.Time {
	t := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Add(-time.Duration(hoursAgo) * time.Hour)
	return &t
}

// descending publish order, the order the store contract guarantees
func sortDesc(articles []Article) []Article {
	sorted := make([]Article, len(articles))
	copy(sorted, articles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt.After(*sorted[j].PublishedAt)
	})
	return sorted
}

func TestRecluster_GroupsSameStory(t *testing.T) {
	store := &fakeStore{articles: sortDesc([]Article{
		{ID: 1, SourceID: 1, Title: "Senate passes landmark budget bill", PublishedAt: ts(1)},
		{ID: 2, SourceID: 2, Title: "Senate passes landmark budget bill", PublishedAt: ts(2)},
		{ID: 3, SourceID: 3, Title: "Local zoo welcomes rare panda cub", PublishedAt: ts(3)},
	})}

	engine := NewEngine(store)
	require.NoError(t, engine.Recluster(context.Background(), 0.88, 2))

	require.Equal(t, 1, store.replaceCalls)
	require.Len(t, store.lastResults, 2)

	budget := store.lastResults[0]
	assert.ElementsMatch(t, []int64{1, 2}, budget.MemberIDs)
	assert.Equal(t, 2, budget.CoverageCount)
	assert.Equal(t, ts(1), budget.LatestPublishedAt)

	panda := store.lastResults[1]
	assert.Equal(t, []int64{3}, panda.MemberIDs)
	assert.Equal(t, 1.0, panda.SimilarityScore)
	assert.Equal(t, 1, panda.CoverageCount)
}

func TestRecluster_SourceExclusivity(t *testing.T) {
	// Identical titles from the same source must never share a cluster,
	// no matter how similar they are.
	store := &fakeStore{articles: sortDesc([]Article{
		{ID: 1, SourceID: 1, Title: "Breaking: wildfire spreads north", PublishedAt: ts(1)},
		{ID: 2, SourceID: 1, Title: "Breaking: wildfire spreads north", PublishedAt: ts(2)},
		{ID: 3, SourceID: 2, Title: "Breaking: wildfire spreads north", PublishedAt: ts(3)},
	})}

	engine := NewEngine(store)
	require.NoError(t, engine.Recluster(context.Background(), 0.7, 2))

	memberSources := map[int64]int64{1: 1, 2: 1, 3: 2}
	for _, res := range store.lastResults {
		seen := map[int64]bool{}
		for _, id := range res.MemberIDs {
			src := memberSources[id]
			assert.False(t, seen[src], "cluster holds two members from source %d", src)
			seen[src] = true
		}
	}

	// The second same-source article opens its own cluster; the other
	// source's article joins the first cluster, scanning in creation order.
	require.Len(t, store.lastResults, 2)
	assert.ElementsMatch(t, []int64{1, 3}, store.lastResults[0].MemberIDs)
	assert.Equal(t, []int64{2}, store.lastResults[1].MemberIDs)
}

func TestRecluster_Idempotent(t *testing.T) {
	store := &fakeStore{articles: sortDesc([]Article{
		{ID: 1, SourceID: 1, Title: "Central bank raises interest rates", PublishedAt: ts(1)},
		{ID: 2, SourceID: 2, Title: "Interest rates raised by central bank", PublishedAt: ts(4)},
		{ID: 3, SourceID: 3, Title: "Storm batters coastal towns", PublishedAt: ts(6)},
		{ID: 4, SourceID: 1, Title: "Storm batters coastal towns overnight", PublishedAt: ts(7)},
	})}

	engine := NewEngine(store)
	require.NoError(t, engine.Recluster(context.Background(), 0.85, 2))
	first := store.lastResults

	require.NoError(t, engine.Recluster(context.Background(), 0.85, 2))
	second := store.lastResults

	assert.Equal(t, first, second)
}

func TestRecluster_ThresholdMonotonicity(t *testing.T) {
	articles := sortDesc([]Article{
		{ID: 1, SourceID: 1, Title: "Tech giant announces record profits", PublishedAt: ts(1)},
		{ID: 2, SourceID: 2, Title: "Record profits announced by tech giant", PublishedAt: ts(2)},
		{ID: 3, SourceID: 3, Title: "Tech giant profits rise sharply this quarter", PublishedAt: ts(3)},
		{ID: 4, SourceID: 4, Title: "Champions league final ends in penalties", PublishedAt: ts(4)},
		{ID: 5, SourceID: 5, Title: "Final ends in dramatic penalty shootout", PublishedAt: ts(5)},
	})

	count := func(threshold float64) int {
		store := &fakeStore{articles: articles}
		engine := NewEngine(store)
		require.NoError(t, engine.Recluster(context.Background(), threshold, 2))
		return len(store.lastResults)
	}

	assert.GreaterOrEqual(t, count(0.95), count(0.7))
}

func TestRecluster_EmptyWindowTouchesNothing(t *testing.T) {
	store := &fakeStore{}
	engine := NewEngine(store)
	require.NoError(t, engine.Recluster(context.Background(), 0.88, 2))
	assert.Zero(t, store.replaceCalls)
}

func TestRecluster_PassesProvenance(t *testing.T) {
	store := &fakeStore{articles: []Article{
		{ID: 1, SourceID: 1, Title: "A headline", PublishedAt: ts(1)},
	}}
	engine := NewEngine(store)
	require.NoError(t, engine.Recluster(context.Background(), 0.91, 7))
	assert.Equal(t, 0.91, store.lastThreshold)
	assert.Equal(t, 7, store.lastWindow)
}

func TestPickCanonical_TieBreaksOnEarliestPublish(t *testing.T) {
	// Identical titles give every member the same average similarity;
	// the earlier publish time must win.
	later := ts(1)
	earlier := ts(5)
	members := []Article{
		{ID: 1, SourceID: 1, Title: "Election results announced", PublishedAt: later},
		{ID: 2, SourceID: 2, Title: "Election results announced", PublishedAt: earlier},
	}

	assert.Equal(t, int64(2), pickCanonical(members).ID)
}

func TestPickCanonical_MissingTimestampLosesTieBreak(t *testing.T) {
	members := []Article{
		{ID: 1, SourceID: 1, Title: "Election results announced", PublishedAt: nil},
		{ID: 2, SourceID: 2, Title: "Election results announced", PublishedAt: ts(1)},
	}

	assert.Equal(t, int64(2), pickCanonical(members).ID)
}

func TestPickCanonical_Singleton(t *testing.T) {
	members := []Article{{ID: 7, SourceID: 1, Title: "Only story"}}
	assert.Equal(t, int64(7), pickCanonical(members).ID)
}

func TestPickCanonical_HighestAverageSimilarityWins(t *testing.T) {
	// The middle phrasing overlaps with both outliers; the outliers share
	// nothing with each other, so the middle one has the best average.
	members := []Article{
		{ID: 1, SourceID: 1, Title: "Markets rally", PublishedAt: ts(1)},
		{ID: 2, SourceID: 2, Title: "Markets rally on rate cut", PublishedAt: ts(2)},
		{ID: 3, SourceID: 3, Title: "Rate cut fuels cautious optimism", PublishedAt: ts(3)},
	}

	assert.Equal(t, int64(2), pickCanonical(members).ID)
}

func TestSummarize_CanonicalDrivesTitleAndScore(t *testing.T) {
	members := []Article{
		{ID: 1, SourceID: 1, Title: "Election results announced", PublishedAt: ts(4)},
		{ID: 2, SourceID: 2, Title: "Election results announced", PublishedAt: ts(2)},
	}

	res := summarize(members)
	assert.Equal(t, int64(1), res.CanonicalID) // ts(4) is earlier than ts(2)
	assert.Equal(t, "Election results announced", res.Title)
	assert.Equal(t, 1.0, res.SimilarityScore)
	assert.Equal(t, ts(2), res.LatestPublishedAt)
}
