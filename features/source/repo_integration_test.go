package source_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyinbox/backend/features/source"
	"storyinbox/backend/internal/testutils"
)

func TestSourceRepoIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	suite := testutils.NewIntegrationSuite(t)
	suite.Setup()
	defer suite.Teardown()

	ctx := context.Background()
	repo := source.NewPostgresRepo(suite.DB)

	t.Run("version starts at zero", func(t *testing.T) {
		version, err := repo.Version(ctx)
		require.NoError(t, err)
		assert.Zero(t, version)
	})

	t.Run("create bumps version and refreshes cache", func(t *testing.T) {
		src := &source.Source{Name: "Wire", FeedURL: "https://wire.example/rss"}
		version, err := repo.CreateWithVersion(ctx, src)
		require.NoError(t, err)
		assert.Equal(t, int64(1), version)
		assert.NotZero(t, src.ID)
		assert.True(t, src.Active)

		current, err := repo.Version(ctx)
		require.NoError(t, err)
		assert.Equal(t, version, current)

		snap, ok, err := repo.Cache(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, version, snap.Version)
		require.Len(t, snap.Sources, 1)
		assert.Equal(t, "Wire", snap.Sources[0].Name)
	})

	t.Run("list returns sources in id order", func(t *testing.T) {
		second := &source.Source{Name: "Herald", FeedURL: "https://herald.example/rss"}
		_, err := repo.CreateWithVersion(ctx, second)
		require.NoError(t, err)

		sources, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, sources, 2)
		assert.Equal(t, "Wire", sources[0].Name)
		assert.Equal(t, "Herald", sources[1].Name)
	})

	t.Run("duplicate feed url rejected", func(t *testing.T) {
		dup := &source.Source{Name: "Copycat", FeedURL: "https://wire.example/rss"}
		_, err := repo.CreateWithVersion(ctx, dup)
		assert.Error(t, err)

		// The failed mutation must not move the version.
		version, err := repo.Version(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), version)
	})

	t.Run("delete bumps version and drops from cache", func(t *testing.T) {
		sources, err := repo.List(ctx)
		require.NoError(t, err)

		version, deleted, err := repo.DeleteWithVersion(ctx, sources[1].ID)
		require.NoError(t, err)
		assert.True(t, deleted)
		assert.Equal(t, int64(3), version)

		snap, ok, err := repo.Cache(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.Len(t, snap.Sources, 1)
		assert.Equal(t, "Wire", snap.Sources[0].Name)
	})

	t.Run("delete of missing id is a no-op", func(t *testing.T) {
		before, err := repo.Version(ctx)
		require.NoError(t, err)

		_, deleted, err := repo.DeleteWithVersion(ctx, 9999)
		require.NoError(t, err)
		assert.False(t, deleted)

		after, err := repo.Version(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("service publishes change events over nsq", func(t *testing.T) {
		svc := source.NewService(repo, suite.NSQ, 20*time.Minute)

		err := svc.Create(ctx, &source.Source{Name: "Gazette", FeedURL: "https://gazette.example/rss"})
		require.NoError(t, err)

		snap, err := svc.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), snap.Version)
		assert.Len(t, snap.Sources, 2)
	})
}
