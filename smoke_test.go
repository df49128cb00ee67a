package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyinbox/backend/internal/adapter/feed"
	"storyinbox/backend/internal/app"
	"storyinbox/backend/internal/config"
	"storyinbox/backend/internal/testutils"
)

func TestSmoke_Startup(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping smoke test in short mode")
	}

	suite := testutils.NewIntegrationSuite(t)
	suite.Setup()
	defer suite.Teardown()

	cfg := &config.Config{
		SourcesCacheTTLMinutes:  20,
		FeedFetchTimeoutSeconds: 5,
		ServerPort:              0,
	}

	a, err := app.New(cfg, suite.DB, suite.NSQ, feed.NewHTTPFetcher(5*time.Second))
	require.NoError(t, err)

	srv := httptest.NewServer(a.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// End to end through a real postgres: create a source, list it back.
	create, err := http.Post(srv.URL+"/sources", "application/json",
		strings.NewReader(`{"name": "Wire", "feed_url": "https://wire.example/rss"}`))
	require.NoError(t, err)
	create.Body.Close()
	assert.Equal(t, http.StatusCreated, create.StatusCode)

	list, err := http.Get(srv.URL + "/sources")
	require.NoError(t, err)
	list.Body.Close()
	assert.Equal(t, http.StatusOK, list.StatusCode)
}
