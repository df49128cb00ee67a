package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Wire</title>
    <link>https://wire.example</link>
    <item>
      <title>Senate passes budget bill</title>
      <link>https://wire.example/budget</link>
      <description>The bill passed late on Tuesday.</description>
      <pubDate>Tue, 03 Mar 2026 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Untimed story</title>
      <link>https://wire.example/untimed</link>
    </item>
    <item>
      <title></title>
      <link>https://wire.example/untitled</link>
    </item>
  </channel>
</rss>`

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssFixture))
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher(5 * time.Second)
	items, err := fetcher.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	// The untitled entry is dropped.
	require.Len(t, items, 2)

	assert.Equal(t, "https://wire.example/budget", items[0].URL)
	assert.Equal(t, "Senate passes budget bill", items[0].Title)
	assert.Equal(t, "The bill passed late on Tuesday.", items[0].Summary)
	require.NotNil(t, items[0].PublishedAt)
	assert.Equal(t, time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC), items[0].PublishedAt.UTC())

	assert.Nil(t, items[1].PublishedAt)
}

func TestFetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher(5 * time.Second)
	_, err := fetcher.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), srv.URL)
}

func TestFetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := NewHTTPFetcher(5 * time.Second)
	_, err := fetcher.Fetch(ctx, srv.URL)
	assert.Error(t, err)
}
