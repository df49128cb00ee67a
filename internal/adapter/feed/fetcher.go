package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

// Item is one fetched feed entry. Entries missing a URL or title are
// filtered out before they reach the pipeline.
type Item struct {
	URL         string
	Title       string
	Summary     string
	PublishedAt *time.Time
}

type Fetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]Item, error)
}

// HTTPFetcher parses RSS/Atom feeds over HTTP. A slow or hung feed
// stalls the whole ingestion run, so the client carries a timeout.
type HTTPFetcher struct {
	parser *gofeed.Parser
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	return &HTTPFetcher{parser: parser}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, feedURL string) ([]Item, error) {
	parsed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", feedURL, err)
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		if entry.Link == "" || entry.Title == "" {
			continue
		}

		published := entry.PublishedParsed
		if published == nil {
			published = entry.UpdatedParsed
		}

		items = append(items, Item{
			URL:         entry.Link,
			Title:       entry.Title,
			Summary:     entry.Description,
			PublishedAt: published,
		})
	}
	return items, nil
}
