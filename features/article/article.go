package article

import (
	"time"
)

// StatusInbox is the workflow state every ingested article starts in.
// The review workflow that moves articles out of it lives outside this
// service.
const StatusInbox = "INBOX"

type Article struct {
	ID          int64      `json:"id"`
	SourceID    int64      `json:"source_id"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	RawExcerpt  string     `json:"raw_excerpt,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Status      string     `json:"status"`
	ClusterID   *int64     `json:"cluster_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewArticle is a candidate row built from a fetched feed item.
type NewArticle struct {
	SourceID    int64
	URL         string
	Title       string
	RawExcerpt  string
	PublishedAt *time.Time
}

// QueueCluster is one entry of the ranked story queue, ordered by the
// ranking score (not the intra-cluster similarity score).
type QueueCluster struct {
	ID                 int64      `json:"id"`
	Title              string     `json:"cluster_title"`
	CanonicalArticleID *int64     `json:"canonical_article_id,omitempty"`
	CoverageCount      int        `json:"coverage_count"`
	LatestPublishedAt  *time.Time `json:"latest_published_at,omitempty"`
	SimilarityScore    float64    `json:"similarity_score"`
	RankScore          float64    `json:"rank_score"`
}
