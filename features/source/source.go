package source

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"storyinbox/backend/internal/config"
)

type Source struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	FeedURL   string    `json:"feed_url"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// SnapshotSource is the shape of a source inside the cached snapshot
// payload handed to ingestion.
type SnapshotSource struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	FeedURL string `json:"feed_url"`
	Active  bool   `json:"active"`
}

// Snapshot is the versioned active-source payload. It is only valid
// while its version matches the current counter and its age is within
// the cache TTL.
type Snapshot struct {
	Version     int64            `json:"version"`
	GeneratedAt time.Time        `json:"generated_at"`
	Sources     []SnapshotSource `json:"sources"`
}

type Repository interface {
	List(ctx context.Context) ([]Source, error)

	// CreateWithVersion and DeleteWithVersion perform the row change,
	// the version bump and the cache refresh in one transaction, so a
	// reader never observes a bumped version with a stale cache.
	CreateWithVersion(ctx context.Context, src *Source) (int64, error)
	DeleteWithVersion(ctx context.Context, id int64) (int64, bool, error)

	Version(ctx context.Context) (int64, error)
	Cache(ctx context.Context) (*Snapshot, bool, error)
	RefreshCache(ctx context.Context, version int64) (*Snapshot, error)

	Count(ctx context.Context) (int, error)
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	repo Repository
	pub  EventPublisher
	ttl  time.Duration
	now  func() time.Time
}

func NewService(repo Repository, pub EventPublisher, cacheTTL time.Duration) *Service {
	return &Service{repo: repo, pub: pub, ttl: cacheTTL, now: time.Now}
}

// Snapshot returns the cached active-source payload when it is still
// keyed to the current version and younger than the TTL, regenerating
// it otherwise.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	version, err := s.repo.Version(ctx)
	if err != nil {
		return nil, err
	}

	cached, ok, err := s.repo.Cache(ctx)
	if err != nil {
		return nil, err
	}
	if ok && cached.Version == version && s.now().Sub(cached.GeneratedAt) < s.ttl {
		return cached, nil
	}

	return s.repo.RefreshCache(ctx, version)
}

func (s *Service) List(ctx context.Context) ([]Source, error) {
	return s.repo.List(ctx)
}

func (s *Service) Create(ctx context.Context, src *Source) error {
	version, err := s.repo.CreateWithVersion(ctx, src)
	if err != nil {
		return err
	}
	s.notifyChanged(ctx, version)
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	version, deleted, err := s.repo.DeleteWithVersion(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		s.notifyChanged(ctx, version)
	}
	return deleted, nil
}

// notifyChanged publishes the new version after the mutation has
// committed. Delivery is best effort: a failure is logged and never
// surfaced to the caller.
func (s *Service) notifyChanged(ctx context.Context, version int64) {
	body, err := json.Marshal(map[string]int64{"version": version})
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode sources.changed event", "error", err, "version", version)
		return
	}
	if err := s.pub.Publish(config.TopicSourcesChanged, body); err != nil {
		slog.ErrorContext(ctx, "failed to publish sources.changed event", "error", err, "version", version)
		return
	}
	slog.InfoContext(ctx, "published sources.changed event", "version", version)
}
