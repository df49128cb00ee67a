package settings

import (
	"context"
)

const (
	DefaultThreshold  = 0.88
	DefaultWindowDays = 2
)

// Prefs are the persisted ingestion defaults. A POST that supplies
// overrides updates them before the job starts.
type Prefs struct {
	Threshold  float64 `json:"cluster_similarity_threshold"`
	WindowDays int     `json:"cluster_time_window_days"`
}

type Repository interface {
	Ensure(ctx context.Context) (*Prefs, error)
	Update(ctx context.Context, p *Prefs) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the current preferences, creating the row with defaults
// on first use.
func (s *Service) Get(ctx context.Context) (*Prefs, error) {
	return s.repo.Ensure(ctx)
}

func (s *Service) Update(ctx context.Context, p *Prefs) error {
	return s.repo.Update(ctx, p)
}
