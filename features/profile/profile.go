package profile

import (
	"context"
	"strings"
	"time"
)

// Profile is the single global interest profile. IncludeTerms is a
// comma-separated list of topical terms boosting the ranking score of
// matching clusters.
type Profile struct {
	IncludeTerms string    `json:"include_terms"`
	ExcludeTerms string    `json:"exclude_terms"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Repository interface {
	Ensure(ctx context.Context) (*Profile, error)
	Update(ctx context.Context, p *Profile) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context) (*Profile, error) {
	return s.repo.Ensure(ctx)
}

func (s *Service) Update(ctx context.Context, p *Profile) error {
	return s.repo.Update(ctx, p)
}

// IncludeTerms returns the profile's include terms lower-cased and
// trimmed, with empty entries dropped. It implements rank.TermProvider.
func (s *Service) IncludeTerms(ctx context.Context) ([]string, error) {
	p, err := s.repo.Ensure(ctx)
	if err != nil {
		return nil, err
	}
	return SplitTerms(p.IncludeTerms), nil
}

func SplitTerms(raw string) []string {
	parts := strings.Split(strings.ToLower(raw), ",")
	terms := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}
