package stats

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSourceRepo struct {
	count int
	err   error
}

func (f *fakeSourceRepo) Count(ctx context.Context) (int, error) {
	return f.count, f.err
}

type fakeArticleRepo struct {
	articles int
	clusters int
	err      error
}

func (f *fakeArticleRepo) CountArticles(ctx context.Context) (int, error) {
	return f.articles, f.err
}

func (f *fakeArticleRepo) CountClusters(ctx context.Context) (int, error) {
	return f.clusters, f.err
}

func TestGetStats(t *testing.T) {
	handler := NewHandler(&fakeSourceRepo{count: 5}, &fakeArticleRepo{articles: 120, clusters: 17})

	rec := httptest.NewRecorder()
	handler.GetStats(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data": {"sources": 5, "articles": 120, "clusters": 17}}`, rec.Body.String())
}

func TestGetStats_SourceCountError(t *testing.T) {
	handler := NewHandler(&fakeSourceRepo{err: errors.New("db down")}, &fakeArticleRepo{})

	rec := httptest.NewRecorder()
	handler.GetStats(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetStats_ArticleCountError(t *testing.T) {
	handler := NewHandler(&fakeSourceRepo{}, &fakeArticleRepo{err: errors.New("db down")})

	rec := httptest.NewRecorder()
	handler.GetStats(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
