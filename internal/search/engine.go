// Package search answers keyword queries over algorithms and their node index.
package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"algoflow/internal/metrics"
	"algoflow/internal/model"
)

// ErrEmptyKeyword is returned by keyword searches given a blank keyword.
var ErrEmptyKeyword = errors.New("keyword required")

// Store is the read side of the database the engine queries.
// LIKE-based lookups ignore case and match substrings.
type Store interface {
	FindAlgorithmsByTitle(ctx context.Context, keyword string) ([]*model.Algorithm, error)
	FindNodesByLabel(ctx context.Context, keyword string, publicOnly bool) ([]*model.NodeMatch, error)
	FilterAlgorithms(ctx context.Context, keyword string, categoryID, userID int64) ([]*model.Algorithm, error)
	GetAlgorithm(ctx context.Context, id int64) (*model.Algorithm, error)
}

// Engine runs keyword searches against the store. Whole-word matching is
// done here, on top of the store's substring prefilter.
type Engine struct {
	store Store
	log   *slog.Logger
}

// NewEngine creates a search engine.
func NewEngine(store Store, log *slog.Logger) *Engine {
	return &Engine{store: store, log: log.With("component", "search")}
}

func observe(kind string, start time.Time) {
	metrics.SearchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// SearchAlgorithms returns algorithms whose title matches keyword.
func (e *Engine) SearchAlgorithms(ctx context.Context, keyword string, mode model.MatchMode) ([]*model.Algorithm, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}
	defer observe("algorithms", time.Now())

	candidates, err := e.store.FindAlgorithmsByTitle(ctx, keyword)
	if err != nil {
		return nil, err
	}

	m := NewMatcher(keyword, mode)
	found := candidates[:0]
	for _, a := range candidates {
		if m.Match(a.Title) {
			found = append(found, a)
		}
	}
	return found, nil
}

// SearchNodes returns nodes whose label contains keyword as a whole word.
// ScopePublic leaves out nodes of private algorithms.
func (e *Engine) SearchNodes(ctx context.Context, keyword string, scope model.Scope) ([]*model.NodeMatch, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}
	defer observe("nodes", time.Now())

	candidates, err := e.store.FindNodesByLabel(ctx, keyword, scope != model.ScopeAll)
	if err != nil {
		return nil, err
	}

	m := NewMatcher(keyword, model.MatchWholeWord)
	found := candidates[:0]
	for _, n := range candidates {
		if m.Match(n.Label) {
			found = append(found, n)
		}
	}
	return found, nil
}

// GetAlgorithm looks up one algorithm by id.
func (e *Engine) GetAlgorithm(ctx context.Context, id int64) (*model.Algorithm, error) {
	return e.store.GetAlgorithm(ctx, id)
}

// Query is a plain search. Filters that are set are OR-combined; a zero
// CategoryID or UserID and a blank Keyword are unset.
type Query struct {
	Keyword    string
	CategoryID int64
	UserID     int64
}

// Empty reports whether no filter is set.
func (q Query) Empty() bool {
	return strings.TrimSpace(q.Keyword) == "" && q.CategoryID == 0 && q.UserID == 0
}

// Result is the outcome of a plain search. Performed is false when the query
// had no filter and nothing was searched, which is different from a search
// that found nothing.
type Result struct {
	Performed  bool
	Algorithms []*model.Algorithm
}

// Search runs a plain search: substring match on title, category link, or owner.
func (e *Engine) Search(ctx context.Context, q Query) (Result, error) {
	if q.Empty() {
		return Result{}, nil
	}
	defer observe("plain", time.Now())

	found, err := e.store.FilterAlgorithms(ctx, strings.TrimSpace(q.Keyword), q.CategoryID, q.UserID)
	if err != nil {
		return Result{}, err
	}
	if found == nil {
		found = []*model.Algorithm{}
	}
	e.log.Debug("plain search", "keyword", q.Keyword, "category_id", q.CategoryID, "user_id", q.UserID, "found", len(found))
	return Result{Performed: true, Algorithms: found}, nil
}
