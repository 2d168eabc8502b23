package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"algoflow/internal/db"
	"algoflow/internal/model"
)

// Searcher is what the aggregator needs from the engine.
type Searcher interface {
	SearchAlgorithms(ctx context.Context, keyword string, mode model.MatchMode) ([]*model.Algorithm, error)
	SearchNodes(ctx context.Context, keyword string, scope model.Scope) ([]*model.NodeMatch, error)
	GetAlgorithm(ctx context.Context, id int64) (*model.Algorithm, error)
}

// Aggregator merges algorithm matches and node matches per algorithm.
type Aggregator struct {
	searcher Searcher
	log      *slog.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(searcher Searcher, log *slog.Logger) *Aggregator {
	return &Aggregator{searcher: searcher, log: log.With("component", "aggregate")}
}

// ThoroughSearch finds algorithms whose title contains keyword as a whole
// word and nodes whose label does, and groups both by algorithm. Every
// matching algorithm appears once, with its metadata and all of its matching
// nodes. Algorithms reached only through a node are looked up once each.
func (a *Aggregator) ThoroughSearch(ctx context.Context, keyword string, scope model.Scope) (map[int64]*model.AlgorithmHits, error) {
	defer observe("thorough", time.Now())

	var algorithms []*model.Algorithm
	var nodes []*model.NodeMatch

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		algorithms, err = a.searcher.SearchAlgorithms(gctx, keyword, model.MatchWholeWord)
		return err
	})
	g.Go(func() error {
		var err error
		nodes, err = a.searcher.SearchNodes(gctx, keyword, scope)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make(map[int64]*model.AlgorithmHits, len(algorithms))
	for _, alg := range algorithms {
		results[alg.ID] = &model.AlgorithmHits{
			ID:          alg.ID,
			Title:       alg.Title,
			Description: alg.Description,
			Nodes:       []model.Node{},
		}
	}

	for _, n := range nodes {
		hits, ok := results[n.AlgorithmID]
		if !ok {
			hits = &model.AlgorithmHits{ID: n.AlgorithmID, Nodes: []model.Node{}}
			results[n.AlgorithmID] = hits
		}
		hits.Nodes = append(hits.Nodes, n.Node)
	}

	// One lookup per entry, however many nodes it holds.
	for id, hits := range results {
		if hits.Title != "" {
			continue
		}
		alg, err := a.searcher.GetAlgorithm(ctx, id)
		if errors.Is(err, db.ErrNotFound) {
			// Deleted between the node search and now.
			delete(results, id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading algorithm %d: %w", id, err)
		}
		hits.ID = alg.ID
		hits.Title = alg.Title
		hits.Description = alg.Description
	}

	a.log.Debug("thorough search",
		"keyword", keyword, "scope", scope.String(),
		"algorithms", len(algorithms), "nodes", len(nodes), "results", len(results))
	return results, nil
}
