// Package index keeps each algorithm's node index in step with its graph document.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"algoflow/internal/db"
	"algoflow/internal/graphdoc"
	"algoflow/internal/metrics"
	"algoflow/internal/model"
)

// NodeWriter is the part of the store a reconciliation writes through.
// Callers pass the store of an open transaction.
type NodeWriter interface {
	DeleteAlgorithmNodes(ctx context.Context, algorithmID int64) (int64, error)
	InsertNodes(ctx context.Context, algorithmID int64, records []model.NodeRecord, ts time.Time) error
}

// Indexer rebuilds node indexes from graph documents.
type Indexer struct {
	log *slog.Logger
}

// New creates an Indexer.
func New(log *slog.Logger) *Indexer {
	return &Indexer{log: log.With("component", "index")}
}

// Reconcile replaces the node index of an algorithm with the cells of
// document and returns how many nodes were written. The document is parsed
// before anything is deleted. Reconcile is only atomic when w belongs to a
// transaction the caller rolls back on error.
func (ix *Indexer) Reconcile(ctx context.Context, w NodeWriter, algorithmID int64, document []byte, ts time.Time) (int, error) {
	records, err := graphdoc.Parse(document)
	if err != nil {
		metrics.ReconcileTotal.WithLabelValues("parse_error").Inc()
		return 0, err
	}

	removed, err := w.DeleteAlgorithmNodes(ctx, algorithmID)
	if err != nil {
		metrics.ReconcileTotal.WithLabelValues("db_error").Inc()
		return 0, fmt.Errorf("clearing nodes of algorithm %d: %w", algorithmID, err)
	}
	if err := w.InsertNodes(ctx, algorithmID, records, ts); err != nil {
		metrics.ReconcileTotal.WithLabelValues("db_error").Inc()
		return 0, fmt.Errorf("indexing nodes of algorithm %d: %w", algorithmID, err)
	}

	metrics.ReconcileTotal.WithLabelValues("ok").Inc()
	metrics.ReconcileNodes.Observe(float64(len(records)))
	ix.log.Debug("reconciled node index",
		"algorithm_id", algorithmID, "removed", removed, "inserted", len(records))
	return len(records), nil
}

// Result reports the reconciliation of one stored graph.
type Result struct {
	AlgorithmID int64
	Nodes       int
	Err         error
}

// ReconcileAll rebuilds the node index of every algorithm with a saved
// graph, one transaction per algorithm. Documents that fail to parse are
// reported and skipped; a store failure stops the run.
func (ix *Indexer) ReconcileAll(ctx context.Context, database *db.DB) ([]Result, error) {
	graphs, err := database.ListSavedGraphs(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(graphs))
	for _, g := range graphs {
		var n int
		err := database.WithTx(ctx, func(tx *db.Store) error {
			var err error
			n, err = ix.Reconcile(ctx, tx, g.AlgorithmID, []byte(*g.Document), g.UpdatedAt)
			return err
		})
		if errors.Is(err, graphdoc.ErrMalformed) {
			ix.log.Warn("skipping unparsable graph", "algorithm_id", g.AlgorithmID, "error", err)
			results = append(results, Result{AlgorithmID: g.AlgorithmID, Err: err})
			continue
		}
		if err != nil {
			return results, fmt.Errorf("reindexing algorithm %d: %w", g.AlgorithmID, err)
		}
		results = append(results, Result{AlgorithmID: g.AlgorithmID, Nodes: n})
	}
	return results, nil
}
