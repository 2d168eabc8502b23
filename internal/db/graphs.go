package db

import (
	"context"
	"database/sql"
	"time"

	"algoflow/internal/model"
)

func scanGraph(row scanner) (*model.Graph, error) {
	var g model.Graph
	var doc sql.NullString
	var updatedAt int64
	if err := row.Scan(&g.ID, &g.AlgorithmID, &doc, &updatedAt); err != nil {
		return nil, err
	}
	if doc.Valid {
		g.Document = &doc.String
	}
	g.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &g, nil
}

// CreateGraph inserts an empty graph row for an algorithm.
func (s *Store) CreateGraph(ctx context.Context, algorithmID int64, ts time.Time) (int64, error) {
	return s.Insert(ctx, "graphs",
		[]string{"algorithm_id", "graph", "updated_at"},
		[]any{algorithmID, nil, ts.Unix()},
	)
}

// GetAlgorithmGraph retrieves the graph of an algorithm.
func (s *Store) GetAlgorithmGraph(ctx context.Context, algorithmID int64) (*model.Graph, error) {
	g, err := scanGraph(s.queryRow(ctx,
		"SELECT id, algorithm_id, graph, updated_at FROM graphs WHERE algorithm_id = ?",
		algorithmID,
	))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrap("get graph", err)
	}
	return g, nil
}

// UpdateAlgorithmGraph stores a new document in an algorithm's graph row.
func (s *Store) UpdateAlgorithmGraph(ctx context.Context, algorithmID int64, document string, ts time.Time) error {
	n, err := s.Update(ctx, "graphs",
		[]string{"graph", "updated_at"},
		[]any{document, ts.Unix()},
		"algorithm_id", algorithmID,
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAlgorithmGraphs removes every graph row of an algorithm.
func (s *Store) DeleteAlgorithmGraphs(ctx context.Context, algorithmID int64) (int64, error) {
	return s.Delete(ctx, "graphs", "algorithm_id", algorithmID)
}

// ListSavedGraphs lists every graph that has a document, oldest algorithm first.
func (s *Store) ListSavedGraphs(ctx context.Context) ([]*model.Graph, error) {
	rows, err := s.query(ctx,
		"SELECT id, algorithm_id, graph, updated_at FROM graphs WHERE graph IS NOT NULL ORDER BY algorithm_id")
	if err != nil {
		return nil, wrap("list graphs", err)
	}
	defer rows.Close()

	var graphs []*model.Graph
	for rows.Next() {
		g, err := scanGraph(rows)
		if err != nil {
			return nil, wrap("list graphs", err)
		}
		graphs = append(graphs, g)
	}
	return graphs, wrap("list graphs", rows.Err())
}
