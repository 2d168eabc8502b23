package db

import (
	"context"
	"strings"
	"time"

	"algoflow/internal/model"
)

// nodeInsertBatch caps rows per INSERT, well under SQLite's bound-parameter limit.
const nodeInsertBatch = 200

const nodeColumns = "n.id, n.algorithm_id, n.node_id, n.node_type, n.label, n.updated_at"

// DeleteAlgorithmNodes removes every indexed node of an algorithm.
func (s *Store) DeleteAlgorithmNodes(ctx context.Context, algorithmID int64) (int64, error) {
	return s.Delete(ctx, "nodes", "algorithm_id", algorithmID)
}

// InsertNodes inserts one node row per record, in batches.
func (s *Store) InsertNodes(ctx context.Context, algorithmID int64, records []model.NodeRecord, ts time.Time) error {
	for start := 0; start < len(records); start += nodeInsertBatch {
		end := min(start+nodeInsertBatch, len(records))
		batch := records[start:end]

		values := make([]string, len(batch))
		args := make([]any, 0, len(batch)*5)
		for i, rec := range batch {
			values[i] = "(?, ?, ?, ?, ?)"
			args = append(args, algorithmID, rec.NodeID, rec.NodeType, rec.Label, ts.Unix())
		}

		if _, err := s.exec(ctx,
			"INSERT INTO nodes (algorithm_id, node_id, node_type, label, updated_at) VALUES "+strings.Join(values, ", "),
			args...,
		); err != nil {
			return wrap("insert nodes", err)
		}
	}
	return nil
}

// ListAlgorithmNodes lists the indexed nodes of an algorithm in insertion order.
func (s *Store) ListAlgorithmNodes(ctx context.Context, algorithmID int64) ([]*model.Node, error) {
	rows, err := s.query(ctx,
		"SELECT "+nodeColumns+" FROM nodes n WHERE n.algorithm_id = ? ORDER BY n.id",
		algorithmID,
	)
	if err != nil {
		return nil, wrap("list nodes", err)
	}
	defer rows.Close()

	var nodes []*model.Node
	for rows.Next() {
		var n model.Node
		var updatedAt int64
		if err := rows.Scan(&n.ID, &n.AlgorithmID, &n.NodeID, &n.NodeType, &n.Label, &updatedAt); err != nil {
			return nil, wrap("list nodes", err)
		}
		n.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		nodes = append(nodes, &n)
	}
	return nodes, wrap("list nodes", rows.Err())
}

// FindNodesByLabel returns nodes whose label contains keyword, ignoring
// case, together with their algorithm's title and visibility. With
// publicOnly set, nodes of private algorithms are left out.
func (s *Store) FindNodesByLabel(ctx context.Context, keyword string, publicOnly bool) ([]*model.NodeMatch, error) {
	q := "SELECT a.title, a.public, " + nodeColumns + `
		FROM nodes n
		JOIN algorithms a ON a.id = n.algorithm_id
		WHERE ` + s.lower("n.label") + ` LIKE ? ESCAPE '\'`
	args := []any{containsPattern(keyword)}
	if publicOnly {
		q += " AND a.public = ?"
		args = append(args, true)
	}
	q += " ORDER BY n.algorithm_id, n.id"

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, wrap("find nodes", err)
	}
	defer rows.Close()

	var matches []*model.NodeMatch
	for rows.Next() {
		var m model.NodeMatch
		var updatedAt int64
		if err := rows.Scan(&m.Title, &m.Public,
			&m.ID, &m.AlgorithmID, &m.NodeID, &m.NodeType, &m.Label, &updatedAt,
		); err != nil {
			return nil, wrap("find nodes", err)
		}
		m.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		matches = append(matches, &m)
	}
	return matches, wrap("find nodes", rows.Err())
}
