// Package lifecycle creates, updates and deletes algorithms together with
// their graph and node index.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"algoflow/internal/db"
	"algoflow/internal/graphdoc"
	"algoflow/internal/index"
	"algoflow/internal/model"
)

// Fields are the user-editable metadata of an algorithm.
type Fields struct {
	Title       string
	Description string
	Version     string
	Public      bool
	Categories  []int64
}

// NewAlgorithm describes an algorithm to create.
type NewAlgorithm struct {
	UserID int64
	Fields
}

// Service owns the Algorithm, Graph and Node rows as one aggregate.
// Every write runs in a single transaction.
type Service struct {
	db      *db.DB
	indexer *index.Indexer
	log     *slog.Logger
	now     func() time.Time
}

// New creates a lifecycle service.
func New(database *db.DB, indexer *index.Indexer, log *slog.Logger) *Service {
	return &Service{
		db:      database,
		indexer: indexer,
		log:     log.With("component", "lifecycle"),
		now:     time.Now,
	}
}

// Create inserts an algorithm, its empty graph and its category links.
func (s *Service) Create(ctx context.Context, in NewAlgorithm) (*model.Algorithm, error) {
	alg := &model.Algorithm{
		UserID:      in.UserID,
		Title:       in.Title,
		Description: in.Description,
		Public:      in.Public,
		Version:     in.Version,
		UpdatedAt:   s.now().UTC().Truncate(time.Second),
	}

	err := s.db.WithTx(ctx, func(tx *db.Store) error {
		id, err := tx.CreateAlgorithm(ctx, alg)
		if err != nil {
			return err
		}
		alg.ID = id

		if _, err := tx.CreateGraph(ctx, id, alg.UpdatedAt); err != nil {
			return err
		}
		return tx.SetAlgorithmCategories(ctx, id, in.Categories)
	})
	if err != nil {
		return nil, fmt.Errorf("creating algorithm: %w", err)
	}

	s.log.Info("algorithm created", "algorithm_id", alg.ID, "user_id", alg.UserID)
	return alg, nil
}

// UpdateMetadata updates title, description, version, visibility and
// categories. The graph and node index are left alone.
func (s *Service) UpdateMetadata(ctx context.Context, id int64, f Fields) (*model.Algorithm, error) {
	var alg *model.Algorithm
	err := s.db.WithTx(ctx, func(tx *db.Store) error {
		current, err := tx.GetAlgorithm(ctx, id)
		if err != nil {
			return err
		}
		current.Title = f.Title
		current.Description = f.Description
		current.Version = f.Version
		current.Public = f.Public
		current.UpdatedAt = s.now().UTC().Truncate(time.Second)

		if err := tx.UpdateAlgorithm(ctx, current); err != nil {
			return err
		}
		if err := tx.SetAlgorithmCategories(ctx, id, f.Categories); err != nil {
			return err
		}
		alg = current
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("updating algorithm %d: %w", id, err)
	}
	return alg, nil
}

// UpdateGraph saves a new graph document, rebuilds the node index from it
// and updates the algorithm's visibility. All of it commits together or not
// at all; concurrent updates of the same algorithm are serialized by the
// row lock.
func (s *Service) UpdateGraph(ctx context.Context, id int64, document []byte, public bool, ts time.Time) (*model.Graph, error) {
	doc, err := graphdoc.Normalize(document)
	if err != nil {
		return nil, err
	}

	var nodes int
	err = s.db.WithTx(ctx, func(tx *db.Store) error {
		if err := tx.LockAlgorithm(ctx, id); err != nil {
			return err
		}

		n, err := s.indexer.Reconcile(ctx, tx, id, doc, ts)
		if err != nil {
			return err
		}
		nodes = n

		if err := tx.UpdateAlgorithmGraph(ctx, id, string(doc), ts); err != nil {
			return err
		}
		return tx.SetAlgorithmVisibility(ctx, id, public, ts)
	})
	if err != nil {
		return nil, fmt.Errorf("updating graph of algorithm %d: %w", id, err)
	}

	s.log.Info("graph updated", "algorithm_id", id, "nodes", nodes, "public", public)
	return s.db.GetAlgorithmGraph(ctx, id)
}

// Delete removes an algorithm with its nodes, graph and category links,
// children first.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.db.WithTx(ctx, func(tx *db.Store) error {
		if err := tx.LockAlgorithm(ctx, id); err != nil {
			return err
		}
		if _, err := tx.DeleteAlgorithmNodes(ctx, id); err != nil {
			return err
		}
		if _, err := tx.DeleteAlgorithmGraphs(ctx, id); err != nil {
			return err
		}
		if _, err := tx.DeleteAlgorithmCategories(ctx, id); err != nil {
			return err
		}
		return tx.DeleteAlgorithm(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("deleting algorithm %d: %w", id, err)
	}

	s.log.Info("algorithm deleted", "algorithm_id", id)
	return nil
}

// ----- Reads -----

// Get returns one algorithm.
func (s *Service) Get(ctx context.Context, id int64) (*model.Algorithm, error) {
	return s.db.GetAlgorithm(ctx, id)
}

// GetGraph returns the graph of an algorithm.
func (s *Service) GetGraph(ctx context.Context, id int64) (*model.Graph, error) {
	return s.db.GetAlgorithmGraph(ctx, id)
}

// ListNodes returns the indexed nodes of an algorithm. An unknown algorithm
// is reported as db.ErrNotFound rather than an empty index.
func (s *Service) ListNodes(ctx context.Context, id int64) ([]*model.Node, error) {
	if _, err := s.db.GetAlgorithm(ctx, id); err != nil {
		return nil, err
	}
	return s.db.ListAlgorithmNodes(ctx, id)
}

// List returns public algorithms, or all of them when includePrivate is set.
func (s *Service) List(ctx context.Context, includePrivate bool) ([]*model.Algorithm, error) {
	return s.db.ListAlgorithms(ctx, includePrivate)
}

// ListByUser returns the algorithms a user owns.
func (s *Service) ListByUser(ctx context.Context, userID int64) ([]*model.Algorithm, error) {
	return s.db.ListUserAlgorithms(ctx, userID)
}

// Categories returns the category ids linked to an algorithm.
func (s *Service) Categories(ctx context.Context, id int64) ([]int64, error) {
	if _, err := s.db.GetAlgorithm(ctx, id); err != nil {
		return nil, err
	}
	return s.db.AlgorithmCategories(ctx, id)
}
