package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"algoflow/internal/model"
)

const algorithmColumns = "a.id, a.user_id, a.title, a.description, a.public, a.version, a.updated_at"

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAlgorithm(row scanner) (*model.Algorithm, error) {
	var a model.Algorithm
	var userID sql.NullInt64
	var updatedAt int64
	if err := row.Scan(&a.ID, &userID, &a.Title, &a.Description, &a.Public, &a.Version, &updatedAt); err != nil {
		return nil, err
	}
	a.UserID = userID.Int64
	a.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &a, nil
}

func (s *Store) listAlgorithms(ctx context.Context, op, q string, args ...any) ([]*model.Algorithm, error) {
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	var algorithms []*model.Algorithm
	for rows.Next() {
		a, err := scanAlgorithm(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		algorithms = append(algorithms, a)
	}
	return algorithms, wrap(op, rows.Err())
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// ----- Algorithms -----

// CreateAlgorithm inserts an algorithm row and returns its id.
func (s *Store) CreateAlgorithm(ctx context.Context, a *model.Algorithm) (int64, error) {
	return s.Insert(ctx, "algorithms",
		[]string{"user_id", "title", "description", "public", "version", "updated_at"},
		[]any{nullableID(a.UserID), a.Title, a.Description, a.Public, a.Version, a.UpdatedAt.Unix()},
	)
}

// GetAlgorithm retrieves an algorithm by ID.
func (s *Store) GetAlgorithm(ctx context.Context, id int64) (*model.Algorithm, error) {
	a, err := scanAlgorithm(s.queryRow(ctx,
		"SELECT "+algorithmColumns+" FROM algorithms a WHERE a.id = ?", id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrap("get algorithm", err)
	}
	return a, nil
}

// ListAlgorithms lists public algorithms, or every algorithm when
// includePrivate is set.
func (s *Store) ListAlgorithms(ctx context.Context, includePrivate bool) ([]*model.Algorithm, error) {
	if includePrivate {
		return s.listAlgorithms(ctx, "list algorithms",
			"SELECT "+algorithmColumns+" FROM algorithms a ORDER BY a.id")
	}
	return s.listAlgorithms(ctx, "list algorithms",
		"SELECT "+algorithmColumns+" FROM algorithms a WHERE a.public = ? ORDER BY a.id", true)
}

// ListUserAlgorithms lists the algorithms owned by a user.
func (s *Store) ListUserAlgorithms(ctx context.Context, userID int64) ([]*model.Algorithm, error) {
	return s.listAlgorithms(ctx, "list user algorithms",
		"SELECT "+algorithmColumns+" FROM algorithms a WHERE a.user_id = ? ORDER BY a.id", userID)
}

// UpdateAlgorithm updates an algorithm's metadata. The owner is left unchanged.
func (s *Store) UpdateAlgorithm(ctx context.Context, a *model.Algorithm) error {
	n, err := s.Update(ctx, "algorithms",
		[]string{"title", "description", "public", "version", "updated_at"},
		[]any{a.Title, a.Description, a.Public, a.Version, a.UpdatedAt.Unix()},
		"id", a.ID,
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAlgorithmVisibility updates an algorithm's public flag and timestamp.
func (s *Store) SetAlgorithmVisibility(ctx context.Context, id int64, public bool, ts time.Time) error {
	n, err := s.Update(ctx, "algorithms", []string{"public", "updated_at"}, []any{public, ts.Unix()}, "id", id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAlgorithm deletes the algorithm row only. Callers remove its
// children first.
func (s *Store) DeleteAlgorithm(ctx context.Context, id int64) error {
	n, err := s.Delete(ctx, "algorithms", "id", id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// LockAlgorithm takes a write lock on the algorithm row for the rest of the
// transaction. On SQLite the IMMEDIATE transaction already holds the
// database write lock, so this only checks existence.
func (s *Store) LockAlgorithm(ctx context.Context, id int64) error {
	q := "SELECT id FROM algorithms WHERE id = ?"
	if s.driver == DriverPostgres {
		q += " FOR UPDATE"
	}
	var got int64
	err := s.queryRow(ctx, q, id).Scan(&got)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	return wrap("lock algorithm", err)
}

// ----- Search -----

// FindAlgorithmsByTitle returns algorithms whose title contains keyword,
// ignoring case.
func (s *Store) FindAlgorithmsByTitle(ctx context.Context, keyword string) ([]*model.Algorithm, error) {
	return s.listAlgorithms(ctx, "find algorithms",
		"SELECT "+algorithmColumns+" FROM algorithms a WHERE "+s.lower("a.title")+` LIKE ? ESCAPE '\' ORDER BY a.id`,
		containsPattern(keyword))
}

// FilterAlgorithms returns algorithms matching any of the given filters:
// title containing keyword, linked to categoryID, or owned by userID.
// Empty keyword and zero ids are ignored; at least one filter must be set.
func (s *Store) FilterAlgorithms(ctx context.Context, keyword string, categoryID, userID int64) ([]*model.Algorithm, error) {
	var conds []string
	var args []any
	if keyword != "" {
		conds = append(conds, s.lower("a.title")+` LIKE ? ESCAPE '\'`)
		args = append(args, containsPattern(keyword))
	}
	if categoryID != 0 {
		conds = append(conds, "a.id IN (SELECT algorithm_id FROM algorithm_categories WHERE category_id = ?)")
		args = append(args, categoryID)
	}
	if userID != 0 {
		conds = append(conds, "a.user_id = ?")
		args = append(args, userID)
	}
	if len(conds) == 0 {
		return nil, fmt.Errorf("filter algorithms: no filter given")
	}

	return s.listAlgorithms(ctx, "filter algorithms",
		"SELECT "+algorithmColumns+" FROM algorithms a WHERE "+strings.Join(conds, " OR ")+" ORDER BY a.id",
		args...)
}

// ----- Categories -----

// SetAlgorithmCategories replaces the category links of an algorithm.
func (s *Store) SetAlgorithmCategories(ctx context.Context, algorithmID int64, categoryIDs []int64) error {
	if _, err := s.DeleteAlgorithmCategories(ctx, algorithmID); err != nil {
		return err
	}
	seen := make(map[int64]bool, len(categoryIDs))
	for _, c := range categoryIDs {
		if seen[c] {
			continue
		}
		seen[c] = true
		if _, err := s.exec(ctx,
			"INSERT INTO algorithm_categories (algorithm_id, category_id) VALUES (?, ?)",
			algorithmID, c,
		); err != nil {
			return wrap("insert algorithm category", err)
		}
	}
	return nil
}

// AlgorithmCategories lists the category ids linked to an algorithm.
func (s *Store) AlgorithmCategories(ctx context.Context, algorithmID int64) ([]int64, error) {
	rows, err := s.Select(ctx,
		"SELECT category_id FROM algorithm_categories WHERE algorithm_id = ? ORDER BY category_id",
		algorithmID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		id, ok := row["category_id"].(int64)
		if !ok {
			return nil, &Error{Op: "algorithm categories", Err: fmt.Errorf("unexpected category_id %T", row["category_id"])}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// DeleteAlgorithmCategories removes every category link of an algorithm.
func (s *Store) DeleteAlgorithmCategories(ctx context.Context, algorithmID int64) (int64, error) {
	return s.Delete(ctx, "algorithm_categories", "algorithm_id", algorithmID)
}
