package search

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"algoflow/internal/db"
	"algoflow/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type seedAlgorithm struct {
	title  string
	public bool
	nodes  []string
}

// seed creates algorithms with their node index and returns their ids in order.
func seed(t *testing.T, algs ...seedAlgorithm) (*db.DB, []int64) {
	t.Helper()
	ctx := context.Background()
	database, err := db.Open(filepath.Join(t.TempDir(), "search.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	ts := time.Unix(1700000000, 0)
	ids := make([]int64, len(algs))
	for i, a := range algs {
		id, err := database.CreateAlgorithm(ctx, &model.Algorithm{Title: a.title, Public: a.public, UpdatedAt: ts})
		require.NoError(t, err)
		records := make([]model.NodeRecord, len(a.nodes))
		for j, label := range a.nodes {
			records[j] = model.NodeRecord{NodeID: string(rune('1' + j)), NodeType: "process", Label: label}
		}
		require.NoError(t, database.InsertNodes(ctx, id, records, ts))
		ids[i] = id
	}
	return database, ids
}

func titles(algs []*model.Algorithm) []string {
	out := make([]string, len(algs))
	for i, a := range algs {
		out[i] = a.Title
	}
	return out
}

func TestSearchAlgorithms(t *testing.T) {
	database, _ := seed(t,
		seedAlgorithm{title: "Bubble sort", public: true},
		seedAlgorithm{title: "Sorted merge", public: true},
		seedAlgorithm{title: "Topological SORT", public: false},
	)
	e := NewEngine(database, discardLogger())
	ctx := context.Background()

	found, err := e.SearchAlgorithms(ctx, "sort", model.MatchSubstring)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bubble sort", "Sorted merge", "Topological SORT"}, titles(found))

	found, err = e.SearchAlgorithms(ctx, "  sort ", model.MatchWholeWord)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bubble sort", "Topological SORT"}, titles(found))

	_, err = e.SearchAlgorithms(ctx, "   ", model.MatchWholeWord)
	assert.ErrorIs(t, err, ErrEmptyKeyword)
}

func TestSearchFoldsNonASCIICase(t *testing.T) {
	database, ids := seed(t,
		seedAlgorithm{title: "ÉCOLE primaire", public: true, nodes: []string{"ÉCOLE"}},
		seedAlgorithm{title: "Préécole", public: true, nodes: []string{"préÉCOLE"}},
	)
	e := NewEngine(database, discardLogger())
	ctx := context.Background()

	found, err := e.SearchAlgorithms(ctx, "école", model.MatchWholeWord)
	require.NoError(t, err)
	assert.Equal(t, []string{"ÉCOLE primaire"}, titles(found))

	found, err = e.SearchAlgorithms(ctx, "école", model.MatchSubstring)
	require.NoError(t, err)
	assert.Equal(t, []string{"ÉCOLE primaire", "Préécole"}, titles(found))

	nodes, err := e.SearchNodes(ctx, "école", model.ScopeAll)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, ids[0], nodes[0].AlgorithmID)
	assert.Equal(t, "ÉCOLE", nodes[0].Label)
}

func TestSearchNodes(t *testing.T) {
	database, ids := seed(t,
		seedAlgorithm{title: "Public", public: true, nodes: []string{"cat", "category", "feed the cat"}},
		seedAlgorithm{title: "Private", public: false, nodes: []string{"Cat"}},
	)
	e := NewEngine(database, discardLogger())
	ctx := context.Background()

	found, err := e.SearchNodes(ctx, "cat", model.ScopePublic)
	require.NoError(t, err)
	require.Len(t, found, 2)
	for _, n := range found {
		assert.Equal(t, ids[0], n.AlgorithmID)
		assert.NotEqual(t, "category", n.Label)
	}

	found, err = e.SearchNodes(ctx, "cat", model.ScopeAll)
	require.NoError(t, err)
	require.Len(t, found, 3)
	assert.Equal(t, ids[1], found[2].AlgorithmID)
	assert.Equal(t, "Private", found[2].Title)

	_, err = e.SearchNodes(ctx, "", model.ScopeAll)
	assert.ErrorIs(t, err, ErrEmptyKeyword)
}

func TestPlainSearch(t *testing.T) {
	database, ids := seed(t,
		seedAlgorithm{title: "Heap sort", public: true},
		seedAlgorithm{title: "Kruskal", public: false},
	)
	ctx := context.Background()
	require.NoError(t, database.SetAlgorithmCategories(ctx, ids[1], []int64{3}))
	e := NewEngine(database, discardLogger())

	res, err := e.Search(ctx, Query{})
	require.NoError(t, err)
	assert.False(t, res.Performed)
	assert.Nil(t, res.Algorithms)

	res, err = e.Search(ctx, Query{Keyword: "  "})
	require.NoError(t, err)
	assert.False(t, res.Performed)

	res, err = e.Search(ctx, Query{Keyword: "nothing like it"})
	require.NoError(t, err)
	assert.True(t, res.Performed)
	assert.NotNil(t, res.Algorithms)
	assert.Empty(t, res.Algorithms)

	res, err = e.Search(ctx, Query{Keyword: "SORT", CategoryID: 3})
	require.NoError(t, err)
	assert.True(t, res.Performed)
	assert.Equal(t, []string{"Heap sort", "Kruskal"}, titles(res.Algorithms))
}
