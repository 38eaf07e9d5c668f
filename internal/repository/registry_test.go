package repository

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/model"
	"github.com/AplusKminus/GraphWalker/internal/search"
)

func TestView_UnknownName(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.View("nope", ViewArgs{})
	assert.True(t, errors.IsInvalid(err))
}

func TestView_SearchFilterValidated(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.View("search", ViewArgs{ID: 1, Text: "a", Filter: "bogus"})
	assert.True(t, errors.IsInvalid(err))
}

func TestViewNames_SortedAndResolvable(t *testing.T) {
	r := newTestRepo(t)
	names := ViewNames()
	assert.True(t, sort.StringsAreSorted(names))
	for _, name := range names {
		_, err := r.View(name, ViewArgs{ID: 1})
		assert.NoError(t, err, name)
	}
}

func TestView_MatchesTypedQuery(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	gid, err := r.CreateGraph(ctx, "G", model.DefaultFlags())
	require.NoError(t, err)
	nid, err := r.AddNode(ctx, gid, "Apple", "fruit")
	require.NoError(t, err)

	q, err := r.View("full_graph", ViewArgs{ID: gid})
	require.NoError(t, err)
	assert.Equal(t, get(t, r.FullGraph(gid)), get(t, q))

	q, err = r.View("search", ViewArgs{ID: gid, Text: "FRU"})
	require.NoError(t, err)
	results, ok := get(t, q).([]search.Result)
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.Equal(t, nid, results[0].ID)

	q, err = r.View("node", ViewArgs{ID: 999})
	require.NoError(t, err)
	assert.Nil(t, get(t, q).(*model.Node))
}

func TestView_Watch(t *testing.T) {
	r := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q, err := r.View("graphs", ViewArgs{})
	require.NoError(t, err)
	ch := q.Watch(ctx, r.Feed())
	assert.Empty(t, next(t, ch))

	_, err = r.CreateGraph(ctx, "G", model.DefaultFlags())
	require.NoError(t, err)
	graphs := next(t, ch).([]model.Graph)
	require.Len(t, graphs, 1)
	assert.Equal(t, "G", graphs[0].Name)
}
