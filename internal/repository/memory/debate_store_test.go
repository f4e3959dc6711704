package memory

import (
	"context"
	"testing"
	"time"

	"Debate_Community/internal/model"
	"Debate_Community/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebateStore_CopiesOnReadAndWrite(t *testing.T) {
	s := NewDebateStore()
	ctx := context.Background()
	d := &model.Debate{ID: "d1", Title: "t", InFavor: []string{"a"}}
	require.NoError(t, s.Create(ctx, d))

	d.InFavor[0] = "mutated"
	got, err := s.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "a", got.InFavor[0])

	got.InFavor = append(got.InFavor, "b")
	again, _ := s.Get(ctx, "d1")
	assert.Len(t, again.InFavor, 1)
}

func TestDebateStore_CompareAndSwap(t *testing.T) {
	s := NewDebateStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, &model.Debate{ID: "d1"}))

	a, _ := s.Get(ctx, "d1")
	b, _ := s.Get(ctx, "d1")
	require.NoError(t, s.Update(ctx, a, a.Version))
	assert.Equal(t, int64(1), a.Version)
	assert.ErrorIs(t, s.Update(ctx, b, b.Version), repository.ErrConflict)
	assert.ErrorIs(t, s.Update(ctx, &model.Debate{ID: "x"}, 0), repository.ErrNotFound)
}

func TestDebateStore_ListScan(t *testing.T) {
	s := NewDebateStore()
	ctx := context.Background()
	base := time.Now()
	require.NoError(t, s.Create(ctx, &model.Debate{ID: "a", Title: "Cats", CategoryID: "pets", Popularity: 1, CreatedAt: base}))
	require.NoError(t, s.Create(ctx, &model.Debate{ID: "b", Title: "Dogs", CategoryID: "pets", Popularity: 9, CreatedAt: base.Add(time.Second)}))
	require.NoError(t, s.Create(ctx, &model.Debate{ID: "c", Title: "Taxes", CategoryID: "money", Popularity: 4, CreatedAt: base.Add(2 * time.Second)}))

	list, err := s.List(ctx, repository.DebateQuery{CategoryID: "pets"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)

	list, err = s.List(ctx, repository.DebateQuery{Sort: repository.SortPopularity})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, []string{list[0].ID, list[1].ID, list[2].ID})

	list, err = s.List(ctx, repository.DebateQuery{Keyword: "tax"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	batch, err := s.Scan(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "b", batch[0].ID)
}
