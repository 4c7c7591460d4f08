package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and161185/vidvote/internal/model"
)

func ptr(s string) *string { return &s }

func TestNormalizeCity(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "bogota", NormalizeCity("Bogotá"))
	assert.Equal(t, "medellin", NormalizeCity("MEDELLÍN"))
	assert.Equal(t, "sao paulo", NormalizeCity("São Paulo"))
	assert.Equal(t, NormalizeCity("Bogotá"), NormalizeCity("Bogotá"))
	assert.Equal(t, "", NormalizeCity(""))
}

func TestFilterByCity(t *testing.T) {
	t.Parallel()
	items := []model.RankingEntry{
		{VideoID: "1", City: ptr("Bogotá")},
		{VideoID: "2", City: ptr("Medellín")},
		{VideoID: "3"},
		{VideoID: "4", City: ptr("BOGOTA")},
		{VideoID: "5", City: ptr("Bogotá D.C.")},
	}

	got := FilterByCity(items, "bogota")
	require.Len(t, got, 2)
	assert.Equal(t, model.ID("1"), got[0].VideoID)
	assert.Equal(t, model.ID("4"), got[1].VideoID)

	assert.Len(t, FilterByCity(items, ""), 5)
	assert.Empty(t, FilterByCity(items, "cali"))
}

func TestSortByVotes_StableDescending(t *testing.T) {
	t.Parallel()
	items := []model.RankingEntry{
		{VideoID: "a", Votes: 1},
		{VideoID: "b", Votes: 5},
		{VideoID: "c", Votes: 3},
		{VideoID: "d", Votes: 5},
		{VideoID: "e", Votes: 3},
		{VideoID: "f", Votes: 0},
	}
	SortByVotes(items)
	var ids []model.ID
	for _, it := range items {
		ids = append(ids, it.VideoID)
	}
	assert.Equal(t, []model.ID{"b", "d", "c", "e", "a", "f"}, ids)
	for i := 1; i < len(items); i++ {
		assert.GreaterOrEqual(t, items[i-1].Votes, items[i].Votes)
	}
}

func TestRank_23Items(t *testing.T) {
	t.Parallel()
	items := make([]model.RankingEntry, 23)
	for i := range items {
		items[i] = model.RankingEntry{VideoID: model.ID(rune('a' + i)), Votes: 100 - i, City: ptr("Cali")}
	}

	p := Rank(items, "", 3, 10)
	assert.Equal(t, 3, p.TotalPages)
	require.Len(t, p.Items, 3)
	assert.Equal(t, 21, p.Items[0].Position)
	assert.Equal(t, 23, p.Items[2].Position)

	p = Rank(items, "", 1, 0)
	assert.Equal(t, DefaultPageSize, p.PageSize)
	assert.Len(t, p.Items, 10)
	assert.Equal(t, 1, p.Items[0].Position)

	p = Rank(items, "bogota", 1, 10)
	assert.Equal(t, 1, p.TotalPages)
	assert.Empty(t, p.Items)
	assert.NotNil(t, p.Items)
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	t.Parallel()
	items := []model.RankingEntry{{VideoID: "a", Votes: 1}, {VideoID: "b", Votes: 2}}
	_ = Rank(items, "", 1, 10)
	assert.Equal(t, model.ID("a"), items[0].VideoID)
	assert.Zero(t, items[0].Position)
}
