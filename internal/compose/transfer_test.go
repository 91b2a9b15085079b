package compose

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souissim/gridpath/internal/scenario"
	"github.com/souissim/gridpath/internal/tabfile"
)

func TestTransfer_StagesInColumnOrder(t *testing.T) {
	ctx := context.Background()
	keys := []scenario.Key{{Weather: "1"}, {Weather: "2"}}
	src := scenario.NewMemory()
	for _, k := range keys {
		tbl := tabfile.New("items", "limit", "item", "value", "note")
		require.NoError(t, tbl.Append("4", "a", "3", "ignored"))
		src.Put(k, tbl)
	}
	stage := scenario.NewStage(t.TempDir())

	got, err := Transfer(ctx, newRegistry(t), []string{"total", "items"}, keys, src, stage)
	require.NoError(t, err)
	assert.Equal(t, []Transferred{
		{Key: keys[0], Tables: []string{"items"}},
		{Key: keys[1], Tables: []string{"items"}},
	}, got)

	staged, err := stage.Table(ctx, keys[1], "items")
	require.NoError(t, err)
	assert.Equal(t, []string{"item", "value", "limit"}, staged.Columns)
	require.Len(t, staged.Rows, 1)
	assert.Equal(t, []string{"a", "3", "4"}, staged.Rows[0])
}

func TestTransfer_ImportsIntoStore(t *testing.T) {
	ctx := context.Background()
	st := createTestStore(t)
	src := scenario.NewMemory()
	src.Put(scenario.Key{}, itemsTable(t, []string{"a", "3", "4"}, []string{"b", "1", "2"}))

	_, err := Transfer(ctx, newRegistry(t), []string{"items"}, []scenario.Key{{}}, src, st.Inputs(1))
	require.NoError(t, err)

	back, err := st.Inputs(1).Table(ctx, scenario.Key{}, "items")
	require.NoError(t, err)
	assert.Len(t, back.Rows, 2)
}

func TestTransfer_MissingRequiredTable(t *testing.T) {
	_, err := Transfer(context.Background(), newRegistry(t), []string{"items"}, []scenario.Key{{}},
		scenario.NewMemory(), scenario.NewMemory())
	require.Error(t, err)
	assert.True(t, scenario.IsMissingInput(err))
}

func TestTransfer_UnknownModule(t *testing.T) {
	_, err := Transfer(context.Background(), newRegistry(t), []string{"nope"}, []scenario.Key{{}},
		scenario.NewMemory(), scenario.NewMemory())
	assert.True(t, IsCompositionError(err))
}
