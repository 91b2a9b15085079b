package scenario

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souissim/gridpath/internal/tabfile"
)

func TestKey_Dir(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{"default", Key{}, "."},
		{"full", Key{"1", "2", "3", "4", "5"}, filepath.Join("1", "2", "3", "4", "5")},
		{"subproblem only", Key{Subproblem: "2"}, "2"},
		{"weather and stage", Key{Weather: "w1", Stage: "s2"}, filepath.Join("w1", "s2")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.key.Dir())
		})
	}
}

func TestKey_String(t *testing.T) {
	assert.Equal(t, "default", Key{}.String())
	assert.Equal(t, "weather=1/subproblem=3", Key{Weather: "1", Subproblem: "3"}.String())
	assert.True(t, Key{}.IsDefault())
}

func TestStructure_KeysCartesianInOrder(t *testing.T) {
	s := Structure{Weather: []string{"1", "2"}, Subproblems: []string{"a", "b", "c"}}

	keys := s.Keys()
	require.Len(t, keys, 6)
	assert.Equal(t, s.Len(), len(keys))
	assert.Equal(t, Key{Weather: "1", Subproblem: "a"}, keys[0])
	assert.Equal(t, Key{Weather: "1", Subproblem: "c"}, keys[2])
	assert.Equal(t, Key{Weather: "2", Subproblem: "a"}, keys[3])

	for i := 1; i < len(keys); i++ {
		assert.True(t, keys[i-1].Less(keys[i]))
	}
}

func TestStructure_EmptyIsSingleDefaultKey(t *testing.T) {
	assert.Equal(t, []Key{{}}, Structure{}.Keys())
}

func TestStage_Paths(t *testing.T) {
	s := NewStage("/scenarios/base")
	key := Key{Weather: "1", Hydro: "2", Availability: "3", Subproblem: "4", Stage: "5"}

	assert.Equal(t, "/scenarios/base/1/2/3/4/5/inputs/periods.tab", s.InputPath(key, "periods.tab"))
	assert.Equal(t, "/scenarios/base/inputs/periods.tab", s.InputPath(Key{}, "periods.tab"))
	assert.Equal(t, "/scenarios/base/4/results/project_period.tab", s.ResultsPath(Key{Subproblem: "4"}, "project_period.tab"))
}

func TestStage_WriteThenRead(t *testing.T) {
	ctx := context.Background()
	s := NewStage(t.TempDir())
	key := Key{Weather: "1", Subproblem: "2"}

	tbl := tabfile.New("periods", "period", "start_year", "end_year")
	require.NoError(t, tbl.Append("2020", "2020", "2030"))
	require.NoError(t, s.WriteTable(ctx, key, tbl))

	assert.True(t, s.Exists(key))
	assert.False(t, s.Exists(Key{}))

	got, err := s.Table(ctx, key, "periods")
	require.NoError(t, err)
	assert.Equal(t, tbl.Rows, got.Rows)

	_, err = s.Table(ctx, Key{Weather: "1"}, "periods")
	require.Error(t, err)
	assert.True(t, IsMissingInput(err))
	assert.Contains(t, err.Error(), "missing input periods for weather=1")
}

func TestStage_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStage(t.TempDir()).Table(ctx, Key{}, "periods")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemory_RoundTripIsolatedByKey(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	in := tabfile.New("loads", "zone", "mw")
	require.NoError(t, in.Append("north", "10"))
	require.NoError(t, m.WriteTable(ctx, Key{Weather: "1"}, in))

	// Mutating the original must not leak into the stored copy.
	in.Rows[0][1] = "99"

	got, err := m.Table(ctx, Key{Weather: "1"}, "loads")
	require.NoError(t, err)
	assert.Equal(t, "10", got.Rows[0][1])

	_, err = m.Table(ctx, Key{Weather: "2"}, "loads")
	assert.True(t, IsMissingInput(err))
}
