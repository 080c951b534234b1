package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePagination(t *testing.T) {
	global := &Pagination{Source: SourceQuery, Limit: "limit", Skip: "skip", Sort: "sort", Order: "order"}

	t.Run("nil handler falls back to global", func(t *testing.T) {
		assert.Equal(t, global, ResolvePagination(nil, global))
	})

	t.Run("mode none disables the axis", func(t *testing.T) {
		h := &Pagination{Mode: ModeNone}
		assert.Nil(t, ResolvePagination(h, global))
	})

	t.Run("exclusive ignores global", func(t *testing.T) {
		h := &Pagination{Mode: ModeExclusive, Limit: "size"}
		got := ResolvePagination(h, global)
		require.NotNil(t, got)
		assert.Equal(t, "size", got.Limit)
		assert.Empty(t, got.Skip)
	})

	t.Run("unset mode behaves as exclusive", func(t *testing.T) {
		h := &Pagination{Limit: "size"}
		got := ResolvePagination(h, global)
		require.NotNil(t, got)
		assert.Empty(t, got.Skip)
	})

	t.Run("inclusive merges with handler precedence", func(t *testing.T) {
		h := &Pagination{Mode: ModeInclusive, Limit: "size"}
		got := ResolvePagination(h, global)
		require.NotNil(t, got)
		assert.Equal(t, "size", got.Limit)
		assert.Equal(t, "skip", got.Skip)
		assert.Equal(t, "sort", got.Sort)
		assert.Equal(t, "order", got.Order)
		assert.Equal(t, SourceQuery, got.Source)
	})
}

func TestResolveFilters(t *testing.T) {
	global := &Filters{
		Source: SourceQuery,
		Rules:  []Rule{{Key: "status", Type: TypeString, Comparison: CmpEq}},
	}

	t.Run("nil handler falls back to global", func(t *testing.T) {
		assert.Equal(t, global, ResolveFilters(nil, global))
	})

	t.Run("mode none disables the axis", func(t *testing.T) {
		assert.Nil(t, ResolveFilters(&Filters{Mode: ModeNone}, global))
	})

	t.Run("exclusive keeps only handler rules", func(t *testing.T) {
		h := &Filters{Rules: []Rule{{Key: "id", Type: TypeNumber, Comparison: CmpEq}}}
		got := ResolveFilters(h, global)
		require.NotNil(t, got)
		require.Len(t, got.Rules, 1)
		assert.Equal(t, "id", got.Rules[0].Key)
	})

	t.Run("inclusive concatenates global rules first", func(t *testing.T) {
		h := &Filters{Mode: ModeInclusive, Rules: []Rule{{Key: "id", Type: TypeNumber, Comparison: CmpEq}}}
		got := ResolveFilters(h, global)
		require.NotNil(t, got)
		require.Len(t, got.Rules, 2)
		assert.Equal(t, "status", got.Rules[0].Key)
		assert.Equal(t, "id", got.Rules[1].Key)
		assert.Equal(t, SourceQuery, got.Source)
	})

	t.Run("inclusive does not mutate inputs", func(t *testing.T) {
		h := &Filters{Mode: ModeInclusive, Rules: []Rule{{Key: "id"}}}
		_ = ResolveFilters(h, global)
		assert.Len(t, h.Rules, 1)
		assert.Len(t, global.Rules, 1)
	})
}
