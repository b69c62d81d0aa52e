package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndFindNeighbors(t *testing.T) {
	h := New(10)
	h.Insert(1, Position{0, 0, 0})
	h.Insert(2, Position{5, 0, 0})
	h.Insert(3, Position{100, 0, 0})

	got := h.FindNeighbors(Position{0, 0, 0}, 6)
	require.Len(t, got, 2)

	ids := map[uint64]bool{}
	for _, e := range got {
		ids[e.ID] = true
	}
	assert.True(t, ids[1])
	assert.True(t, ids[2])
	assert.False(t, ids[3])
}

func TestFindNeighborsExcludesSelfByID(t *testing.T) {
	h := New(10)
	h.Insert(1, Position{0, 0, 0})
	h.Insert(2, Position{1, 0, 0})

	got := h.FindNeighborsExcludingID(Position{0, 0, 0}, 5, 1)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(2), got[0].ID)
}

func TestRadiusBoundaryIsInclusive(t *testing.T) {
	h := New(10)
	h.Insert(1, Position{5, 0, 0})
	got := h.FindNeighbors(Position{0, 0, 0}, 5)
	require.Len(t, got, 1)
}

func TestClearResetsButReusesPool(t *testing.T) {
	h := New(10)
	h.Insert(1, Position{0, 0, 0})
	require.Equal(t, 1, h.Len())
	h.Clear()
	assert.Equal(t, 0, h.Len())
	h.Insert(2, Position{0, 0, 0})
	assert.Equal(t, 1, h.Len())
}

func TestCrossesMultipleCells(t *testing.T) {
	h := New(1)
	h.Insert(1, Position{0.5, 0.5, 0.5})
	h.Insert(2, Position{2.5, 2.5, 2.5})

	got := h.FindNeighbors(Position{0, 0, 0}, 5)
	require.Len(t, got, 2)
}
