package studio

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryUnboundedByDefault(t *testing.T) {
	for _, limit := range []int{0, -3} {
		h := NewHistory(limit)
		for i := 0; i < 120; i++ {
			h.Add(Entry{ID: strconv.Itoa(i), Origin: OpGenerate})
		}

		require.Equal(t, 120, h.Len())
		first, ok := h.At(0)
		require.True(t, ok)
		assert.Equal(t, "119", first.ID)
		oldest, ok := h.At(119)
		require.True(t, ok)
		assert.Equal(t, "0", oldest.ID)
	}
}

func TestHistoryOptionalLimit(t *testing.T) {
	h := NewHistory(2)
	for i := 0; i < 3; i++ {
		h.Add(Entry{ID: strconv.Itoa(i)})
	}

	entries := h.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "2", entries[0].ID)
	assert.Equal(t, "1", entries[1].ID)

	h.Clear()
	assert.Zero(t, h.Len())
}
