package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkodaira/melodeon/internal/apperr"
)

func TestNew(t *testing.T) {
	t.Run("valid name", func(t *testing.T) {
		p, err := New("  Road Trip  ", "user-1")
		require.NoError(t, err)
		assert.Equal(t, "Road Trip", p.Name)
		assert.Equal(t, "user-1", p.OwnerID)
		assert.Empty(t, p.SongIDs)
		assert.NotEmpty(t, p.ID)
	})

	t.Run("empty name after trim", func(t *testing.T) {
		_, err := New("   ", "user-1")
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestPlaylist_Append(t *testing.T) {
	p := &Playlist{ID: "p1", SongIDs: []string{"s1"}}

	assert.True(t, p.Append("s2"))
	assert.Equal(t, []string{"s1", "s2"}, p.SongIDs)

	// Appending an existing id is a no-op.
	assert.False(t, p.Append("s1"))
	assert.Equal(t, []string{"s1", "s2"}, p.SongIDs)
}

func TestPlaylist_Remove(t *testing.T) {
	p := &Playlist{ID: "p1", SongIDs: []string{"s1", "s2", "s1"}}

	assert.True(t, p.Remove("s1"))
	assert.Equal(t, []string{"s2"}, p.SongIDs)

	// Removing an absent id is a no-op.
	assert.False(t, p.Remove("s1"))
	assert.Equal(t, []string{"s2"}, p.SongIDs)
}

func TestMergeOrder(t *testing.T) {
	tests := []struct {
		name      string
		current   []string
		requested []string
		expected  []string
	}{
		{
			name:      "full permutation",
			current:   []string{"a", "b", "c"},
			requested: []string{"c", "a", "b"},
			expected:  []string{"c", "a", "b"},
		},
		{
			name:      "partial request keeps omitted songs",
			current:   []string{"a", "b", "c", "d"},
			requested: []string{"c", "a"},
			expected:  []string{"c", "a", "b", "d"},
		},
		{
			name:      "stale ids in request are dropped",
			current:   []string{"a", "b"},
			requested: []string{"x", "b", "y", "a"},
			expected:  []string{"b", "a"},
		},
		{
			name:      "empty request preserves current order",
			current:   []string{"a", "b"},
			requested: nil,
			expected:  []string{"a", "b"},
		},
		{
			name:      "duplicate request ids collapse to available occurrences",
			current:   []string{"a", "b"},
			requested: []string{"b", "b", "a"},
			expected:  []string{"b", "a"},
		},
		{
			name:      "duplicates in current are preserved",
			current:   []string{"a", "b", "a"},
			requested: []string{"b"},
			expected:  []string{"b", "a", "a"},
		},
		{
			name:      "empty current",
			current:   []string{},
			requested: []string{"a"},
			expected:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MergeOrder(tt.current, tt.requested)
			assert.Equal(t, tt.expected, result)

			// No data loss, ever.
			assert.Len(t, result, len(tt.current))
		})
	}
}

func TestPlaylist_OwnedBy(t *testing.T) {
	p := &Playlist{OwnerID: "user-1"}
	assert.True(t, p.OwnedBy("user-1"))
	assert.False(t, p.OwnedBy("user-2"))
	assert.False(t, p.OwnedBy(""))
}
