package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompact(t *testing.T) {
	tracks := []Track{
		{ID: "a", Title: "A"},
		{},
		{AudioURL: "file:///b.mp3"},
		{ID: "c"},
	}

	result := Compact(tracks)

	assert.Len(t, result, 3)
	assert.Equal(t, "a", result[0].ID)
	assert.Equal(t, "file:///b.mp3", result[1].AudioURL)
	assert.Equal(t, "c", result[2].ID)
}

func TestIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, IDs([]Track{{ID: "a"}, {ID: "b"}}))
	assert.Empty(t, IDs(nil))
}
