package apperr

import (
	stderrors "errors"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

// Sentinels must sit in the wrap chain itself: testify and plain stdlib
// errors.Is have no knowledge of cockroachdb marks.
func TestHelpersMatchWithStdlibIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"validation", Validationf("name must not be empty"), ErrValidation},
		{"not found", NotFoundf("song %s not found", "s1"), ErrNotFound},
		{"forbidden", Forbiddenf("playlist %s is not owned by caller", "p1"), ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, stderrors.Is(tt.err, tt.sentinel))
			assert.True(t, errors.Is(tt.err, tt.sentinel))
			assert.ErrorIs(t, tt.err, tt.sentinel)
		})
	}
}

func TestTransient(t *testing.T) {
	cause := errors.New("disk full")
	err := Transient(errors.Wrap(cause, "write snapshot"))

	assert.True(t, stderrors.Is(err, ErrTransientIO))
	assert.ErrorIs(t, err, ErrTransientIO)

	// The original chain stays reachable.
	assert.ErrorIs(t, err, cause)

	assert.NoError(t, Transient(nil))
}
