package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", NotFound("palette", "abc123"), CodeNotFound},
		{"validation", ValidationFailed("slotIndex", "slot index out of range"), CodeValidation},
		{"conflict", Conflictf("username %q is already taken", "steve"), CodeConflict},
		{"forbidden", Forbidden("not the palette owner"), CodeForbidden},
		{"unauthenticated", Unauthenticated(), CodeUnauthenticated},
		{"wrapped", fmt.Errorf("service/palette: %w", NotFound("palette", "x")), CodeNotFound},
		{"bare sentinel", ErrNotFound, CodeInternal},
		{"foreign sentinel", &AppError{Err: errors.New("disk full"), Message: "x"}, CodeInternal},
		{"plain error", errors.New("sql: database is locked"), CodeInternal},
		{"nil", nil, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}

func TestSentinelsDoNotOverlap(t *testing.T) {
	errs := []*AppError{
		NotFound("palette", "p"),
		ValidationFailed("f", "m"),
		Conflictf("c"),
		Forbidden("f"),
		Unauthenticated(),
	}
	for i, err := range errs {
		for j, other := range errs {
			assert.Equal(t, i == j, errors.Is(err, other.Err), "%v vs %v", err.Err, other.Err)
		}
	}
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "palette not found with id abc123", NotFound("palette", "abc123").Error())
	assert.Equal(t, `username "steve" is already taken`, Conflictf("username %q is already taken", "steve").Error())
	assert.Equal(t, "authentication required", Unauthenticated().Error())

	err := ValidationFailed("maxSlots", "maxSlots must be between 6 and 12")
	assert.Equal(t, "maxSlots must be between 6 and 12", err.Error())
	assert.Equal(t, "maxSlots", err.Field)
}

func TestAs(t *testing.T) {
	wrapped := fmt.Errorf("sqlite: claiming: %w", Conflictf("taken"))

	got := As(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, "taken", got.Message)
	assert.Same(t, ErrConflict, got.Unwrap())

	assert.Nil(t, As(errors.New("boom")))
	assert.Nil(t, As(nil))
}
