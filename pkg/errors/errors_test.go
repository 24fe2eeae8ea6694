package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneKeepsIdentity(t *testing.T) {
	err := Clone(ErrSessionNotFound, "session Saturday-Hazem-200PM not found")
	require.True(t, stderrors.Is(err, ErrSessionNotFound))
	require.False(t, stderrors.Is(err, ErrProfileNotFound))
	require.Equal(t, http.StatusNotFound, err.Status)
}

func TestWithResource(t *testing.T) {
	err := WithResource(ErrProfileNotFound, "student", "STU001")
	assert.Equal(t, "student", err.Resource)
	assert.Equal(t, "STU001", err.ResourceID)
	assert.Empty(t, ErrProfileNotFound.ResourceID)
}

func TestFromErrorWrapsPlainErrors(t *testing.T) {
	plain := fmt.Errorf("boom")
	err := FromError(plain)
	require.Equal(t, ErrInternal.Code, err.Code)
	require.ErrorIs(t, err, plain)

	wrapped := fmt.Errorf("outer: %w", ErrConflict)
	require.Equal(t, ErrConflict.Code, FromError(wrapped).Code)
}
