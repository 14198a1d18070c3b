package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorWithInternal(t *testing.T) {
	internal := errors.New("database unreachable")
	err := ErrInternalServer.WithInternal(internal)

	require.Equal(t, ErrInternalServer.Code, err.Code)
	require.ErrorIs(t, err, internal)
	require.Contains(t, err.Error(), "database unreachable")

	// the shared sentinel must not be mutated
	require.Nil(t, ErrInternalServer.Internal)
}

func TestFromError(t *testing.T) {
	appErr := New("ROLE_NOT_FOUND", "Role not found", http.StatusNotFound)

	resolved := FromError(appErr)
	require.Equal(t, appErr, resolved)

	wrapped := FromError(errors.New("boom"))
	require.Equal(t, ErrInternalServer.Code, wrapped.Code)
	require.Equal(t, http.StatusInternalServerError, wrapped.StatusCode)

	require.Nil(t, FromError(nil))
}

func TestWrapKeepsOriginal(t *testing.T) {
	cause := errors.New("cause")
	err := Wrap(cause, "permission cache refresh failed")

	require.ErrorIs(t, err, cause)
	require.Equal(t, http.StatusInternalServerError, err.StatusCode)
}
