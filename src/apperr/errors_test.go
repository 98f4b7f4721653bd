package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bubtconnect/backend/src/apperr"
)

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("accept: %w", apperr.New(apperr.KindNotFound, "Connection request not found"))

	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	require.Equal(t, "Connection request not found", apperr.MessageOf(err))
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.NotErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestForeignErrorsAreInternal(t *testing.T) {
	err := errors.New("connection reset")

	require.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	require.Equal(t, "Internal server error", apperr.MessageOf(err))
	require.Equal(t, http.StatusInternalServerError, apperr.HTTPStatus(apperr.KindOf(err)))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("imagekit: 503")
	err := apperr.Wrap(apperr.KindUpstreamFailure, "Upload failed", cause)

	require.ErrorIs(t, err, cause)
	require.Equal(t, "Upload failed: imagekit: 503", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindNotAuthenticated: http.StatusUnauthorized,
		apperr.KindNotFound:         http.StatusNotFound,
		apperr.KindInvalidInput:     http.StatusBadRequest,
		apperr.KindEmptyMessage:     http.StatusBadRequest,
		apperr.KindAlreadyFollowing: http.StatusConflict,
		apperr.KindAlreadyConnected: http.StatusConflict,
		apperr.KindRequestPending:   http.StatusConflict,
		apperr.KindRateLimited:      http.StatusTooManyRequests,
		apperr.KindUpstreamFailure:  http.StatusBadGateway,
	}
	for kind, status := range cases {
		require.Equal(t, status, apperr.HTTPStatus(kind), kind)
	}
}
