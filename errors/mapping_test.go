package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestMapToGRPCError(t *testing.T) {
	req := require.New(t)

	req.NoError(MapToGRPCError(nil))
	req.Equal(codes.InvalidArgument, status.Code(MapToGRPCError(ErrCategoryRequired)))
	req.Equal(codes.NotFound, status.Code(MapToGRPCError(fmt.Errorf("contact 42: %w", ErrNotFound))))
	req.Equal(codes.Unavailable, status.Code(MapToGRPCError(fmt.Errorf("%w: disk full", ErrPersistence))))
	req.Equal(codes.Internal, status.Code(MapToGRPCError(fmt.Errorf("boom"))))
}

func TestHTTPStatus(t *testing.T) {
	req := require.New(t)

	req.Equal(http.StatusOK, HTTPStatus(nil))
	req.Equal(http.StatusBadRequest, HTTPStatus(ErrContactIDRequired))
	req.Equal(http.StatusNotFound, HTTPStatus(ErrNotFound))
	req.Equal(http.StatusServiceUnavailable, HTTPStatus(ErrPersistence))
	req.Equal(http.StatusInternalServerError, HTTPStatus(ErrNotify))
}

func TestFrameCode(t *testing.T) {
	cases := map[error]string{
		ErrCategoryRequired: "category_required",
		ErrValidation:       "bad_request",
		ErrAlreadyJoined:    "already_joined",
		ErrNotJoined:        "not_joined",
		ErrPersistence:      "persistence_error",
		ErrQueueFull:        "internal_error",
	}
	for err, code := range cases {
		require.Equal(t, code, FrameCode(fmt.Errorf("wrapped: %w", err)), err.Error())
	}
}
