package errors

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MapToGRPCError converts relay errors into gRPC status errors.
func MapToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrPersistence):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// HTTPStatus returns the HTTP status code matching err.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPersistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FrameCode returns the code sent to websocket clients in error frames.
// Category errors get their own code so the client can prompt for a choice.
func FrameCode(err error) string {
	switch {
	case errors.Is(err, ErrCategoryRequired):
		return "category_required"
	case errors.Is(err, ErrValidation):
		return "bad_request"
	case errors.Is(err, ErrAlreadyJoined):
		return "already_joined"
	case errors.Is(err, ErrNotJoined):
		return "not_joined"
	case errors.Is(err, ErrPersistence):
		return "persistence_error"
	default:
		return "internal_error"
	}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
