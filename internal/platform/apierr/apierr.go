package apierr

import (
	goerrors "errors"
	"fmt"
	"net/http"

	"github.com/codedeck/codedeck-backend/internal/pkg/errors"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// FromError maps domain sentinels onto HTTP statuses. Forbidden stays
// forbidden; it is not masked as not-found.
func FromError(err error) *Error {
	switch {
	case err == nil:
		return nil
	case goerrors.Is(err, errors.ErrNotFound):
		return New(http.StatusNotFound, "not_found", err)
	case goerrors.Is(err, errors.ErrForbidden):
		return New(http.StatusForbidden, "forbidden", err)
	case goerrors.Is(err, errors.ErrUnauthorized):
		return New(http.StatusUnauthorized, "unauthorized", err)
	case goerrors.Is(err, errors.ErrInvalidArgument):
		return New(http.StatusBadRequest, "invalid_argument", err)
	case goerrors.Is(err, errors.ErrConflict):
		return New(http.StatusConflict, "conflict", err)
	case goerrors.Is(err, errors.ErrIntegrity):
		return New(http.StatusConflict, "integrity", err)
	default:
		return New(http.StatusInternalServerError, "internal", err)
	}
}
