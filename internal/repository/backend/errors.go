package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
	ErrNetwork         = errors.New("network error")
	ErrServer          = errors.New("server error")
	ErrInvalidInput    = errors.New("invalid input")
)

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e errorResponse) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

func statusError(status int, body errorResponse) error {
	var kind error
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		kind = ErrInvalidInput
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		kind = ErrUnauthenticated
	case status == http.StatusNotFound:
		kind = ErrNotFound
	default:
		kind = ErrServer
	}

	if msg := body.text(); msg != "" {
		return fmt.Errorf("%w: %s (status %d)", kind, msg, status)
	}

	return fmt.Errorf("%w: status %d", kind, status)
}
