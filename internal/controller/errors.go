package controller

import (
	"errors"
	"net/http"

	"github.com/flickroom/client/internal/repository/backend"
	"github.com/flickroom/client/internal/repository/channel"
	"github.com/flickroom/client/internal/service/room"
	"github.com/flickroom/client/pkg/rest"
	"github.com/flickroom/client/pkg/validator"
)

type errorPayload struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, room.ErrInvalidRoomCode), errors.Is(err, backend.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, backend.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, room.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, room.ErrInvalidState), errors.Is(err, room.ErrAlreadyInRoom), errors.Is(err, room.ErrNotInRoom),
		errors.Is(err, room.ErrSessionChanged):
		return http.StatusConflict
	case errors.Is(err, backend.ErrNetwork), errors.Is(err, backend.ErrServer), errors.Is(err, channel.ErrChannel):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (c *controller) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		c.logger.ErrorContext(r.Context(), "request failed", "error", err)
	} else {
		c.logger.InfoContext(r.Context(), "request failed", "status", status, "error", err)
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		rest.WriteJSON(w, status, rest.Envelope{"errors": validationErrors})
		return
	}

	rest.WriteJSON(w, status, rest.Envelope{"error": err.Error()})
}

// readInput decodes and validates the request body, writing the error
// response itself when it fails.
func (c *controller) readInput(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := rest.ReadJSON(r, dst); err != nil {
		c.logger.InfoContext(r.Context(), "failed to read body", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return false
	}

	if validationErrors, ok := c.validate.Validate(dst); !ok {
		c.logger.InfoContext(r.Context(), "invalid body", "errors", validationErrors)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return false
	}

	return true
}
