package httpx

import (
	"errors"
	"net/http"

	"github.com/catequesis/catequesis-api/internal/shared"
)

// RespondError maps domain errors onto the failure envelope.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Fail(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, shared.ErrDuplicate):
		Fail(w, http.StatusConflict, "duplicate entry")
	case errors.Is(err, shared.ErrInvalidCredentials), errors.Is(err, shared.ErrAccountInactive):
		Fail(w, http.StatusUnauthorized, "invalid credentials")
	default:
		Fail(w, http.StatusInternalServerError, "internal error")
	}
}
