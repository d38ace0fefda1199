package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/server/contacts"
)

// respondError maps a domain error onto the public status-code contract.
// Anything unrecognized is logged in full and surfaced as an opaque 500.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *contacts.ValidationError
	if errors.As(err, &verr) {
		writeValidationError(w, verr.Error(), verr.Fields)
		return
	}

	switch {
	case errors.Is(err, common.ErrInvalidEmail), errors.Is(err, common.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, common.ErrAccountNotVerified):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, common.ErrUnsupportedMediaType):
		writeError(w, http.StatusUnsupportedMediaType, common.ErrUnsupportedMediaType.Error())
	case errors.Is(err, common.ErrUploadFailed):
		writeError(w, http.StatusBadGateway, common.ErrUploadFailed.Error())
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrRefreshTokenExpired),
		errors.Is(err, common.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
	default:
		s.logger.Error(r.Context(), "unhandled error", "method", r.Method, "path", r.URL.Path, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
