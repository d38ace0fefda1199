package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/contactbook/internal/common"
)

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := readBodyJSON(r, maxJSONBodySize, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := s.accounts.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newAccountResponse(account))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readBodyJSON(r, maxJSONBodySize, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := s.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newTokenResponse(pair))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := readBodyJSON(r, maxJSONBodySize, &req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := s.accounts.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newTokenResponse(pair))
}

// handleVerifyEmail consumes an emailed verification token. Replayed and
// unknown tokens get 400, stale ones 410.
func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	err := s.accounts.VerifyEmail(r.Context(), token)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, messageResponse{Message: "email verified"})
	case errors.Is(err, common.ErrTokenExpired):
		writeError(w, http.StatusGone, "token expired")
	case errors.Is(err, common.ErrTokenAlreadyUsed):
		writeError(w, http.StatusBadRequest, "token already used")
	case errors.Is(err, common.ErrInvalidToken):
		writeError(w, http.StatusBadRequest, "invalid token")
	default:
		s.respondError(w, r, err)
	}
}
