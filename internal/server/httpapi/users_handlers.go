package httpapi

import (
	"errors"
	"io"
	"net/http"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	account, err := s.accounts.Get(r.Context(), accountID(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newAccountResponse(account))
}

// handleUpdateAvatar accepts a multipart form with a "file" part, stores the
// image and returns the account with its new avatar URL.
func (s *Server) handleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)

	file, _, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "expected multipart form with a 'file' part")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "error reading uploaded file")
		return
	}

	account, err := s.accounts.UpdateAvatar(r.Context(), accountID(r.Context()), data)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newAccountResponse(account))
}
