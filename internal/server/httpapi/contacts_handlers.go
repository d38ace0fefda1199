package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/contactbook/internal/server/contacts"
)

func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	var req contactCreateRequest
	if err := readBodyJSON(r, maxJSONBodySize, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := s.contacts.Create(r.Context(), accountID(r.Context()), contacts.CreateParams{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		PhoneNumber:    req.PhoneNumber,
		Birthday:       req.Birthday.Time,
		AdditionalInfo: req.AdditionalInfo,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newContactResponse(created))
}

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	skip, err := parseIntQuery(r, "skip", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid skip parameter")
		return
	}
	limit, err := parseIntQuery(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit parameter")
		return
	}

	list, err := s.contacts.List(r.Context(), accountID(r.Context()), skip, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newContactListResponse(list))
}

func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	c, err := s.contacts.Get(r.Context(), accountID(r.Context()), r.PathValue("id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newContactResponse(c))
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	var req contactUpdateRequest
	if err := readBodyJSON(r, maxJSONBodySize, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	params := contacts.UpdateParams{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		PhoneNumber:    req.PhoneNumber,
		AdditionalInfo: req.AdditionalInfo,
	}
	if req.Birthday != nil {
		params.Birthday = &req.Birthday.Time
	}

	updated, err := s.contacts.Update(r.Context(), accountID(r.Context()), r.PathValue("id"), params)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newContactResponse(updated))
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	if err := s.contacts.Delete(r.Context(), accountID(r.Context()), r.PathValue("id")); err != nil {
		s.respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearchContacts(w http.ResponseWriter, r *http.Request) {
	list, err := s.contacts.Search(r.Context(), accountID(r.Context()), r.URL.Query().Get("query"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newContactListResponse(list))
}

func (s *Server) handleUpcomingBirthdays(w http.ResponseWriter, r *http.Request) {
	list, err := s.contacts.UpcomingBirthdays(r.Context(), accountID(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newContactListResponse(list))
}
