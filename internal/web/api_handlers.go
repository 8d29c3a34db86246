package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/evcraddock/estate-crm/internal/auth"
	"github.com/evcraddock/estate-crm/internal/logging"
	"github.com/evcraddock/estate-crm/internal/model"
	"github.com/evcraddock/estate-crm/internal/repository"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

var errForbidden = errors.New("forbidden")

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	resp := map[string]string{"error": msg}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// decodeJSON reads the request body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		apiError(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

// list keeps empty collections encoding as [] rather than null.
func list[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

// scope resolves whose view a listing is computed for. Non-admins always
// get their own; admins see everything unless they ask for one user with
// ?scope=user&user_id=.
func scope(r *http.Request) (userID string, isAdmin bool) {
	p := principal(r)
	if !p.IsAdmin() {
		return p.UserID, false
	}
	q := r.URL.Query()
	if q.Get("scope") == "user" && q.Get("user_id") != "" {
		return q.Get("user_id"), false
	}
	return p.UserID, true
}

// log returns the request-scoped logger.
func (s *Server) log(r *http.Request) *slog.Logger {
	return logging.FromContext(r.Context(), s.logger)
}

// fail maps an error to a status code and writes it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		apiError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, repository.ErrDuplicate), errors.Is(err, repository.ErrConflict):
		apiError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, repository.ErrInvalid):
		apiError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, errForbidden):
		apiError(w, err.Error(), http.StatusForbidden)
	default:
		s.log(r).Error("handling request", "method", r.Method, "path", r.URL.Path, "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) listProperties(w http.ResponseWriter, r *http.Request) {
	userID, isAdmin := scope(r)
	props, err := s.properties.GetByUser(r.Context(), userID, isAdmin)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, list(props), http.StatusOK)
}

func (s *Server) createProperty(w http.ResponseWriter, r *http.Request) {
	var p model.Property
	if !decodeJSON(w, r, &p) {
		return
	}
	caller := principal(r)
	if !caller.IsAdmin() || p.CreatedBy == "" {
		p.CreatedBy = caller.UserID
	}

	created, err := s.properties.Create(r.Context(), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, created, http.StatusCreated)
}

func (s *Server) getProperty(w http.ResponseWriter, r *http.Request) {
	p, err := s.properties.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, p, http.StatusOK)
}

func (s *Server) updateProperty(w http.ResponseWriter, r *http.Request) {
	var patch model.PropertyPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	p, err := s.properties.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, p, http.StatusOK)
}

func (s *Server) deleteProperty(w http.ResponseWriter, r *http.Request) {
	if err := s.properties.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listLeads(w http.ResponseWriter, r *http.Request) {
	userID, isAdmin := scope(r)
	leads, err := s.leads.GetByUser(r.Context(), userID, isAdmin)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, list(leads), http.StatusOK)
}

// visibleLead loads a lead the caller may see. Leads outside a non-admin's
// scope read as not found.
func (s *Server) visibleLead(r *http.Request, id string) (model.Lead, error) {
	l, err := s.leads.GetByID(r.Context(), id)
	if err != nil {
		return model.Lead{}, err
	}
	caller := principal(r)
	if !caller.IsAdmin() && !l.VisibleTo(caller.UserID) {
		return model.Lead{}, fmt.Errorf("lead %s: %w", id, repository.ErrNotFound)
	}
	return l, nil
}

func (s *Server) createLead(w http.ResponseWriter, r *http.Request) {
	var l model.Lead
	if !decodeJSON(w, r, &l) {
		return
	}
	caller := principal(r)
	if !caller.IsAdmin() || l.CreatedBy == "" {
		l.CreatedBy = caller.UserID
	}

	created, err := s.leads.Create(r.Context(), l)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, created, http.StatusCreated)
}

func (s *Server) getLead(w http.ResponseWriter, r *http.Request) {
	l, err := s.visibleLead(r, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, l, http.StatusOK)
}

func (s *Server) updateLead(w http.ResponseWriter, r *http.Request) {
	var patch model.LeadPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	id := r.PathValue("id")
	if _, err := s.visibleLead(r, id); err != nil {
		s.fail(w, r, err)
		return
	}

	l, err := s.leads.Update(r.Context(), id, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, l, http.StatusOK)
}

func (s *Server) deleteLead(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.visibleLead(r, id); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.leads.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listDeals(w http.ResponseWriter, r *http.Request) {
	userID, isAdmin := scope(r)
	deals, err := s.deals.GetByUser(r.Context(), userID, isAdmin)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, list(deals), http.StatusOK)
}

func (s *Server) createDeal(w http.ResponseWriter, r *http.Request) {
	var d model.Deal
	if !decodeJSON(w, r, &d) {
		return
	}
	caller := principal(r)
	if !caller.IsAdmin() || d.CreatedBy == nil {
		d.CreatedBy = &caller.UserID
	}

	created, err := s.deals.Create(r.Context(), d)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, created, http.StatusCreated)
}

func (s *Server) getDeal(w http.ResponseWriter, r *http.Request) {
	d, err := s.deals.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, d, http.StatusOK)
}

func (s *Server) updateDeal(w http.ResponseWriter, r *http.Request) {
	var patch model.DealPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	d, err := s.deals.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, d, http.StatusOK)
}
