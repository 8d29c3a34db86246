package web

import (
	"net/http"

	"github.com/evcraddock/estate-crm/internal/model"
)

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.GetAll(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, list(users), http.StatusOK)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, u, http.StatusOK)
}

func (s *Server) getUserByEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		apiError(w, "email is required", http.StatusBadRequest)
		return
	}
	u, err := s.users.GetByEmail(r.Context(), email)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, u, http.StatusOK)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var nu model.NewUser
	if !decodeJSON(w, r, &nu) {
		return
	}
	if nu.Role == "" {
		nu.Role = model.RoleUser
	}
	if err := validate.Struct(nu); err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return
	}

	u, err := s.users.Create(r.Context(), nu)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apiJSON(w, u, http.StatusCreated)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var patch model.UserPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	id := r.PathValue("id")
	if err := selfOrAdmin(r, id); err != nil {
		s.fail(w, r, err)
		return
	}
	if !principal(r).IsAdmin() && (patch.Role != nil || patch.Status != nil) {
		apiError(w, "only admins can change role or status", http.StatusForbidden)
		return
	}

	u, err := s.users.Update(r.Context(), id, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if u.Status != model.UserStatusActive {
		s.revokeSessions(r, u.ID)
	}
	apiJSON(w, u, http.StatusOK)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == principal(r).UserID {
		apiError(w, "cannot delete your own account", http.StatusBadRequest)
		return
	}
	if err := s.users.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// toggleUserStatus flips active and inactive. Suspended users yield 409.
func (s *Server) toggleUserStatus(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.ToggleStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if u.Status != model.UserStatusActive {
		s.revokeSessions(r, u.ID)
	}
	apiJSON(w, u, http.StatusOK)
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	id := r.PathValue("id")
	if err := selfOrAdmin(r, id); err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.users.ChangePassword(r.Context(), id, req.Password); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// revokeSessions signs a deactivated user out everywhere. Failure is logged;
// RequireAuth still rejects the account on its next request.
func (s *Server) revokeSessions(r *http.Request, userID string) {
	if err := s.sessions.DestroyForUser(r.Context(), userID); err != nil {
		s.log(r).Warn("revoking sessions", "user_id", userID, "error", err)
	}
}
