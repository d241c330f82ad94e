package admin

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/apestel/hardwire/internal/hwerr"
	"github.com/apestel/hardwire/internal/storage"
	"github.com/go-chi/chi/v5"
)

// handleListUsers implements GET /admin/api/users.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListAdminUsers()
	if err != nil {
		hwerr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type createUserRequest struct {
	GoogleID string `json:"google_id"`
	Email    string `json:"email"`
}

// handleCreateUser implements POST /admin/api/users: only an existing
// admin may grant another user admin status.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		hwerr.WriteJSON(w, hwerr.Wrap(hwerr.KindValidation, "malformed request body", err))
		return
	}
	if req.GoogleID == "" || req.Email == "" {
		hwerr.WriteJSON(w, hwerr.New(hwerr.KindValidation, "google_id and email are required"))
		return
	}

	user := &storage.AdminUser{GoogleID: req.GoogleID, Email: req.Email}
	if err := s.store.CreateAdminUser(user); err != nil {
		hwerr.WriteJSON(w, err)
		return
	}

	s.audit.Log(adminUserFromContext(r).ID, "create_user", http.StatusOK, req.Email)

	writeJSON(w, http.StatusOK, user)
}

// handleGetUser implements GET /admin/api/users/{id}.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		hwerr.WriteJSON(w, hwerr.New(hwerr.KindValidation, "invalid user id"))
		return
	}
	user, err := s.store.GetAdminUser(id)
	if err != nil {
		hwerr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleDeleteUser implements DELETE /admin/api/users/{id}.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		hwerr.WriteJSON(w, hwerr.New(hwerr.KindValidation, "invalid user id"))
		return
	}
	if err := s.store.DeleteAdminUser(id); err != nil {
		hwerr.WriteJSON(w, err)
		return
	}

	s.audit.Log(adminUserFromContext(r).ID, "delete_user", http.StatusNoContent, strconv.FormatUint(uint64(id), 10))

	w.WriteHeader(http.StatusNoContent)
}

func parseUintParam(r *http.Request, name string) (uint, error) {
	raw := chi.URLParam(r, name)
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(n), nil
}
