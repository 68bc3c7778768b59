package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/rfsocket-core/internal/apperr"
	"github.com/nerrad567/rfsocket-core/internal/auth"
)

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type setPermissionRequest struct {
	Permission auth.Permission `json:"permission"`
}

// handleListUsers returns all accounts without their password hashes.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.ListUsers(r.Context())
	if err != nil {
		s.logger.Error("list users failed", "error", err)
		writeAppError(w, err)
		return
	}

	out := make([]auth.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	writeOK(w, http.StatusOK, out)
}

// handleCreateUser creates an account with NONE permission. An ADMIN
// raises it afterwards with PATCH /users/{id}.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body", "body", apperr.ReasonInvalidValue)
		return
	}

	user, err := s.users.AddUser(r.Context(), req.Username, req.Password)
	if err != nil {
		if _, ok := apperr.As(err); !ok {
			s.logger.Error("create user failed", "error", err)
		}
		writeAppError(w, err)
		return
	}

	claims := claimsFromContext(r.Context())
	s.logger.Info("user created", "user_id", user.ID, "username", user.Username, "created_by", claims.Username)
	writeOK(w, http.StatusCreated, []auth.PublicUser{user.Public()})
}

// handleSetPermission changes a user's permission level.
// An ADMIN cannot lower their own permission.
func (s *Server) handleSetPermission(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}

	var req setPermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body", "body", apperr.ReasonInvalidValue)
		return
	}
	if req.Permission == "" {
		writeBadRequest(w, "permission required", auth.FieldPermission, apperr.ReasonNotProvided)
		return
	}

	claims := claimsFromContext(r.Context())
	if self, err := claims.UserID(); err == nil && self == id && req.Permission != auth.PermissionAdmin {
		writeForbidden(w, "cannot lower your own permission")
		return
	}

	user, err := s.users.SetPermission(r.Context(), id, req.Permission)
	if err != nil {
		if _, ok := apperr.As(err); !ok {
			s.logger.Error("set permission failed", "user_id", id, "error", err)
		}
		writeAppError(w, err)
		return
	}
	writeOK(w, http.StatusOK, []auth.PublicUser{user.Public()})
}

// handleDeleteUser removes an account. Callers cannot remove themselves.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}

	claims := claimsFromContext(r.Context())
	if self, err := claims.UserID(); err == nil && self == id {
		writeForbidden(w, "cannot delete your own account")
		return
	}

	if err := s.users.RemoveUser(r.Context(), id); err != nil {
		if _, ok := apperr.As(err); !ok {
			s.logger.Error("delete user failed", "user_id", id, "error", err)
		}
		writeAppError(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]int{auth.FieldUserID: id})
}

// userIDParam parses the {id} path segment, writing a 400 when it is not
// an integer.
func userIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "user id must be an integer", auth.FieldUserID, apperr.ReasonInvalidValue)
		return 0, false
	}
	return id, true
}
