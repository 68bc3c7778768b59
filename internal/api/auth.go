package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/nerrad567/rfsocket-core/internal/apperr"
	"github.com/nerrad567/rfsocket-core/internal/auth"
)

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the response body for POST /auth/login.
type loginResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int             `json:"expires_in"`
	ExpiresAt   time.Time       `json:"expires_at"`
	User        auth.PublicUser `json:"user"`
}

// handleLogin authenticates a user and returns a JWT access token carrying
// the user's current permission.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body", "body", apperr.ReasonInvalidValue)
		return
	}

	verr := apperr.Invalid("invalid login request")
	if req.Username == "" {
		verr.AddField(auth.FieldUsername, apperr.ReasonNotProvided)
	}
	if req.Password == "" {
		verr.AddField(auth.FieldPassword, apperr.ReasonNotProvided)
	}
	if err := verr.OrNil(); err != nil {
		writeAppError(w, err)
		return
	}

	user, err := s.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Info("login failed", "username", req.Username)
			writeUnauthorized(w, "invalid credentials")
			return
		}
		s.logger.Error("login failed", "username", req.Username, "error", err)
		writeInternalError(w, "login failed")
		return
	}

	ttl := time.Duration(s.secCfg.JWT.AccessTokenTTL) * time.Minute
	if ttl <= 0 {
		ttl = auth.DefaultTokenTTL
	}
	token, expires, err := auth.GenerateAccessToken(user, s.secCfg.JWT.Secret, ttl)
	if err != nil {
		s.logger.Error("token generation failed", "user_id", user.ID, "error", err)
		writeInternalError(w, "failed to generate token")
		return
	}

	s.logger.Info("login succeeded", "user_id", user.ID, "username", user.Username)
	writeOK(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(ttl.Seconds()),
		ExpiresAt:   expires.UTC(),
		User:        user.Public(),
	})
}
