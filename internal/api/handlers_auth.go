package api

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/fmuoria/nexushire/internal/auth"
	apperrors "github.com/fmuoria/nexushire/internal/errors"
	"github.com/fmuoria/nexushire/internal/models"
	"github.com/fmuoria/nexushire/internal/storage"
)

// readCredentials accepts a JSON body or query/form parameters.
func readCredentials(r *http.Request) (models.Credentials, error) {
	var creds models.Credentials

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			return creds, apperrors.BadRequest("INVALID_INPUT", "Invalid JSON body")
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return creds, apperrors.BadRequest("INVALID_INPUT", "Invalid form body")
		}
		creds.Email = r.FormValue("email")
		creds.Password = r.FormValue("password")
	}

	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return creds, apperrors.BadRequest("INVALID_INPUT", "email and password are required")
	}
	return creds, nil
}

// handleRegister creates an account.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	hash, err := auth.HashPassword(creds.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	user := &models.User{Email: creds.Email, HashedPassword: hash}
	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			s.respondError(w, r, apperrors.BadRequest("EMAIL_TAKEN", "Email already registered"))
			return
		}
		s.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// handleLogin issues a bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	user, err := s.users.GetByEmail(r.Context(), creds.Email)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, r, err)
		return
	}
	if user == nil || !auth.CheckPassword(user.HashedPassword, creds.Password) {
		s.respondError(w, r, apperrors.Unauthorized("Invalid credentials"))
		return
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, models.TokenResponse{AccessToken: token, TokenType: "bearer"})
}
