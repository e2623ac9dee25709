package handler

import (
	"errors"
	"net/http"

	"github.com/anibalssilva/tech-challenge-books-api/internal/auth"
	"github.com/anibalssilva/tech-challenge-books-api/internal/model"
	"github.com/anibalssilva/tech-challenge-books-api/internal/server/middleware"
	"github.com/anibalssilva/tech-challenge-books-api/internal/store"
)

// AuthHandler serves registration, login, token refresh, and the admin
// account-maintenance endpoints.
type AuthHandler struct {
	authSvc *auth.Service
	store   *store.Store
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc *auth.Service, st *store.Store) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, store: st}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	AccessToken string `json:"access_token"`
}

type usernameRequest struct {
	Username string `json:"username"`
}

// Register creates a new account. A duplicate username is a soft failure:
// the response is 200 with an error body and the existing account is left
// untouched. This mirrors the original API contract deliberately.
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := readJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeDetail(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	if _, err := h.authSvc.Register(r.Context(), req.Username, req.Password); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeJSON(w, http.StatusOK, model.SoftError{Error: "User already registered"})
			return
		}
		writeDetail(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	writeJSON(w, http.StatusOK, model.Message{Message: "User created successfully"})
}

// Login verifies the credentials and returns a bearer access token.
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := readJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := h.authSvc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeChallenge(w, http.StatusUnauthorized, "Incorrect username or password")
			return
		}
		writeDetail(w, http.StatusInternalServerError, "Authentication error")
		return
	}

	writeJSON(w, http.StatusOK, model.Token{AccessToken: token, TokenType: "bearer"})
}

// Refresh exchanges a non-expired token for a fresh one. An expired token is
// rejected with 406, distinct from the 401 for a forged or malformed one, so
// clients can tell "log in again" from "refresh was too late".
// POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := readJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := h.authSvc.Refresh(r.Context(), req.AccessToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			writeChallenge(w, http.StatusNotAcceptable, "Signature has expired")
		case errors.Is(err, auth.ErrInvalidToken):
			writeChallenge(w, http.StatusUnauthorized, "Invalid refresh token")
		default:
			writeDetail(w, http.StatusInternalServerError, "Refresh error")
		}
		return
	}

	writeJSON(w, http.StatusOK, model.Token{AccessToken: token, TokenType: "bearer"})
}

// SetAdmin grants admin privileges to the named account. An unknown target
// is a soft 200 error, matching the original contract. Requires an
// authenticated, active admin caller (enforced by the route middleware).
// PUT /auth/admin
func (h *AuthHandler) SetAdmin(w http.ResponseWriter, r *http.Request) {
	h.setFlag(w, r, "admin")
}

// SetDisabled disables the named account. All of its outstanding tokens stop
// working at their next verification. Same caller requirements as SetAdmin.
// PUT /auth/disable
func (h *AuthHandler) SetDisabled(w http.ResponseWriter, r *http.Request) {
	h.setFlag(w, r, "disabled")
}

func (h *AuthHandler) setFlag(w http.ResponseWriter, r *http.Request, flag string) {
	var req usernameRequest
	if err := readJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" {
		writeDetail(w, http.StatusBadRequest, "Username is required")
		return
	}

	var err error
	if flag == "admin" {
		_, err = h.store.SetAdmin(r.Context(), req.Username, true)
	} else {
		_, err = h.store.SetDisabled(r.Context(), req.Username, true)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusOK, model.SoftError{Error: "User not found"})
			return
		}
		writeDetail(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	if flag == "admin" {
		writeJSON(w, http.StatusOK, model.Message{Message: "User updated successfully"})
		return
	}
	writeJSON(w, http.StatusOK, model.Message{Message: "User disabled successfully"})
}

// Me echoes the caller's resolved identity. The password hash stays out of
// the payload via the model's json tags.
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetCurrentUser(r.Context())
	if user == nil {
		writeChallenge(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
