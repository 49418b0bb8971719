package api

import (
	"encoding/json"
	"net/http"
	"time"

	"hermes/config"
	"hermes/identity"
	"hermes/models"
	"hermes/pkg"
)

// AuthHandlers implements registration, login, logout and self-lookup.
type AuthHandlers struct {
	identity *identity.Service
	session  config.SessionConfig
}

func NewAuthHandlers(svc *identity.Service, session config.SessionConfig) *AuthHandlers {
	return &AuthHandlers{identity: svc, session: session}
}

func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.identity.Register(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusCreated, map[string]any{
		"id":      user.ID,
		"message": "User registered successfully",
	})
}

func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, session, err := h.identity.Login(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	h.setSessionCookie(w, session.Token, session.ExpiresAt)
	pkg.JSON(w, http.StatusOK, user)
}

func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if c, err := r.Cookie(h.session.CookieName); err == nil {
		token = c.Value
	}
	if err := h.identity.Logout(r.Context(), token); err != nil {
		pkg.Error(w, err)
		return
	}
	h.clearSessionCookie(w)
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.session.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.session.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.session.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
