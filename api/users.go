package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"hermes/identity"
	"hermes/models"
	"hermes/pkg"
	"hermes/store"
)

// UserHandlers implements the self-profile and public-profile endpoints.
type UserHandlers struct {
	db       *store.DB
	identity *identity.Service
}

func NewUserHandlers(db *store.DB, svc *identity.Service) *UserHandlers {
	return &UserHandlers{db: db, identity: svc}
}

// Me returns the caller's own profile, including their email.
func (h *UserHandlers) Me(w http.ResponseWriter, r *http.Request) {
	pkg.JSON(w, http.StatusOK, UserFromContext(r.Context()))
}

// UpdateMe applies a partial profile update and returns the full profile
// (email included, same as Me — only other users' profiles hide it).
func (h *UserHandlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	caller := UserFromContext(r.Context())

	var req models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		pkg.Error(w, pkg.Validation("%s", err.Error()))
		return
	}

	user, err := h.db.UpdateUser(r.Context(), caller.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, user)
}

// DeleteMe ghosts the caller's account and revokes every session.
func (h *UserHandlers) DeleteMe(w http.ResponseWriter, r *http.Request) {
	caller := UserFromContext(r.Context())
	if err := h.identity.DeleteAccount(r.Context(), caller.ID); err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.NoContent(w)
}

// GetByID returns another user's public profile — no email, same shape
// whether the target is active or ghosted.
func (h *UserHandlers) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid user id")
		return
	}
	user, err := h.db.GetUserByID(r.Context(), id)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, user.Public())
}
