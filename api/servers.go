package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"hermes/authz"
	"hermes/models"
	"hermes/pkg"
	"hermes/store"
)

// ServerHandlers implements server CRUD plus join/leave.
type ServerHandlers struct {
	db    *store.DB
	authz *authz.Resolver
}

func NewServerHandlers(db *store.DB, az *authz.Resolver) *ServerHandlers {
	return &ServerHandlers{db: db, authz: az}
}

func (h *ServerHandlers) List(w http.ResponseWriter, r *http.Request) {
	caller := UserFromContext(r.Context())
	servers, err := h.db.ListServersForUser(r.Context(), caller.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, servers)
}

func (h *ServerHandlers) Create(w http.ResponseWriter, r *http.Request) {
	caller := UserFromContext(r.Context())

	var req models.CreateServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		pkg.Error(w, pkg.Validation("%s", err.Error()))
		return
	}

	server := &models.Server{Name: req.Name, IconURL: req.IconURL, OwnerID: caller.ID}
	if err := h.db.CreateServerWithDefaults(r.Context(), server); err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusCreated, server)
}

func (h *ServerHandlers) Get(w http.ResponseWriter, r *http.Request) {
	caller := UserFromContext(r.Context())
	serverID, err := pathInt64(r, "serverId")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid server id")
		return
	}

	server, err := h.authz.RequireServerVisible(r.Context(), serverID, caller.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, server)
}

func (h *ServerHandlers) Update(w http.ResponseWriter, r *http.Request) {
	caller := UserFromContext(r.Context())
	serverID, err := pathInt64(r, "serverId")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid server id")
		return
	}

	server, err := h.authz.RequireServerVisible(r.Context(), serverID, caller.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	if err := h.authz.RequireOwner(server, caller.ID); err != nil {
		pkg.Error(w, err)
		return
	}

	var req models.UpdateServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		pkg.Error(w, pkg.Validation("%s", err.Error()))
		return
	}

	updated, err := h.db.UpdateServer(r.Context(), serverID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, updated)
}

func (h *ServerHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	caller := UserFromContext(r.Context())
	serverID, err := pathInt64(r, "serverId")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid server id")
		return
	}

	server, err := h.authz.RequireServerVisible(r.Context(), serverID, caller.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	if err := h.authz.RequireOwner(server, caller.ID); err != nil {
		pkg.Error(w, err)
		return
	}

	if err := h.db.DeleteServer(r.Context(), serverID); err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.NoContent(w)
}

// Join adds the caller as a member. Unlike every other server operation,
// visibility is not a precondition — a non-member must be able to see and
// join a server that exists, which is exactly what RequireServerVisible
// would forbid, so Join looks the server up directly instead.
func (h *ServerHandlers) Join(w http.ResponseWriter, r *http.Request) {
	caller := UserFromContext(r.Context())
	serverID, err := pathInt64(r, "serverId")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid server id")
		return
	}

	if _, err := h.db.GetServerByID(r.Context(), serverID); err != nil {
		pkg.Error(w, err)
		return
	}

	rejoined, err := h.db.JoinServer(r.Context(), serverID, caller.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	message := "Successfully joined the server"
	if rejoined {
		message = "Successfully rejoined the server"
	}
	pkg.JSON(w, http.StatusOK, map[string]string{"message": message})
}

func (h *ServerHandlers) Leave(w http.ResponseWriter, r *http.Request) {
	caller := UserFromContext(r.Context())
	serverID, err := pathInt64(r, "serverId")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid server id")
		return
	}

	server, err := h.authz.RequireServerVisible(r.Context(), serverID, caller.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	if err := h.authz.RequireNotOwner(server, caller.ID); err != nil {
		pkg.Error(w, err)
		return
	}

	if err := h.db.LeaveServer(r.Context(), serverID, caller.ID); err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "Successfully left the server"})
}

func pathInt64(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}
