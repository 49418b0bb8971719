package api

import (
	"encoding/json"
	"net/http"

	"hermes/authz"
	"hermes/models"
	"hermes/pkg"
	"hermes/store"
)

// ChannelHandlers implements channel CRUD, scoped to a server.
type ChannelHandlers struct {
	db    *store.DB
	authz *authz.Resolver
}

func NewChannelHandlers(db *store.DB, az *authz.Resolver) *ChannelHandlers {
	return &ChannelHandlers{db: db, authz: az}
}

func (h *ChannelHandlers) List(w http.ResponseWriter, r *http.Request) {
	caller := UserFromContext(r.Context())
	serverID, err := pathInt64(r, "serverId")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid server id")
		return
	}

	if _, err := h.authz.RequireServerVisible(r.Context(), serverID, caller.ID); err != nil {
		pkg.Error(w, err)
		return
	}

	channels, err := h.db.ListChannels(r.Context(), serverID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, channels)
}

func (h *ChannelHandlers) Create(w http.ResponseWriter, r *http.Request) {
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

	var req models.CreateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		pkg.Error(w, pkg.Validation("%s", err.Error()))
		return
	}

	channel := &models.Channel{ServerID: serverID, Name: req.Name, Type: models.ChannelType(req.Type)}
	if err := h.db.CreateChannel(r.Context(), channel); err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusCreated, channel)
}

func (h *ChannelHandlers) Update(w http.ResponseWriter, r *http.Request) {
	caller := UserFromContext(r.Context())
	serverID, err := pathInt64(r, "serverId")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid server id")
		return
	}
	channelID, err := pathInt64(r, "id")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid channel id")
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

	var req models.UpdateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		pkg.Error(w, pkg.Validation("%s", err.Error()))
		return
	}

	channel, err := h.db.UpdateChannel(r.Context(), serverID, channelID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, channel)
}

func (h *ChannelHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	caller := UserFromContext(r.Context())
	serverID, err := pathInt64(r, "serverId")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid server id")
		return
	}
	channelID, err := pathInt64(r, "id")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid channel id")
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

	if err := h.db.DeleteChannel(r.Context(), serverID, channelID); err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.NoContent(w)
}
