package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"hermes/authz"
	"hermes/models"
	"hermes/pkg"
	"hermes/store"
	"hermes/ws"
)

// MessageHandlers implements message CRUD within a text channel and fans
// each write out through the Broker after it commits.
type MessageHandlers struct {
	db     *store.DB
	authz  *authz.Resolver
	broker *ws.Broker
}

func NewMessageHandlers(db *store.DB, az *authz.Resolver, broker *ws.Broker) *MessageHandlers {
	return &MessageHandlers{db: db, authz: az, broker: broker}
}

// requireTextChannel confirms the caller can see the server and that the
// channel belongs to it and is a TEXT channel.
func (h *MessageHandlers) requireTextChannel(r *http.Request, serverID int64, callerID int64) (*models.Channel, error) {
	if _, err := h.authz.RequireServerVisible(r.Context(), serverID, callerID); err != nil {
		return nil, err
	}
	channelID, err := pathInt64(r, "id")
	if err != nil {
		return nil, pkg.Validation("invalid channel id")
	}
	channel, err := h.db.GetChannelByID(r.Context(), serverID, channelID)
	if err != nil {
		return nil, err
	}
	if channel.Type != models.ChannelTypeText {
		return nil, pkg.Validation("channel is not a text channel")
	}
	return channel, nil
}

func (h *MessageHandlers) List(w http.ResponseWriter, r *http.Request) {
	caller := UserFromContext(r.Context())
	serverID, err := pathInt64(r, "serverId")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid server id")
		return
	}

	channel, err := h.requireTextChannel(r, serverID, caller.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	messages, err := h.db.ListMessages(r.Context(), channel.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, messages)
}

func (h *MessageHandlers) Create(w http.ResponseWriter, r *http.Request) {
	caller := UserFromContext(r.Context())
	serverID, err := pathInt64(r, "serverId")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid server id")
		return
	}

	channel, err := h.requireTextChannel(r, serverID, caller.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	var req models.CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		pkg.Error(w, pkg.Validation("%s", err.Error()))
		return
	}

	message := &models.Message{ChannelID: channel.ID, AuthorID: caller.ID, Content: req.Content}
	if err := h.db.CreateMessage(r.Context(), message); err != nil {
		pkg.Error(w, err)
		return
	}

	h.publish(channel.ID, ws.EventMessageCreate, message)
	pkg.JSON(w, http.StatusCreated, message)
}

func (h *MessageHandlers) Update(w http.ResponseWriter, r *http.Request) {
	caller := UserFromContext(r.Context())
	serverID, err := pathInt64(r, "serverId")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid server id")
		return
	}
	messageID, err := pathInt64(r, "id")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid message id")
		return
	}

	if _, err := h.authz.RequireServerVisible(r.Context(), serverID, caller.ID); err != nil {
		pkg.Error(w, err)
		return
	}

	existing, err := h.db.GetMessageByIDInServer(r.Context(), serverID, messageID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	if err := h.authz.RequireMessageAuthor(existing, caller.ID); err != nil {
		pkg.Error(w, err)
		return
	}

	var req models.UpdateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		pkg.Error(w, pkg.Validation("%s", err.Error()))
		return
	}

	updated, err := h.db.UpdateMessage(r.Context(), existing.ChannelID, messageID, req.Content)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	h.publish(updated.ChannelID, ws.EventMessageUpdate, updated)
	pkg.JSON(w, http.StatusOK, updated)
}

func (h *MessageHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	caller := UserFromContext(r.Context())
	serverID, err := pathInt64(r, "serverId")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid server id")
		return
	}
	messageID, err := pathInt64(r, "id")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid message id")
		return
	}

	server, err := h.authz.RequireServerVisible(r.Context(), serverID, caller.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	existing, err := h.db.GetMessageByIDInServer(r.Context(), serverID, messageID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	if err := h.authz.RequireMessageAuthorOrOwner(server, existing, caller.ID); err != nil {
		pkg.Error(w, err)
		return
	}

	if err := h.db.DeleteMessage(r.Context(), existing.ChannelID, messageID); err != nil {
		pkg.Error(w, err)
		return
	}

	h.publish(existing.ChannelID, ws.EventMessageDelete, models.MessageDeleteEvent{ID: strconv.FormatInt(messageID, 10)})
	pkg.NoContent(w)
}

func (h *MessageHandlers) publish(channelID int64, event string, data any) {
	evt, err := ws.NewEvent(event, data)
	if err != nil {
		return
	}
	h.broker.Publish(channelID, evt)
}
