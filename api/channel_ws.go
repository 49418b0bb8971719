package api

import (
	"net/http"

	"hermes/authz"
	"hermes/pkg"
	"hermes/store"
	"hermes/ws"
)

// ChannelSocketHandler upgrades a connection and subscribes it to a
// channel's event stream via the Broker. The stream carries MESSAGE_*
// events for text channels and VOICE_USER_JOINED/LEFT for voice channels —
// the Broker is keyed by channel_id regardless of channel type, so a
// client watching a voice channel's roster subscribes here too, not on
// the voice signaling socket (which carries only that one connection's
// own SDP/ICE exchange).
type ChannelSocketHandler struct {
	db     *store.DB
	authz  *authz.Resolver
	broker *ws.Broker
}

func NewChannelSocketHandler(db *store.DB, az *authz.Resolver, broker *ws.Broker) *ChannelSocketHandler {
	return &ChannelSocketHandler{db: db, authz: az, broker: broker}
}

func (h *ChannelSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
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

	channelID, err := pathInt64(r, "id")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid channel id")
		return
	}
	channel, err := h.db.GetChannelByID(r.Context(), serverID, channelID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	_ = ws.Serve(h.broker, w, r, channel.ID, caller.ID)
}
