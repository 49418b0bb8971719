package api

import (
	"encoding/json"
	"net/http"

	"hermes/authz"
	"hermes/models"
	"hermes/pkg"
	"hermes/store"
	"hermes/voice"
	"hermes/ws"

	"github.com/gorilla/websocket"
	pionwebrtc "github.com/pion/webrtc/v4"
)

// VoiceHandlers implements the REST voice join/leave endpoints and the
// voice signaling WebSocket. REST join/leave own the SFU membership and
// the VOICE_USER_JOINED/LEFT events that announce it; the signaling
// socket shares that same membership (Manager.Join is idempotent per
// user+channel) and only adds the live signal used for ICE/SDP exchange,
// so a client can join voice and be visible to others before it ever
// pays the cost of an ICE handshake.
type VoiceHandlers struct {
	db      *store.DB
	authz   *authz.Resolver
	manager *voice.Manager
}

func NewVoiceHandlers(db *store.DB, az *authz.Resolver, manager *voice.Manager) *VoiceHandlers {
	return &VoiceHandlers{db: db, authz: az, manager: manager}
}

func (h *VoiceHandlers) requireVoiceChannel(r *http.Request, serverID int64, callerID int64) (*models.Channel, error) {
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
	if channel.Type != models.ChannelTypeVoice {
		return nil, pkg.Validation("channel is not a voice channel")
	}
	return channel, nil
}

// discardSignal is used when a Peer is created from the REST join
// endpoint, where there is no live socket yet to carry ANSWER/ICE_CANDIDATE
// events; ServeSignaling repoints the Peer at a real signal once the
// browser opens the voice WebSocket.
func discardSignal(string, any) {}

func (h *VoiceHandlers) Join(w http.ResponseWriter, r *http.Request) {
	caller := UserFromContext(r.Context())
	serverID, err := pathInt64(r, "serverId")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid server id")
		return
	}
	channel, err := h.requireVoiceChannel(r, serverID, caller.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	if _, err := h.manager.Join(channel.ID, caller.ID, discardSignal); err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "Successfully joined voice channel"})
}

func (h *VoiceHandlers) Leave(w http.ResponseWriter, r *http.Request) {
	caller := UserFromContext(r.Context())
	serverID, err := pathInt64(r, "serverId")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid server id")
		return
	}
	channel, err := h.requireVoiceChannel(r, serverID, caller.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	if err := h.manager.Leave(channel.ID, caller.ID); err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "Successfully left voice channel"})
}

// voiceSignal is the inbound {event, data} envelope the client sends over
// the voice WebSocket: an SDP offer, an SDP answer to a server-initiated
// renegotiation offer, or a trickled ICE candidate.
type voiceSignal struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ServeSignaling upgrades the connection and drives one peer's signaling
// for the lifetime of the socket. Unlike the text Broker's Client, this
// connection carries two-way application traffic (offer/answer/ICE), not
// just fan-out, so it is handled inline rather than via ws.Client.
func (h *VoiceHandlers) ServeSignaling(w http.ResponseWriter, r *http.Request) {
	caller := UserFromContext(r.Context())
	serverID, err := pathInt64(r, "serverId")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid server id")
		return
	}
	channel, err := h.requireVoiceChannel(r, serverID, caller.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	conn, err := ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	writeMu := make(chan struct{}, 1)
	writeMu <- struct{}{}
	signal := func(event string, data any) {
		evt, err := ws.NewEvent(event, data)
		if err != nil {
			return
		}
		payload, err := json.Marshal(evt)
		if err != nil {
			return
		}
		<-writeMu
		_ = conn.WriteMessage(websocket.TextMessage, payload)
		writeMu <- struct{}{}
	}

	peer, err := h.manager.Join(channel.ID, caller.ID, signal)
	if err != nil {
		return
	}
	defer h.manager.Leave(channel.ID, caller.ID)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg voiceSignal
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}

		switch msg.Event {
		case ws.EventWebRTCOffer:
			var sdp ws.SDPData
			if err := json.Unmarshal(msg.Data, &sdp); err != nil {
				continue
			}
			answer, err := peer.HandleOffer(sdp.SDP)
			if err != nil {
				continue
			}
			signal(ws.EventWebRTCAnswer, ws.SDPData{Type: "answer", SDP: answer.SDP})

		case ws.EventWebRTCAnswer:
			// The client's answer to a server-initiated WEBRTC_RENEGOTIATE
			// offer (see Peer.renegotiate), not to be confused with the
			// WEBRTC_ANSWER this same handler sends in the offer case above.
			var sdp ws.SDPData
			if err := json.Unmarshal(msg.Data, &sdp); err != nil {
				continue
			}
			_ = peer.HandleAnswer(sdp.SDP)

		case ws.EventICECandidate:
			var c pionwebrtc.ICECandidateInit
			if err := json.Unmarshal(msg.Data, &c); err != nil {
				continue
			}
			_ = peer.AddICECandidate(c)
		}
	}
}
