package ws

import "encoding/json"

// Event is the wire envelope for every realtime message, both directions.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Realtime event names produced by write handlers and the voice manager.
const (
	EventMessageCreate = "MESSAGE_CREATE"
	EventMessageUpdate = "MESSAGE_UPDATE"
	EventMessageDelete = "MESSAGE_DELETE"
	EventVoiceJoined   = "VOICE_USER_JOINED"
	EventVoiceLeft     = "VOICE_USER_LEFT"

	EventICECandidate      = "ICE_CANDIDATE"
	EventWebRTCOffer       = "WEBRTC_OFFER"
	EventWebRTCAnswer      = "WEBRTC_ANSWER"
	EventWebRTCRenegotiate = "WEBRTC_RENEGOTIATE"
)

// NewEvent marshals data and wraps it in the {event, data} envelope.
func NewEvent(name string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Event: name, Data: raw}, nil
}

// VoiceMembershipData is the payload for VOICE_USER_JOINED/VOICE_USER_LEFT.
// user_id is string-serialized per the realtime numeric-id rule.
type VoiceMembershipData struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
}

// ICECandidateData wraps a single ICE candidate in SDP-fragment form.
type ICECandidateData struct {
	Candidate any `json:"candidate"`
}

// SDPData carries an SDP offer or answer.
type SDPData struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}
