package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func (ts *testServer) defaultVoiceChannel(t *testing.T, token string, serverID int64) int64 {
	t.Helper()
	resp := ts.do(t, "GET", fmtPath("/api/servers/%d/channels", serverID), token, nil)
	defer resp.Body.Close()
	var channels []struct {
		ID   int64  `json:"id"`
		Type string `json:"type"`
	}
	json.NewDecoder(resp.Body).Decode(&channels)
	for _, c := range channels {
		if c.Type == "VOICE" {
			return c.ID
		}
	}
	t.Fatal("no default VOICE channel found")
	return 0
}

// dialMessagesWS opens a channel's event WebSocket the way a client would
// while listening for broadcast events — MESSAGE_CREATE/UPDATE/DELETE for
// a text channel, VOICE_USER_JOINED/LEFT for a voice channel, since the
// Broker keys subscribers by channel_id, not by channel type.
func (ts *testServer) dialMessagesWS(t *testing.T, serverID, channelID int64, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") +
		fmtPath("/servers/%d/channels/%d/messages/ws?token=%s", serverID, channelID, token)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial messages ws failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	// The WS handshake completes before the server-side handler reaches
	// broker.Subscribe; give the Broker's Run loop a moment to register
	// the client before the caller publishes anything.
	time.Sleep(50 * time.Millisecond)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) (string, map[string]any) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read ws event failed: %v", err)
	}
	var evt struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	if err := json.Unmarshal(raw, &evt); err != nil {
		t.Fatalf("decode ws event failed: %v", err)
	}
	return evt.Event, evt.Data
}

func TestVoiceJoinAndLeaveMessageShapes(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.registerAndLogin(t, "voiceuser", "voiceuser@example.com")
	serverID := ts.createServer(t, token, "Voice Server")
	channelID := ts.defaultVoiceChannel(t, token, serverID)

	joinResp := ts.do(t, "POST", fmtPath("/api/servers/%d/channels/%d/voice/join", serverID, channelID), token, nil)
	defer joinResp.Body.Close()
	if joinResp.StatusCode != http.StatusOK {
		t.Fatalf("voice join status = %d, want %d", joinResp.StatusCode, http.StatusOK)
	}
	var joinBody struct {
		Message string `json:"message"`
	}
	json.NewDecoder(joinResp.Body).Decode(&joinBody)
	if joinBody.Message != "Successfully joined voice channel" {
		t.Errorf("join message = %q, want %q", joinBody.Message, "Successfully joined voice channel")
	}

	leaveResp := ts.do(t, "POST", fmtPath("/api/servers/%d/channels/%d/voice/leave", serverID, channelID), token, nil)
	defer leaveResp.Body.Close()
	if leaveResp.StatusCode != http.StatusOK {
		t.Fatalf("voice leave status = %d, want %d", leaveResp.StatusCode, http.StatusOK)
	}
	var leaveBody struct {
		Message string `json:"message"`
	}
	json.NewDecoder(leaveResp.Body).Decode(&leaveBody)
	if leaveBody.Message != "Successfully left voice channel" {
		t.Errorf("leave message = %q, want %q", leaveBody.Message, "Successfully left voice channel")
	}
}

func TestVoiceJoinRejectsTextChannel(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.registerAndLogin(t, "voiceuser2", "voiceuser2@example.com")
	serverID := ts.createServer(t, token, "Voice Server 2")
	channelID := ts.defaultTextChannel(t, token, serverID)

	resp := ts.do(t, "POST", fmtPath("/api/servers/%d/channels/%d/voice/join", serverID, channelID), token, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("joining voice on a text channel status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

// TestVoiceRESTJoinBroadcastsOverMessagesSocket mirrors
// test_voice_broadcast_events: a REST voice/join (with no voice signaling
// socket ever opened) must still publish VOICE_USER_JOINED/VOICE_USER_LEFT
// to everyone subscribed to the channel's message WebSocket.
func TestVoiceRESTJoinBroadcastsOverMessagesSocket(t *testing.T) {
	ts := newTestServer(t)
	ownerID, ownerToken := ts.registerAndLogin(t, "voicebroadcastowner", "vbowner@example.com")
	serverID := ts.createServer(t, ownerToken, "Voice Broadcast Server")
	voiceChannelID := ts.defaultVoiceChannel(t, ownerToken, serverID)

	// The Broker is keyed by channel_id regardless of channel type, so
	// watching the voice channel's own roster means subscribing to its
	// event stream directly, the same socket message history uses for a
	// text channel.
	conn := ts.dialMessagesWS(t, serverID, voiceChannelID, ownerToken)

	joinResp := ts.do(t, "POST", fmtPath("/api/servers/%d/channels/%d/voice/join", serverID, voiceChannelID), ownerToken, nil)
	joinResp.Body.Close()

	event, data := readEvent(t, conn)
	if event != "VOICE_USER_JOINED" {
		t.Fatalf("event = %q, want VOICE_USER_JOINED", event)
	}
	if data["user_id"] != strconv.FormatInt(ownerID, 10) {
		t.Errorf("user_id = %v, want %d", data["user_id"], ownerID)
	}

	leaveResp := ts.do(t, "POST", fmtPath("/api/servers/%d/channels/%d/voice/leave", serverID, voiceChannelID), ownerToken, nil)
	leaveResp.Body.Close()

	event, data = readEvent(t, conn)
	if event != "VOICE_USER_LEFT" {
		t.Fatalf("event = %q, want VOICE_USER_LEFT", event)
	}
	if data["user_id"] != strconv.FormatInt(ownerID, 10) {
		t.Errorf("user_id = %v, want %d", data["user_id"], ownerID)
	}
}
