package api

import (
	"encoding/json"
	"net/http"
	"testing"
)

func (ts *testServer) defaultTextChannel(t *testing.T, token string, serverID int64) int64 {
	t.Helper()
	resp := ts.do(t, "GET", fmtPath("/api/servers/%d/channels", serverID), token, nil)
	defer resp.Body.Close()
	var channels []struct {
		ID   int64  `json:"id"`
		Type string `json:"type"`
	}
	json.NewDecoder(resp.Body).Decode(&channels)
	for _, c := range channels {
		if c.Type == "TEXT" {
			return c.ID
		}
	}
	t.Fatal("no default TEXT channel found")
	return 0
}

func TestMessageCreateListUpdateDelete(t *testing.T) {
	ts := newTestServer(t)
	_, ownerToken := ts.registerAndLogin(t, "msgowner", "msgowner@example.com")
	serverID := ts.createServer(t, ownerToken, "Msg Server")
	channelID := ts.defaultTextChannel(t, ownerToken, serverID)

	createResp := ts.do(t, "POST", fmtPath("/api/servers/%d/channels/%d/messages", serverID, channelID), ownerToken,
		map[string]string{"content": "hello world"})
	defer createResp.Body.Close()
	if createResp.StatusCode != http.StatusCreated {
		t.Fatalf("create message status = %d, want %d", createResp.StatusCode, http.StatusCreated)
	}
	var created struct {
		ID      int64  `json:"id"`
		Content string `json:"content"`
	}
	json.NewDecoder(createResp.Body).Decode(&created)
	if created.Content != "hello world" {
		t.Errorf("created.Content = %q", created.Content)
	}

	listResp := ts.do(t, "GET", fmtPath("/api/servers/%d/channels/%d/messages", serverID, channelID), ownerToken, nil)
	defer listResp.Body.Close()
	var messages []struct {
		ID int64 `json:"id"`
	}
	json.NewDecoder(listResp.Body).Decode(&messages)
	if len(messages) != 1 {
		t.Errorf("message list length = %d, want 1", len(messages))
	}

	updateResp := ts.do(t, "PATCH", fmtPath("/api/servers/%d/messages/%d", serverID, created.ID), ownerToken,
		map[string]string{"content": "edited"})
	defer updateResp.Body.Close()
	if updateResp.StatusCode != http.StatusOK {
		t.Fatalf("update message status = %d, want %d", updateResp.StatusCode, http.StatusOK)
	}
	var updated struct {
		Content string `json:"content"`
	}
	json.NewDecoder(updateResp.Body).Decode(&updated)
	if updated.Content != "edited" {
		t.Errorf("updated.Content = %q, want %q", updated.Content, "edited")
	}

	deleteResp := ts.do(t, "DELETE", fmtPath("/api/servers/%d/messages/%d", serverID, created.ID), ownerToken, nil)
	defer deleteResp.Body.Close()
	if deleteResp.StatusCode != http.StatusNoContent {
		t.Errorf("delete message status = %d, want %d", deleteResp.StatusCode, http.StatusNoContent)
	}
}

func TestOnlyAuthorCanEditMessageButOwnerCanDeleteAnyones(t *testing.T) {
	ts := newTestServer(t)
	_, ownerToken := ts.registerAndLogin(t, "msgowner2", "msgowner2@example.com")
	_, memberToken := ts.registerAndLogin(t, "msgmember", "msgmember@example.com")
	serverID := ts.createServer(t, ownerToken, "Msg Server 2")
	ts.do(t, "POST", fmtPath("/api/servers/%d/join", serverID), memberToken, nil).Body.Close()
	channelID := ts.defaultTextChannel(t, ownerToken, serverID)

	createResp := ts.do(t, "POST", fmtPath("/api/servers/%d/channels/%d/messages", serverID, channelID), memberToken,
		map[string]string{"content": "member's message"})
	var created struct {
		ID int64 `json:"id"`
	}
	json.NewDecoder(createResp.Body).Decode(&created)
	createResp.Body.Close()

	editByOwnerResp := ts.do(t, "PATCH", fmtPath("/api/servers/%d/messages/%d", serverID, created.ID), ownerToken,
		map[string]string{"content": "owner trying to edit"})
	defer editByOwnerResp.Body.Close()
	if editByOwnerResp.StatusCode != http.StatusForbidden {
		t.Errorf("owner editing another author's message status = %d, want %d", editByOwnerResp.StatusCode, http.StatusForbidden)
	}

	deleteByOwnerResp := ts.do(t, "DELETE", fmtPath("/api/servers/%d/messages/%d", serverID, created.ID), ownerToken, nil)
	defer deleteByOwnerResp.Body.Close()
	if deleteByOwnerResp.StatusCode != http.StatusNoContent {
		t.Errorf("owner deleting member's message status = %d, want %d", deleteByOwnerResp.StatusCode, http.StatusNoContent)
	}
}

func TestMessageCreateRejectsOnVoiceChannel(t *testing.T) {
	ts := newTestServer(t)
	_, ownerToken := ts.registerAndLogin(t, "msgowner3", "msgowner3@example.com")
	serverID := ts.createServer(t, ownerToken, "Msg Server 3")

	listResp := ts.do(t, "GET", fmtPath("/api/servers/%d/channels", serverID), ownerToken, nil)
	var channels []struct {
		ID   int64  `json:"id"`
		Type string `json:"type"`
	}
	json.NewDecoder(listResp.Body).Decode(&channels)
	listResp.Body.Close()

	var voiceChannelID int64
	for _, c := range channels {
		if c.Type == "VOICE" {
			voiceChannelID = c.ID
		}
	}
	if voiceChannelID == 0 {
		t.Fatal("no default VOICE channel found")
	}

	resp := ts.do(t, "POST", fmtPath("/api/servers/%d/channels/%d/messages", serverID, voiceChannelID), ownerToken,
		map[string]string{"content": "should fail"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("posting a message to a voice channel status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}
