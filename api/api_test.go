package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hermes/authz"
	"hermes/config"
	"hermes/identity"
	"hermes/store"
	"hermes/voice"
	"hermes/ws"
)

// fmtPath builds a request path from a printf-style format, kept separate
// from fmt.Sprintf call sites so tests read as plain paths.
func fmtPath(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}

// testServer wires the whole API stack against a fresh in-memory database,
// the same way main.go does, and exposes it over httptest for end-to-end
// handler tests.
type testServer struct {
	*httptest.Server
	db *store.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	identitySvc := identity.NewService(db, time.Hour)
	authzResolver := authz.NewResolver(db)
	broker := ws.NewBroker()
	go broker.Run()
	manager := voice.NewManager(broker, nil)

	sessionCfg := config.SessionConfig{CookieName: "hermes_session", TTL: time.Hour}
	mw := NewMiddleware(identitySvc, sessionCfg.CookieName)

	mux := http.NewServeMux()
	RegisterRoutes(mux, &Handlers{
		Auth:    NewAuthHandlers(identitySvc, sessionCfg),
		User:    NewUserHandlers(db, identitySvc),
		Server:  NewServerHandlers(db, authzResolver),
		Channel: NewChannelHandlers(db, authzResolver),
		Message: NewMessageHandlers(db, authzResolver, broker),
		Voice:   NewVoiceHandlers(db, authzResolver, manager),
		Socket:  NewChannelSocketHandler(db, authzResolver, broker),
	}, mw)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, db: db}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.URL.RawQuery = "token=" + token
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	return resp
}

// registerAndLogin registers a user and returns its session token.
func (ts *testServer) registerAndLogin(t *testing.T, username, email string) (userID int64, token string) {
	t.Helper()

	resp := ts.do(t, "POST", "/api/auth/register", "", map[string]string{
		"username": username, "email": email, "password": "password1",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var registerBody struct {
		ID int64 `json:"id"`
	}
	json.NewDecoder(resp.Body).Decode(&registerBody)

	loginResp := ts.do(t, "POST", "/api/auth/login", "", map[string]string{
		"identity": username, "password": "password1",
	})
	defer loginResp.Body.Close()
	if loginResp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want %d", loginResp.StatusCode, http.StatusOK)
	}
	for _, c := range loginResp.Cookies() {
		if c.Name == "hermes_session" {
			return registerBody.ID, c.Value
		}
	}
	t.Fatal("login response did not set a session cookie")
	return 0, ""
}
