package api

import "net/http"

// Handlers groups every handler group the router wires together.
type Handlers struct {
	Auth    *AuthHandlers
	User    *UserHandlers
	Server  *ServerHandlers
	Channel *ChannelHandlers
	Message *MessageHandlers
	Voice   *VoiceHandlers
	Socket  *ChannelSocketHandler
}

// RegisterRoutes binds every REST and WebSocket endpoint to mux.
//
// Route ordering rule: literal path segments before parametric ones, so
// e.g. "/api/servers/{serverId}" never swallows a more specific literal
// route registered after it — net/http's ServeMux picks the most specific
// pattern regardless of registration order, but routes are still grouped
// here in that order for readability.
func RegisterRoutes(mux *http.ServeMux, h *Handlers, mw *Middleware) {
	auth := func(handler http.HandlerFunc) http.Handler {
		return mw.Require(handler)
	}

	// Auth
	mux.HandleFunc("POST /api/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.HandleFunc("POST /api/auth/logout", h.Auth.Logout)

	// Self
	mux.Handle("GET /api/users/@me", auth(h.User.Me))
	mux.Handle("PATCH /api/users/@me", auth(h.User.UpdateMe))
	mux.Handle("DELETE /api/users/@me", auth(h.User.DeleteMe))

	// Public profile
	mux.Handle("GET /api/users/{id}", auth(h.User.GetByID))

	// Servers
	mux.Handle("GET /api/servers", auth(h.Server.List))
	mux.Handle("POST /api/servers", auth(h.Server.Create))
	mux.Handle("GET /api/servers/{serverId}", auth(h.Server.Get))
	mux.Handle("PATCH /api/servers/{serverId}", auth(h.Server.Update))
	mux.Handle("DELETE /api/servers/{serverId}", auth(h.Server.Delete))
	mux.Handle("POST /api/servers/{serverId}/join", auth(h.Server.Join))
	mux.Handle("DELETE /api/servers/{serverId}/leave", auth(h.Server.Leave))

	// Channels
	mux.Handle("GET /api/servers/{serverId}/channels", auth(h.Channel.List))
	mux.Handle("POST /api/servers/{serverId}/channels", auth(h.Channel.Create))
	mux.Handle("PATCH /api/servers/{serverId}/channels/{id}", auth(h.Channel.Update))
	mux.Handle("DELETE /api/servers/{serverId}/channels/{id}", auth(h.Channel.Delete))

	// Messages
	mux.Handle("GET /api/servers/{serverId}/channels/{id}/messages", auth(h.Message.List))
	mux.Handle("POST /api/servers/{serverId}/channels/{id}/messages", auth(h.Message.Create))
	mux.Handle("PATCH /api/servers/{serverId}/messages/{id}", auth(h.Message.Update))
	mux.Handle("DELETE /api/servers/{serverId}/messages/{id}", auth(h.Message.Delete))

	// Voice
	mux.Handle("POST /api/servers/{serverId}/channels/{id}/voice/join", auth(h.Voice.Join))
	mux.Handle("POST /api/servers/{serverId}/channels/{id}/voice/leave", auth(h.Voice.Leave))

	// WebSockets — session resolved the same way as REST, via cookie or
	// ?token=, so auth() wraps these exactly like any other route.
	mux.Handle("GET /servers/{serverId}/channels/{id}/messages/ws", auth(h.Socket.Serve))
	mux.Handle("GET /servers/{serverId}/channels/{id}/voice/ws", auth(h.Voice.ServeSignaling))
}
