// Command hermes is the chat/voice backend's entry point.
//
// Wire-up, in order:
//  1. Load config
//  2. Open the database (migrations apply on connect)
//  3. Build the realtime Broker and start its event loop
//  4. Build the voice Manager (SFU) on top of the Broker
//  5. Build the domain services (identity, authz)
//  6. Build the HTTP handlers
//  7. Build the middleware and wire routes
//  8. Wrap with CORS
//  9. Start the HTTP server
//  10. Graceful shutdown
//
// No globals — everything is constructed here and passed down.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hermes/api"
	"hermes/authz"
	"hermes/config"
	"hermes/identity"
	"hermes/store"
	"hermes/voice"
	"hermes/ws"

	"github.com/rs/cors"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] hermes server starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] failed to load config: %v", err)
	}
	log.Printf("[main] config loaded (port=%d)", cfg.Server.Port)

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("[main] failed to initialize database: %v", err)
	}
	defer db.Close()

	// Broker — fans per-channel events out to subscribed WebSocket
	// clients. Run() is the one goroutine that owns the subscriber maps.
	broker := ws.NewBroker()
	go broker.Run()

	// Manager — the SFU. Built on top of the same Broker so voice join/
	// leave events go out on the voice channel's own event stream, the
	// same per-channel stream that carries messages for text channels.
	manager := voice.NewManager(broker, cfg.Voice.ICEServers)

	identitySvc := identity.NewService(db, cfg.Session.TTL)
	authzResolver := authz.NewResolver(db)

	authHandlers := api.NewAuthHandlers(identitySvc, cfg.Session)
	userHandlers := api.NewUserHandlers(db, identitySvc)
	serverHandlers := api.NewServerHandlers(db, authzResolver)
	channelHandlers := api.NewChannelHandlers(db, authzResolver)
	messageHandlers := api.NewMessageHandlers(db, authzResolver, broker)
	voiceHandlers := api.NewVoiceHandlers(db, authzResolver, manager)
	socketHandler := api.NewChannelSocketHandler(db, authzResolver, broker)

	mw := api.NewMiddleware(identitySvc, cfg.Session.CookieName)

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, &api.Handlers{
		Auth:    authHandlers,
		User:    userHandlers,
		Server:  serverHandlers,
		Channel: channelHandlers,
		Message: messageHandlers,
		Voice:   voiceHandlers,
		Socket:  socketHandler,
	}, mw)

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"hermes"}`))
	})

	// CORS_ORIGINS env var adds extra allowed origins (comma-separated),
	// on top of the local dev defaults below.
	corsOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, origin := range strings.Split(extra, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				corsOrigins = append(corsOrigins, origin)
			}
		}
	}
	log.Printf("[cors] allowed origins: %v", corsOrigins)
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      corsHandler.Handler(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("[main] server listening on %s", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	<-done
	log.Println("[main] shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("[main] forced shutdown: %v", err)
	}

	log.Println("[main] server stopped gracefully")
}
