package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-relay/internal/config"
	"chat-relay/internal/handlers"
	"chat-relay/internal/services"
	"chat-relay/internal/session"
	"chat-relay/internal/websocket"
	"chat-relay/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration: %v", err)
	}

	// Initialize the coordination core
	codes := services.NewCodeGenerator(cfg.Relay.CodeLength, cfg.Relay.CodeAttempts)
	registry := services.NewRegistry(codes, services.HistoryPolicy{
		Retain: cfg.Relay.RetainHistory,
		Limit:  cfg.Relay.HistoryLimit,
	})
	binder := session.NewBinder()

	hub := websocket.NewHub(registry, binder)
	go hub.Run()

	reaper := services.NewReaper(registry, cfg.Relay.ReapInterval, cfg.Relay.ReapRetention)
	reaper.Start()

	// Initialize handlers
	wsHandlers := handlers.NewWebSocketHandlers(hub, cfg.Relay.SendBuffer)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandlers.HandleWebSocket)
	mux.HandleFunc("/healthz", wsHandlers.HandleHealth)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("🚀 Relay listening on %s", cfg.Server.Addr)
		logger.Info("📡 WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error: %v", err)
	}
	reaper.Stop()
	hub.Shutdown()
}
