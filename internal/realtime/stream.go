package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/net/websocket"

	"github.com/taskflow/taskflow/internal/auth"
)

// Stream timing defaults.
const (
	DefaultPingInterval = 25 * time.Second
	writeTimeout        = 10 * time.Second
)

// StreamHandler serves a user's events over WebSocket and Server-Sent
// Events. Both routes expect the auth middleware to have run.
type StreamHandler struct {
	hub          *Hub
	logger       *slog.Logger
	pingInterval time.Duration
}

// NewStreamHandler creates a StreamHandler.
func NewStreamHandler(hub *Hub, logger *slog.Logger, pingInterval time.Duration) *StreamHandler {
	if pingInterval <= 0 {
		pingInterval = DefaultPingInterval
	}
	return &StreamHandler{
		hub:          hub,
		logger:       logger.With("component", "realtime.stream"),
		pingInterval: pingInterval,
	}
}

// WebSocket upgrades the request and writes one JSON frame per event.
func (h *StreamHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	srv := websocket.Server{
		// Tokens never travel in cookies, so the origin is not checked.
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler: func(conn *websocket.Conn) {
			h.serveWebSocket(conn, userID)
		},
	}
	srv.ServeHTTP(w, r)
}

func (h *StreamHandler) serveWebSocket(conn *websocket.Conn, userID string) {
	defer conn.Close()

	sub, err := h.hub.Subscribe(userID)
	if err != nil {
		h.logger.Warn("stream subscribe failed", "user_id", userID, "error", err)
		return
	}
	defer sub.Close()

	h.logger.Debug("websocket connected", "user_id", userID)

	// Inbound frames are ignored; reading only detects the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		_, _ = io.Copy(io.Discard, conn)
	}()

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	ctx := conn.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-gone:
			h.logger.Debug("websocket disconnected", "user_id", userID)
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := websocket.JSON.Send(conn, ev.Frame()); err != nil {
				h.logger.Debug("websocket write failed", "user_id", userID, "error", err)
				return
			}
		case <-ticker.C:
			if err := writePing(conn); err != nil {
				return
			}
		}
	}
}

func writePing(conn *websocket.Conn) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	conn.PayloadType = websocket.PingFrame
	defer func() { conn.PayloadType = websocket.TextFrame }()
	_, err := conn.Write([]byte("ping"))
	return err
}

// Events streams the user's events as text/event-stream.
func (h *StreamHandler) Events(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub, err := h.hub.Subscribe(userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrHubClosed) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, "stream unavailable", status)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			if err := writeSSE(w, ev); err != nil {
				h.logger.Debug("sse write failed", "user_id", userID, "error", err)
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w io.Writer, ev Event) error {
	data, err := json.Marshal(ev.Payload())
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}
