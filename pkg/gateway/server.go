package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/harun/rudder/internal/observability"
	"github.com/harun/rudder/internal/tracing"
	"github.com/harun/rudder/pkg/actions"
	"github.com/harun/rudder/pkg/executor"
	"github.com/harun/rudder/pkg/history"
	"github.com/harun/rudder/pkg/scenario"
	"github.com/harun/rudder/pkg/schedule"
)

// secretHeader authenticates single-shot HTTP RPC calls.
const secretHeader = "X-Rudder-Secret"

// Server exposes the action runner, scenario runner, history store and
// scheduler over WebSocket and HTTP JSON-RPC.
type Server struct {
	host           string
	port           int
	sharedSecret   string
	tickInterval   time.Duration
	server         *http.Server
	upgrader       websocket.Upgrader
	clients        *ClientRegistry
	router         *RPCRouter
	authHandler    *AuthHandler
	broadcaster    *EventBroadcaster
	actions        *actions.Runner
	scenarios      *scenario.Runner
	loader         *scenario.Loader
	executor       *executor.Executor
	history        *history.Store
	scheduler      *schedule.Service
	logger         zerolog.Logger
	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
	tickCancel     context.CancelFunc
	tickWG         sync.WaitGroup
}

// Config holds server configuration. Actions and Executor are mandatory;
// the scenario runner, loader, history store and scheduler are optional and
// gate which RPC methods get registered.
type Config struct {
	Host         string // empty binds all interfaces
	Port         int
	SharedSecret string
	TickInterval time.Duration
	Actions      *actions.Runner
	Scenarios    *scenario.Runner
	Loader       *scenario.Loader
	Executor     *executor.Executor
	History      *history.Store
	Scheduler    *schedule.Service
	Logger       zerolog.Logger
}

// NewServer creates a new gateway server
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.SharedSecret == "" {
		return nil, fmt.Errorf("shared secret is required")
	}
	if cfg.Actions == nil {
		return nil, fmt.Errorf("action runner is required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 30 * time.Second
	}

	clients := NewClientRegistry()

	s := &Server{
		host:         cfg.Host,
		port:         cfg.Port,
		sharedSecret: cfg.SharedSecret,
		tickInterval: cfg.TickInterval,
		clients:      clients,
		router:       NewRPCRouter(),
		authHandler:  NewAuthHandler(cfg.SharedSecret),
		broadcaster:  NewEventBroadcaster(clients, cfg.Logger),
		actions:      cfg.Actions,
		scenarios:    cfg.Scenarios,
		loader:       cfg.Loader,
		executor:     cfg.Executor,
		history:      cfg.History,
		scheduler:    cfg.Scheduler,
		logger:       cfg.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local-first daemon, auth happens after upgrade
			},
		},
	}

	s.registerBuiltinMethods()

	return s, nil
}

// Broadcaster returns the event broadcaster, for wiring sinks.
func (s *Server) Broadcaster() *EventBroadcaster {
	return s.broadcaster
}

// Start starts the gateway server
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/rpc", s.handleRPC)
	mux.Handle("/metrics", observability.MetricsHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.host, s.port),
		Handler: mux,
	}

	s.logger.Info().Str("host", s.host).Int("port", s.port).Msg("Starting gateway server")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Gateway server error")
		}
	}()

	// Give the listener a moment to come up before emitting ticks.
	time.Sleep(50 * time.Millisecond)
	s.startTickEmitter()

	return nil
}

// Stop gracefully stops the gateway server
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down gateway server")
	s.stopTickEmitter()

	s.broadcaster.Broadcast("server.shutdown", map[string]interface{}{
		"message": "Server is shutting down",
	})

	// Wait for in-flight requests with timeout
	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All in-flight requests completed")
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	for _, client := range s.clients.GetAll() {
		client.Conn.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info().Msg("Gateway server stopped")
	return nil
}

func (s *Server) startTickEmitter() {
	if s.tickInterval <= 0 {
		return
	}

	tickCtx, cancel := context.WithCancel(context.Background())
	s.tickCancel = cancel
	s.tickWG.Add(1)

	go func() {
		defer s.tickWG.Done()

		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-tickCtx.Done():
				return
			case <-ticker.C:
				s.broadcaster.BroadcastTyped(EventMessage{
					Event:  "tick",
					Stream: StreamTypeLifecycle,
					Phase:  "tick",
					Data: map[string]interface{}{
						"queue_depth": s.executor.Depth(),
						"busy":        s.executor.Busy(),
					},
				})
			}
		}
	}()
}

func (s *Server) stopTickEmitter() {
	if s.tickCancel != nil {
		s.tickCancel()
		s.tickCancel = nil
	}
	s.tickWG.Wait()
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.shutdownMu.RLock()
	if s.isShuttingDown {
		s.shutdownMu.RUnlock()
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}
	s.shutdownMu.RUnlock()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	clientID, _ := gonanoid.New()
	client := &Client{
		ID:           clientID,
		Conn:         conn,
		ConnectedAt:  time.Now(),
		LastActivity: time.Now(),
		IPAddress:    r.RemoteAddr,
		RateLimiter:  NewClientRateLimiter(),
		State:        StateConnecting,
	}

	s.clients.Add(client)

	s.logger.Info().
		Str("clientId", clientID).
		Str("ip", r.RemoteAddr).
		Msg("Client connected")

	if err := s.sendAuthChallenge(client); err != nil {
		s.logger.Error().Err(err).Str("clientId", clientID).Msg("Failed to send auth challenge")
		conn.Close()
		s.clients.Remove(clientID)
		return
	}

	go s.handleClient(client)
}

// sendAuthChallenge sends an authentication challenge to a client
func (s *Server) sendAuthChallenge(client *Client) error {
	challenge, err := s.authHandler.GenerateChallenge()
	if err != nil {
		return err
	}

	client.Challenge = challenge
	client.State = StateAuthenticating

	return client.WriteJSON(AuthChallenge{
		Event:     "auth.challenge",
		Challenge: challenge,
	})
}

// handleClient reads messages from a client until the connection drops
func (s *Server) handleClient(client *Client) {
	defer func() {
		client.Conn.Close()
		s.clients.Remove(client.ID)
		s.logger.Info().Str("clientId", client.ID).Msg("Client disconnected")
	}()

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Error().Err(err).Str("clientId", client.ID).Msg("WebSocket error")
			}
			break
		}

		s.clients.UpdateActivity(client.ID)
		s.handleMessage(client, message)
	}
}

// handleMessage handles a single message from a client
func (s *Server) handleMessage(client *Client, message []byte) {
	// Auth responses come in before the client can do anything else.
	var authResp AuthResponse
	if err := json.Unmarshal(message, &authResp); err == nil && authResp.Method == "auth.response" {
		s.handleAuthMessage(client, authResp)
		return
	}

	if !client.Authenticated {
		s.sendError(client, "", AuthenticationRequired, "Authentication required")
		return
	}

	req, err := s.router.ParseRequest(message)
	if err != nil {
		if rpcErr, ok := err.(*RPCError); ok {
			s.sendError(client, "", rpcErr.Code, rpcErr.Message)
		} else {
			s.sendError(client, "", ParseError, err.Error())
		}
		return
	}

	allowed, reason := client.RateLimiter.CheckRequestAllowed()
	if !allowed {
		code := RateLimitExceeded
		if reason == "too many concurrent requests" {
			code = TooManyConcurrent
		}
		s.sendError(client, req.ID, code, reason)
		return
	}

	client.RateLimiter.RecordRequestStart()
	s.inFlightReqs.Add(1)

	// Handle the request asynchronously so a long browser operation does
	// not block this client's read loop.
	go func() {
		defer client.RateLimiter.RecordRequestEnd()
		defer s.inFlightReqs.Done()

		ctx := withClientID(context.Background(), client.ID)
		ctx = tracing.WithTraceID(ctx, tracing.NewTraceID())

		response := s.router.RouteRequest(ctx, req)
		if err := client.WriteJSON(response); err != nil {
			s.logger.Error().
				Err(err).
				Str("clientId", client.ID).
				Str("requestId", req.ID).
				Msg("Failed to send response")
		}
	}()
}

// handleRPC handles single-shot HTTP JSON-RPC requests.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.sharedSecret != "" {
		secret := r.Header.Get(secretHeader)
		if secret != s.sharedSecret {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	req, err := s.router.ParseRequest(body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(RPCResponse{
			ID:      "",
			JSONRPC: "2.0",
			Error: &RPCError{
				Code:    ParseError,
				Message: err.Error(),
			},
		})
		return
	}

	traceID := r.Header.Get("X-Trace-Id")
	if traceID == "" {
		traceID = tracing.NewTraceID()
	}
	ctx := tracing.WithTraceID(r.Context(), traceID)
	logger := tracing.LoggerFromContext(ctx, s.logger)
	logger.Info().
		Str("request_id", req.ID).
		Str("method", req.Method).
		Msg("Gateway received HTTP RPC request")

	resp := s.router.RouteRequest(ctx, req)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Msg("Failed to encode RPC response")
	}
}

// handleAuthMessage handles authentication messages
func (s *Server) handleAuthMessage(client *Client, authResp AuthResponse) {
	result := s.authHandler.HandleAuthResponse(client, authResp.Signature)

	if err := client.WriteJSON(result); err != nil {
		s.logger.Error().Err(err).Str("clientId", client.ID).Msg("Failed to send auth result")
		return
	}

	if !result.Success {
		s.logger.Warn().
			Str("clientId", client.ID).
			Str("reason", result.Message).
			Msg("Authentication failed")
		observability.RecordSecurityAudit(context.Background(), "gateway_auth", client.ID, "failure", map[string]interface{}{
			"reason":   result.Message,
			"attempts": client.AuthAttempts,
		})

		if client.AuthAttempts >= maxAuthAttempts {
			client.Conn.Close()
		}
	} else {
		s.logger.Info().Str("clientId", client.ID).Msg("Client authenticated")
		observability.RecordSecurityAudit(context.Background(), "gateway_auth", client.ID, "success", nil)
	}
}

// sendError sends an error response to a client
func (s *Server) sendError(client *Client, requestID string, code int, message string) {
	response := RPCResponse{
		ID:      requestID,
		JSONRPC: "2.0",
		Error: &RPCError{
			Code:    code,
			Message: message,
		},
	}

	if err := client.WriteJSON(response); err != nil {
		s.logger.Error().
			Err(err).
			Str("clientId", client.ID).
			Msg("Failed to send error response")
	}
}

// Broadcast broadcasts an event to all authenticated clients
func (s *Server) Broadcast(event string, data interface{}) {
	s.broadcaster.Broadcast(event, data)
}

// BroadcastTyped broadcasts a typed stream event to authenticated clients.
func (s *Server) BroadcastTyped(msg EventMessage) {
	s.broadcaster.BroadcastTyped(msg)
}

// RegisterMethod registers an RPC method handler
func (s *Server) RegisterMethod(name string, handler RequestHandler) error {
	return s.router.RegisterMethod(name, handler)
}

// UnregisterMethod unregisters an RPC method handler
func (s *Server) UnregisterMethod(name string) {
	s.router.UnregisterMethod(name)
}

// GetConnectedClients returns information about all connected clients
func (s *Server) GetConnectedClients() []ClientInfo {
	return s.clients.GetConnectedClients()
}
