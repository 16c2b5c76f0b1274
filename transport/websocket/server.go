package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ospolt/tictactoe-scoreboard/internal/apperror"
	"github.com/ospolt/tictactoe-scoreboard/internal/service"
)

const shutdownTimeout = 5 * time.Second

type handlerFunc func(ctx context.Context, conn *client, message *Message) error

// Server pushes scoreboard updates to every connected client and accepts
// game gestures over the same connection.
type Server struct {
	logger     *slog.Logger
	scoreboard service.ScoreboardService
	upgrader   websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}

	handlers map[string]handlerFunc
}

// New - creates a new WebSocket server over the given scoreboard service.
func New(logger *slog.Logger, scoreboard service.ScoreboardService) *Server {
	server := &Server{
		logger:     logger.With("component", "websocket"),
		scoreboard: scoreboard,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients:  make(map[*client]struct{}),
		handlers: make(map[string]handlerFunc),
	}

	server.handlers[ActionStateGet] = server.handleStateGet
	server.handlers[ActionGameMove] = server.handleGameMove
	server.handlers[ActionGameReset] = server.handleGameReset
	server.handlers[ActionRoundNew] = server.handleRoundNew

	return server
}

// Start - starts the update broadcaster and serves WebSocket connections
// on /ws until the context is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	go that.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/ws", that)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	that.logger.Info("starting WebSocket server", "port", port)

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start WebSocket server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown WebSocket server: %w", err)
		}
	}

	return nil
}

// Run - forwards every scoreboard change to all connected clients as a
// state:update message. Blocks until the context is canceled.
func (that *Server) Run(ctx context.Context) {
	log := that.logger.With("method", "Run")

	events, cancel := that.scoreboard.Watch()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
		}

		data, err := that.stateMessage(ctx)
		if err != nil {
			log.Error("failed to build state update", "error", err)
			continue
		}

		that.mu.RLock()
		for conn := range that.clients {
			select {
			case conn.send <- data:
			default:
			}
		}
		that.mu.RUnlock()
	}
}

// ServeHTTP - upgrades the request to a WebSocket connection and serves it
// until the client goes away.
func (that *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "ServeHTTP")

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	viewer := newClient(conn)

	that.mu.Lock()
	that.clients[viewer] = struct{}{}
	that.mu.Unlock()

	log.Info("client connected", "client", viewer.id, "remote", conn.RemoteAddr().String())

	go viewer.writePump()

	// every new client gets the current state right away
	if err = that.handleStateGet(r.Context(), viewer, nil); err != nil {
		log.Error("failed to send initial state", "error", err)
	}

	that.readPump(r.Context(), viewer)
}

// readPump routes incoming messages to their action handlers. It exits when
// the connection drops and unregisters the client on the way out.
func (that *Server) readPump(ctx context.Context, conn *client) {
	log := that.logger.With("method", "readPump")

	defer that.dropClient(conn)

	conn.conn.SetReadLimit(maxMessageSize)
	_ = conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error("connection dropped", "error", err)
			}

			return
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			that.sendError(conn, "invalid message format")
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			that.sendError(conn, fmt.Sprintf("unknown action %q", message.Action))
			continue
		}

		if err = handler(ctx, conn, &message); err != nil {
			log.Error("failed to handle message", "action", message.Action, "error", err)
		}
	}
}

func (that *Server) handleStateGet(ctx context.Context, conn *client, _ *Message) error {
	data, err := that.stateMessage(ctx)
	if err != nil {
		return err
	}

	that.deliver(conn, data)

	return nil
}

func (that *Server) handleGameMove(ctx context.Context, conn *client, message *Message) error {
	var payload MovePayload
	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		that.sendError(conn, "invalid move payload")
		return nil
	}

	if _, err := that.scoreboard.Move(ctx, payload.Square); err != nil {
		if isRejectedMove(err) {
			that.sendError(conn, err.Error())
			return nil
		}

		return fmt.Errorf("failed to apply move: %w", err)
	}

	return nil
}

func (that *Server) handleGameReset(ctx context.Context, _ *client, _ *Message) error {
	if _, err := that.scoreboard.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset the game: %w", err)
	}

	return nil
}

func (that *Server) handleRoundNew(ctx context.Context, _ *client, _ *Message) error {
	if _, err := that.scoreboard.NewRound(ctx); err != nil {
		return fmt.Errorf("failed to start a new round: %w", err)
	}

	return nil
}

// stateMessage builds a state:update message with a full scoreboard snapshot.
func (that *Server) stateMessage(ctx context.Context) ([]byte, error) {
	snapshot, err := that.scoreboard.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot: %w", err)
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	data, err := json.Marshal(Message{Action: ActionStateUpdate, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	return data, nil
}

func (that *Server) sendError(conn *client, text string) {
	payload, err := json.Marshal(ErrorPayload{Error: text})
	if err != nil {
		return
	}

	data, err := json.Marshal(Message{Action: ActionError, Payload: payload})
	if err != nil {
		return
	}

	that.deliver(conn, data)
}

// deliver queues data for one client, dropping it if the client is gone or
// its queue is full. Holding the read lock keeps the send channel open for
// the duration of the send.
func (that *Server) deliver(conn *client, data []byte) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	if _, ok := that.clients[conn]; !ok {
		return
	}

	select {
	case conn.send <- data:
	default:
	}
}

func (that *Server) dropClient(conn *client) {
	that.mu.Lock()
	if _, ok := that.clients[conn]; ok {
		delete(that.clients, conn)
		close(conn.send)
	}
	that.mu.Unlock()

	_ = conn.conn.Close()

	that.logger.Info("client disconnected", "client", conn.id)
}

func isRejectedMove(err error) bool {
	return errors.Is(err, apperror.ErrInvalidSquare) ||
		errors.Is(err, apperror.ErrSquareOccupied) ||
		errors.Is(err, apperror.ErrGameComplete)
}
