package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ospolt/tictactoe-scoreboard/internal/apperror"
	"github.com/ospolt/tictactoe-scoreboard/internal/repository"
	"github.com/ospolt/tictactoe-scoreboard/internal/service"
)

type Handlers interface {
	RegisterRoutes(router chi.Router)
}

type handlers struct {
	logger     *slog.Logger
	scoreboard service.ScoreboardService
}

func NewHandlers(logger *slog.Logger, scoreboard service.ScoreboardService) Handlers {
	return &handlers{
		logger:     logger.With("component", "rest"),
		scoreboard: scoreboard,
	}
}

func (that *handlers) RegisterRoutes(router chi.Router) {
	router.Get("/ping", that.Ping)

	router.Route("/api", func(r chi.Router) {
		r.Get("/scoreboard", that.GetScoreboard)
		r.Get("/game", that.GetGame)
		r.Get("/stats", that.GetStats)
		r.Get("/leaderboard", that.GetLeaderboard)

		r.Post("/game/moves", that.PostMove)
		r.Post("/game/reset", that.PostReset)
		r.Post("/round", that.PostNewRound)
	})
}

func (that *handlers) Ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

func (that *handlers) GetScoreboard(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "GetScoreboard")

	snapshot, err := that.scoreboard.Snapshot(r.Context())
	if err != nil {
		log.Error("failed to build snapshot", "error", err)
		that.respondStateError(w, err, "failed to read scoreboard")

		return
	}

	that.respondJSON(w, http.StatusOK, snapshot)
}

func (that *handlers) GetGame(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "GetGame")

	view, err := that.scoreboard.Game(r.Context())
	if err != nil {
		log.Error("failed to derive game view", "error", err)
		that.respondStateError(w, err, "failed to read game")

		return
	}

	that.respondJSON(w, http.StatusOK, view)
}

func (that *handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "GetStats")

	view, err := that.scoreboard.Stats(r.Context())
	if err != nil {
		log.Error("failed to derive stats view", "error", err)
		that.respondStateError(w, err, "failed to read stats")

		return
	}

	that.respondJSON(w, http.StatusOK, view)
}

func (that *handlers) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "GetLeaderboard")

	board, err := that.scoreboard.Leaderboard(r.Context())
	if err != nil {
		log.Error("failed to read leaderboard", "error", err)
		that.respondError(w, http.StatusInternalServerError, "failed to read leaderboard")

		return
	}

	that.respondJSON(w, http.StatusOK, board)
}

type moveRequest struct {
	Square int `json:"square"`
}

func (that *handlers) PostMove(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "PostMove")

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		that.respondError(w, http.StatusBadRequest, "invalid request body")

		return
	}

	view, err := that.scoreboard.Move(r.Context(), req.Square)

	switch {
	case err == nil:
		that.respondJSON(w, http.StatusOK, view)
	case errors.Is(err, apperror.ErrInvalidSquare):
		that.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperror.ErrSquareOccupied), errors.Is(err, apperror.ErrGameComplete):
		that.respondError(w, http.StatusConflict, err.Error())
	default:
		log.Error("failed to apply move", "square", req.Square, "error", err)
		that.respondStateError(w, err, "failed to apply move")
	}
}

func (that *handlers) PostReset(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "PostReset")

	view, err := that.scoreboard.Reset(r.Context())
	if err != nil {
		log.Error("failed to reset game", "error", err)
		that.respondStateError(w, err, "failed to reset game")

		return
	}

	that.respondJSON(w, http.StatusOK, view)
}

func (that *handlers) PostNewRound(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "PostNewRound")

	stats, err := that.scoreboard.NewRound(r.Context())
	if err != nil {
		log.Error("failed to start new round", "error", err)
		that.respondStateError(w, err, "failed to start new round")

		return
	}

	that.respondJSON(w, http.StatusOK, stats)
}

// respondStateError distinguishes a corrupt stored state, which deserves its
// own message, from everything else.
func (that *handlers) respondStateError(w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, repository.ErrCorruptState) {
		that.respondError(w, http.StatusInternalServerError, "stored state is corrupt")

		return
	}

	that.respondError(w, http.StatusInternalServerError, fallback)
}

func (that *handlers) respondError(w http.ResponseWriter, status int, message string) {
	that.respondJSON(w, status, map[string]string{"error": message})
}

func (that *handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		that.logger.Error("failed to encode response", "error", err)
	}
}
