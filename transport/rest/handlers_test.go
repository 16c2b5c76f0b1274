package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ospolt/tictactoe-scoreboard/internal/entity"
	"github.com/ospolt/tictactoe-scoreboard/internal/repository"
	"github.com/ospolt/tictactoe-scoreboard/internal/repository/storage"
	"github.com/ospolt/tictactoe-scoreboard/internal/service"
	"github.com/ospolt/tictactoe-scoreboard/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo := repository.NewStateRepository(storage.NewMemoryBackend(), "scoreboard:state")
	gameStore := store.New(logger, repo, entity.DefaultPlayers())

	db, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	require.NoError(t, db.Init(context.Background()))

	svc := service.NewScoreboardService(logger, gameStore, repository.NewArchiveRepository(db.Connection))

	router := chi.NewRouter()
	NewHandlers(logger, svc).RegisterRoutes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv
}

func getJSON(t *testing.T, srv *httptest.Server, path string, out interface{}) int {
	t.Helper()

	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)

	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp.StatusCode
}

func postJSON(t *testing.T, srv *httptest.Server, path string, payload, out interface{}) int {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)

	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp.StatusCode
}

func postMove(t *testing.T, srv *httptest.Server, square int, out interface{}) int {
	t.Helper()

	return postJSON(t, srv, "/api/game/moves", moveRequest{Square: square}, out)
}

func TestPing(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/ping")
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))
}

func TestGetScoreboard(t *testing.T) {
	srv := newTestServer(t)

	// When: reading a fresh scoreboard
	var snapshot service.Snapshot
	status := getJSON(t, srv, "/api/scoreboard", &snapshot)

	// Then: the board is empty and the first player is up
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, snapshot.Game.Moves)
	assert.Equal(t, 1, snapshot.Game.CurrentPlayer.ID)
	assert.Zero(t, snapshot.Stats.Ties)
}

func TestPostMove(t *testing.T) {
	t.Run("Move lands and returns the updated game", func(t *testing.T) {
		srv := newTestServer(t)

		var view store.GameView
		status := postMove(t, srv, 5, &view)

		require.Equal(t, http.StatusOK, status)
		require.Len(t, view.Moves, 1)
		assert.Equal(t, 5, view.Moves[0].SquareID)
		assert.Equal(t, 1, view.Moves[0].Player.ID)
		assert.Equal(t, 2, view.CurrentPlayer.ID)
	})

	t.Run("Occupied square conflicts", func(t *testing.T) {
		srv := newTestServer(t)
		postMove(t, srv, 5, nil)

		var errBody map[string]string
		status := postMove(t, srv, 5, &errBody)

		assert.Equal(t, http.StatusConflict, status)
		assert.Contains(t, errBody["error"], "occupied")
	})

	t.Run("Square outside the board is a bad request", func(t *testing.T) {
		srv := newTestServer(t)

		status := postMove(t, srv, 12, nil)

		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("Move after the game ended conflicts", func(t *testing.T) {
		srv := newTestServer(t)
		for _, squareID := range []int{1, 4, 2, 5, 3} {
			postMove(t, srv, squareID, nil)
		}

		status := postMove(t, srv, 9, nil)

		assert.Equal(t, http.StatusConflict, status)
	})

	t.Run("Garbage body is a bad request", func(t *testing.T) {
		srv := newTestServer(t)

		resp, err := http.Post(srv.URL+"/api/game/moves", "application/json", bytes.NewReader([]byte("{not json")))
		require.NoError(t, err)

		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRoundFlow(t *testing.T) {
	srv := newTestServer(t)

	// Given: a won game over the API
	for _, squareID := range []int{1, 4, 2, 5, 3} {
		postMove(t, srv, squareID, nil)
	}

	var view store.GameView
	status := getJSON(t, srv, "/api/game", &view)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, view.Status.IsComplete)
	require.NotNil(t, view.Status.Winner)
	assert.Equal(t, 1, view.Status.Winner.ID)

	// When: resetting the board
	status = postJSON(t, srv, "/api/game/reset", nil, &view)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, view.Moves)

	// Then: the win shows up in the round stats
	var stats store.StatsView
	status = getJSON(t, srv, "/api/stats", &stats)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, stats.Players[0].Wins)

	// When: rolling the round over
	status = postJSON(t, srv, "/api/round", nil, &stats)
	require.Equal(t, http.StatusOK, status)
	assert.Zero(t, stats.Players[0].Wins)

	// Then: the round lands on the leaderboard
	var board service.Leaderboard
	status = getJSON(t, srv, "/api/leaderboard", &board)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, board.Rounds)
	assert.Equal(t, 1, board.Games)
	require.Len(t, board.Players, 2)
	assert.Equal(t, 1, board.Players[0].Wins)
}
