package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ospolt/tictactoe-scoreboard/internal/config"
	"github.com/ospolt/tictactoe-scoreboard/internal/entity"
	"github.com/ospolt/tictactoe-scoreboard/internal/repository"
	"github.com/ospolt/tictactoe-scoreboard/internal/repository/storage"
	"github.com/ospolt/tictactoe-scoreboard/internal/service"
	"github.com/ospolt/tictactoe-scoreboard/internal/store"
	"github.com/ospolt/tictactoe-scoreboard/transport/rest"
	"github.com/ospolt/tictactoe-scoreboard/transport/websocket"
)

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	backend, err := newBackend(ctx, log, conf)
	if err != nil {
		return fmt.Errorf("could not create state backend: %w", err)
	}

	defer func() {
		if err = backend.Close(); err != nil {
			log.Error("could not close state backend", "error", err)
		}
	}()

	db, err := storage.NewSQLiteStorage(conf.SQLiteStoragePath)
	if err != nil {
		return fmt.Errorf("could not open archive storage: %w", err)
	}

	defer func() {
		if err = db.Close(); err != nil {
			log.Error("could not close archive storage", "error", err)
		}
	}()

	if err = db.Init(ctx); err != nil {
		return fmt.Errorf("could not init archive storage: %w", err)
	}

	stateRepo := repository.NewStateRepository(backend, conf.StateKey)
	archiveRepo := repository.NewArchiveRepository(db.Connection)

	gameStore := store.New(logger, stateRepo, newPlayers(conf))
	go func() {
		if runErr := gameStore.Run(ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
			log.Error("store watcher stopped", "error", runErr)
		}
	}()

	scoreboard := service.NewScoreboardService(logger, gameStore, archiveRepo)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		httpServer := rest.NewServer(logger, conf.HTTPPort, rest.NewHandlers(logger, scoreboard))
		if httpErr := httpServer.Start(ctx); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run WebSocket server
	wsErrCh := make(chan error, 1)
	go func() {
		wsServer := websocket.New(logger, scoreboard)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

// newBackend picks the state backend. Redis keeps every instance on the same
// shared state, the in-memory backend is for running a single instance.
func newBackend(ctx context.Context, log *slog.Logger, conf *config.Config) (storage.Backend, error) {
	redisAddr := conf.Redis.GetRedisAddr()
	if redisAddr == "" {
		log.Info("no redis host configured, keeping state in memory")
		return storage.NewMemoryBackend(), nil
	}

	backend, err := storage.NewRedisBackend(ctx, redisAddr)
	if err != nil {
		return nil, fmt.Errorf("could not connect to redis: %w", err)
	}

	log.Info("using redis state backend", "addr", redisAddr)

	return backend, nil
}

func newPlayers(conf *config.Config) [2]entity.Player {
	players := entity.DefaultPlayers()

	applyPlayerOverride(&players[0], conf.Players.First)
	applyPlayerOverride(&players[1], conf.Players.Second)

	return players
}

func applyPlayerOverride(player *entity.Player, override config.PlayerOverride) {
	if override.Name != "" {
		player.Name = override.Name
	}

	if override.IconClass != "" {
		player.IconClass = override.IconClass
	}

	if override.ColorClass != "" {
		player.ColorClass = override.ColorClass
	}
}
