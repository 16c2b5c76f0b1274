package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ospolt/tictactoe-scoreboard/internal/entity"
	"github.com/ospolt/tictactoe-scoreboard/internal/repository"
	"github.com/ospolt/tictactoe-scoreboard/internal/store"
)

// Snapshot - everything a client needs to render the scoreboard at once.
type Snapshot struct {
	Players [2]entity.Player `json:"players"`
	Game    *store.GameView  `json:"game"`
	Stats   *store.StatsView `json:"stats"`
}

// LeaderboardEntry - one player's lifetime win count.
type LeaderboardEntry struct {
	Player entity.Player `json:"player"`
	Wins   int           `json:"wins"`
}

// Leaderboard - lifetime tallies preserved in the archive. They survive a
// wiped state key because the archive lives in SQLite, not under the key.
type Leaderboard struct {
	Rounds  int                `json:"rounds"`
	Games   int                `json:"games"`
	Ties    int                `json:"ties"`
	Players []LeaderboardEntry `json:"players"`
}

type ScoreboardService interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
	Game(ctx context.Context) (*store.GameView, error)
	Stats(ctx context.Context) (*store.StatsView, error)
	Leaderboard(ctx context.Context) (*Leaderboard, error)

	Move(ctx context.Context, squareID int) (*store.GameView, error)
	Reset(ctx context.Context) (*store.GameView, error)
	NewRound(ctx context.Context) (*store.StatsView, error)

	Watch() (<-chan struct{}, func())
}

type scoreboardService struct {
	logger  *slog.Logger
	store   *store.Store
	archive repository.ArchiveRepository
}

func NewScoreboardService(logger *slog.Logger, gameStore *store.Store, archive repository.ArchiveRepository) ScoreboardService {
	return &scoreboardService{
		logger:  logger.With("component", "scoreboard"),
		store:   gameStore,
		archive: archive,
	}
}

func (that *scoreboardService) Snapshot(ctx context.Context) (*Snapshot, error) {
	game, err := that.store.Game(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to derive game view: %w", err)
	}

	stats, err := that.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to derive stats view: %w", err)
	}

	return &Snapshot{
		Players: that.store.Players(),
		Game:    game,
		Stats:   stats,
	}, nil
}

func (that *scoreboardService) Game(ctx context.Context) (*store.GameView, error) {
	return that.store.Game(ctx)
}

func (that *scoreboardService) Stats(ctx context.Context) (*store.StatsView, error) {
	return that.store.Stats(ctx)
}

func (that *scoreboardService) Leaderboard(ctx context.Context) (*Leaderboard, error) {
	totals, err := that.archive.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive totals: %w", err)
	}

	board := &Leaderboard{
		Rounds: totals.Rounds,
		Games:  totals.Games,
		Ties:   totals.Ties,
	}

	for _, player := range that.store.Players() {
		board.Players = append(board.Players, LeaderboardEntry{
			Player: player,
			Wins:   totals.Wins[player.ID],
		})
	}

	return board, nil
}

func (that *scoreboardService) Move(ctx context.Context, squareID int) (*store.GameView, error) {
	return that.store.PlayerMove(ctx, squareID)
}

func (that *scoreboardService) Reset(ctx context.Context) (*store.GameView, error) {
	return that.store.Reset(ctx)
}

// NewRound rolls the round over and mirrors its games into the archive. The
// mirror is best effort: the state key stays authoritative, a failed archive
// write is logged and the rollover stands.
func (that *scoreboardService) NewRound(ctx context.Context) (*store.StatsView, error) {
	games, err := that.roundGamesBeforeRollover(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := that.store.NewRound(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to roll the round over: %w", err)
	}

	if err = that.archive.SaveRound(ctx, games); err != nil {
		that.logger.Error("failed to archive the round", "error", err)
	}

	return stats, nil
}

// roundGamesBeforeRollover collects what the rollover is about to drain: the
// round's finished games plus a finished game still sitting on the board,
// which the rollover's reset would archive.
func (that *scoreboardService) roundGamesBeforeRollover(ctx context.Context) ([]entity.GameRecord, error) {
	games, err := that.store.RoundGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read round games: %w", err)
	}

	game, err := that.store.Game(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to derive game view: %w", err)
	}

	if game.Status.IsComplete {
		games = append(games, entity.GameRecord{
			Moves:  game.Moves,
			Status: game.Status,
		})
	}

	return games, nil
}

func (that *scoreboardService) Watch() (<-chan struct{}, func()) {
	return that.store.Watch()
}
