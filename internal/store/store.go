package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ospolt/tictactoe-scoreboard/internal/apperror"
	"github.com/ospolt/tictactoe-scoreboard/internal/entity"
	"github.com/ospolt/tictactoe-scoreboard/internal/repository"
)

// GameView - the current game derived from the persisted move log.
// Recomputed from state on every call, nothing in here is stored.
type GameView struct {
	Moves         []entity.Move `json:"moves"`
	CurrentPlayer entity.Player `json:"currentPlayer"`
	Status        entity.Status `json:"status"`
}

// PlayerStats - one player with their win count for the running round.
type PlayerStats struct {
	Player entity.Player `json:"player"`
	Wins   int           `json:"wins"`
}

// StatsView - win and tie tallies derived from the round's finished games.
type StatsView struct {
	Players [2]PlayerStats `json:"players"`
	Ties    int            `json:"ties"`
}

// Store owns the persisted scoreboard state. Every mutation runs the same
// cycle: load, deep-copy, amend the copy, save it back under the single key,
// then signal watchers. In-process mutations are serialized by a mutex;
// across processes the last writer wins.
type Store struct {
	logger  *slog.Logger
	players [2]entity.Player
	repo    repository.StateRepository

	mu       sync.Mutex
	watchers *notifier
}

func New(logger *slog.Logger, repo repository.StateRepository, players [2]entity.Player) *Store {
	return &Store{
		logger:   logger.With("component", "store"),
		players:  players,
		repo:     repo,
		watchers: newNotifier(),
	}
}

// Players returns the configured player pair in turn order.
func (that *Store) Players() [2]entity.Player {
	return that.players
}

// Watch registers for change signals. One signal arrives after every local
// mutation and whenever another instance writes the shared state. A watcher
// is expected to re-read the views, the signal carries no payload.
func (that *Store) Watch() (<-chan struct{}, func()) {
	return that.watchers.subscribe()
}

// Run forwards write signals from other instances to local watchers until ctx
// ends. Without it the store still works, it just never hears about writes it
// did not make itself.
func (that *Store) Run(ctx context.Context) error {
	events, cancel := that.repo.Watch(ctx)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-events:
			if !ok {
				return nil
			}

			that.logger.Debug("state changed in another instance")
			that.watchers.notify()
		}
	}
}

// Game derives the current game from the persisted state.
func (that *Store) Game(ctx context.Context) (*GameView, error) {
	state, err := that.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	return that.gameView(state), nil
}

// Stats derives the running round's tallies from the persisted state.
func (that *Store) Stats(ctx context.Context) (*StatsView, error) {
	state, err := that.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	return that.statsView(state), nil
}

// RoundGames returns the finished games of the running round in order.
func (that *Store) RoundGames(ctx context.Context) ([]entity.GameRecord, error) {
	state, err := that.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	return state.History.CurrentRoundGames, nil
}

// PlayerMove appends the next move to the current game. The mover is not an
// argument: whoever's turn it is per the stored log gets attributed, computed
// before the move is appended. Moves on occupied squares or finished games
// are rejected.
func (that *Store) PlayerMove(ctx context.Context, squareID int) (*GameView, error) {
	if squareID < 1 || squareID > entity.SquareCount {
		return nil, fmt.Errorf("%w: %d", apperror.ErrInvalidSquare, squareID)
	}

	state, err := that.update(ctx, func(state *entity.State) error {
		if entity.DeriveStatus(that.players, state.CurrentGameMoves).IsComplete {
			return apperror.ErrGameComplete
		}

		if entity.SquareTaken(state.CurrentGameMoves, squareID) {
			return fmt.Errorf("%w: %d", apperror.ErrSquareOccupied, squareID)
		}

		state.CurrentGameMoves = append(state.CurrentGameMoves, entity.Move{
			SquareID: squareID,
			Player:   entity.CurrentPlayer(that.players, state.CurrentGameMoves),
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	that.logger.Debug("player moved", "square", squareID)

	return that.gameView(state), nil
}

// Reset clears the board. A finished game is archived into the round history
// first, an unfinished one is discarded without counting.
func (that *Store) Reset(ctx context.Context) (*GameView, error) {
	state, err := that.update(ctx, func(state *entity.State) error {
		that.archiveFinishedGame(state)
		state.CurrentGameMoves = []entity.Move{}

		return nil
	})
	if err != nil {
		return nil, err
	}

	that.logger.Debug("game reset")

	return that.gameView(state), nil
}

// NewRound resets the board like Reset, then moves the round's games onto the
// end of the lifetime list and starts an empty round. The rollover is a
// second discrete write, so watchers see two signals.
func (that *Store) NewRound(ctx context.Context) (*StatsView, error) {
	if _, err := that.Reset(ctx); err != nil {
		return nil, fmt.Errorf("failed to reset before rollover: %w", err)
	}

	state, err := that.update(ctx, func(state *entity.State) error {
		state.History.AllGames = append(state.History.AllGames, state.History.CurrentRoundGames...)
		state.History.CurrentRoundGames = []entity.GameRecord{}

		return nil
	})
	if err != nil {
		return nil, err
	}

	that.logger.Debug("round rolled over")

	return that.statsView(state), nil
}

// update is the mutation primitive shared by every write path. It loads the
// state, hands a deep copy to mutate and persists the amended copy, then
// signals watchers. The mutex serializes the cycle within this process only.
func (that *Store) update(ctx context.Context, mutate func(*entity.State) error) (*entity.State, error) {
	if mutate == nil {
		return nil, apperror.ErrNilMutation
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	state, err := that.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	amended := state.Clone()
	if err = mutate(amended); err != nil {
		return nil, err
	}

	if err = that.repo.Save(ctx, amended); err != nil {
		return nil, fmt.Errorf("failed to save state: %w", err)
	}

	that.watchers.notify()

	return amended, nil
}

// archiveFinishedGame moves a complete current game into the round history.
// An in-progress game is left alone.
func (that *Store) archiveFinishedGame(state *entity.State) {
	status := entity.DeriveStatus(that.players, state.CurrentGameMoves)
	if !status.IsComplete {
		return
	}

	state.History.CurrentRoundGames = append(state.History.CurrentRoundGames, entity.GameRecord{
		Moves:  state.CurrentGameMoves,
		Status: status,
	})
}

func (that *Store) gameView(state *entity.State) *GameView {
	return &GameView{
		Moves:         state.CurrentGameMoves,
		CurrentPlayer: entity.CurrentPlayer(that.players, state.CurrentGameMoves),
		Status:        entity.DeriveStatus(that.players, state.CurrentGameMoves),
	}
}

func (that *Store) statsView(state *entity.State) *StatsView {
	view := &StatsView{}
	for i, player := range that.players {
		view.Players[i] = PlayerStats{Player: player}
	}

	for _, game := range state.History.CurrentRoundGames {
		winner := game.Status.Winner
		if winner == nil {
			view.Ties++
			continue
		}

		for i := range view.Players {
			if view.Players[i].Player.ID == winner.ID {
				view.Players[i].Wins++
			}
		}
	}

	return view
}
