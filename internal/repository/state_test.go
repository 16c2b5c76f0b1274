package repository

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ospolt/tictactoe-scoreboard/internal/entity"
	"github.com/ospolt/tictactoe-scoreboard/internal/repository/storage"
)

const testStateKey = "scoreboard:state"

// gameOf replays the squares as an alternating move log and derives the
// resulting status.
func gameOf(players [2]entity.Player, squares ...int) entity.GameRecord {
	moves := make([]entity.Move, 0, len(squares))
	for i, squareID := range squares {
		moves = append(moves, entity.Move{SquareID: squareID, Player: players[i%2]})
	}

	return entity.GameRecord{
		Moves:  moves,
		Status: entity.DeriveStatus(players, moves),
	}
}

func TestStateRepository_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("Absent key yields a fresh state", func(t *testing.T) {
		// Given: a backend nobody wrote to
		backend := storage.NewMemoryBackend()
		repo := NewStateRepository(backend, testStateKey)

		// When: loading the state
		state, err := repo.Load(ctx)

		// Then: the state is the empty default
		require.NoError(t, err)
		assert.Empty(t, state.CurrentGameMoves)
		assert.Empty(t, state.History.CurrentRoundGames)
		assert.Empty(t, state.History.AllGames)
	})

	t.Run("Undecodable payload is reported corrupt", func(t *testing.T) {
		// Given: garbage under the state key
		backend := storage.NewMemoryBackend()
		require.NoError(t, backend.Set(ctx, testStateKey, "{not json"))

		repo := NewStateRepository(backend, testStateKey)

		// When: loading the state
		_, err := repo.Load(ctx)

		// Then: the corruption surfaces instead of a silent reset
		require.ErrorIs(t, err, ErrCorruptState)
	})
}

func TestStateRepository_SaveLoad(t *testing.T) {
	ctx := context.Background()
	players := entity.DefaultPlayers()

	// Given: a state with a game in flight, a finished game in the running
	// round and an older game already rolled over into the lifetime list
	saved := entity.NewState()
	saved.CurrentGameMoves = []entity.Move{
		{SquareID: 1, Player: players[0]},
		{SquareID: 5, Player: players[1]},
	}
	saved.History.CurrentRoundGames = []entity.GameRecord{gameOf(players, 1, 4, 2, 5, 3)}
	saved.History.AllGames = []entity.GameRecord{gameOf(players, 2, 1, 3, 5, 4, 9)}

	backend := storage.NewMemoryBackend()
	repo := NewStateRepository(backend, testStateKey)

	// When: saving and loading it back
	require.NoError(t, repo.Save(ctx, saved))

	loaded, err := repo.Load(ctx)

	// Then: the round trip preserves the state exactly
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestStateRepository_Payload(t *testing.T) {
	players := entity.DefaultPlayers()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	t.Run("Fresh state serializes empty collections as arrays", func(t *testing.T) {
		// Given: a fresh state
		state := entity.NewState()

		// When: encoding it the way Save does
		payload, err := json.MarshalIndent(state, "", "  ")
		require.NoError(t, err)

		// Then: the payload matches the recorded shape
		g.Assert(t, "state_empty", payload)
	})

	t.Run("Mid round state keeps the recorded shape", func(t *testing.T) {
		// Given: a game in flight, one win this round, one from a past round
		state := entity.NewState()
		state.CurrentGameMoves = []entity.Move{
			{SquareID: 1, Player: players[0]},
			{SquareID: 5, Player: players[1]},
		}
		state.History.CurrentRoundGames = []entity.GameRecord{gameOf(players, 1, 4, 2, 5, 3)}
		state.History.AllGames = []entity.GameRecord{gameOf(players, 2, 1, 3, 5, 4, 9)}

		// When: encoding it the way Save does
		payload, err := json.MarshalIndent(state, "", "  ")
		require.NoError(t, err)

		// Then: the payload matches the recorded shape
		g.Assert(t, "state_round", payload)
	})
}
