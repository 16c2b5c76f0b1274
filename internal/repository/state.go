package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ospolt/tictactoe-scoreboard/internal/entity"
	"github.com/ospolt/tictactoe-scoreboard/internal/repository/storage"
)

var ErrCorruptState = errors.New("persisted state is corrupt")

// StateRepository reads and writes the whole scoreboard state as one JSON
// payload under a single key.
type StateRepository interface {
	Load(ctx context.Context) (*entity.State, error)
	Save(ctx context.Context, state *entity.State) error

	// Watch reports writes to the state key made by other instances.
	Watch(ctx context.Context) (<-chan struct{}, func())
}

type stateRepository struct {
	backend storage.Backend
	key     string
}

func NewStateRepository(backend storage.Backend, key string) StateRepository {
	return &stateRepository{
		backend: backend,
		key:     key,
	}
}

// Load returns the stored state. An absent key yields a fresh empty state, a
// payload that cannot be decoded yields ErrCorruptState.
func (that *stateRepository) Load(ctx context.Context) (*entity.State, error) {
	payload, err := that.backend.Get(ctx, that.key)

	if errors.Is(err, storage.ErrKeyNotFound) {
		return entity.NewState(), nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	var state entity.State
	if err = json.Unmarshal([]byte(payload), &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}

	return &state, nil
}

func (that *stateRepository) Watch(ctx context.Context) (<-chan struct{}, func()) {
	return that.backend.Watch(ctx, that.key)
}

func (that *stateRepository) Save(ctx context.Context, state *entity.State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("could not marshal state: %w", err)
	}

	if err = that.backend.Set(ctx, that.key, string(payload)); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}

	return nil
}
