package apperror

import "errors"

var (
	// ErrSquareOccupied is returned when a move targets a square that already holds a mark.
	ErrSquareOccupied = errors.New("square is already occupied")

	// ErrGameComplete is returned when a move arrives after the game is decided.
	ErrGameComplete = errors.New("game is already complete")

	// ErrInvalidSquare is returned when a move names a square outside the board.
	ErrInvalidSquare = errors.New("invalid square id")

	// ErrNilMutation is returned when an update is invoked without a mutation func.
	ErrNilMutation = errors.New("mutation func must not be nil")
)
