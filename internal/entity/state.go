package entity

// Move - one occupied square of the current game. Immutable once appended:
// moves are only ever cleared wholesale on reset or archived into a GameRecord.
type Move struct {
	SquareID int    `json:"squareId"`
	Player   Player `json:"player"`
}

// Status - derived outcome of a game. A tie is complete with a nil winner.
// Never persisted for the game in progress, only inside archived records.
type Status struct {
	IsComplete bool    `json:"isComplete"`
	Winner     *Player `json:"winner"`
}

// GameRecord - a completed game archived into the round history.
type GameRecord struct {
	Moves  []Move `json:"moves"`
	Status Status `json:"status"`
}

// History - completed games of the running round plus the lifetime list.
// A new round drains CurrentRoundGames onto the end of AllGames.
type History struct {
	CurrentRoundGames []GameRecord `json:"currentRoundGames"`
	AllGames          []GameRecord `json:"allGames"`
}

// State - the single persisted root object. Every mutation replaces it
// wholesale: read, deep-copy, amend, write back under one key.
type State struct {
	CurrentGameMoves []Move  `json:"currentGameMoves"`
	History          History `json:"history"`
}

// NewState returns the empty default used when the backend holds nothing.
func NewState() *State {
	return &State{
		CurrentGameMoves: []Move{},
		History: History{
			CurrentRoundGames: []GameRecord{},
			AllGames:          []GameRecord{},
		},
	}
}

// Clone returns a deep copy; amending the copy never leaks into the original.
func (that *State) Clone() *State {
	clone := &State{
		CurrentGameMoves: cloneMoves(that.CurrentGameMoves),
		History: History{
			CurrentRoundGames: cloneRecords(that.History.CurrentRoundGames),
			AllGames:          cloneRecords(that.History.AllGames),
		},
	}

	return clone
}

func cloneMoves(moves []Move) []Move {
	cloned := make([]Move, len(moves))
	copy(cloned, moves)

	return cloned
}

func cloneRecords(records []GameRecord) []GameRecord {
	cloned := make([]GameRecord, len(records))
	for i, record := range records {
		cloned[i] = GameRecord{
			Moves:  cloneMoves(record.Moves),
			Status: record.Status,
		}
		if record.Status.Winner != nil {
			winner := *record.Status.Winner
			cloned[i].Status.Winner = &winner
		}
	}

	return cloned
}
