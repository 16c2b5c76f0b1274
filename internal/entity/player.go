package entity

// Player - static configuration for one of the two participants.
// Exactly two players exist for the lifetime of a store; whose turn it
// is follows from move count parity, never from stored state.
type Player struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	IconClass  string `json:"iconClass"`
	ColorClass string `json:"colorClass"`
}

// DefaultPlayers - the player pair used when no override is configured.
func DefaultPlayers() [2]Player {
	return [2]Player{
		{ID: 1, Name: "Player 1", IconClass: "fa-x", ColorClass: "turquoise"},
		{ID: 2, Name: "Player 2", IconClass: "fa-o", ColorClass: "yellow"},
	}
}
