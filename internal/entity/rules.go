package entity

const (
	// SquareCount - squares on the board, ids 1..SquareCount.
	SquareCount = 9
)

// WinningPatterns - the 8 fixed triples of square ids that constitute a win:
// three rows, three columns, two diagonals.
var WinningPatterns = [][3]int{
	{1, 2, 3},
	{4, 5, 6},
	{7, 8, 9},
	{1, 4, 7},
	{2, 5, 8},
	{3, 6, 9},
	{1, 5, 9},
	{3, 5, 7},
}

// CurrentPlayer - whose turn it is, derived purely from move count parity:
// an even number of moves means the first configured player moves next.
func CurrentPlayer(players [2]Player, moves []Move) Player {
	return players[len(moves)%2]
}

// DetermineWinner scans the move log for a completed winning pattern.
// Both players are checked in configuration order without short-circuiting;
// under alternating turns at most one of them can hold a full pattern, and
// should the log ever violate that, the later player in the pair is reported.
func DetermineWinner(players [2]Player, moves []Move) *Player {
	var winner *Player

	for i := range players {
		player := players[i]
		occupied := occupiedSquares(moves, player)

		for _, pattern := range WinningPatterns {
			if occupied[pattern[0]] && occupied[pattern[1]] && occupied[pattern[2]] {
				winner = &player
			}
		}
	}

	return winner
}

// DeriveStatus computes completion from the move log: a game is complete
// once a pattern is won or all squares are filled. A full board without a
// winner is a tie.
func DeriveStatus(players [2]Player, moves []Move) Status {
	winner := DetermineWinner(players, moves)

	return Status{
		IsComplete: winner != nil || len(moves) == SquareCount,
		Winner:     winner,
	}
}

// SquareTaken reports whether any move already occupies the given square.
func SquareTaken(moves []Move, squareID int) bool {
	for _, move := range moves {
		if move.SquareID == squareID {
			return true
		}
	}

	return false
}

// occupiedSquares - the set of square ids held by one player.
func occupiedSquares(moves []Move, player Player) map[int]bool {
	occupied := make(map[int]bool, len(moves))
	for _, move := range moves {
		if move.Player.ID == player.ID {
			occupied[move.SquareID] = true
		}
	}

	return occupied
}
