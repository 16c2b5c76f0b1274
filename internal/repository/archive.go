package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ospolt/tictactoe-scoreboard/internal/entity"
)

// ArchiveTotals aggregates everything ever archived, across all rounds.
type ArchiveTotals struct {
	Rounds int
	Games  int
	Ties   int
	Wins   map[int]int
}

// ArchiveRepository mirrors finished rounds into SQLite, so lifetime totals
// survive a wiped state key.
type ArchiveRepository interface {
	SaveRound(ctx context.Context, games []entity.GameRecord) error
	Totals(ctx context.Context) (*ArchiveTotals, error)
}

type archiveRepository struct {
	conn *sql.DB
}

func NewArchiveRepository(conn *sql.DB) ArchiveRepository {
	return &archiveRepository{
		conn: conn,
	}
}

// SaveRound appends the finished round's games under the next round number.
func (that *archiveRepository) SaveRound(ctx context.Context, games []entity.GameRecord) error {
	if len(games) == 0 {
		return nil
	}

	tx, err := that.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("can't begin transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	var round int
	if err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(round), 0) + 1 FROM archived_games`).Scan(&round); err != nil {
		return fmt.Errorf("can't pick next round number: %w", err)
	}

	query := `INSERT INTO archived_games (round, winner_id, move_count, moves) VALUES (?, ?, ?, ?)`

	for _, game := range games {
		movesJSON, err := json.Marshal(game.Moves)
		if err != nil {
			return fmt.Errorf("could not marshal moves: %w", err)
		}

		var winnerID sql.NullInt64
		if game.Status.Winner != nil {
			winnerID = sql.NullInt64{Int64: int64(game.Status.Winner.ID), Valid: true}
		}

		if _, err = tx.ExecContext(ctx, query, round, winnerID, len(game.Moves), string(movesJSON)); err != nil {
			return fmt.Errorf("can't save archived game: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("can't commit round: %w", err)
	}

	return nil
}

func (that *archiveRepository) Totals(ctx context.Context) (*ArchiveTotals, error) {
	totals := &ArchiveTotals{Wins: make(map[int]int)}

	if err := that.conn.QueryRowContext(ctx, `SELECT COUNT(DISTINCT round) FROM archived_games`).Scan(&totals.Rounds); err != nil {
		return nil, fmt.Errorf("can't count rounds: %w", err)
	}

	rows, err := that.conn.QueryContext(ctx, `SELECT winner_id, COUNT(*) FROM archived_games GROUP BY winner_id`)
	if err != nil {
		return nil, fmt.Errorf("can't read totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			winnerID sql.NullInt64
			count    int
		)

		if err = rows.Scan(&winnerID, &count); err != nil {
			return nil, fmt.Errorf("can't scan totals row: %w", err)
		}

		totals.Games += count

		if winnerID.Valid {
			totals.Wins[int(winnerID.Int64)] += count
		} else {
			totals.Ties += count
		}
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("can't read totals: %w", err)
	}

	return totals, nil
}
