// internal/database/results.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dosip/dosip/internal/room"
)

// PGResults persists finished rooms. It satisfies the
// handlers.ResultRecorder interface.
type PGResults struct{}

// RecordRoomResults writes the room row and one result row per player
// in a single transaction. Re-recording the same room upserts.
func (PGResults) RecordRoomResults(ctx context.Context, snap room.Snapshot, lb room.Leaderboard) error {
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertRoom := `
			INSERT INTO room_results (room_code, game_id, player_count, finished_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (room_code) DO UPDATE SET finished_at = NOW()
		`
		if _, e := tx.Exec(ctx, upsertRoom, snap.Code, snap.GameID, len(snap.Players)); e != nil {
			return e
		}

		actionByID := make(map[string]room.LeaderboardEntry, len(lb.Action))
		for _, entry := range lb.Action {
			actionByID[entry.ID.String()] = entry
		}

		q := `
			INSERT INTO player_results (room_code, player_id, nickname, drink_score, action_score, drink_winner, action_winner)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (room_code, player_id)
			DO UPDATE SET drink_score=$4, action_score=$5, drink_winner=$6, action_winner=$7
		`
		for _, entry := range lb.Drink {
			action := actionByID[entry.ID.String()]
			if _, e := tx.Exec(ctx, q,
				snap.Code, entry.ID, entry.Nickname,
				entry.Score, action.Score,
				entry.IsWinner, action.IsWinner,
			); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx record room results: %w", err)
	}
	return nil
}
