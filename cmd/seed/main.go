// cmd/seed/main.go creates the catalog and results tables and loads a
// small sample game so a fresh install is immediately playable.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	_ "github.com/joho/godotenv/autoload"

	"github.com/dosip/dosip/internal/database"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS games (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS cards (
		id SERIAL PRIMARY KEY,
		game_id INT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
		position INT NOT NULL,
		image_path TEXT NOT NULL DEFAULT '',
		card_type TEXT NOT NULL,
		drink_points INT NOT NULL DEFAULT 0,
		action_points INT NOT NULL DEFAULT 0,
		UNIQUE (game_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS room_results (
		room_code TEXT PRIMARY KEY,
		game_id INT NOT NULL,
		player_count INT NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS player_results (
		room_code TEXT NOT NULL REFERENCES room_results(room_code) ON DELETE CASCADE,
		player_id UUID NOT NULL,
		nickname TEXT NOT NULL,
		drink_score INT NOT NULL,
		action_score INT NOT NULL,
		drink_winner BOOLEAN NOT NULL,
		action_winner BOOLEAN NOT NULL,
		PRIMARY KEY (room_code, player_id)
	)`,
	`CREATE TABLE IF NOT EXISTS room_events (
		id BIGSERIAL PRIMARY KEY,
		room_code TEXT NOT NULL,
		event_type TEXT NOT NULL,
		actor_id TEXT,
		payload JSONB,
		occurred_at TIMESTAMPTZ NOT NULL
	)`,
}

type seedCard struct {
	cardType     string
	drinkPoints  int
	actionPoints int
}

func main() {
	if err := database.ConnectDB(); err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	for _, stmt := range schema {
		if _, err := database.DB.Exec(ctx, stmt); err != nil {
			log.Fatalf("schema statement failed: %v", err)
		}
	}

	err := pgx.BeginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var existing int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM games`).Scan(&existing); err != nil {
			return err
		}
		if existing > 0 {
			log.Printf("catalog already has %d games, skipping sample data", existing)
			return nil
		}

		var gameID int
		err := tx.QueryRow(ctx,
			`INSERT INTO games (name, description) VALUES ($1, $2) RETURNING id`,
			"Do or Sip Classic", "The original party deck.",
		).Scan(&gameID)
		if err != nil {
			return err
		}

		cards := []seedCard{
			{"do_or_drink", 1, 1},
			{"truth_or_drink", 1, 1},
			{"do_or_drink", 2, 1},
			{"truth_or_drink", 1, 2},
			{"do_or_drink", 1, 1},
			{"truth_or_drink", 2, 2},
			{"do_or_drink", 1, 3},
			{"truth_or_drink", 1, 1},
		}
		for i, c := range cards {
			_, err := tx.Exec(ctx,
				`INSERT INTO cards (game_id, position, image_path, card_type, drink_points, action_points)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				gameID, i, fmt.Sprintf("cards/classic/%02d.jpg", i+1), c.cardType, c.drinkPoints, c.actionPoints,
			)
			if err != nil {
				return err
			}
		}
		log.Printf("seeded game %d with %d cards", gameID, len(cards))
		return nil
	})
	if err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}
