// internal/database/catalog.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dosip/dosip/internal/models"
	"github.com/dosip/dosip/internal/room"
)

// PGCatalog serves the game and card catalog from postgres. It
// satisfies the handlers.Catalog interface.
type PGCatalog struct{}

// ListGames returns every playable game with its card count.
func (PGCatalog) ListGames(ctx context.Context) ([]models.Game, error) {
	q := `
		SELECT g.id, g.name, COALESCE(g.description, ''), COUNT(c.id)
		FROM games g
		LEFT JOIN cards c ON c.game_id = g.id
		GROUP BY g.id, g.name, g.description
		ORDER BY g.id
	`
	rows, err := DB.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	var games []models.Game
	for rows.Next() {
		var g models.Game
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CardsCount); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// GetGame fetches a single game. A missing id maps to room.ErrInvalidGame
// so handlers can translate it uniformly.
func (PGCatalog) GetGame(ctx context.Context, id int) (*models.Game, error) {
	q := `
		SELECT g.id, g.name, COALESCE(g.description, ''),
		       (SELECT COUNT(*) FROM cards c WHERE c.game_id = g.id)
		FROM games g
		WHERE g.id = $1
	`
	var g models.Game
	err := DB.QueryRow(ctx, q, id).Scan(&g.ID, &g.Name, &g.Description, &g.CardsCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, room.ErrInvalidGame
	}
	if err != nil {
		return nil, fmt.Errorf("query game %d: %w", id, err)
	}
	return &g, nil
}

// GetDeck returns a game's cards in their authored order.
func (PGCatalog) GetDeck(ctx context.Context, gameID int) ([]*models.Card, error) {
	q := `
		SELECT id, position, image_path, card_type,
		       COALESCE(drink_points, 0), COALESCE(action_points, 0)
		FROM cards
		WHERE game_id = $1
		ORDER BY position
	`
	rows, err := DB.Query(ctx, q, gameID)
	if err != nil {
		return nil, fmt.Errorf("query deck for game %d: %w", gameID, err)
	}
	defer rows.Close()

	var deck []*models.Card
	for rows.Next() {
		var c models.Card
		var typ string
		if err := rows.Scan(&c.ID, &c.Position, &c.ImagePath, &typ, &c.DrinkPoints, &c.ActionPoints); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		c.Type = models.CardType(typ)
		deck = append(deck, &c)
	}
	return deck, rows.Err()
}
