package models

// Game is a catalog entry describing one playable deck. The catalog is
// owned by the database; rooms reference games by id only.
type Game struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CardsCount  int    `json:"cards_count"`
}
