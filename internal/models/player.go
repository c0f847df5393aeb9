package models

import "github.com/google/uuid"

// Player is one participant in a room. The id is opaque and scoped to that
// room. Players are appended on join and never removed mid-game; losing the
// socket only flips Connected.
type Player struct {
	ID          uuid.UUID `json:"id"`
	Nickname    string    `json:"nickname"`
	IsHost      bool      `json:"is_host"`
	DrinkScore  int       `json:"drink_score"`
	ActionScore int       `json:"action_score"`
	Connected   bool      `json:"connected"`
}
