package room

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dosip/dosip/internal/models"
)

// Status is the room lifecycle state. lobby -> in_progress -> finished,
// and finished is terminal.
type Status string

const (
	StatusLobby      Status = "lobby"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// Room holds the authoritative state for one game session. All mutation
// happens under Mu, held for the duration of a single transition and
// released before any notification fan-out. Methods suffixed Unsafe assume
// the caller holds Mu.
type Room struct {
	Code string

	Game *models.Game
	// Deck is the room's shuffled copy of the game's cards. Card order is
	// fixed at creation; CurrentCardIndex walks it monotonically.
	Deck []*models.Card

	// Players in join order; join order is turn order.
	Players []*models.Player

	CurrentPlayerIndex int
	CurrentCardIndex   int
	Status             Status

	// choiceMade tracks whether the current player recorded a choice for
	// the current card. Cleared whenever the card index moves.
	choiceMade bool

	CreatedAt  time.Time
	FinishedAt time.Time

	Mu sync.Mutex
}

// PlayerOut is the wire shape of a player inside room snapshots.
type PlayerOut struct {
	ID          uuid.UUID `json:"id"`
	Nickname    string    `json:"nickname"`
	IsHost      bool      `json:"is_host"`
	DrinkScore  int       `json:"drink_score"`
	ActionScore int       `json:"action_score"`
	Connected   bool      `json:"connected"`
}

// Snapshot is the authoritative room view clients poll as ground truth.
type Snapshot struct {
	Code               string      `json:"code"`
	GameID             int         `json:"game_id"`
	GameName           string      `json:"game_name"`
	Status             Status      `json:"status"`
	Players            []PlayerOut `json:"players"`
	CurrentPlayerIndex int         `json:"current_player_index"`
	CurrentCardIndex   int         `json:"current_card_index"`
	TotalCards         int         `json:"total_cards"`
}

// CardOut is the wire shape of the current card.
type CardOut struct {
	ID           int             `json:"id"`
	ImagePath    string          `json:"image_path"`
	Type         models.CardType `json:"card_type"`
	DrinkPoints  int             `json:"drink_points"`
	ActionPoints int             `json:"action_points"`
}

// State is the turn-level view: the room plus the derived (current card,
// current player) pair. Both are nil unless the game is in progress; the
// turn is always recomputed from the stored cursors, never stored itself.
type State struct {
	Room          Snapshot   `json:"room"`
	CurrentCard   *CardOut   `json:"current_card,omitempty"`
	CurrentPlayer *PlayerOut `json:"current_player,omitempty"`
}

// playerOutUnsafe converts a player under the room lock.
func playerOut(p *models.Player) PlayerOut {
	return PlayerOut{
		ID:          p.ID,
		Nickname:    p.Nickname,
		IsHost:      p.IsHost,
		DrinkScore:  p.DrinkScore,
		ActionScore: p.ActionScore,
		Connected:   p.Connected,
	}
}

// SnapshotUnsafe builds the room snapshot. Assumes Mu is held.
func (r *Room) SnapshotUnsafe() Snapshot {
	players := make([]PlayerOut, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, playerOut(p))
	}
	return Snapshot{
		Code:               r.Code,
		GameID:             r.Game.ID,
		GameName:           r.Game.Name,
		Status:             r.Status,
		Players:            players,
		CurrentPlayerIndex: r.CurrentPlayerIndex,
		CurrentCardIndex:   r.CurrentCardIndex,
		TotalCards:         len(r.Deck),
	}
}

// StateUnsafe builds the turn view. Assumes Mu is held.
func (r *Room) StateUnsafe() State {
	st := State{Room: r.SnapshotUnsafe()}
	if r.Status != StatusInProgress {
		return st
	}
	if r.CurrentCardIndex < len(r.Deck) {
		c := r.Deck[r.CurrentCardIndex]
		st.CurrentCard = &CardOut{
			ID:           c.ID,
			ImagePath:    c.ImagePath,
			Type:         c.Type,
			DrinkPoints:  c.DrinkPoints,
			ActionPoints: c.ActionPoints,
		}
	}
	if r.CurrentPlayerIndex >= 0 && r.CurrentPlayerIndex < len(r.Players) {
		p := playerOut(r.Players[r.CurrentPlayerIndex])
		st.CurrentPlayer = &p
	}
	return st
}

// currentCardUnsafe returns the card under the cursor, or nil past the end.
// Assumes Mu is held.
func (r *Room) currentCardUnsafe() *models.Card {
	if r.CurrentCardIndex < 0 || r.CurrentCardIndex >= len(r.Deck) {
		return nil
	}
	return r.Deck[r.CurrentCardIndex]
}

// PlayerUnsafe finds a player by id, or nil. Assumes Mu is held.
func (r *Room) PlayerUnsafe(id uuid.UUID) *models.Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}
