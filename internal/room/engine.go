package room

import (
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dosip/dosip/internal/models"
)

// Config holds the engine's tunable policy. Scoring weights and the
// choice-before-advance rule are configuration, not hardcoded behavior.
type Config struct {
	// RequireChoice makes Advance fail with ErrChoiceRequired unless the
	// current player recorded a choice for the current card first.
	RequireChoice bool

	// AllowSkip adds "skip" (scores nothing) to every card's choice set.
	AllowSkip bool

	// DrinkPoints and ActionPoints are fallback weights, used when a card
	// carries no points of its own.
	DrinkPoints  int
	ActionPoints int

	// MinPlayers is the smallest player count (host included) a game can
	// start with.
	MinPlayers int
}

// DefaultConfig mirrors the reference behavior: choices are optional before
// advancing, skip is offered, every card is worth one point either way, and
// the host needs at least one other player.
func DefaultConfig() Config {
	return Config{
		RequireChoice: false,
		AllowSkip:     true,
		DrinkPoints:   1,
		ActionPoints:  1,
		MinPlayers:    2,
	}
}

// ConfigFromEnv builds a Config from the environment, falling back to
// defaults for anything unset.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("REQUIRE_CHOICE_TO_ADVANCE"); v != "" {
		cfg.RequireChoice, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("ALLOW_SKIP_CHOICE"); v != "" {
		cfg.AllowSkip, _ = strconv.ParseBool(v)
	}
	if v, err := strconv.Atoi(os.Getenv("DRINK_POINTS")); err == nil && v > 0 {
		cfg.DrinkPoints = v
	}
	if v, err := strconv.Atoi(os.Getenv("ACTION_POINTS")); err == nil && v > 0 {
		cfg.ActionPoints = v
	}
	if v, err := strconv.Atoi(os.Getenv("MIN_PLAYERS")); err == nil && v >= 1 {
		cfg.MinPlayers = v
	}
	return cfg
}

// Engine applies turn transitions to a room. It is pure state-machine
// logic: every method either mutates the room into its next state or
// rejects the action with a sentinel error and leaves it untouched. All
// methods assume the caller holds the room's mutex for the whole
// transition.
type Engine struct {
	cfg Config
}

// NewEngine returns an engine with the given policy.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config exposes the engine's effective policy.
func (e *Engine) Config() Config {
	return e.cfg
}

// Start transitions a lobby into play: cursor and card index to zero,
// status to in_progress. Only the host may start, and only once.
func (e *Engine) Start(r *Room, requesterID uuid.UUID) error {
	requester := r.PlayerUnsafe(requesterID)
	if requester == nil || !requester.IsHost {
		return ErrNotHost
	}
	if r.Status != StatusLobby {
		return ErrAlreadyStarted
	}
	if len(r.Players) < e.cfg.MinPlayers {
		return ErrNoOtherPlayers
	}
	if len(r.Deck) == 0 {
		return ErrEmptyDeck
	}
	r.Status = StatusInProgress
	r.CurrentPlayerIndex = 0
	r.CurrentCardIndex = 0
	r.choiceMade = false
	return nil
}

// RecordChoice scores the current player's choice against the current
// card. One choice per card: a second submission for the same card is
// rejected rather than double-counted.
func (e *Engine) RecordChoice(r *Room, playerID uuid.UUID, choice models.Choice) error {
	if r.Status != StatusInProgress {
		return ErrGameNotInProgress
	}
	if r.Players[r.CurrentPlayerIndex].ID != playerID {
		return ErrNotYourTurn
	}
	card := r.currentCardUnsafe()
	if card == nil {
		return ErrGameNotInProgress
	}
	if !choice.ValidFor(card.Type, e.cfg.AllowSkip) {
		return ErrInvalidChoice
	}
	if r.choiceMade {
		return ErrChoiceAlreadyMade
	}

	player := r.Players[r.CurrentPlayerIndex]
	switch choice {
	case models.ChoiceDrink:
		player.DrinkScore += pointsOr(card.DrinkPoints, e.cfg.DrinkPoints)
	case models.ChoiceSkip:
		// Scores nothing.
	default:
		// The card type's action alternative (do or truth).
		player.ActionScore += pointsOr(card.ActionPoints, e.cfg.ActionPoints)
	}
	r.choiceMade = true
	return nil
}

// Advance moves to the next card. At the end of the deck the room finishes
// and stays finished; otherwise the turn wraps to the next player in join
// order. Disconnected players are not skipped: their turn comes up like
// anyone else's. Returns true when this call ended the game.
func (e *Engine) Advance(r *Room, requesterID uuid.UUID) (bool, error) {
	if r.Status != StatusInProgress {
		return false, ErrGameNotInProgress
	}
	if r.Players[r.CurrentPlayerIndex].ID != requesterID {
		return false, ErrNotYourTurn
	}
	if e.cfg.RequireChoice && !r.choiceMade {
		return false, ErrChoiceRequired
	}

	r.CurrentCardIndex++
	r.choiceMade = false
	if r.CurrentCardIndex >= len(r.Deck) {
		r.Status = StatusFinished
		r.FinishedAt = time.Now()
		return true, nil
	}
	r.CurrentPlayerIndex = (r.CurrentPlayerIndex + 1) % len(r.Players)
	return false, nil
}

func pointsOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
