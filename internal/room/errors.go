package room

import "errors"

// Sentinel errors returned by the store and the engine. The HTTP layer maps
// these to 4xx responses; the error text doubles as the response detail.
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrInvalidGame        = errors.New("game not found")
	ErrRoomAlreadyStarted = errors.New("room already started")
	ErrAlreadyStarted     = errors.New("game already started")
	ErrGameNotInProgress  = errors.New("game not in progress")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrNotHost            = errors.New("only the host can start the game")
	ErrInvalidChoice      = errors.New("invalid choice for this card")
	ErrChoiceRequired     = errors.New("choice required before advancing")
	ErrChoiceAlreadyMade  = errors.New("choice already made for this card")
	ErrNoOtherPlayers     = errors.New("need at least one other player")
	ErrEmptyDeck          = errors.New("game has no cards")
	ErrNicknameTaken      = errors.New("nickname already taken")
	ErrEmptyNickname      = errors.New("nickname must not be empty")
)
