// Package client implements the player-side counterpart of the room
// service: HTTP actions against the authoritative endpoints plus a
// websocket listener that reconciles local state with server events.
package client

import (
	"sync"

	"github.com/dosip/dosip/internal/models"
)

// Session carries everything tied to one player's membership in one
// room. Handlers receive it explicitly; there is no package-level
// state. The listener goroutine and UI actions touch the same session,
// so every access goes through the mutex.
type Session struct {
	mu sync.Mutex

	playerID       string
	roomCode       string
	nickname       string
	isHost         bool
	selectedGameID int

	// Per-turn flags, cleared whenever the card index moves.
	choiceMade      bool
	cardFlipped     bool
	currentCardType models.CardType
	lastCardIndex   int
}

// NewSession returns a session with no room membership.
func NewSession() *Session {
	s := &Session{}
	s.Reset()
	return s
}

// Reset returns the session to its initial values. Called on leave and
// on "back to menu".
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playerID = ""
	s.roomCode = ""
	s.nickname = ""
	s.isHost = false
	s.selectedGameID = 0
	s.choiceMade = false
	s.cardFlipped = false
	s.currentCardType = ""
	s.lastCardIndex = -1
}

// bind records room membership after a successful create or join.
func (s *Session) bind(playerID, roomCode, nickname string, isHost bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playerID = playerID
	s.roomCode = roomCode
	s.nickname = nickname
	s.isHost = isHost
}

func (s *Session) PlayerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerID
}

func (s *Session) RoomCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomCode
}

func (s *Session) Nickname() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nickname
}

func (s *Session) IsHost() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isHost
}

// SelectGame records which game the next created room will use.
func (s *Session) SelectGame(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedGameID = id
}

func (s *Session) SelectedGameID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedGameID
}

// InRoom reports whether the session is bound to a room.
func (s *Session) InRoom() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomCode != "" && s.playerID != ""
}

// FlipCard toggles the cosmetic card-face flag for the current card.
func (s *Session) FlipCard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cardFlipped = !s.cardFlipped
}

// ChoiceMade reports whether a choice was already submitted for the
// current card.
func (s *Session) ChoiceMade() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.choiceMade
}

func (s *Session) markChoiceMade() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.choiceMade = true
}

func (s *Session) setCurrentCardType(t models.CardType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentCardType = t
}

// turnFlags snapshots the per-turn flags for rendering.
func (s *Session) turnFlags() (choiceMade, cardFlipped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.choiceMade, s.cardFlipped
}

// observeCardIndex clears the per-turn flags when the card moves.
// Indexes older than the last seen one are reported as stale.
func (s *Session) observeCardIndex(idx int) (stale bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx < s.lastCardIndex {
		return true
	}
	if idx > s.lastCardIndex {
		s.choiceMade = false
		s.cardFlipped = false
		s.currentCardType = ""
		s.lastCardIndex = idx
	}
	return false
}
