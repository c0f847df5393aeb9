package room

import (
	"context"
	"fmt"
	mrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dosip/dosip/internal/models"
)

// Store manages every live room in memory. The store mutex only guards the
// room map; per-room state is guarded by each Room's own mutex, so distinct
// rooms mutate fully independently.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	// now is swappable for retention tests.
	now func() time.Time

	// OnRemove, when set, runs for every room dropped by Remove or Sweep.
	// Used to tear down that room's event subscribers.
	OnRemove func(code string)
}

// NewStore returns an empty in-memory room store.
func NewStore() *Store {
	return &Store{
		rooms: make(map[string]*Room),
		now:   time.Now,
	}
}

// CreateRoom allocates a room with a fresh unique code, the host as sole
// initial player, and a per-room shuffled copy of the game's deck.
func (s *Store) CreateRoom(game *models.Game, deck []*models.Card, hostNickname string) (*Room, *models.Player, error) {
	hostNickname = strings.TrimSpace(hostNickname)
	if hostNickname == "" {
		return nil, nil, ErrEmptyNickname
	}
	if game == nil {
		return nil, nil, ErrInvalidGame
	}
	if len(deck) == 0 {
		return nil, nil, ErrEmptyDeck
	}

	shuffled := make([]*models.Card, len(deck))
	copy(shuffled, deck)
	mrand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	host := &models.Player{
		ID:        uuid.New(),
		Nickname:  hostNickname,
		IsHost:    true,
		Connected: true,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	code, err := s.uniqueCodeLocked()
	if err != nil {
		return nil, nil, err
	}
	rm := &Room{
		Code:      code,
		Game:      game,
		Deck:      shuffled,
		Players:   []*models.Player{host},
		Status:    StatusLobby,
		CreatedAt: s.now(),
	}
	s.rooms[code] = rm
	return rm, host, nil
}

// uniqueCodeLocked generates codes until one misses the map. Assumes the
// store lock is held.
func (s *Store) uniqueCodeLocked() (string, error) {
	for attempt := 0; attempt < 100; attempt++ {
		code, err := GenerateCode()
		if err != nil {
			return "", err
		}
		if _, taken := s.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("exhausted room code attempts")
}

// Get finds a room by code, case-insensitively.
func (s *Store) Get(code string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[strings.ToUpper(strings.TrimSpace(code))]
	return r, ok
}

// JoinRoom appends a new player to a lobby. Concurrent joins to the same
// room serialize on the room mutex, so join order (and therefore turn
// order) is deterministic and appends never interleave.
func (s *Store) JoinRoom(code, nickname string) (*Room, *models.Player, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, nil, ErrEmptyNickname
	}
	r, ok := s.Get(code)
	if !ok {
		return nil, nil, ErrRoomNotFound
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.Status != StatusLobby {
		return nil, nil, ErrRoomAlreadyStarted
	}
	for _, p := range r.Players {
		if strings.EqualFold(p.Nickname, nickname) {
			return nil, nil, ErrNicknameTaken
		}
	}
	player := &models.Player{
		ID:        uuid.New(),
		Nickname:  nickname,
		Connected: true,
	}
	r.Players = append(r.Players, player)
	return r, player, nil
}

// Snapshot returns the latest committed room view.
func (s *Store) Snapshot(code string) (Snapshot, error) {
	r, ok := s.Get(code)
	if !ok {
		return Snapshot{}, ErrRoomNotFound
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.SnapshotUnsafe(), nil
}

// State returns the latest committed turn view.
func (s *Store) State(code string) (State, error) {
	r, ok := s.Get(code)
	if !ok {
		return State{}, ErrRoomNotFound
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.StateUnsafe(), nil
}

// Leaderboard returns both score rankings for a room.
func (s *Store) Leaderboard(code string) (Leaderboard, error) {
	r, ok := s.Get(code)
	if !ok {
		return Leaderboard{}, ErrRoomNotFound
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.LeaderboardUnsafe(), nil
}

// MarkDisconnected flags a player as gone without removing them; turn order
// never changes after start.
func (s *Store) MarkDisconnected(code string, playerID uuid.UUID) bool {
	r, ok := s.Get(code)
	if !ok {
		return false
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	p := r.PlayerUnsafe(playerID)
	if p == nil || !p.Connected {
		return false
	}
	p.Connected = false
	return true
}

// MarkConnected flags a player as present again after a socket reattach.
func (s *Store) MarkConnected(code string, playerID uuid.UUID) bool {
	r, ok := s.Get(code)
	if !ok {
		return false
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	p := r.PlayerUnsafe(playerID)
	if p == nil || p.Connected {
		return false
	}
	p.Connected = true
	return true
}

// Remove drops a room from the store.
func (s *Store) Remove(code string) {
	code = strings.ToUpper(strings.TrimSpace(code))
	s.mu.Lock()
	delete(s.rooms, code)
	s.mu.Unlock()
	if s.OnRemove != nil {
		s.OnRemove(code)
	}
}

// Len reports how many rooms are live.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// Sweep removes finished rooms older than the retention window and returns
// how many were dropped.
func (s *Store) Sweep(retention time.Duration) int {
	cutoff := s.now().Add(-retention)

	s.mu.Lock()
	var removed []string
	for code, r := range s.rooms {
		r.Mu.Lock()
		expired := r.Status == StatusFinished && !r.FinishedAt.IsZero() && r.FinishedAt.Before(cutoff)
		r.Mu.Unlock()
		if expired {
			delete(s.rooms, code)
			removed = append(removed, code)
		}
	}
	s.mu.Unlock()

	if s.OnRemove != nil {
		for _, code := range removed {
			s.OnRemove(code)
		}
	}
	return len(removed)
}

// StartJanitor sweeps finished rooms on an interval until ctx is done.
func (s *Store) StartJanitor(ctx context.Context, interval, retention time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(retention)
			}
		}
	}()
}
