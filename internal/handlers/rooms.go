package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dosip/dosip/internal/bus"
	"github.com/dosip/dosip/internal/cache"
	"github.com/dosip/dosip/internal/models"
	"github.com/dosip/dosip/internal/room"
)

type createRoomRequest struct {
	GameID       int    `json:"game_id"`
	HostNickname string `json:"host_nickname"`
}

type joinRoomRequest struct {
	RoomCode string `json:"room_code"`
	Nickname string `json:"nickname"`
}

type choiceRequest struct {
	Choice string `json:"choice"`
}

// CreateRoomHandler provisions a room from a catalog game and seats the
// host as its first player.
func (s *Server) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	game, err := s.Catalog.GetGame(r.Context(), req.GameID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	deck, err := s.Catalog.GetDeck(r.Context(), game.ID)
	if err != nil {
		s.Logger.Errorf("failed to load deck for game %d: %v", game.ID, err)
		writeDetail(w, http.StatusInternalServerError, "failed to load deck")
		return
	}

	rm, host, err := s.Store.CreateRoom(game, deck, req.HostNickname)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	rm.Mu.Lock()
	snap := rm.SnapshotUnsafe()
	rm.Mu.Unlock()

	s.Logger.WithFields(logrus.Fields{
		"room_code": rm.Code,
		"game_id":   game.ID,
		"host":      host.Nickname,
	}).Info("room created")
	cache.PublishRoomEvent(rm.Code, "room_created", host.ID.String(), map[string]interface{}{"game_id": game.ID})

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"player_id": host.ID,
		"room_code": rm.Code,
		"room":      snap,
	})
}

// JoinRoomHandler seats a new player in an open lobby.
func (s *Server) JoinRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rm, player, err := s.Store.JoinRoom(req.RoomCode, req.Nickname)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	rm.Mu.Lock()
	snap := rm.SnapshotUnsafe()
	rm.Mu.Unlock()

	s.Bus.Broadcast(rm.Code, bus.Event{
		Type:     bus.EventPlayerJoined,
		Nickname: player.Nickname,
		PlayerID: player.ID.String(),
	})
	cache.PublishRoomEvent(rm.Code, "player_joined", player.ID.String(), nil)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"player_id": player.ID,
		"room":      snap,
	})
}

// GetRoomHandler returns the membership snapshot.
func (s *Server) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Store.Snapshot(r.PathValue("code"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetStateHandler returns the full turn view including the current card.
func (s *Server) GetStateHandler(w http.ResponseWriter, r *http.Request) {
	state, err := s.Store.State(r.PathValue("code"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// StartGameHandler begins the game. Host only.
func (s *Server) StartGameHandler(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	playerID, ok := queryPlayerID(w, r)
	if !ok {
		return
	}
	rm, found := s.Store.Get(code)
	if !found {
		writeDomainError(w, room.ErrRoomNotFound)
		return
	}

	rm.Mu.Lock()
	err := s.Engine.Start(rm, playerID)
	rm.Mu.Unlock()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.Logger.WithFields(logrus.Fields{"room_code": rm.Code}).Info("game started")
	s.Bus.Broadcast(rm.Code, bus.Event{Type: bus.EventGameStarted})
	cache.PublishRoomEvent(rm.Code, "game_started", playerID.String(), nil)

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// MakeChoiceHandler records the current player's choice for the card in
// play.
func (s *Server) MakeChoiceHandler(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	playerID, ok := queryPlayerID(w, r)
	if !ok {
		return
	}
	var req choiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rm, found := s.Store.Get(code)
	if !found {
		writeDomainError(w, room.ErrRoomNotFound)
		return
	}

	rm.Mu.Lock()
	err := s.Engine.RecordChoice(rm, playerID, models.Choice(req.Choice))
	rm.Mu.Unlock()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.Bus.Broadcast(rm.Code, bus.Event{
		Type:     bus.EventChoiceMade,
		PlayerID: playerID.String(),
		Choice:   req.Choice,
	})
	cache.PublishRoomEvent(rm.Code, "choice_made", playerID.String(), map[string]interface{}{"choice": req.Choice})

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NextTurnHandler ends the current turn. When the deck runs out the
// room flips to finished and the final scores are persisted.
func (s *Server) NextTurnHandler(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	playerID, ok := queryPlayerID(w, r)
	if !ok {
		return
	}
	rm, found := s.Store.Get(code)
	if !found {
		writeDomainError(w, room.ErrRoomNotFound)
		return
	}

	rm.Mu.Lock()
	finished, err := s.Engine.Advance(rm, playerID)
	var snap room.Snapshot
	var lb room.Leaderboard
	if err == nil && finished {
		snap = rm.SnapshotUnsafe()
		lb = rm.LeaderboardUnsafe()
	}
	rm.Mu.Unlock()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if finished {
		s.Bus.Broadcast(rm.Code, bus.Event{Type: bus.EventGameFinished})
		cache.PublishRoomEvent(rm.Code, "game_finished", playerID.String(), nil)
		s.persistResults(snap, lb)
		writeJSON(w, http.StatusOK, map[string]string{"status": "game_finished"})
		return
	}

	s.Bus.Broadcast(rm.Code, bus.Event{Type: bus.EventTurnComplete})
	cache.PublishRoomEvent(rm.Code, "turn_complete", playerID.String(), nil)
	writeJSON(w, http.StatusOK, map[string]string{"status": "continue"})
}

// LeaderboardHandler returns both rankings. Available mid-game.
func (s *Server) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	lb, err := s.Store.Leaderboard(r.PathValue("code"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (s *Server) persistResults(snap room.Snapshot, lb room.Leaderboard) {
	if s.Results == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), resultWriteTimeout)
		defer cancel()
		if err := s.Results.RecordRoomResults(ctx, snap, lb); err != nil {
			s.Logger.Errorf("failed to persist results for room %s: %v", snap.Code, err)
		}
	}()
}

func queryPlayerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.URL.Query().Get("player_id")
	if raw == "" {
		writeDetail(w, http.StatusBadRequest, "player_id is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid player_id")
		return uuid.Nil, false
	}
	return id, true
}
