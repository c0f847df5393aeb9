package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dosip/dosip/internal/bus"
	"github.com/dosip/dosip/internal/models"
	"github.com/dosip/dosip/internal/room"
)

// stubCatalog serves a fixed in-memory game list in place of postgres.
type stubCatalog struct {
	games map[int]*models.Game
	decks map[int][]*models.Card
}

func newStubCatalog(cards int) *stubCatalog {
	deck := make([]*models.Card, 0, cards)
	for i := 0; i < cards; i++ {
		deck = append(deck, &models.Card{ID: i + 1, Position: i, Type: models.CardDoOrDrink})
	}
	return &stubCatalog{
		games: map[int]*models.Game{1: {ID: 1, Name: "Do or Sip", CardsCount: cards}},
		decks: map[int][]*models.Card{1: deck},
	}
}

func (c *stubCatalog) ListGames(ctx context.Context) ([]models.Game, error) {
	var out []models.Game
	for _, g := range c.games {
		out = append(out, *g)
	}
	return out, nil
}

func (c *stubCatalog) GetGame(ctx context.Context, id int) (*models.Game, error) {
	g, ok := c.games[id]
	if !ok {
		return nil, room.ErrInvalidGame
	}
	return g, nil
}

func (c *stubCatalog) GetDeck(ctx context.Context, gameID int) ([]*models.Card, error) {
	return c.decks[gameID], nil
}

// stubRecorder captures persisted results.
type stubRecorder struct {
	recorded chan room.Snapshot
}

func (r *stubRecorder) RecordRoomResults(ctx context.Context, snap room.Snapshot, lb room.Leaderboard) error {
	r.recorded <- snap
	return nil
}

func newTestServer(t *testing.T, cards int) (*Server, *httptest.Server) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	s := NewServer(room.NewStore(), room.NewEngine(room.DefaultConfig()), newStubCatalog(cards), bus.New(), logger)
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return s, ts
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

type createResponse struct {
	PlayerID string        `json:"player_id"`
	RoomCode string        `json:"room_code"`
	Room     room.Snapshot `json:"room"`
}

type joinResponse struct {
	PlayerID string        `json:"player_id"`
	Room     room.Snapshot `json:"room"`
}

func createTestRoom(t *testing.T, ts *httptest.Server) createResponse {
	t.Helper()
	resp := postJSON(t, ts.URL+"/rooms/create", map[string]interface{}{
		"game_id": 1, "host_nickname": "Alice",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created createResponse
	decodeBody(t, resp, &created)
	return created
}

func joinTestRoom(t *testing.T, ts *httptest.Server, code, nickname string) joinResponse {
	t.Helper()
	resp := postJSON(t, ts.URL+"/rooms/join", map[string]interface{}{
		"room_code": code, "nickname": nickname,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var joined joinResponse
	decodeBody(t, resp, &joined)
	return joined
}

func TestListGames(t *testing.T) {
	_, ts := newTestServer(t, 3)

	resp, err := http.Get(ts.URL + "/games")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var games []models.Game
	decodeBody(t, resp, &games)
	require.Len(t, games, 1)
	assert.Equal(t, "Do or Sip", games[0].Name)
	assert.Equal(t, 3, games[0].CardsCount)
}

func TestCreateRoomEndpoint(t *testing.T) {
	_, ts := newTestServer(t, 3)
	created := createTestRoom(t, ts)

	assert.Len(t, created.RoomCode, 6)
	assert.NotEmpty(t, created.PlayerID)
	assert.Equal(t, "lobby", string(created.Room.Status))
	require.Len(t, created.Room.Players, 1)
	assert.Equal(t, "Alice", created.Room.Players[0].Nickname)
	assert.True(t, created.Room.Players[0].IsHost)
}

func TestCreateRoomUnknownGame(t *testing.T) {
	_, ts := newTestServer(t, 3)

	resp := postJSON(t, ts.URL+"/rooms/create", map[string]interface{}{
		"game_id": 42, "host_nickname": "Alice",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "game not found", body["detail"])
}

func TestJoinRoomEndpoint(t *testing.T) {
	s, ts := newTestServer(t, 3)
	created := createTestRoom(t, ts)

	sub := s.Bus.Subscribe(created.RoomCode, 0)
	defer s.Bus.Unsubscribe(sub)

	joined := joinTestRoom(t, ts, created.RoomCode, "Bob")
	require.Len(t, joined.Room.Players, 2)

	select {
	case ev := <-sub.C:
		assert.Equal(t, bus.EventPlayerJoined, ev.Type)
		assert.Equal(t, "Bob", ev.Nickname)
		assert.Equal(t, joined.PlayerID, ev.PlayerID)
	case <-time.After(time.Second):
		t.Fatal("expected a player_joined broadcast")
	}
}

func TestJoinRoomErrors(t *testing.T) {
	_, ts := newTestServer(t, 3)
	created := createTestRoom(t, ts)

	resp := postJSON(t, ts.URL+"/rooms/join", map[string]interface{}{
		"room_code": "ZZZZZZ", "nickname": "Bob",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/rooms/join", map[string]interface{}{
		"room_code": created.RoomCode, "nickname": "alice",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "nickname already taken", body["detail"])
}

func TestStartGameEndpoint(t *testing.T) {
	s, ts := newTestServer(t, 3)
	created := createTestRoom(t, ts)
	joined := joinTestRoom(t, ts, created.RoomCode, "Bob")

	// Non-host cannot start.
	resp := postJSON(t, fmt.Sprintf("%s/rooms/%s/start?player_id=%s", ts.URL, created.RoomCode, joined.PlayerID), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	sub := s.Bus.Subscribe(created.RoomCode, 0)
	defer s.Bus.Unsubscribe(sub)

	resp = postJSON(t, fmt.Sprintf("%s/rooms/%s/start?player_id=%s", ts.URL, created.RoomCode, created.PlayerID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	select {
	case ev := <-sub.C:
		assert.Equal(t, bus.EventGameStarted, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("expected a game_started broadcast")
	}

	var snap room.Snapshot
	getResp, err := http.Get(ts.URL + "/rooms/" + created.RoomCode)
	require.NoError(t, err)
	decodeBody(t, getResp, &snap)
	assert.Equal(t, "in_progress", string(snap.Status))
}

func TestStateIncludesCurrentCardAndPlayer(t *testing.T) {
	_, ts := newTestServer(t, 3)
	created := createTestRoom(t, ts)
	joinTestRoom(t, ts, created.RoomCode, "Bob")

	// Lobby state carries no card.
	resp, err := http.Get(ts.URL + "/rooms/" + created.RoomCode + "/state")
	require.NoError(t, err)
	var st room.State
	decodeBody(t, resp, &st)
	assert.Nil(t, st.CurrentCard)
	assert.Nil(t, st.CurrentPlayer)

	startResp := postJSON(t, fmt.Sprintf("%s/rooms/%s/start?player_id=%s", ts.URL, created.RoomCode, created.PlayerID), nil)
	require.Equal(t, http.StatusOK, startResp.StatusCode)
	startResp.Body.Close()

	resp, err = http.Get(ts.URL + "/rooms/" + created.RoomCode + "/state")
	require.NoError(t, err)
	decodeBody(t, resp, &st)
	require.NotNil(t, st.CurrentCard)
	require.NotNil(t, st.CurrentPlayer)
	assert.Equal(t, "Alice", st.CurrentPlayer.Nickname)
}

func TestChoiceAndNextFlow(t *testing.T) {
	s, ts := newTestServer(t, 2)
	recorder := &stubRecorder{recorded: make(chan room.Snapshot, 1)}
	s.Results = recorder

	created := createTestRoom(t, ts)
	joined := joinTestRoom(t, ts, created.RoomCode, "Bob")

	startResp := postJSON(t, fmt.Sprintf("%s/rooms/%s/start?player_id=%s", ts.URL, created.RoomCode, created.PlayerID), nil)
	require.Equal(t, http.StatusOK, startResp.StatusCode)
	startResp.Body.Close()

	// Bob cannot choose on Alice's turn.
	resp := postJSON(t, fmt.Sprintf("%s/rooms/%s/choice?player_id=%s", ts.URL, created.RoomCode, joined.PlayerID), map[string]string{"choice": "drink"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, fmt.Sprintf("%s/rooms/%s/choice?player_id=%s", ts.URL, created.RoomCode, created.PlayerID), map[string]string{"choice": "drink"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Invalid choice for a do_or_drink card.
	resp = postJSON(t, fmt.Sprintf("%s/rooms/%s/choice?player_id=%s", ts.URL, created.RoomCode, created.PlayerID), map[string]string{"choice": "truth"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	var next map[string]string
	resp = postJSON(t, fmt.Sprintf("%s/rooms/%s/next?player_id=%s", ts.URL, created.RoomCode, created.PlayerID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &next)
	assert.Equal(t, "continue", next["status"])

	resp = postJSON(t, fmt.Sprintf("%s/rooms/%s/next?player_id=%s", ts.URL, created.RoomCode, joined.PlayerID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &next)
	assert.Equal(t, "game_finished", next["status"])

	select {
	case snap := <-recorder.recorded:
		assert.Equal(t, created.RoomCode, snap.Code)
	case <-time.After(time.Second):
		t.Fatal("expected final results to be persisted")
	}

	// Leaderboard after the game.
	lbResp, err := http.Get(ts.URL + "/rooms/" + created.RoomCode + "/leaderboard")
	require.NoError(t, err)
	var lb room.Leaderboard
	decodeBody(t, lbResp, &lb)
	require.Len(t, lb.Drink, 2)
	assert.Equal(t, "Alice", lb.Drink[0].Nickname)
	assert.Equal(t, 1, lb.Drink[0].Score)
	assert.True(t, lb.Drink[0].IsWinner)
}

func TestNextRequiresValidPlayerID(t *testing.T) {
	_, ts := newTestServer(t, 2)
	created := createTestRoom(t, ts)

	resp := postJSON(t, ts.URL+"/rooms/"+created.RoomCode+"/next", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/rooms/"+created.RoomCode+"/next?player_id=not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestRoomLookupIsCaseInsensitive(t *testing.T) {
	_, ts := newTestServer(t, 2)
	created := createTestRoom(t, ts)

	resp, err := http.Get(ts.URL + "/rooms/" + toLower(created.RoomCode))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func toLower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t, 2)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
