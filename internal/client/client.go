package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dosip/dosip/internal/models"
	"github.com/dosip/dosip/internal/room"
)

// Renderer is the UI collaborator. The client core computes what to
// show; how it is shown stays outside.
type Renderer interface {
	Toast(msg string)
	RenderLobby(snap room.Snapshot)
	RenderTurn(view TurnView)
	RenderResults(lb room.Leaderboard)
}

// TurnView is everything the UI needs to draw one turn.
type TurnView struct {
	State       room.State
	IsMyTurn    bool
	ChoiceMade  bool
	CardFlipped bool
}

// APIError is a non-2xx response with its decoded detail.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Detail)
}

// Client drives one player's interaction with the room service.
type Client struct {
	BaseURL  string
	HTTP     *http.Client
	Session  *Session
	Renderer Renderer
	Prefetch Prefetcher
	Logger   *logrus.Logger

	mu sync.Mutex
	ws wsConn
}

func New(baseURL string, renderer Renderer) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		HTTP:     http.DefaultClient,
		Session:  NewSession(),
		Renderer: renderer,
		Logger:   logrus.New(),
	}
}

// LoadGames fetches the catalog.
func (c *Client) LoadGames(ctx context.Context) ([]models.Game, error) {
	var games []models.Game
	if err := c.doJSON(ctx, http.MethodGet, "/games", nil, &games); err != nil {
		c.Renderer.Toast("failed to load games")
		return nil, err
	}
	return games, nil
}

type createRoomResponse struct {
	PlayerID string        `json:"player_id"`
	RoomCode string        `json:"room_code"`
	Room     room.Snapshot `json:"room"`
}

// CreateRoom provisions a room for the session's selected game and
// seats this player as host. Validation failures never hit the wire.
func (c *Client) CreateRoom(ctx context.Context, nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		c.Renderer.Toast("enter a nickname first")
		return room.ErrEmptyNickname
	}
	if c.Session.SelectedGameID() == 0 {
		c.Renderer.Toast("select a game first")
		return room.ErrInvalidGame
	}

	var resp createRoomResponse
	err := c.doJSON(ctx, http.MethodPost, "/rooms/create", map[string]interface{}{
		"game_id":       c.Session.SelectedGameID(),
		"host_nickname": nickname,
	}, &resp)
	if err != nil {
		c.toastError(err)
		return err
	}

	c.Session.bind(resp.PlayerID, resp.RoomCode, nickname, true)
	c.Renderer.RenderLobby(resp.Room)
	return nil
}

type joinRoomResponse struct {
	PlayerID string        `json:"player_id"`
	Room     room.Snapshot `json:"room"`
}

// JoinRoom seats this player in an existing lobby.
func (c *Client) JoinRoom(ctx context.Context, code, nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		c.Renderer.Toast("enter a nickname first")
		return room.ErrEmptyNickname
	}

	var resp joinRoomResponse
	err := c.doJSON(ctx, http.MethodPost, "/rooms/join", map[string]interface{}{
		"room_code": strings.TrimSpace(code),
		"nickname":  nickname,
	}, &resp)
	if err != nil {
		c.toastError(err)
		return err
	}

	c.Session.bind(resp.PlayerID, resp.Room.Code, nickname, false)
	c.Renderer.RenderLobby(resp.Room)
	return nil
}

// StartGame asks the server to begin. Host only; the server enforces it
// and this client surfaces the rejection.
func (c *Client) StartGame(ctx context.Context) error {
	if err := c.requireRoom(); err != nil {
		return err
	}
	err := c.doJSON(ctx, http.MethodPost, c.roomPath("start"), nil, nil)
	if err != nil {
		c.toastError(err)
		return err
	}
	return c.RefreshState(ctx)
}

// MakeChoice submits the current player's choice. A second submission
// for the same card is rejected locally before any network call.
func (c *Client) MakeChoice(ctx context.Context, choice models.Choice) error {
	if err := c.requireRoom(); err != nil {
		return err
	}
	if c.Session.ChoiceMade() {
		c.Renderer.Toast("you already made your choice")
		return room.ErrChoiceAlreadyMade
	}

	err := c.doJSON(ctx, http.MethodPost, c.roomPath("choice"), map[string]string{
		"choice": string(choice),
	}, nil)
	if err != nil {
		c.toastError(err)
		return err
	}
	c.Session.markChoiceMade()
	return c.RefreshState(ctx)
}

type nextResponse struct {
	Status string `json:"status"`
}

// Advance ends the current turn. When the server reports the game
// finished, the results view replaces the turn view.
func (c *Client) Advance(ctx context.Context) error {
	if err := c.requireRoom(); err != nil {
		return err
	}
	var resp nextResponse
	err := c.doJSON(ctx, http.MethodPost, c.roomPath("next"), nil, &resp)
	if err != nil {
		c.toastError(err)
		return err
	}
	if resp.Status == "game_finished" {
		return c.showResults(ctx)
	}
	return c.RefreshState(ctx)
}

// RefreshRoom re-fetches the membership snapshot and re-renders the
// lobby. Safe to call repeatedly; rendering is idempotent.
func (c *Client) RefreshRoom(ctx context.Context) error {
	if err := c.requireRoom(); err != nil {
		return err
	}
	var snap room.Snapshot
	if err := c.doJSON(ctx, http.MethodGet, "/rooms/"+c.Session.RoomCode(), nil, &snap); err != nil {
		c.toastError(err)
		return err
	}
	c.Renderer.RenderLobby(snap)
	return nil
}

// RefreshState re-fetches the authoritative turn state. Responses older
// than what the session has already seen are discarded.
func (c *Client) RefreshState(ctx context.Context) error {
	if err := c.requireRoom(); err != nil {
		return err
	}
	var st room.State
	if err := c.doJSON(ctx, http.MethodGet, "/rooms/"+c.Session.RoomCode()+"/state", nil, &st); err != nil {
		c.toastError(err)
		return err
	}

	switch st.Room.Status {
	case room.StatusLobby:
		c.Renderer.RenderLobby(st.Room)
		return nil
	case room.StatusFinished:
		return c.showResults(ctx)
	}

	if c.Session.observeCardIndex(st.Room.CurrentCardIndex) {
		c.Logger.Debugf("discarding stale state for card %d", st.Room.CurrentCardIndex)
		return nil
	}
	if st.CurrentCard != nil {
		c.Session.setCurrentCardType(st.CurrentCard.Type)
		c.prefetchCard(ctx, st.CurrentCard.ImagePath)
	}

	choiceMade, cardFlipped := c.Session.turnFlags()
	c.Renderer.RenderTurn(TurnView{
		State:       st,
		IsMyTurn:    st.CurrentPlayer != nil && st.CurrentPlayer.ID.String() == c.Session.PlayerID(),
		ChoiceMade:  choiceMade,
		CardFlipped: cardFlipped,
	})
	return nil
}

// Leaderboard fetches both rankings.
func (c *Client) Leaderboard(ctx context.Context) (room.Leaderboard, error) {
	var lb room.Leaderboard
	if err := c.requireRoom(); err != nil {
		return lb, err
	}
	if err := c.doJSON(ctx, http.MethodGet, "/rooms/"+c.Session.RoomCode()+"/leaderboard", nil, &lb); err != nil {
		c.toastError(err)
		return lb, err
	}
	return lb, nil
}

// Leave closes the event socket and resets the session.
func (c *Client) Leave() {
	c.closeWS()
	c.Session.Reset()
}

func (c *Client) showResults(ctx context.Context) error {
	lb, err := c.Leaderboard(ctx)
	if err != nil {
		return err
	}
	c.Renderer.RenderResults(lb)
	return nil
}

func (c *Client) requireRoom() error {
	if !c.Session.InRoom() {
		c.Renderer.Toast("not in a room")
		return room.ErrRoomNotFound
	}
	return nil
}

func (c *Client) roomPath(op string) string {
	return fmt.Sprintf("/rooms/%s/%s?player_id=%s", c.Session.RoomCode(), op, c.Session.PlayerID())
}

func (c *Client) toastError(err error) {
	if apiErr, ok := err.(*APIError); ok {
		c.Renderer.Toast(apiErr.Detail)
		return
	}
	c.Renderer.Toast("network error, try again")
}

// doJSON performs one request and decodes the response into out. Non-2xx
// responses become an APIError with the server's detail when parseable.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Detail: "request failed"}
		var detail struct {
			Detail string `json:"detail"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&detail); decodeErr == nil && detail.Detail != "" {
			apiErr.Detail = detail.Detail
		}
		return apiErr
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
