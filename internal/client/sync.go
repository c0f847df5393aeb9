package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/coder/websocket"

	"github.com/dosip/dosip/internal/bus"
)

// RoomSubprotocol must match what the server accepts.
const RoomSubprotocol = "dosip"

// wsConn is the slice of *websocket.Conn the sync loop needs; tests
// substitute a fake.
type wsConn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Close(code websocket.StatusCode, reason string) error
}

// Connect dials the room event socket. The server learns our player id
// from the query string and flips the connected flag.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.requireRoom(); err != nil {
		return err
	}

	wsURL := httpToWS(c.BaseURL) + fmt.Sprintf("/ws/%s?player_id=%s", c.Session.RoomCode(), c.Session.PlayerID())
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		Subprotocols: []string{RoomSubprotocol},
	})
	if err != nil {
		return fmt.Errorf("dial room socket: %w", err)
	}

	c.mu.Lock()
	c.ws = conn
	c.mu.Unlock()
	return nil
}

// Listen consumes events until the socket closes or ctx is cancelled.
// Events are advisory: every one of them (except choice_made, which the
// actor already reflected locally) triggers a re-fetch of authoritative
// state, so duplicated, reordered or dropped events cannot desync the
// view.
func (c *Client) Listen(ctx context.Context) error {
	c.mu.Lock()
	conn := c.ws
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway || ctx.Err() != nil {
				return nil
			}
			c.mu.Lock()
			left := c.ws == nil
			c.mu.Unlock()
			if left {
				// Leave closed the socket under us.
				return nil
			}
			return fmt.Errorf("room socket read: %w", err)
		}

		ev, ok := bus.ParseEvent(data)
		if !ok {
			// Unknown types are ignored, never dispatched.
			continue
		}
		c.handleEvent(ctx, ev)
	}
}

// handleEvent reacts to one decoded event. Handlers must stay
// idempotent; the bus promises at-most-once but the poll responses may
// race each other.
func (c *Client) handleEvent(ctx context.Context, ev bus.Event) {
	switch ev.Type {
	case bus.EventChoiceMade:
		// The actor already updated locally; everyone else learns the
		// outcome from the next turn_complete re-fetch.
		if ev.PlayerID != c.Session.PlayerID() && ev.Choice != "" {
			c.Renderer.Toast(fmt.Sprintf("choice made: %s", ev.Choice))
		}
	case bus.EventPlayerJoined:
		if ev.Nickname != "" && ev.PlayerID != c.Session.PlayerID() {
			c.Renderer.Toast(fmt.Sprintf("%s joined the room", ev.Nickname))
		}
		if err := c.RefreshRoom(ctx); err != nil {
			c.Logger.Warnf("refresh after %s failed: %v", ev.Type, err)
		}
	case bus.EventPlayerDisconnected:
		if err := c.RefreshRoom(ctx); err != nil {
			c.Logger.Warnf("refresh after %s failed: %v", ev.Type, err)
		}
	default:
		// game_started, turn_complete, game_finished, state_update: the
		// payload is just a hint, the re-fetch is the truth.
		if err := c.RefreshState(ctx); err != nil {
			c.Logger.Warnf("refresh after %s failed: %v", ev.Type, err)
		}
	}
}

func (c *Client) closeWS() {
	c.mu.Lock()
	conn := c.ws
	c.ws = nil
	c.mu.Unlock()
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "leaving room")
	}
}

func httpToWS(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}
