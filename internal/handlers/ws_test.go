package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dosip/dosip/internal/bus"
)

func dialRoom(t *testing.T, url, code, playerID string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := fmt.Sprintf("ws%s/ws/%s", url[len("http"):], code)
	if playerID != "" {
		wsURL += "?player_id=" + playerID
	}
	c, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		Subprotocols: []string{RoomSubprotocol},
	})
	require.NoError(t, err)
	return c
}

func TestRoomWSReceivesBroadcasts(t *testing.T) {
	_, ts := newTestServer(t, 3)
	created := createTestRoom(t, ts)

	c := dialRoom(t, ts.URL, created.RoomCode, created.PlayerID)
	defer c.Close(websocket.StatusNormalClosure, "done")

	// The join below must reach the already connected host socket.
	joinTestRoom(t, ts, created.RoomCode, "Bob")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := c.Read(ctx)
	require.NoError(t, err)

	ev, ok := bus.ParseEvent(data)
	require.True(t, ok)
	assert.Equal(t, bus.EventPlayerJoined, ev.Type)
	assert.Equal(t, "Bob", ev.Nickname)
}

func TestRoomWSInboundFramesAreIgnored(t *testing.T) {
	s, ts := newTestServer(t, 3)
	created := createTestRoom(t, ts)

	c := dialRoom(t, ts.URL, created.RoomCode, "")
	defer c.Close(websocket.StatusNormalClosure, "done")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Clients never self-notify; the server drops whatever they send.
	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte(`{"type":"game_started"}`)))

	joinTestRoom(t, ts, created.RoomCode, "Bob")
	_, data, err := c.Read(ctx)
	require.NoError(t, err)
	ev, ok := bus.ParseEvent(data)
	require.True(t, ok)
	assert.Equal(t, bus.EventPlayerJoined, ev.Type, "the only traffic is server broadcasts")

	_ = s
}

func TestRoomWSUnknownRoom(t *testing.T) {
	_, ts := newTestServer(t, 3)

	resp, err := http.Get(ts.URL + "/ws/ZZZZZZ")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestRoomWSDisconnectBroadcast(t *testing.T) {
	s, ts := newTestServer(t, 3)
	created := createTestRoom(t, ts)

	sub := s.Bus.Subscribe(created.RoomCode, 0)
	defer s.Bus.Unsubscribe(sub)

	c := dialRoom(t, ts.URL, created.RoomCode, created.PlayerID)
	c.Close(websocket.StatusNormalClosure, "leaving")

	select {
	case ev := <-sub.C:
		assert.Equal(t, bus.EventPlayerDisconnected, ev.Type)
		assert.Equal(t, created.PlayerID, ev.PlayerID)
	case <-time.After(5 * time.Second):
		t.Fatal("expected a player_disconnected broadcast")
	}
}
