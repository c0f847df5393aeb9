package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/dosip/dosip/internal/bus"
	"github.com/dosip/dosip/internal/middleware"
	"github.com/dosip/dosip/internal/room"
)

// RoomSubprotocol is the only subprotocol the event socket speaks.
const RoomSubprotocol = "dosip"

// RoomWSHandler upgrades the connection and streams room events to the
// client. The socket is one-way: mutations go through HTTP, so inbound
// frames are read only to surface closes and are otherwise discarded.
func (s *Server) RoomWSHandler(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	rm, found := s.Store.Get(code)
	if !found {
		writeDomainError(w, room.ErrRoomNotFound)
		return
	}

	var playerID uuid.UUID
	if raw := r.URL.Query().Get("player_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid player_id")
			return
		}
		playerID = id
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{RoomSubprotocol},
		OriginPatterns: []string{"*"}, // Adjust in production
	})
	if err != nil {
		s.Logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	if c.Subprotocol() != RoomSubprotocol {
		c.Close(BadSubprotocolError, "client must speak the dosip subprotocol")
		return
	}

	if playerID != uuid.Nil {
		s.Store.MarkConnected(rm.Code, playerID)
	}
	middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, rm.Code)

	sub := s.Bus.Subscribe(rm.Code, 0)
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go s.eventWritePump(ctx, c, sub)

	// Blocks until the client goes away.
	s.discardReads(ctx, c, rm.Code)

	cancel()
	s.Bus.Unsubscribe(sub)

	if playerID != uuid.Nil && s.Store.MarkDisconnected(rm.Code, playerID) {
		s.Bus.Broadcast(rm.Code, bus.Event{
			Type:     bus.EventPlayerDisconnected,
			PlayerID: playerID.String(),
		})
	}
	middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, rm.Code, nil)
}

// eventWritePump forwards bus events to the socket and keeps the
// connection alive with periodic pings.
func (s *Server) eventWritePump(ctx context.Context, c *websocket.Conn, sub *bus.Subscriber) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				c.Close(websocket.StatusGoingAway, "room closed")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.Write(writeCtx, websocket.MessageText, ev.Marshal())
			cancel()
			if err != nil {
				s.Logger.Warnf("failed to write event to socket: %v", err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				s.Logger.Warnf("ping failed, assuming disconnect: %v", err)
				return
			}
		}
	}
}

// discardReads drains inbound frames until the connection dies. Clients
// never self-notify over the socket; anything they send is dropped.
func (s *Server) discardReads(ctx context.Context, c *websocket.Conn, roomCode string) {
	for {
		if _, _, err := c.Read(ctx); err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				return
			}
			if strings.Contains(err.Error(), "context canceled") {
				return
			}
			s.Logger.Debugf("room %s: socket read ended: %v", roomCode, err)
			return
		}
	}
}
