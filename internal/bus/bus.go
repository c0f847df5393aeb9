// Package bus fans room events out to websocket subscribers. Delivery
// is best effort: a subscriber that stops draining its channel loses
// events rather than stalling the room.
package bus

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultBuffer is the per-subscriber channel depth.
const DefaultBuffer = 32

// Subscriber receives every event broadcast to one room. Read from C
// until it is closed.
type Subscriber struct {
	C chan Event

	room string
	once sync.Once
}

// Bus keys subscriber sets by room code.
type Bus struct {
	mu    sync.RWMutex
	rooms map[string]map[*Subscriber]struct{}
}

func New() *Bus {
	return &Bus{rooms: make(map[string]map[*Subscriber]struct{})}
}

// Subscribe registers a new listener for a room. The buffer bounds how
// far the listener may lag before events are dropped; pass 0 for
// DefaultBuffer.
func (b *Bus) Subscribe(roomCode string, buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	sub := &Subscriber{C: make(chan Event, buffer), room: roomCode}

	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.rooms[roomCode]
	if !ok {
		set = make(map[*Subscriber]struct{})
		b.rooms[roomCode] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Unsubscribe detaches the listener and closes its channel. Safe to
// call more than once.
func (b *Bus) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	if set, ok := b.rooms[sub.room]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.rooms, sub.room)
		}
	}
	b.mu.Unlock()

	sub.once.Do(func() { close(sub.C) })
}

// Broadcast delivers ev to every current subscriber of the room. Sends
// never block: a full subscriber buffer drops the event for that
// subscriber only.
func (b *Bus) Broadcast(roomCode string, ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.rooms[roomCode] {
		select {
		case sub.C <- ev:
		default:
			logrus.WithFields(logrus.Fields{
				"room_code": roomCode,
				"type":      ev.Type,
			}).Warn("subscriber buffer full, dropping event")
		}
	}
}

// Subscribers reports how many listeners a room currently has.
func (b *Bus) Subscribers(roomCode string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms[roomCode])
}

// CloseRoom drops every subscriber of a room, closing their channels.
// Used when a room is swept.
func (b *Bus) CloseRoom(roomCode string) {
	b.mu.Lock()
	set := b.rooms[roomCode]
	delete(b.rooms, roomCode)
	b.mu.Unlock()

	for sub := range set {
		sub.once.Do(func() { close(sub.C) })
	}
}
