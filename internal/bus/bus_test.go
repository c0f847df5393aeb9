package bus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	b := New()
	s1 := b.Subscribe("ABC123", 0)
	s2 := b.Subscribe("ABC123", 0)
	other := b.Subscribe("XYZ789", 0)

	b.Broadcast("ABC123", Event{Type: EventPlayerJoined, Nickname: "Bob"})

	for _, sub := range []*Subscriber{s1, s2} {
		select {
		case ev := <-sub.C:
			assert.Equal(t, EventPlayerJoined, ev.Type)
			assert.Equal(t, "Bob", ev.Nickname)
		case <-time.After(time.Second):
			t.Fatal("subscriber never received the event")
		}
	}

	select {
	case ev := <-other.C:
		t.Fatalf("event leaked across rooms: %+v", ev)
	default:
	}
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	b := New()
	sub := b.Subscribe("ABC123", 1)

	b.Broadcast("ABC123", Event{Type: EventStateUpdate})
	b.Broadcast("ABC123", Event{Type: EventGameFinished}) // dropped, buffer is full

	ev := <-sub.C
	assert.Equal(t, EventStateUpdate, ev.Type)
	select {
	case ev := <-sub.C:
		t.Fatalf("expected the overflow event to be dropped, got %+v", ev)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	sub := b.Subscribe("ABC123", 0)

	b.Unsubscribe(sub)
	b.Unsubscribe(sub) // idempotent

	_, open := <-sub.C
	assert.False(t, open)
	assert.Equal(t, 0, b.Subscribers("ABC123"))

	// Broadcasting to a room with no listeners is a no-op.
	b.Broadcast("ABC123", Event{Type: EventStateUpdate})
}

func TestCloseRoom(t *testing.T) {
	b := New()
	s1 := b.Subscribe("ABC123", 0)
	s2 := b.Subscribe("ABC123", 0)

	b.CloseRoom("ABC123")

	_, open := <-s1.C
	assert.False(t, open)
	_, open = <-s2.C
	assert.False(t, open)
	assert.Equal(t, 0, b.Subscribers("ABC123"))
}

func TestConcurrentSubscribeBroadcastUnsubscribe(t *testing.T) {
	b := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := b.Subscribe("ABC123", 2)
			b.Broadcast("ABC123", Event{Type: EventStateUpdate})
			b.Unsubscribe(sub)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, b.Subscribers("ABC123"))
}

func TestParseEvent(t *testing.T) {
	ev, ok := ParseEvent([]byte(`{"type":"player_joined","nickname":"Bob"}`))
	require.True(t, ok)
	assert.Equal(t, EventPlayerJoined, ev.Type)
	assert.Equal(t, "Bob", ev.Nickname)

	_, ok = ParseEvent([]byte(`{"type":"confetti_burst"}`))
	assert.False(t, ok, "unknown event types are ignored")

	_, ok = ParseEvent([]byte(`not json`))
	assert.False(t, ok)

	_, ok = ParseEvent([]byte(`{}`))
	assert.False(t, ok)
}

func TestEventMarshalOmitsEmptyFields(t *testing.T) {
	data := Event{Type: EventGameStarted}.Marshal()
	assert.JSONEq(t, `{"type":"game_started"}`, string(data))
}
