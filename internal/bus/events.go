package bus

import "encoding/json"

// EventType names a room lifecycle event carried over the wire.
type EventType string

const (
	EventPlayerJoined       EventType = "player_joined"
	EventGameStarted        EventType = "game_started"
	EventChoiceMade         EventType = "choice_made"
	EventTurnComplete       EventType = "turn_complete"
	EventGameFinished       EventType = "game_finished"
	EventStateUpdate        EventType = "state_update"
	EventPlayerDisconnected EventType = "player_disconnected"
)

var knownEvents = map[EventType]struct{}{
	EventPlayerJoined:       {},
	EventGameStarted:        {},
	EventChoiceMade:         {},
	EventTurnComplete:       {},
	EventGameFinished:       {},
	EventStateUpdate:        {},
	EventPlayerDisconnected: {},
}

// Event is the payload fanned out to every subscriber of a room.
// Nickname, PlayerID and Choice are set only where they make sense
// for the type.
type Event struct {
	Type     EventType `json:"type"`
	Nickname string    `json:"nickname,omitempty"`
	PlayerID string    `json:"player_id,omitempty"`
	Choice   string    `json:"choice,omitempty"`
}

// Marshal encodes the event for the wire. Events are small and fixed
// shape, so an encode failure is a programming error.
func (e Event) Marshal() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return []byte(`{"type":"` + string(e.Type) + `"}`)
	}
	return data
}

// ParseEvent decodes an incoming frame. It reports false for frames
// that are not valid JSON or carry an unrecognized type; callers drop
// those silently so old clients survive new server event types.
func ParseEvent(data []byte) (Event, bool) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, false
	}
	if _, ok := knownEvents[ev.Type]; !ok {
		return Event{}, false
	}
	return ev, true
}
