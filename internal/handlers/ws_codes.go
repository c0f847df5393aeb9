package handlers

// Custom WebSocket close codes used by the room event socket. These
// give clients a more specific reason than the standard codes.
const (
	BadSubprotocolError  = 3000 // Client connected with an unsupported subprotocol.
	InvalidRoomCodeError = 3001 // Target room code in the WS URL does not exist.
	InvalidPlayerIDError = 3002 // player_id query parameter was malformed.
)
