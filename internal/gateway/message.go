package gateway

import (
	"encoding/json"

	"github.com/arenalabs/arena/internal/game/state"
)

// Message is the wire envelope used in both directions:
// {"type": <string>, "payload": <object>}.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Inbound message kinds.
const (
	// TypeEcho requests the payload be sent straight back.
	TypeEcho = "ECHO"
	// TypeJoin adds the sender to a room.
	TypeJoin = "JOIN"
	// TypeLeave removes the sender from a room.
	TypeLeave = "LEAVE"
	// TypeChat relays the payload to the other members of a room.
	TypeChat = "CHAT"
	// TypeMatchStart enqueues the sender for matchmaking.
	TypeMatchStart = "MATCH_START"
	// TypePlayerAction applies a gameplay action to a room.
	TypePlayerAction = "PLAYER_ACTION"
)

// Outbound message kinds.
const (
	// TypeEchoReply carries an ECHO payload back to its sender.
	TypeEchoReply = "echo"
	// TypeServer wraps relayed chat/room traffic in a server-origin envelope.
	TypeServer = "server"
	// TypeMatchFound notifies matched players of their new room.
	TypeMatchFound = "match_start"
	// TypeStateUpdate carries the full player-state view of a room.
	TypeStateUpdate = "state_update"
)

// RoomPayload is the inbound payload of JOIN, LEAVE, and CHAT.
type RoomPayload struct {
	Room string `json:"room"`
}

// ActionPayload is the inbound payload of PLAYER_ACTION.
type ActionPayload struct {
	Room   string       `json:"room"`
	Action state.Action `json:"action"`
}

// MatchStartPayload is the outbound payload of match_start.
type MatchStartPayload struct {
	Room    string   `json:"room"`
	Players []string `json:"players"`
}

// StateUpdatePayload is the outbound payload of state_update.
type StateUpdatePayload struct {
	Players []state.PlayerState `json:"players"`
}

// NewMessage builds an envelope around a JSON-marshalable payload.
func NewMessage(kind string, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: kind, Payload: raw}, nil
}
