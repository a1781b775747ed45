package store

import "fmt"

// Key conventions shared with external subscribers and tooling. Any change
// here is a wire-format change for every process reading the same store.

// RoomPlayersKey returns the set key holding a room's member identifiers.
func RoomPlayersKey(roomID string) string {
	return fmt.Sprintf("room:%s:players", roomID)
}

// MatchmakingQueueKey is the list key backing the matchmaking FIFO.
const MatchmakingQueueKey = "matchmaking:queue"

// GameStateKey returns the hash key holding a room's player attributes.
// Fields are named "<playerId>:x", "<playerId>:y", and "<playerId>:health".
func GameStateKey(roomID string) string {
	return fmt.Sprintf("game:%s:state", roomID)
}

// GameEventsChannel returns the pub/sub channel carrying a room's
// action events as JSON payloads.
func GameEventsChannel(roomID string) string {
	return fmt.Sprintf("game:%s:events", roomID)
}

// StateField returns the hash field name for one player attribute.
func StateField(playerID, attr string) string {
	return fmt.Sprintf("%s:%s", playerID, attr)
}
