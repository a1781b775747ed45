// Package gateway owns the live connection registry and dispatches inbound
// client messages to the coordination services: room membership, matchmaking,
// and per-room game state. It also carries the websocket transport and the
// broadcaster that fans state changes back out to connected room members.
package gateway

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/arenalabs/arena/internal/game/matchmaking"
	"github.com/arenalabs/arena/internal/game/room"
	"github.com/arenalabs/arena/internal/game/state"
)

// Gateway parses inbound messages and routes them by kind. Malformed or
// unrecognized messages are logged and dropped; the connection stays open and
// no error response is produced.
type Gateway struct {
	conns       *Registry
	rooms       *room.Registry
	queue       *matchmaking.Queue
	states      *state.Store
	broadcaster *Broadcaster
	logger      *zap.Logger
	roomSize    int
}

// NewGateway creates a Gateway.
//
// Precondition: all dependencies must be non-nil; roomSize must be >= 2.
func NewGateway(
	conns *Registry,
	rooms *room.Registry,
	queue *matchmaking.Queue,
	states *state.Store,
	broadcaster *Broadcaster,
	roomSize int,
	logger *zap.Logger,
) *Gateway {
	return &Gateway{
		conns:       conns,
		rooms:       rooms,
		queue:       queue,
		states:      states,
		broadcaster: broadcaster,
		logger:      logger,
		roomSize:    roomSize,
	}
}

// OnConnect registers a freshly accepted connection.
func (g *Gateway) OnConnect(conn Conn) {
	g.conns.Add(conn)
	g.logger.Info("client connected", zap.String("conn_id", conn.ID()))
}

// OnDisconnect deregisters the connection identifier from the live map.
// Room and queue membership are left in place: the broadcaster skips absent
// connections, and membership is only released by an explicit LEAVE.
func (g *Gateway) OnDisconnect(connID string) {
	g.conns.Remove(connID)
	g.logger.Info("client disconnected", zap.String("conn_id", connID))
}

// OnMessage decodes one inbound frame from connID and dispatches it.
// Every failure is local to this message: it is logged, the message is
// dropped, and the connection remains open.
func (g *Gateway) OnMessage(ctx context.Context, connID string, raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		g.logger.Warn("invalid message dropped",
			zap.String("conn_id", connID),
			zap.Error(err),
		)
		return
	}

	var err error
	switch msg.Type {
	case TypeEcho:
		err = g.handleEcho(connID, msg.Payload)
	case TypeJoin:
		err = g.handleJoin(ctx, connID, msg.Payload)
	case TypeLeave:
		err = g.handleLeave(ctx, connID, msg.Payload)
	case TypeChat:
		err = g.handleChat(ctx, connID, msg.Payload)
	case TypeMatchStart:
		err = g.handleMatchStart(ctx, connID)
	case TypePlayerAction:
		err = g.handlePlayerAction(ctx, connID, msg.Payload)
	default:
		g.logger.Warn("unrecognized message kind dropped",
			zap.String("conn_id", connID),
			zap.String("type", msg.Type),
		)
		return
	}

	if err != nil {
		g.logger.Error("handling message",
			zap.String("conn_id", connID),
			zap.String("type", msg.Type),
			zap.Error(err),
		)
	}
}

// Conns exposes the live connection registry for the transport and the
// stats endpoint.
func (g *Gateway) Conns() *Registry { return g.conns }

// QueueDepth reports the current matchmaking queue length.
func (g *Gateway) QueueDepth(ctx context.Context) (int64, error) {
	return g.queue.Len(ctx)
}

func (g *Gateway) handleEcho(connID string, payload json.RawMessage) error {
	conn, ok := g.conns.Lookup(connID)
	if !ok {
		return nil
	}
	return conn.Send(Message{Type: TypeEchoReply, Payload: payload})
}

func (g *Gateway) handleJoin(ctx context.Context, connID string, payload json.RawMessage) error {
	var p RoomPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}
	if err := g.rooms.AddPlayers(ctx, p.Room, connID); err != nil {
		return err
	}
	// Late joiners to a room already in play start at the defaults so the
	// membership set and the state hash describe the same players.
	return g.states.EnsurePlayer(ctx, p.Room, connID)
}

func (g *Gateway) handleLeave(ctx context.Context, connID string, payload json.RawMessage) error {
	var p RoomPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}
	if err := g.rooms.RemovePlayers(ctx, p.Room, connID); err != nil {
		return err
	}
	return g.states.RemovePlayer(ctx, p.Room, connID)
}

func (g *Gateway) handleChat(ctx context.Context, connID string, payload json.RawMessage) error {
	var p RoomPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}
	return g.broadcaster.Relay(ctx, p.Room, connID, payload)
}

// handleMatchStart runs the matchmaking pipeline as one sequential chain:
// enqueue, attempt a match, initialize state, notify the matched players,
// push the first state view. A failed stage leaves the queue consistent
// (TryMatch re-enqueues internally) and aborts the rest of the chain.
func (g *Gateway) handleMatchStart(ctx context.Context, connID string) error {
	if err := g.queue.Enqueue(ctx, connID); err != nil {
		return err
	}

	roomID, err := g.queue.TryMatch(ctx, g.roomSize)
	if err != nil {
		return err
	}
	if roomID == "" {
		g.logger.Debug("queued for matchmaking", zap.String("conn_id", connID))
		return nil
	}

	players, err := g.rooms.Players(ctx, roomID)
	if err != nil {
		return err
	}
	if err := g.states.InitRoom(ctx, roomID, players...); err != nil {
		return err
	}

	g.logger.Info("match formed",
		zap.String("room", roomID),
		zap.Strings("players", players),
	)

	if err := g.broadcaster.NotifyMatch(ctx, roomID, players); err != nil {
		return err
	}
	return g.broadcaster.PushState(ctx, roomID)
}

func (g *Gateway) handlePlayerAction(ctx context.Context, connID string, payload json.RawMessage) error {
	var p ActionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}
	if err := g.states.Apply(ctx, p.Room, connID, p.Action); err != nil {
		return err
	}
	return g.broadcaster.PushState(ctx, p.Room)
}
