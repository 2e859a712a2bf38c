package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/campus-hub/college-hub/internal/application/command"
	"github.com/campus-hub/college-hub/internal/domain/chat"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVENT ROUTER
// ══════════════════════════════════════════════════════════════════════════════

// PresenceMirror replicates presence changes to a shared store so other
// instances see them. Implemented by the Redis presence store.
type PresenceMirror interface {
	SetOnline(ctx context.Context, identity string) error
	SetOffline(ctx context.Context, identity string) error
}

// Router dispatches inbound client events to the application layer and fans
// the results back out through the hub.
type Router struct {
	hub      *Hub
	presence *PresenceTracker
	mirror   PresenceMirror

	conversations chat.ConversationRepository
	sendMessage   *command.SendMessageHandler
	markRead      *command.MarkMessagesReadHandler

	logger *slog.Logger
}

// NewRouter creates a new Router. The mirror may be nil in single-instance
// deployments.
func NewRouter(
	hub *Hub,
	presence *PresenceTracker,
	mirror PresenceMirror,
	conversations chat.ConversationRepository,
	sendMessage *command.SendMessageHandler,
	markRead *command.MarkMessagesReadHandler,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		hub:           hub,
		presence:      presence,
		mirror:        mirror,
		conversations: conversations,
		sendMessage:   sendMessage,
		markRead:      markRead,
		logger:        logger,
	}
}

// connected registers the connection, closing any superseded one, and
// announces the identity coming online.
func (r *Router) connected(ctx context.Context, c *Client) {
	superseded := r.presence.Register(c.identity, c)
	if superseded != nil {
		superseded.Close()
	}

	if r.mirror != nil {
		if err := r.mirror.SetOnline(ctx, c.identity); err != nil {
			r.logger.Warn("presence mirror set online failed", "identity", c.identity, "error", err)
		}
	}

	if superseded == nil {
		r.hub.Broadcast(marshalEvent(EventUserOnline, PresencePayload{Identity: c.identity}))
	}
}

// disconnected is called once per connection from Client.Close. The offline
// announcement only fires when the identity truly went offline; a superseded
// connection closing does not take the fresh one's presence down.
func (r *Router) disconnected(c *Client) {
	r.hub.LeaveAll(c)

	if !r.presence.Unregister(c.identity, c) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if r.mirror != nil {
		if err := r.mirror.SetOffline(ctx, c.identity); err != nil {
			r.logger.Warn("presence mirror set offline failed", "identity", c.identity, "error", err)
		}
	}

	r.hub.Broadcast(marshalEvent(EventUserOffline, PresencePayload{Identity: c.identity}))
}

// Dispatch routes a single inbound frame.
func (r *Router) Dispatch(ctx context.Context, c *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		r.sendError(c, "", "malformed frame")
		return
	}

	switch env.Event {
	case EventConversationJoin:
		r.handleJoin(ctx, c, env.Data)
	case EventConversationLeave:
		r.handleLeave(c, env.Data)
	case EventMessageSend:
		r.handleSend(ctx, c, env.Data)
	case EventMessageRead:
		r.handleRead(ctx, c, env.Data)
	case EventTypingStart:
		r.handleTyping(c, env.Data, true)
	case EventTypingStop:
		r.handleTyping(c, env.Data, false)
	default:
		r.sendError(c, env.Event, "unknown event")
	}
}

func (r *Router) handleJoin(ctx context.Context, c *Client, data json.RawMessage) {
	var p JoinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ConversationID == "" {
		r.sendError(c, EventConversationJoin, "conversation_id is required")
		return
	}

	conv, err := r.conversations.GetByID(ctx, p.ConversationID)
	if err != nil {
		r.sendError(c, EventConversationJoin, "conversation not found")
		return
	}
	if !conv.HasParticipant(c.identity) {
		r.sendError(c, EventConversationJoin, "not a participant")
		return
	}

	r.hub.Join(conv.ID, c)
}

func (r *Router) handleLeave(c *Client, data json.RawMessage) {
	var p JoinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ConversationID == "" {
		r.sendError(c, EventConversationLeave, "conversation_id is required")
		return
	}
	r.hub.Leave(p.ConversationID, c)
}

func (r *Router) handleSend(ctx context.Context, c *Client, data json.RawMessage) {
	var p SendPayload
	if err := json.Unmarshal(data, &p); err != nil {
		r.sendError(c, EventMessageSend, "malformed payload")
		return
	}

	result, err := r.sendMessage.Handle(ctx, command.SendMessageCommand{
		ConversationID: p.ConversationID,
		SenderID:       c.identity,
		Content:        p.Content,
	})
	if err != nil {
		r.logger.Warn("message send rejected",
			"identity", c.identity,
			"conversation_id", p.ConversationID,
			"error", err,
		)
		r.sendError(c, EventMessageSend, "message rejected")
		return
	}

	msg := result.Message
	frame := marshalEvent(EventMessageNew, MessagePayload{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	})

	// Reach room members and online participants who have not joined the
	// room. The send handler already verified membership.
	participants := []string{}
	if conv, err := r.conversations.GetByID(ctx, msg.ConversationID); err == nil {
		participants = conv.Participants
	}
	r.hub.EmitToConversation(msg.ConversationID, participants, frame)
}

func (r *Router) handleRead(ctx context.Context, c *Client, data json.RawMessage) {
	var p ReadPayload
	if err := json.Unmarshal(data, &p); err != nil {
		r.sendError(c, EventMessageRead, "malformed payload")
		return
	}

	result, err := r.markRead.Handle(ctx, command.MarkMessagesReadCommand{
		ConversationID: p.ConversationID,
		ReaderID:       c.identity,
		MessageIDs:     p.MessageIDs,
	})
	if err != nil {
		r.sendError(c, EventMessageRead, "read update rejected")
		return
	}
	if len(result.UpdatedIDs) == 0 {
		return
	}

	r.hub.EmitToRoom(p.ConversationID, marshalEvent(EventMessageSeen, ReadReceiptPayload{
		ConversationID: p.ConversationID,
		ReaderID:       c.identity,
		MessageIDs:     result.UpdatedIDs,
	}), nil)
}

// handleTyping relays typing indicators to the room. Ephemeral: nothing is
// persisted, and a connection must have joined the room to emit them.
func (r *Router) handleTyping(c *Client, data json.RawMessage, typing bool) {
	var p TypingPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ConversationID == "" {
		return
	}
	if !r.hub.InRoom(p.ConversationID, c) {
		return
	}

	r.hub.EmitToRoom(p.ConversationID, marshalEvent(EventTypingUser, TypingEventPayload{
		ConversationID: p.ConversationID,
		Identity:       c.identity,
		Typing:         typing,
	}), c)
}

func (r *Router) sendError(c *Client, event, message string) {
	c.Send(marshalEvent(EventError, ErrorPayload{Event: event, Message: message}))
}
