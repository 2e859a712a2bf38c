// Package realtime implements the WebSocket gateway of College Hub: connection
// lifecycle, conversation rooms, presence tracking, typing indicators, and the
// fan-out of chat events to connected clients.
//
// One WebSocket connection per identity; a newer connection for the same
// identity supersedes and closes the older one. Per-conversation event order
// is preserved: each connection dispatches its inbound frames sequentially and
// each recipient drains a single ordered send queue.
package realtime

import "encoding/json"

// ══════════════════════════════════════════════════════════════════════════════
// WIRE PROTOCOL
// ══════════════════════════════════════════════════════════════════════════════

// Client-to-server event names.
const (
	EventConversationJoin  = "conversation:join"
	EventConversationLeave = "conversation:leave"
	EventMessageSend       = "message:send"
	EventMessageRead       = "message:read"
	EventTypingStart       = "typing:start"
	EventTypingStop        = "typing:stop"
)

// Server-to-client event names.
const (
	EventMessageNew  = "message:new"
	EventMessageSeen = "message:read"
	EventTypingUser  = "typing:user"
	EventUserOnline  = "user:online"
	EventUserOffline = "user:offline"
	EventError       = "error"
)

// Envelope is the frame format in both directions: an event name plus an
// event-specific JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinPayload is the payload of conversation:join and conversation:leave.
type JoinPayload struct {
	ConversationID string `json:"conversation_id"`
}

// SendPayload is the payload of message:send.
type SendPayload struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

// ReadPayload is the payload of message:read.
type ReadPayload struct {
	ConversationID string   `json:"conversation_id"`
	MessageIDs     []string `json:"message_ids"`
}

// TypingPayload is the payload of typing:start and typing:stop.
type TypingPayload struct {
	ConversationID string `json:"conversation_id"`
}

// MessagePayload is the payload of message:new.
type MessagePayload struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at"`
}

// ReadReceiptPayload is the payload of the outbound message:read.
type ReadReceiptPayload struct {
	ConversationID string   `json:"conversation_id"`
	ReaderID       string   `json:"reader_id"`
	MessageIDs     []string `json:"message_ids"`
}

// TypingEventPayload is the payload of typing:user.
type TypingEventPayload struct {
	ConversationID string `json:"conversation_id"`
	Identity       string `json:"identity"`
	Typing         bool   `json:"typing"`
}

// PresencePayload is the payload of user:online and user:offline.
type PresencePayload struct {
	Identity string `json:"identity"`
}

// ErrorPayload is the payload of error frames.
type ErrorPayload struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}

// marshalEvent builds an outbound frame. Marshal failures cannot happen for
// the payload types above, so the error is swallowed.
func marshalEvent(event string, payload interface{}) []byte {
	data, _ := json.Marshal(payload)
	frame, _ := json.Marshal(Envelope{Event: event, Data: data})
	return frame
}
