package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/college-hub/internal/domain/chat"
	"github.com/campus-hub/college-hub/internal/domain/shared"
	"github.com/campus-hub/college-hub/pkg/timeutil"
)

func chatSetup(t *testing.T) (*fakeConversationRepo, *fakeMessageRepo, *chat.Conversation) {
	t.Helper()
	conv, err := chat.NewConversation("conv-1", "alice", "bob")
	require.NoError(t, err)
	return newFakeConversationRepo(conv), newFakeMessageRepo(), conv
}

func TestSendMessage_HappyPath(t *testing.T) {
	conversations, messages, conv := chatSetup(t)
	bus := &capturingBus{}
	asOf := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	h := NewSendMessageHandler(conversations, messages, &seqIDs{}, timeutil.NewManualClock(asOf), bus)
	result, err := h.Handle(context.Background(), SendMessageCommand{
		ConversationID: conv.ID, SenderID: "alice", Content: "  hello bob  ",
	})

	require.NoError(t, err)
	assert.Equal(t, "hello bob", result.Message.Content)
	assert.Equal(t, asOf, result.Message.CreatedAt)
	assert.True(t, result.Message.IsReadBy("alice"))

	// The conversation's last-message pointer moved.
	stored, _ := conversations.GetByID(context.Background(), conv.ID)
	require.NotNil(t, stored.LastMessage)
	assert.Equal(t, "hello bob", stored.LastMessage.Content)
	assert.Equal(t, "alice", stored.LastMessage.SenderID)

	assert.Equal(t, []shared.EventType{shared.EventMessageSent}, bus.types())
}

func TestSendMessage_NonParticipantRejected(t *testing.T) {
	conversations, messages, conv := chatSetup(t)

	h := NewSendMessageHandler(conversations, messages, &seqIDs{}, timeutil.NewManualClock(time.Now()), nil)
	_, err := h.Handle(context.Background(), SendMessageCommand{
		ConversationID: conv.ID, SenderID: "mallory", Content: "hi",
	})

	assert.ErrorIs(t, err, shared.ErrUnauthorized)
	assert.ErrorIs(t, err, chat.ErrNotParticipant)
}

func TestSendMessage_EmptyContentRejected(t *testing.T) {
	conversations, messages, conv := chatSetup(t)

	h := NewSendMessageHandler(conversations, messages, &seqIDs{}, timeutil.NewManualClock(time.Now()), nil)
	_, err := h.Handle(context.Background(), SendMessageCommand{
		ConversationID: conv.ID, SenderID: "alice", Content: "   ",
	})

	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.ErrorIs(t, err, chat.ErrEmptyContent)
}

func TestSendMessage_UnknownConversation(t *testing.T) {
	conversations, messages, _ := chatSetup(t)

	h := NewSendMessageHandler(conversations, messages, &seqIDs{}, timeutil.NewManualClock(time.Now()), nil)
	_, err := h.Handle(context.Background(), SendMessageCommand{
		ConversationID: "ghost", SenderID: "alice", Content: "hi",
	})

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestStartConversation_CreateThenReuse(t *testing.T) {
	conversations := newFakeConversationRepo()
	bus := &capturingBus{}

	h := NewStartConversationHandler(conversations, &seqIDs{}, bus)

	first, err := h.Handle(context.Background(), StartConversationCommand{InitiatorID: "alice", PeerID: "bob"})
	require.NoError(t, err)
	assert.True(t, first.Created)

	// Same pair in the other order resolves to the same conversation.
	second, err := h.Handle(context.Background(), StartConversationCommand{InitiatorID: "bob", PeerID: "alice"})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Conversation.ID, second.Conversation.ID)

	// Only the creation publishes an event.
	assert.Equal(t, []shared.EventType{shared.EventConversationStarted}, bus.types())
}

func TestStartConversation_SelfRejected(t *testing.T) {
	h := NewStartConversationHandler(newFakeConversationRepo(), &seqIDs{}, nil)

	_, err := h.Handle(context.Background(), StartConversationCommand{InitiatorID: "alice", PeerID: "alice"})

	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.ErrorIs(t, err, chat.ErrSelfConversation)
}

func TestMarkMessagesRead(t *testing.T) {
	conversations, messages, conv := chatSetup(t)
	asOf := time.Now()

	msg1, _ := chat.NewMessage("msg-1", conv.ID, "alice", "first", asOf)
	msg2, _ := chat.NewMessage("msg-2", conv.ID, "alice", "second", asOf)
	require.NoError(t, messages.Create(context.Background(), msg1))
	require.NoError(t, messages.Create(context.Background(), msg2))

	h := NewMarkMessagesReadHandler(conversations, messages, nil)

	result, err := h.Handle(context.Background(), MarkMessagesReadCommand{
		ConversationID: conv.ID, ReaderID: "bob", MessageIDs: []string{"msg-1", "msg-2"},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"msg-1", "msg-2"}, result.UpdatedIDs)

	// Read sets only grow; the repeat reports zero updates.
	result, err = h.Handle(context.Background(), MarkMessagesReadCommand{
		ConversationID: conv.ID, ReaderID: "bob", MessageIDs: []string{"msg-1", "msg-2"},
	})
	require.NoError(t, err)
	assert.Empty(t, result.UpdatedIDs)
}

func TestMarkMessagesRead_NonParticipantRejected(t *testing.T) {
	conversations, messages, conv := chatSetup(t)

	h := NewMarkMessagesReadHandler(conversations, messages, nil)
	_, err := h.Handle(context.Background(), MarkMessagesReadCommand{
		ConversationID: conv.ID, ReaderID: "mallory", MessageIDs: []string{"msg-1"},
	})

	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestLeaveConversation_DeletesWhenOneRemains(t *testing.T) {
	conversations, _, conv := chatSetup(t)
	bus := &capturingBus{}

	h := NewLeaveConversationHandler(conversations, bus)
	result, err := h.Handle(context.Background(), LeaveConversationCommand{
		ConversationID: conv.ID, ParticipantID: "alice",
	})

	require.NoError(t, err)
	assert.True(t, result.Deleted)

	_, err = conversations.GetByID(context.Background(), conv.ID)
	assert.ErrorIs(t, err, chat.ErrConversationNotFound)

	assert.Equal(t, []shared.EventType{shared.EventConversationLeft}, bus.types())
}

func TestLeaveConversation_NonParticipantRejected(t *testing.T) {
	conversations, _, conv := chatSetup(t)

	h := NewLeaveConversationHandler(conversations, nil)
	_, err := h.Handle(context.Background(), LeaveConversationCommand{
		ConversationID: conv.ID, ParticipantID: "mallory",
	})

	assert.ErrorIs(t, err, shared.ErrUnauthorized)
	assert.ErrorIs(t, err, chat.ErrNotParticipant)
}
