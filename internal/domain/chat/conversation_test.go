package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPairKey_OrderIndependent(t *testing.T) {
	assert.Equal(t, PairKey("alice", "bob"), PairKey("bob", "alice"))
	assert.Equal(t, "alice:bob", PairKey("bob", "alice"))
}

func TestNewConversation(t *testing.T) {
	conv, err := NewConversation("conv-1", "bob", "alice")

	assert.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, conv.Participants)
	assert.True(t, conv.HasParticipant("alice"))
	assert.True(t, conv.HasParticipant("bob"))
	assert.False(t, conv.HasParticipant("carol"))
}

func TestNewConversation_Rejections(t *testing.T) {
	_, err := NewConversation("conv-1", "alice", "alice")
	assert.ErrorIs(t, err, ErrSelfConversation)

	_, err = NewConversation("conv-1", "", "bob")
	assert.ErrorIs(t, err, ErrEmptyParticipant)

	_, err = NewConversation("", "alice", "bob")
	assert.Error(t, err)
}

func TestConversation_RemoveParticipant(t *testing.T) {
	conv, _ := NewConversation("conv-1", "alice", "bob")

	// A two-party conversation with one member left should be deleted.
	shouldDelete, err := conv.RemoveParticipant("alice")
	assert.NoError(t, err)
	assert.True(t, shouldDelete)
	assert.Equal(t, []string{"bob"}, conv.Participants)

	_, err = conv.RemoveParticipant("alice")
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestConversation_RecordLastMessage(t *testing.T) {
	conv, _ := NewConversation("conv-1", "alice", "bob")
	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	conv.RecordLastMessage("hello", "alice", t2)
	assert.Equal(t, "hello", conv.LastMessage.Content)

	// An older message never overwrites a newer pointer.
	conv.RecordLastMessage("stale", "bob", t1)
	assert.Equal(t, "hello", conv.LastMessage.Content)
	assert.Equal(t, "alice", conv.LastMessage.SenderID)

	// Equal timestamps are last-write-wins.
	conv.RecordLastMessage("rewrite", "bob", t2)
	assert.Equal(t, "rewrite", conv.LastMessage.Content)
}
