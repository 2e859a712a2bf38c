package command

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartConversation_ConcurrentStartsShareOneConversation(t *testing.T) {
	const starters = 8
	h := NewStartConversationHandler(newFakeConversationRepo(), &seqIDs{}, nil)

	results := make([]*StartConversationResult, starters)
	errs := make([]error, starters)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < starters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			// Half the starters open the pair from the other side.
			cmd := StartConversationCommand{InitiatorID: "alice", PeerID: "bob"}
			if i%2 == 1 {
				cmd = StartConversationCommand{InitiatorID: "bob", PeerID: "alice"}
			}
			results[i], errs[i] = h.Handle(context.Background(), cmd)
		}(i)
	}
	close(start)
	wg.Wait()

	// Exactly one starter created the conversation; everyone landed in it.
	created := 0
	for i := 0; i < starters; i++ {
		require.NoError(t, errs[i])
		if results[i].Created {
			created++
		}
		assert.Equal(t, results[0].Conversation.ID, results[i].Conversation.ID)
	}
	assert.Equal(t, 1, created)
}
