package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// A broadcaster may snapshot a client under the hub lock and call Send after
// the connection has already been torn down. That must drop the frame, never
// panic the process.
func TestClientSendAfterTeardownIsDropped(t *testing.T) {
	c := testClient("asha")
	close(c.done)

	assert.NotPanics(t, func() {
		c.Send([]byte(`{"event":"message:new"}`))
	})
	assert.Empty(t, drain(c))
}

func TestClientSendRacingTeardownDoesNotPanic(t *testing.T) {
	c := testClient("asha")
	frame := []byte(`{"event":"typing:user"}`)

	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			// Stay below sendQueueSize in total so the full-queue
			// disconnect path never triggers here.
			for j := 0; j < 30; j++ {
				c.Send(frame)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		close(c.done)
	}()

	assert.NotPanics(t, func() {
		close(start)
		wg.Wait()
	})
}
