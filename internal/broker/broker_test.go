package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	b := NewBroker()

	first := b.Subscribe("consultation_1")
	second := b.Subscribe("consultation_1")
	other := b.Subscribe("consultation_2")

	b.Publish("consultation_1", "hello")

	for _, ch := range []<-chan interface{}{first, second} {
		select {
		case msg := <-ch:
			assert.Equal(t, "hello", msg)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the message")
		}
	}

	select {
	case msg := <-other:
		t.Fatalf("unrelated topic received %v", msg)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()

	ch := b.Subscribe("consultation_1")
	b.Unsubscribe("consultation_1", ch)

	_, open := <-ch
	assert.False(t, open)

	// Publishing to a topic with no subscribers is a no-op.
	b.Publish("consultation_1", "nobody home")
}

func TestPublishNeverBlocks(t *testing.T) {
	b := NewBroker()

	ch := b.Subscribe("consultation_1")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*2; i++ {
			b.Publish("consultation_1", i)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a saturated subscriber")
	}

	// The buffer holds the first events; the overflow was dropped.
	require.Len(t, ch, subscriberBuffer)
	assert.Equal(t, 0, <-ch)
}
