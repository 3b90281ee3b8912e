package mqtt

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// doneToken is a paho.Token that has already completed.
type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }

func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// fakeClient records publishes. Methods the publisher does not use are left
// to the embedded nil interface.
type fakeClient struct {
	paho.Client

	open atomic.Bool

	mu        sync.Mutex
	published []string

	// onPublish, if set, runs after each publish is recorded.
	onPublish func(n int)
}

func (c *fakeClient) IsConnectionOpen() bool { return c.open.Load() }

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	var body string
	switch b := payload.(type) {
	case []byte:
		body = string(b)
	case string:
		body = b
	}

	c.mu.Lock()
	c.published = append(c.published, body)
	n := len(c.published)
	hook := c.onPublish
	c.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return doneToken{}
}

func (c *fakeClient) Published() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.published...)
}

func newTestPublisher(c *fakeClient) *RealPublisher {
	return &RealPublisher{client: c, topic: Topic, buf: newOfflineQueue(bufferCapacity)}
}

func assertOrder(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("published %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("published %v, want %v", got, want)
		}
	}
}

func TestSendQueuesWhileDisconnected(t *testing.T) {
	c := &fakeClient{}
	p := newTestPublisher(c)

	for i := 0; i < 3; i++ {
		if err := p.send(eventMsg(i)); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	if got := c.Published(); len(got) != 0 {
		t.Fatalf("published while disconnected: %v", got)
	}

	c.open.Store(true)
	p.flush()

	assertOrder(t, c.Published(), "change-0", "change-1", "change-2")
	if p.buf.len() != 0 {
		t.Errorf("queue not empty after flush: %d", p.buf.len())
	}
}

func TestSendPublishesDirectlyWhenConnected(t *testing.T) {
	c := &fakeClient{}
	c.open.Store(true)
	p := newTestPublisher(c)

	if err := p.send(eventMsg(7)); err != nil {
		t.Fatalf("send: %v", err)
	}
	assertOrder(t, c.Published(), "change-7")
}

func TestSendDuringReplayGoesAfterQueued(t *testing.T) {
	c := &fakeClient{}
	p := newTestPublisher(c)

	p.send(eventMsg(0))
	p.send(eventMsg(1))

	c.open.Store(true)
	c.onPublish = func(n int) {
		// A fresh event arrives while the first queued one is on the wire.
		if n == 1 {
			p.send(eventMsg(2))
		}
	}
	p.flush()

	assertOrder(t, c.Published(), "change-0", "change-1", "change-2")
	if p.buf.len() != 0 {
		t.Errorf("message stranded in queue: %d left", p.buf.len())
	}

	c.onPublish = nil
	p.send(eventMsg(3))
	assertOrder(t, c.Published(), "change-0", "change-1", "change-2", "change-3")
}

func TestSendWaitsForPendingFlush(t *testing.T) {
	c := &fakeClient{}
	p := newTestPublisher(c)

	p.send(eventMsg(0))

	// Connected, but the connect handler has not replayed yet.
	c.open.Store(true)
	p.send(eventMsg(1))
	if got := c.Published(); len(got) != 0 {
		t.Fatalf("published ahead of the queue: %v", got)
	}

	p.flush()
	assertOrder(t, c.Published(), "change-0", "change-1")
}

func TestSendAndFlushConcurrent(t *testing.T) {
	const n = 200
	c := &fakeClient{}
	p := newTestPublisher(c)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			p.send(eventMsg(i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 5; i++ {
			c.open.Store(false)
			time.Sleep(100 * time.Microsecond)
			c.open.Store(true)
			p.flush()
		}
	}()
	wg.Wait()

	c.open.Store(true)
	p.flush()

	got := c.Published()
	if len(got) != n {
		t.Fatalf("published %d messages, want %d", len(got), n)
	}
	for i, body := range got {
		if want := fmt.Sprintf("change-%d", i); body != want {
			t.Fatalf("message %d: got %q, want %q", i, body, want)
		}
	}
}
