package mqtt

import (
	"fmt"
	"testing"
)

func eventMsg(n int) bufferedMsg {
	return bufferedMsg{topic: Topic, payload: []byte(fmt.Sprintf("change-%d", n)), qos: 1}
}

func payloads(msgs []bufferedMsg) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = string(m.payload)
	}
	return out
}

func TestOfflineQueueEmptyDrain(t *testing.T) {
	q := newOfflineQueue(4)
	msgs, dropped := q.drain()
	if msgs != nil {
		t.Errorf("expected nil from empty drain, got %v", msgs)
	}
	if dropped != 0 {
		t.Errorf("dropped: got %d, want 0", dropped)
	}
}

func TestOfflineQueueKeepsOrder(t *testing.T) {
	q := newOfflineQueue(4)
	for i := 0; i < 3; i++ {
		q.push(eventMsg(i))
	}

	msgs, dropped := q.drain()
	got := payloads(msgs)
	want := []string{"change-0", "change-1", "change-2"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if dropped != 0 {
		t.Errorf("dropped: got %d, want 0", dropped)
	}
	if q.len() != 0 {
		t.Errorf("len after drain: got %d, want 0", q.len())
	}
}

func TestOfflineQueueOverflowDropsOldest(t *testing.T) {
	q := newOfflineQueue(3)
	for i := 0; i < 5; i++ {
		q.push(eventMsg(i))
	}
	if q.len() != 3 {
		t.Errorf("len: got %d, want 3", q.len())
	}

	msgs, dropped := q.drain()
	want := []string{"change-2", "change-3", "change-4"}
	if fmt.Sprint(payloads(msgs)) != fmt.Sprint(want) {
		t.Errorf("got %v, want %v", payloads(msgs), want)
	}
	if dropped != 2 {
		t.Errorf("dropped: got %d, want 2", dropped)
	}

	// The count resets with each drain
	q.push(eventMsg(9))
	if _, dropped := q.drain(); dropped != 0 {
		t.Errorf("dropped after second drain: got %d, want 0", dropped)
	}
}

func TestOfflineQueueRetainedReplacesSameTopic(t *testing.T) {
	q := newOfflineQueue(8)
	q.push(bufferedMsg{topic: TopicSystem, payload: []byte("STARTUP"), qos: 1, retained: true})
	q.push(eventMsg(0))
	q.push(bufferedMsg{topic: TopicSystem, payload: []byte("HEARTBEAT"), qos: 1})
	q.push(bufferedMsg{topic: TopicSystem, payload: []byte("SHUTDOWN"), qos: 1, retained: true})

	msgs, _ := q.drain()
	want := []string{"change-0", "HEARTBEAT", "SHUTDOWN"}
	if fmt.Sprint(payloads(msgs)) != fmt.Sprint(want) {
		t.Errorf("got %v, want %v", payloads(msgs), want)
	}
}

func TestOfflineQueueRetainedOtherTopicKept(t *testing.T) {
	q := newOfflineQueue(8)
	q.push(bufferedMsg{topic: TopicSystem, payload: []byte("a"), retained: true})
	q.push(bufferedMsg{topic: Topic, payload: []byte("b"), retained: true})

	if q.len() != 2 {
		t.Errorf("len: got %d, want 2", q.len())
	}
}

func TestOfflineQueueRetainedReplaceFreesSlot(t *testing.T) {
	q := newOfflineQueue(2)
	q.push(bufferedMsg{topic: TopicSystem, payload: []byte("STARTUP"), retained: true})
	q.push(eventMsg(0))
	q.push(bufferedMsg{topic: TopicSystem, payload: []byte("SHUTDOWN"), retained: true})

	msgs, dropped := q.drain()
	if dropped != 0 {
		t.Errorf("dropped: got %d, want 0", dropped)
	}
	want := []string{"change-0", "SHUTDOWN"}
	if fmt.Sprint(payloads(msgs)) != fmt.Sprint(want) {
		t.Errorf("got %v, want %v", payloads(msgs), want)
	}
}

func TestOfflineQueueMultipleCycles(t *testing.T) {
	q := newOfflineQueue(3)
	for cycle := 0; cycle < 4; cycle++ {
		for i := 0; i < 4; i++ {
			q.push(eventMsg(cycle*10 + i))
		}
		msgs, dropped := q.drain()
		if len(msgs) != 3 || dropped != 1 {
			t.Fatalf("cycle %d: got %d msgs dropped=%d, want 3 and 1", cycle, len(msgs), dropped)
		}
		if got := string(msgs[0].payload); got != fmt.Sprintf("change-%d", cycle*10+1) {
			t.Errorf("cycle %d: oldest got %q", cycle, got)
		}
	}
}

func TestOfflineQueuePreservesFields(t *testing.T) {
	q := newOfflineQueue(2)
	in := bufferedMsg{topic: TopicSystem, payload: []byte(`{"system":{}}`), qos: 1, retained: true}
	q.push(in)

	msgs, _ := q.drain()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	got := msgs[0]
	if got.topic != in.topic || string(got.payload) != string(in.payload) || got.qos != in.qos || got.retained != in.retained {
		t.Errorf("got %+v, want %+v", got, in)
	}
}

func TestOfflineQueueDrainCopies(t *testing.T) {
	q := newOfflineQueue(2)
	q.push(eventMsg(1))
	msgs, _ := q.drain()

	q.push(eventMsg(2))
	if string(msgs[0].payload) != "change-1" {
		t.Errorf("drained message overwritten: %q", msgs[0].payload)
	}
}
