package mqtt

import "log"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// offlineQueue holds messages published while the broker is away, oldest
// first, up to a fixed capacity. When full the oldest message is dropped.
//
// A retained message replaces any retained message already queued for the
// same topic: the broker would only keep the newest one anyway.
//
// Not safe for concurrent use; RealPublisher guards it with its mutex.
type offlineQueue struct {
	msgs     []bufferedMsg
	capacity int
	dropped  int // messages lost to overflow since the last drain
}

func newOfflineQueue(capacity int) *offlineQueue {
	return &offlineQueue{
		msgs:     make([]bufferedMsg, 0, capacity),
		capacity: capacity,
	}
}

func (q *offlineQueue) push(msg bufferedMsg) {
	if msg.retained {
		for i, m := range q.msgs {
			if m.retained && m.topic == msg.topic {
				q.remove(i)
				break
			}
		}
	}
	if len(q.msgs) == q.capacity {
		if q.dropped == 0 {
			log.Printf("mqtt: offline buffer full (%d messages), dropping oldest", q.capacity)
		}
		q.remove(0)
		q.dropped++
	}
	q.msgs = append(q.msgs, msg)
}

// remove deletes the message at i, keeping order.
func (q *offlineQueue) remove(i int) {
	copy(q.msgs[i:], q.msgs[i+1:])
	q.msgs[len(q.msgs)-1] = bufferedMsg{}
	q.msgs = q.msgs[:len(q.msgs)-1]
}

// drain returns the queued messages in publish order along with how many
// were dropped, and empties the queue.
func (q *offlineQueue) drain() ([]bufferedMsg, int) {
	dropped := q.dropped
	q.dropped = 0
	if len(q.msgs) == 0 {
		return nil, dropped
	}

	out := make([]bufferedMsg, len(q.msgs))
	copy(out, q.msgs)
	for i := range q.msgs {
		q.msgs[i] = bufferedMsg{}
	}
	q.msgs = q.msgs[:0]
	return out, dropped
}

func (q *offlineQueue) len() int {
	return len(q.msgs)
}
