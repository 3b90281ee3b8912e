package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/hx711-sensor/internal/logic"
)

// bufferCapacity is how many messages are kept while the broker is away.
const bufferCapacity = 256

// RealPublisher publishes to an actual MQTT broker.
// Messages published while disconnected are buffered and replayed, in
// order, once the connection comes back.
type RealPublisher struct {
	client paho.Client
	topic  string

	mu  sync.Mutex
	buf *offlineQueue
	// replaying is set while flush drains buf; sends queue behind it.
	replaying bool
}

// NewRealPublisher creates a publisher connected to the given broker.
// If the broker is not reachable within the connect timeout the publisher
// is still returned; paho keeps retrying and messages are buffered.
func NewRealPublisher(broker, clientID string) (*RealPublisher, error) {
	p := &RealPublisher{
		topic: Topic,
		buf:   newOfflineQueue(bufferCapacity),
	}

	will, err := FormatSystemPayload(SystemEvent{Event: "OFFLINE"})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(func(paho.Client) { p.flush() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, buffering", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// Publish sends a load change event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 1: change events are rare and matter
	return p.send(bufferedMsg{topic: p.topic, payload: payload, qos: 1})
}

// PublishReading sends a periodic reading to the MQTT broker.
// Readings are not buffered: a stale reading is worth less than the next one.
func (p *RealPublisher) PublishReading(r Reading) error {
	payload, err := FormatReadingPayload(r)
	if err != nil {
		return fmt.Errorf("format reading payload: %w", err)
	}
	if !p.client.IsConnectionOpen() {
		return ErrNotConnected
	}

	// QoS 0 (at-most-once), not retained
	token := p.client.Publish(TopicReadings, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish reading timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish reading: %w", err)
	}
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	return p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// IsConnected reports whether the client currently has a live connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

// send publishes msg now if connected and nothing older is waiting,
// otherwise queues it behind the older messages.
func (p *RealPublisher) send(msg bufferedMsg) error {
	p.mu.Lock()
	if p.replaying || p.buf.len() > 0 || !p.client.IsConnectionOpen() {
		p.buf.push(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.publish(msg)
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// flush replays buffered messages after (re)connecting. It runs on the
// paho connect goroutine and keeps draining until the queue is empty, so
// messages sent during the replay go out after it, in order.
func (p *RealPublisher) flush() {
	p.mu.Lock()
	p.replaying = true
	p.mu.Unlock()

	replayed, dropped := 0, 0
	for {
		p.mu.Lock()
		msgs, d := p.buf.drain()
		dropped += d
		if len(msgs) == 0 {
			p.replaying = false
			p.mu.Unlock()
			break
		}
		p.mu.Unlock()

		for _, msg := range msgs {
			// Do not block the connect handler waiting on acks
			p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		}
		replayed += len(msgs)
	}

	if dropped > 0 {
		log.Printf("mqtt: %d messages dropped while offline", dropped)
	}
	if replayed > 0 {
		log.Printf("mqtt: connected, replayed %d buffered messages", replayed)
	}
}
