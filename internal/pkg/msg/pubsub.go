package msg

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrClosed is returned when subscribing to a closed PubSub.
var ErrClosed = errors.New("publisher closed")

const bufferSize = 50

// PubSub fans published messages out to subscribers by topic. Delivery never
// blocks the publisher: a subscriber whose buffer is full misses the message.
type PubSub struct {
	mux         sync.Mutex
	pid         uuid.UUID
	subscribers map[Topic]map[uuid.UUID]chan Msg
	closed      bool
}

// NewPublisher returns a PubSub that stamps messages with pid.
func NewPublisher(pid uuid.UUID) *PubSub {
	return &PubSub{
		pid:         pid,
		subscribers: make(map[Topic]map[uuid.UUID]chan Msg),
	}
}

// PID of the publisher.
func (p *PubSub) PID() uuid.UUID {
	return p.pid
}

// Subscribe returns a channel on which the topic is broadcast. Subscribing
// twice to the same topic returns the existing channel.
func (p *PubSub) Subscribe(pid uuid.UUID, topic Topic) (<-chan Msg, error) {
	p.mux.Lock()
	defer p.mux.Unlock()

	if p.closed {
		return nil, ErrClosed
	}

	subs, ok := p.subscribers[topic]
	if !ok {
		subs = make(map[uuid.UUID]chan Msg)
		p.subscribers[topic] = subs
	}
	if ch, ok := subs[pid]; ok {
		return ch, nil
	}

	ch := make(chan Msg, bufferSize)
	subs[pid] = ch
	return ch, nil
}

// Unsubscribe pid from all topic broadcasts. Its channels are closed.
func (p *PubSub) Unsubscribe(pid uuid.UUID) {
	p.mux.Lock()
	defer p.mux.Unlock()

	for _, subs := range p.subscribers {
		if ch, ok := subs[pid]; ok {
			close(ch)
			delete(subs, pid)
		}
	}
}

// Publish broadcasts payload on topic.
func (p *PubSub) Publish(topic Topic, payload interface{}) {
	p.Forward(New(p.pid, topic, payload))
}

// Forward broadcasts an existing message, keeping its sender.
func (p *PubSub) Forward(m Msg) {
	p.mux.Lock()
	defer p.mux.Unlock()

	for _, ch := range p.subscribers[m.topic] {
		select {
		case ch <- m:
		default:
		}
	}
}

// Close unsubscribes everyone. Later Subscribe calls fail with ErrClosed.
func (p *PubSub) Close() {
	p.mux.Lock()
	defer p.mux.Unlock()

	for _, subs := range p.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	p.subscribers = make(map[Topic]map[uuid.UUID]chan Msg)
	p.closed = true
}
