package msg

import "github.com/google/uuid"

// Topic selects which broadcast a subscriber receives.
type Topic int

const (
	// Status carries ecc.Status snapshots.
	Status Topic = iota
	// Overload carries ecc.Trip records.
	Overload
	// Config carries controller settings when they change.
	Config
)

func (t Topic) String() string {
	switch t {
	case Status:
		return "status"
	case Overload:
		return "overload"
	case Config:
		return "config"
	default:
		return "unknown"
	}
}

// Publisher is an interface for objects that allow subscription to their events
type Publisher interface {
	Subscribe(uuid.UUID, Topic) (<-chan Msg, error)
	Unsubscribe(uuid.UUID)
}

// Msg is a published event tagged with its sender and topic.
type Msg struct {
	sender  uuid.UUID
	topic   Topic
	payload interface{}
}

// New is the Msg factory function
func New(sender uuid.UUID, topic Topic, payload interface{}) Msg {
	return Msg{sender, topic, payload}
}

// PID returns the sender's PID
func (v Msg) PID() uuid.UUID {
	return v.sender
}

// Topic returns the broadcast the message was published on
func (v Msg) Topic() Topic {
	return v.topic
}

// Payload returns the message data
func (v Msg) Payload() interface{} {
	return v.payload
}
