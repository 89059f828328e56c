package datastreams

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gotest.tools/v3/assert"

	"github.com/ohowland/ecc_core/internal/pkg/msg"
)

func TestInboxMergesTopics(t *testing.T) {
	pubsub := msg.NewPublisher(uuid.New())
	pid := uuid.New()

	inbox, err := Inbox(pubsub, pid, msg.Status, msg.Overload)
	assert.NilError(t, err)

	pubsub.Publish(msg.Status, 1)
	pubsub.Publish(msg.Overload, 2)
	pubsub.Publish(msg.Config, 3)

	seen := map[msg.Topic]interface{}{}
	timeout := time.After(2 * time.Second)
	for len(seen) < 2 {
		select {
		case m := <-inbox:
			seen[m.Topic()] = m.Payload()
		case <-timeout:
			t.Fatal("timed out")
		}
	}
	assert.Equal(t, seen[msg.Status], 1)
	assert.Equal(t, seen[msg.Overload], 2)
	_, ok := seen[msg.Config]
	assert.Assert(t, !ok)
}

func TestInboxClosesOnUnsubscribe(t *testing.T) {
	pubsub := msg.NewPublisher(uuid.New())
	pid := uuid.New()

	inbox, err := Inbox(pubsub, pid, msg.Status)
	assert.NilError(t, err)

	pubsub.Unsubscribe(pid)
	select {
	case _, ok := <-inbox:
		assert.Assert(t, !ok)
	case <-time.After(2 * time.Second):
		t.Fatal("inbox not closed")
	}
}

func TestInboxOnClosedPublisher(t *testing.T) {
	pubsub := msg.NewPublisher(uuid.New())
	pubsub.Close()

	_, err := Inbox(pubsub, uuid.New(), msg.Status)
	assert.ErrorContains(t, err, "closed")
}

func TestReadConfig(t *testing.T) {
	cfg := struct {
		Server string `json:"Server"`
	}{}
	assert.NilError(t, ReadConfig("./testdata/config.json", &cfg))
	assert.Equal(t, cfg.Server, "localhost")

	assert.Assert(t, ReadConfig("./testdata/missing.json", &cfg) != nil)
}
