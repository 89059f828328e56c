/*
datastreams.go Shared plumbing for the handlers that mirror system broadcasts to external
stores and brokers.
*/

package datastreams

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/ohowland/ecc_core/internal/pkg/msg"
)

const inboxSize = 50

// Inbox subscribes pid to each topic and merges the broadcasts into one
// channel. The channel is closed once every subscription has been closed.
func Inbox(system msg.Publisher, pid uuid.UUID, topics ...msg.Topic) (<-chan msg.Msg, error) {
	inbox := make(chan msg.Msg, inboxSize)
	var wg sync.WaitGroup
	for _, topic := range topics {
		ch, err := system.Subscribe(pid, topic)
		if err != nil {
			system.Unsubscribe(pid)
			return nil, err
		}
		wg.Add(1)
		go func(ch <-chan msg.Msg) {
			defer wg.Done()
			redirectMsg(ch, inbox)
		}(ch)
	}
	go func() {
		wg.Wait()
		close(inbox)
	}()
	return inbox, nil
}

// redirectMsg drops messages when chOut is full, like msg.PubSub does.
func redirectMsg(chIn <-chan msg.Msg, chOut chan<- msg.Msg) {
	for m := range chIn {
		select {
		case chOut <- m:
		default:
		}
	}
}

// ReadConfig unmarshals the json file at path into cfg.
func ReadConfig(path string, cfg interface{}) error {
	jsonConfig, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonConfig, cfg)
}
