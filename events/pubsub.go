package events

import (
	"encoding/json"

	"github.com/phonkee/go-pubsub"
	"github.com/pkg/errors"

	"github.com/loomnetwork/memberapproval"
)

// EventTopic is the root topic events are published to, each event is published to
// "event:<contract address>" so subscribers can listen to all events or to a single contract.
const EventTopic = "event"

// PubSubEventDispatcher publishes events to in-process subscribers.
type PubSubEventDispatcher struct {
	hub pubsub.Hub
}

var _ memberapproval.EventDispatcher = &PubSubEventDispatcher{}

func NewPubSubEventDispatcher() *PubSubEventDispatcher {
	return &PubSubEventDispatcher{hub: pubsub.New()}
}

func (ed *PubSubEventDispatcher) Send(blockHeight uint64, eventIndex int, msg []byte) error {
	var eventData memberapproval.EventData
	if err := json.Unmarshal(msg, &eventData); err != nil {
		return errors.Wrap(err, "failed to decode event")
	}
	topic := EventTopic
	for _, attr := range eventData.Attributes {
		if attr.Key == ContractAddressAttribute {
			topic = EventTopic + ":" + attr.Value
			break
		}
	}
	ed.hub.Publish(pubsub.NewMessage(topic, msg))
	return nil
}

// Subscribe calls fn with the JSON encoded EventData of every event published to one of the
// topics, the returned subscriber must be closed when it's no longer needed.
func (ed *PubSubEventDispatcher) Subscribe(fn func(msg []byte), topics ...string) pubsub.Subscriber {
	if len(topics) == 0 {
		topics = []string{EventTopic}
	}
	return ed.hub.Subscribe(topics...).Do(func(m pubsub.Message) {
		fn(m.Body())
	})
}

func (ed *PubSubEventDispatcher) Unsubscribe(sub pubsub.Subscriber) {
	ed.hub.CloseSubscriber(sub)
}
