package events

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/loomnetwork/memberapproval"
	"github.com/loomnetwork/memberapproval/store"
)

// ContractAddressAttribute is the event attribute the db indexer uses to index events by contract.
const ContractAddressAttribute = "_contract_address"

type DBIndexerEventDispatcher struct {
	store.EventStore
}

var _ memberapproval.EventDispatcher = &DBIndexerEventDispatcher{}

func NewDBIndexerEventDispatcher(es store.EventStore) *DBIndexerEventDispatcher {
	return &DBIndexerEventDispatcher{EventStore: es}
}

func (ed *DBIndexerEventDispatcher) Send(blockHeight uint64, eventIndex int, msg []byte) error {
	var eventData memberapproval.EventData
	if err := json.Unmarshal(msg, &eventData); err != nil {
		return errors.Wrap(err, "failed to decode event")
	}
	var contract string
	for _, attr := range eventData.Attributes {
		if attr.Key == ContractAddressAttribute {
			contract = attr.Value
			break
		}
	}
	return ed.SaveEvent(blockHeight, eventIndex, contract, msg)
}
