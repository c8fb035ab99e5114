package events

import (
	"github.com/loomnetwork/memberapproval"
)

// MultiEventDispatcher sends every event to each of the dispatchers in turn, stopping at the
// first error.
type MultiEventDispatcher []memberapproval.EventDispatcher

var _ memberapproval.EventDispatcher = MultiEventDispatcher{}

func (md MultiEventDispatcher) Send(blockHeight uint64, eventIndex int, msg []byte) error {
	for _, d := range md {
		if err := d.Send(blockHeight, eventIndex, msg); err != nil {
			return err
		}
	}
	return nil
}
