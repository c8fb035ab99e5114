package events

import (
	"github.com/loomnetwork/memberapproval/log"
)

// LogEventDispatcher just logs events
type LogEventDispatcher struct {
	logger log.Logger
}

func NewLogEventDispatcher(logger log.Logger) *LogEventDispatcher {
	if logger == nil {
		logger = log.Default
	}
	return &LogEventDispatcher{logger: logger}
}

// Send sends the event
func (ed *LogEventDispatcher) Send(blockHeight uint64, eventIndex int, msg []byte) error {
	ed.logger.Info("Event emitted", "height", blockHeight, "index", eventIndex, "msg", string(msg))
	return nil
}
