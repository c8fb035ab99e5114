package memberapproval

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/sha3"

	"github.com/loomnetwork/memberapproval/contract"
	"github.com/loomnetwork/memberapproval/state"
)

// EventData is the form in which committed events are handed to dispatchers.
type EventData struct {
	BlockHeight uint64               `json:"block_height"`
	EventIndex  int                  `json:"event_index"`
	TxHash      string               `json:"tx_hash"`
	Type        string               `json:"type"`
	Attributes  []contract.Attribute `json:"attributes"`
}

// DecodeEvents decodes JSON encoded EventData messages.
func DecodeEvents(msgs [][]byte) ([]EventData, error) {
	events := make([]EventData, 0, len(msgs))
	for _, msg := range msgs {
		var ev EventData
		if err := json.Unmarshal(msg, &ev); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

type EventHandler interface {
	PostCommit(state state.State, txBytes []byte, res TxHandlerResult) error
}

type EventDispatcher interface {
	Send(blockHeight uint64, eventIndex int, msg []byte) error
}

// TxHash returns the hex encoded hash used to identify a tx in events.
func TxHash(txBytes []byte) string {
	hash := sha3.Sum256(txBytes)
	return hex.EncodeToString(hash[:])
}

type DefaultEventHandler struct {
	dispatcher EventDispatcher
}

var _ EventHandler = &DefaultEventHandler{}

func NewDefaultEventHandler(dispatcher EventDispatcher) *DefaultEventHandler {
	return &DefaultEventHandler{
		dispatcher: dispatcher,
	}
}

func (ed *DefaultEventHandler) PostCommit(state state.State, txBytes []byte, res TxHandlerResult) error {
	height := uint64(state.Block().Height)
	txHash := TxHash(txBytes)
	for i, event := range res.Events {
		msg, err := json.Marshal(&EventData{
			BlockHeight: height,
			EventIndex:  i,
			TxHash:      txHash,
			Type:        event.Type,
			Attributes:  event.Attributes,
		})
		if err != nil {
			return err
		}
		if err := ed.dispatcher.Send(height, i, msg); err != nil {
			return err
		}
	}
	return nil
}

var (
	eventRequestCount   metrics.Counter
	eventRequestLatency metrics.Histogram
)

func init() {
	fieldKeys := []string{"method", "error"}
	eventRequestCount = kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace: "memberapproval",
		Subsystem: "event_service",
		Name:      "request_count",
		Help:      "Number of requests received.",
	}, fieldKeys)
	eventRequestLatency = kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
		Namespace: "memberapproval",
		Subsystem: "event_service",
		Name:      "request_latency_microseconds",
		Help:      "Total duration of requests in microseconds.",
	}, fieldKeys)
}

// InstrumentingEventHandler captures metrics and implements EventHandler
type InstrumentingEventHandler struct {
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
	next           EventHandler
}

var _ EventHandler = &InstrumentingEventHandler{}

func NewInstrumentingEventHandler(next EventHandler) EventHandler {
	return &InstrumentingEventHandler{
		requestCount:   eventRequestCount,
		requestLatency: eventRequestLatency,
		next:           next,
	}
}

func (m InstrumentingEventHandler) PostCommit(state state.State, txBytes []byte, res TxHandlerResult) (err error) {
	defer func(begin time.Time) {
		lvs := []string{"method", "PostCommit", "error", fmt.Sprint(err != nil)}
		m.requestCount.With(lvs...).Add(1)
		m.requestLatency.With(lvs...).Observe(time.Since(begin).Seconds())
	}(time.Now())

	err = m.next.PostCommit(state, txBytes, res)
	return
}
