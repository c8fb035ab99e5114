package memberapproval

import (
	"testing"
	"time"

	"github.com/gogo/protobuf/proto"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/loomnetwork/memberapproval/contract"
	"github.com/loomnetwork/memberapproval/state"
	"github.com/loomnetwork/memberapproval/store"
)

var (
	blockTime = time.Unix(123456789, 0)
	testKey   = []byte("counter")
)

type recordingDispatcher struct {
	msgs [][]byte
}

func (d *recordingDispatcher) Send(blockHeight uint64, eventIndex int, msg []byte) error {
	d.msgs = append(d.msgs, msg)
	return nil
}

type echoQueryHandler struct{}

func (echoQueryHandler) Handle(s state.ReadOnlyState, path string, data []byte) ([]byte, error) {
	return s.Get([]byte(path)), nil
}

func newTestApp(handler TxHandler, dispatcher EventDispatcher) *Application {
	return &Application{
		ChainID: "default",
		Store:   store.WrapAtomic(store.NewMemStore()),
		Init: func(s state.State) error {
			s.Set([]byte("genesis"), []byte("done"))
			return nil
		},
		Now:          func() time.Time { return blockTime },
		TxHandler:    handler,
		QueryHandler: echoQueryHandler{},
		EventHandler: NewInstrumentingEventHandler(NewDefaultEventHandler(dispatcher)),
	}
}

func counterHandler(t *testing.T) TxHandler {
	return TxHandlerFunc(func(s state.State, txBytes []byte) (TxHandlerResult, error) {
		require.Equal(t, blockTime.Unix(), s.Block().Time)
		NewSequence(testKey).Next(s)
		if string(txBytes) == "fail" {
			return TxHandlerResult{}, errors.New("tx failed")
		}
		return TxHandlerResult{
			Events: []contract.Event{contract.NewEvent("wasm").Add("tx", string(txBytes))},
		}, nil
	})
}

func TestApplicationDeliverTx(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	app := newTestApp(counterHandler(t), dispatcher)

	_, err := app.DeliverTx([]byte("early"))
	require.Error(t, err, "txs can't be delivered before genesis")

	require.NoError(t, app.InitChain())
	require.Equal(t, int64(1), app.Height())
	require.Error(t, app.InitChain())

	data, err := app.Query("genesis", nil)
	require.NoError(t, err)
	require.Equal(t, []byte("done"), data)

	_, err = app.DeliverTx([]byte("first"))
	require.NoError(t, err)
	require.Equal(t, int64(2), app.Height())
	require.Equal(t, uint64(1), NewSequence(testKey).Value(app.Store))

	// failed txs don't commit anything or emit events
	_, err = app.DeliverTx([]byte("fail"))
	require.Error(t, err)
	require.Equal(t, int64(2), app.Height())
	require.Equal(t, uint64(1), NewSequence(testKey).Value(app.Store))

	_, err = app.DeliverTx([]byte("second"))
	require.NoError(t, err)
	require.Equal(t, int64(3), app.Height())

	evs, err := DecodeEvents(dispatcher.msgs)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	require.Equal(t, uint64(2), evs[0].BlockHeight)
	require.Equal(t, 0, evs[0].EventIndex)
	require.Equal(t, TxHash([]byte("first")), evs[0].TxHash)
	require.Equal(t, "wasm", evs[0].Type)
	val, ok := contract.Event{Attributes: evs[1].Attributes}.Get("tx")
	require.True(t, ok)
	require.Equal(t, "second", val)
	require.Equal(t, uint64(3), evs[1].BlockHeight)
}

func TestApplicationInitChainFailure(t *testing.T) {
	app := newTestApp(NoopTxHandler, &recordingDispatcher{})
	app.Init = func(s state.State) error {
		s.Set([]byte("partial"), []byte("1"))
		return errors.New("bad genesis")
	}
	require.Error(t, app.InitChain())
	require.Equal(t, int64(0), app.Height())
	require.False(t, app.Store.Has([]byte("partial")))
}

func TestTxRouter(t *testing.T) {
	router := NewTxRouter()
	var routed uint32
	route := func(id uint32) TxHandler {
		return TxHandlerFunc(func(s state.State, txBytes []byte) (TxHandlerResult, error) {
			routed = id
			require.Equal(t, []byte("payload"), txBytes)
			return TxHandlerResult{}, nil
		})
	}
	router.Handle(1, route(1))
	router.Handle(2, route(2))
	require.Panics(t, func() { router.Handle(1, route(1)) })

	txBytes, err := proto.Marshal(&Transaction{Id: 2, Data: []byte("payload")})
	require.NoError(t, err)
	_, err = router.ProcessTx(newTestState(), txBytes)
	require.NoError(t, err)
	require.Equal(t, uint32(2), routed)

	txBytes, err = proto.Marshal(&Transaction{Id: 3, Data: []byte("payload")})
	require.NoError(t, err)
	_, err = router.ProcessTx(newTestState(), txBytes)
	require.Error(t, err)

	_, err = router.ProcessTx(newTestState(), []byte{0xff})
	require.Error(t, err)
}

func TestSequence(t *testing.T) {
	s := store.NewMemStore()
	seq := NewSequence([]byte("seq"))
	require.Equal(t, uint64(0), seq.Value(s))
	require.Equal(t, uint64(1), seq.Next(s))
	require.Equal(t, uint64(2), seq.Next(s))
	require.Equal(t, uint64(2), NewSequence([]byte("seq")).Value(s))
	require.Equal(t, uint64(0), NewSequence([]byte("other")).Value(s))
}
