package events

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/loomnetwork/memberapproval"
	"github.com/loomnetwork/memberapproval/contract"
	"github.com/loomnetwork/memberapproval/store"
)

const contractAddr = "default:0x5cecd1f7261e1f4c684e297be3edf03b825e01c4"

func eventMsg(t *testing.T, height uint64, index int, contractAddr string) []byte {
	ev := memberapproval.EventData{
		BlockHeight: height,
		EventIndex:  index,
		Type:        "wasm",
		Attributes: []contract.Attribute{
			{Key: "action", Value: "approve_group_membership"},
		},
	}
	if contractAddr != "" {
		ev.Attributes = append([]contract.Attribute{{Key: ContractAddressAttribute, Value: contractAddr}}, ev.Attributes...)
	}
	msg, err := json.Marshal(&ev)
	require.NoError(t, err)
	return msg
}

func TestDBIndexerSendEvents(t *testing.T) {
	var tests = []struct {
		blockHeight uint64
		index       int
		contract    string
	}{
		{blockHeight: 1, index: 0, contract: contractAddr},
		{blockHeight: 2, index: 0},
		{blockHeight: 2, index: 1, contract: contractAddr},
	}

	es := store.NewKVEventStore(store.NewMemStore())
	var dispatcher = NewDBIndexerEventDispatcher(es)

	for _, test := range tests {
		err := dispatcher.Send(test.blockHeight, test.index, eventMsg(t, test.blockHeight, test.index, test.contract))
		require.NoError(t, err)
	}
	require.Error(t, dispatcher.Send(3, 0, []byte("not json")))

	all, err := es.FilterEvents(store.EventFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	byContract, err := es.FilterEvents(store.EventFilter{Contract: contractAddr})
	require.NoError(t, err)
	require.Len(t, byContract, 2)
	var ev memberapproval.EventData
	require.NoError(t, json.Unmarshal(byContract[1], &ev))
	require.EqualValues(t, 2, ev.BlockHeight)
	require.Equal(t, 1, ev.EventIndex)
}

type fakeRedisConn struct {
	commands [][]interface{}
	err      error
	closed   bool
}

func (c *fakeRedisConn) Close() error {
	c.closed = true
	return nil
}

func (c *fakeRedisConn) Err() error {
	return c.err
}

func (c *fakeRedisConn) Do(cmd string, args ...interface{}) (interface{}, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.commands = append(c.commands, append([]interface{}{cmd}, args...))
	return int64(1), nil
}

func (c *fakeRedisConn) Send(cmd string, args ...interface{}) error {
	return nil
}

func (c *fakeRedisConn) Flush() error {
	return nil
}

func (c *fakeRedisConn) Receive() (interface{}, error) {
	return nil, nil
}

func TestRedisEventDispatcher(t *testing.T) {
	conn := &fakeRedisConn{}
	dispatcher := newRedisEventDispatcher(conn, "")
	msg := eventMsg(t, 5, 0, contractAddr)

	require.NoError(t, dispatcher.Send(5, 0, msg))
	require.Len(t, conn.commands, 1)
	require.Equal(t, []interface{}{"ZADD", DefaultRedisQueue, uint64(5), msg}, conn.commands[0])

	conn.err = errors.New("connection reset")
	require.Error(t, dispatcher.Send(6, 0, msg))

	require.NoError(t, dispatcher.Close())
	require.True(t, conn.closed)
}

func TestPubSubEventDispatcher(t *testing.T) {
	dispatcher := NewPubSubEventDispatcher()

	var all, byContract, other [][]byte
	subAll := dispatcher.Subscribe(func(msg []byte) { all = append(all, msg) })
	subContract := dispatcher.Subscribe(func(msg []byte) { byContract = append(byContract, msg) }, EventTopic+":"+contractAddr)
	subOther := dispatcher.Subscribe(func(msg []byte) { other = append(other, msg) }, EventTopic+":default:0x01")
	defer dispatcher.Unsubscribe(subContract)
	defer dispatcher.Unsubscribe(subOther)

	require.NoError(t, dispatcher.Send(1, 0, eventMsg(t, 1, 0, contractAddr)))
	require.NoError(t, dispatcher.Send(1, 1, eventMsg(t, 1, 1, "")))
	require.Len(t, all, 2)
	require.Len(t, byContract, 1)
	require.Len(t, other, 0)

	dispatcher.Unsubscribe(subAll)
	require.NoError(t, dispatcher.Send(2, 0, eventMsg(t, 2, 0, contractAddr)))
	require.Len(t, all, 2)
	require.Len(t, byContract, 2)
}

type failingDispatcher struct{}

func (failingDispatcher) Send(blockHeight uint64, eventIndex int, msg []byte) error {
	return errors.New("dispatch failed")
}

func TestMultiEventDispatcher(t *testing.T) {
	es := store.NewKVEventStore(store.NewMemStore())
	md := MultiEventDispatcher{NewLogEventDispatcher(nil), NewDBIndexerEventDispatcher(es)}
	require.NoError(t, md.Send(1, 0, eventMsg(t, 1, 0, contractAddr)))

	events, err := es.FilterEvents(store.EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)

	md = append(md, failingDispatcher{})
	require.Error(t, md.Send(2, 0, eventMsg(t, 2, 0, contractAddr)))
}
