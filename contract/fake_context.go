package contract

import (
	"time"

	"github.com/loomnetwork/go-loom"
	"github.com/loomnetwork/go-loom/types"
	"github.com/pkg/errors"

	"github.com/loomnetwork/memberapproval/log"
	"github.com/loomnetwork/memberapproval/store"
)

// FakeQuerier is an in-memory Querier for contract tests.
type FakeQuerier struct {
	Attributes map[string][]AccountAttribute
	Names      map[string]loom.Address
	// Err is returned by every query when set.
	Err error
}

func NewFakeQuerier() *FakeQuerier {
	return &FakeQuerier{
		Attributes: map[string][]AccountAttribute{},
		Names:      map[string]loom.Address{},
	}
}

func (q *FakeQuerier) AddAttribute(account loom.Address, attr AccountAttribute) {
	q.Attributes[account.String()] = append(q.Attributes[account.String()], attr)
}

func (q *FakeQuerier) GetAttributes(account loom.Address, name string) ([]AccountAttribute, error) {
	if q.Err != nil {
		return nil, q.Err
	}
	var ret []AccountAttribute
	for _, attr := range q.Attributes[account.String()] {
		if name == "" || attr.Name == name {
			ret = append(ret, attr)
		}
	}
	return ret, nil
}

func (q *FakeQuerier) ResolveName(name string) (loom.Address, error) {
	if q.Err != nil {
		return loom.Address{}, q.Err
	}
	addr, ok := q.Names[name]
	if !ok {
		return loom.Address{}, errors.Errorf("name %s not found", name)
	}
	return addr, nil
}

// FakeContext is a Context backed by a MemStore, for testing contracts without a host.
type FakeContext struct {
	store.KVStore
	*FakeQuerier
	caller  loom.Address
	address loom.Address
	funds   []Coin
	block   types.BlockHeader
}

var _ Context = &FakeContext{}

func CreateFakeContext(caller, address loom.Address) *FakeContext {
	return &FakeContext{
		KVStore:     store.NewMemStore(),
		FakeQuerier: NewFakeQuerier(),
		caller:      caller,
		address:     address,
		block: types.BlockHeader{
			ChainID: "default",
			Height:  1,
			Time:    time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC).Unix(),
		},
	}
}

func (c *FakeContext) shallowClone() *FakeContext {
	clone := *c
	return &clone
}

// WithSender returns a context sharing the same store and querier with a different sender.
func (c *FakeContext) WithSender(caller loom.Address) *FakeContext {
	clone := c.shallowClone()
	clone.caller = caller
	clone.funds = nil
	return clone
}

func (c *FakeContext) WithFunds(funds ...Coin) *FakeContext {
	clone := c.shallowClone()
	clone.funds = funds
	return clone
}

func (c *FakeContext) WithBlock(header types.BlockHeader) *FakeContext {
	clone := c.shallowClone()
	clone.block = header
	return clone
}

func (c *FakeContext) Block() types.BlockHeader {
	return c.block
}

func (c *FakeContext) Now() time.Time {
	return time.Unix(c.block.Time, 0)
}

func (c *FakeContext) Message() Message {
	return Message{
		Sender: c.caller,
		Funds:  c.funds,
	}
}

func (c *FakeContext) ContractAddress() loom.Address {
	return c.address
}

func (c *FakeContext) Logger() log.Logger {
	return log.Default
}
