package contract

import (
	"time"

	"github.com/loomnetwork/go-loom"
	"github.com/loomnetwork/go-loom/types"

	"github.com/loomnetwork/memberapproval/log"
	"github.com/loomnetwork/memberapproval/store"
)

// Coin is an amount of a single denomination attached to a message.
type Coin struct {
	Denom  string `json:"denom"`
	Amount uint64 `json:"amount,string"`
}

// Message describes the transaction that invoked the contract.
type Message struct {
	Sender loom.Address
	Funds  []Coin
}

// Querier gives contracts read-only access to the host modules.
type Querier interface {
	// GetAttributes returns the attributes of the account with the given name, or all of the
	// account's attributes if the name is empty.
	GetAttributes(account loom.Address, name string) ([]AccountAttribute, error)
	// ResolveName returns the address a name is bound to.
	ResolveName(name string) (loom.Address, error)
}

type StaticContext interface {
	store.KVReader
	Querier
	Block() types.BlockHeader
	Now() time.Time
	Message() Message
	ContractAddress() loom.Address
	Logger() log.Logger
}

type Context interface {
	StaticContext
	store.KVWriter
}

// Meta identifies a particular version of contract code, the name:version string form is used as
// the code id.
type Meta struct {
	Name    string
	Version string
}

func (m Meta) String() string {
	return m.Name + ":" + m.Version
}

// Contract is implemented by builtin Go contracts. Every entry point receives the raw JSON
// message, contracts are responsible for decoding it.
type Contract interface {
	Meta() (Meta, error)
	Instantiate(ctx Context, msg []byte) (*Response, error)
	Execute(ctx Context, msg []byte) (*Response, error)
	Query(ctx StaticContext, msg []byte) ([]byte, error)
	Migrate(ctx Context, msg []byte) (*Response, error)
}
