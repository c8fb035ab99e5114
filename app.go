package memberapproval

import (
	"context"
	"sync"
	"time"

	"github.com/loomnetwork/go-loom/types"
	"github.com/pkg/errors"

	"github.com/loomnetwork/memberapproval/contract"
	"github.com/loomnetwork/memberapproval/log"
	"github.com/loomnetwork/memberapproval/state"
	"github.com/loomnetwork/memberapproval/store"
)

type TxHandler interface {
	ProcessTx(state state.State, txBytes []byte) (TxHandlerResult, error)
}

type TxHandlerFunc func(state state.State, txBytes []byte) (TxHandlerResult, error)

type TxHandlerResult struct {
	Data []byte `json:"data,omitempty"`
	// Events emitted while processing the tx, only published if the tx is committed.
	Events []contract.Event `json:"events,omitempty"`
	Info   string           `json:"info,omitempty"`
}

func (f TxHandlerFunc) ProcessTx(state state.State, txBytes []byte) (TxHandlerResult, error) {
	return f(state, txBytes)
}

type QueryHandler interface {
	Handle(state state.ReadOnlyState, path string, data []byte) ([]byte, error)
}

var heightKey = []byte("app_height")

// Application runs transactions against the app store one at a time. Each delivered tx is
// executed in its own block, all of its writes are committed together or not at all.
type Application struct {
	mutex sync.Mutex

	ChainID string
	Store   store.AtomicKVStore
	// Init is called once by InitChain to set up the genesis state.
	Init func(state.State) error
	// Now returns the block time, defaults to time.Now.
	Now func() time.Time
	TxHandler
	QueryHandler
	EventHandler
}

// Height returns the height of the last committed block.
func (a *Application) Height() int64 {
	return int64(NewSequence(heightKey).Value(a.Store))
}

func (a *Application) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *Application) block(height int64) types.BlockHeader {
	return types.BlockHeader{
		ChainID: a.ChainID,
		Height:  height,
		Time:    a.now().Unix(),
	}
}

// InitChain runs the genesis initializer, it may only be called on an empty store.
func (a *Application) InitChain() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.Height() != 0 {
		return errors.New("app store has already been initialized")
	}

	tx := a.Store.BeginTx()
	s := state.NewStoreState(context.Background(), tx, a.block(0))
	if a.Init != nil {
		if err := a.Init(s); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "genesis init failed")
		}
	}
	NewSequence(heightKey).Next(tx)
	tx.Commit()
	return nil
}

// DeliverTx processes a single tx in a new block, the tx writes are only committed if the tx
// handler succeeds. Events are handed to the EventHandler after the commit.
func (a *Application) DeliverTx(txBytes []byte) (TxHandlerResult, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.Height() == 0 {
		return TxHandlerResult{}, errors.New("app store has not been initialized")
	}

	tx := a.Store.BeginTx()
	s := state.NewStoreState(context.Background(), tx, a.block(a.Height()+1))
	r, err := a.TxHandler.ProcessTx(s, txBytes)
	if err != nil {
		tx.Rollback()
		return r, err
	}
	// The height bump and the tx writes go out in one store batch.
	NewSequence(heightKey).Next(tx)
	tx.Commit()

	if a.EventHandler != nil {
		if err := a.EventHandler.PostCommit(s, txBytes, r); err != nil {
			// the tx has been committed already so there's no point failing it
			log.Error("Failed to dispatch events", "height", s.Block().Height, "err", err)
		}
	}
	return r, nil
}

// Query runs a read-only query against the last committed state.
func (a *Application) Query(path string, data []byte) ([]byte, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	s := state.NewReadOnlyState(context.Background(), a.Store, a.block(a.Height()))
	return a.QueryHandler.Handle(s, path, data)
}
