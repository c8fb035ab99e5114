package state

import (
	"context"

	"github.com/loomnetwork/go-loom/plugin"
	"github.com/loomnetwork/go-loom/types"

	"github.com/loomnetwork/memberapproval/store"
)

type ReadOnlyState interface {
	store.KVReader
	Block() types.BlockHeader
	Context() context.Context
}

type State interface {
	ReadOnlyState
	store.KVWriter
	WithContext(ctx context.Context) State
	WithPrefix(prefix []byte) State
}

type StoreState struct {
	ctx   context.Context
	store store.KVStore
	block types.BlockHeader
}

var _ = State(&StoreState{})

func NewStoreState(ctx context.Context, store store.KVStore, block types.BlockHeader) *StoreState {
	return &StoreState{
		ctx:   ctx,
		store: store,
		block: block,
	}
}

// NewReadOnlyState wraps a reader in a State that panics on writes, queries should only ever
// see the ReadOnlyState half of it.
func NewReadOnlyState(ctx context.Context, reader store.KVReader, block types.BlockHeader) *StoreState {
	return NewStoreState(ctx, &readOnlyKVStoreAdapter{reader}, block)
}

func (s *StoreState) Range(prefix []byte) plugin.RangeData {
	return s.store.Range(prefix)
}

func (s *StoreState) Get(key []byte) []byte {
	return s.store.Get(key)
}

func (s *StoreState) Has(key []byte) bool {
	return s.store.Has(key)
}

func (s *StoreState) Set(key, value []byte) {
	s.store.Set(key, value)
}

func (s *StoreState) Delete(key []byte) {
	s.store.Delete(key)
}

func (s *StoreState) Block() types.BlockHeader {
	return s.block
}

func (s *StoreState) Context() context.Context {
	return s.ctx
}

func (s *StoreState) WithContext(ctx context.Context) State {
	return &StoreState{
		store: s.store,
		block: s.block,
		ctx:   ctx,
	}
}

func (s *StoreState) WithPrefix(prefix []byte) State {
	return &StoreState{
		store: store.PrefixKVStore(prefix, s.store),
		block: s.block,
		ctx:   s.ctx,
	}
}

// For all the times you need a read-only store.KVStore but you only have a store.KVReader.
type readOnlyKVStoreAdapter struct {
	store.KVReader
}

func (s *readOnlyKVStoreAdapter) Set(key, value []byte) {
	panic("readOnlyKVStoreAdapter.Set not implemented")
}

func (s *readOnlyKVStoreAdapter) Delete(key []byte) {
	panic("readOnlyKVStoreAdapter.Delete not implemented")
}

// ReadOnly adapts a ReadOnlyState into a State whose writes panic, for code paths that are
// shared between txs and queries.
func ReadOnly(s ReadOnlyState) State {
	return NewStoreState(s.Context(), &readOnlyKVStoreAdapter{s}, s.Block())
}
