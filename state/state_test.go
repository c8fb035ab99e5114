package state

import (
	"context"
	"testing"

	"github.com/loomnetwork/go-loom/types"
	"github.com/loomnetwork/go-loom/util"
	"github.com/stretchr/testify/require"

	"github.com/loomnetwork/memberapproval/store"
)

type ctxKey string

func TestStoreStatePrefix(t *testing.T) {
	kvStore := store.NewMemStore()
	block := types.BlockHeader{ChainID: "default", Height: 5}
	s := NewStoreState(context.Background(), kvStore, block)

	ps := s.WithPrefix([]byte("contract"))
	ps.Set([]byte("key"), []byte("value"))
	require.Equal(t, []byte("value"), kvStore.Get(util.PrefixKey([]byte("contract"), []byte("key"))))
	require.True(t, ps.Has([]byte("key")))
	require.Equal(t, block, ps.Block())
	require.Len(t, ps.Range(nil), 1)

	ps.Delete([]byte("key"))
	require.False(t, s.Has(util.PrefixKey([]byte("contract"), []byte("key"))))
}

func TestStoreStateContext(t *testing.T) {
	s := NewStoreState(context.Background(), store.NewMemStore(), types.BlockHeader{})
	ctx := context.WithValue(context.Background(), ctxKey("origin"), "alice")
	s2 := s.WithContext(ctx)
	require.Equal(t, "alice", s2.Context().Value(ctxKey("origin")))
	require.Nil(t, s.Context().Value(ctxKey("origin")))

	// the new state shares the store
	s2.Set([]byte("key"), []byte("value"))
	require.Equal(t, []byte("value"), s.Get([]byte("key")))

	// the prefix is kept along with the context
	s3 := s.WithPrefix([]byte("p")).WithContext(ctx)
	s3.Set([]byte("key"), []byte("prefixed"))
	require.Equal(t, []byte("prefixed"), s.Get(util.PrefixKey([]byte("p"), []byte("key"))))
}

func TestReadOnlyState(t *testing.T) {
	kvStore := store.NewMemStore()
	kvStore.Set([]byte("key"), []byte("value"))

	s := NewReadOnlyState(context.Background(), kvStore, types.BlockHeader{Height: 3})
	require.Equal(t, []byte("value"), s.Get([]byte("key")))
	require.Equal(t, int64(3), s.Block().Height)
	require.Panics(t, func() { s.Set([]byte("key"), []byte("other")) })

	ro := ReadOnly(s)
	require.Equal(t, []byte("value"), ro.Get([]byte("key")))
	require.Panics(t, func() { ro.Delete([]byte("key")) })
}
