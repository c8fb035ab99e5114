package throttle

import (
	"context"
	"testing"

	"github.com/loomnetwork/go-loom"
	"github.com/loomnetwork/go-loom/types"
	"github.com/stretchr/testify/require"

	"github.com/loomnetwork/memberapproval"
	"github.com/loomnetwork/memberapproval/auth"
	"github.com/loomnetwork/memberapproval/state"
	"github.com/loomnetwork/memberapproval/store"
)

var (
	addr1 = loom.MustParseAddress("default:0xb16a379ec18d4093666f8f38b11a3071c920207d")
	addr2 = loom.MustParseAddress("default:0xfa4c7920accfd66b86f5fd0e69682a79f762d49e")
)

func TestTxLimiterMiddleware(t *testing.T) {
	cfg := DefaultTxLimiterConfig()
	cfg.Enabled = true
	cfg.MaxTxsPerSession = 2
	cfg.SessionDuration = 600
	middleware := NewTxLimiterMiddleware(cfg)

	s := state.NewStoreState(context.Background(), store.NewMemStore(), types.BlockHeader{ChainID: "default"})
	var calls int
	next := func(s state.State, txBytes []byte) (memberapproval.TxHandlerResult, error) {
		calls++
		return memberapproval.TxHandlerResult{}, nil
	}

	_, err := middleware.ProcessTx(s, []byte("tx"), next)
	require.Error(t, err, "txs without an origin should be rejected")

	s1 := s.WithContext(auth.WithOrigin(context.Background(), addr1))
	s2 := s.WithContext(auth.WithOrigin(context.Background(), addr2))
	for i := 0; i < 2; i++ {
		_, err := middleware.ProcessTx(s1, []byte("tx"), next)
		require.NoError(t, err)
	}
	_, err = middleware.ProcessTx(s1, []byte("tx"), next)
	require.Equal(t, ErrTxLimitReached, err)

	// the limit is tracked per account
	_, err = middleware.ProcessTx(s2, []byte("tx"), next)
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}
