package throttle

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/loomnetwork/go-loom"
	"github.com/pkg/errors"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/ulule/limiter"
	"github.com/ulule/limiter/drivers/store/memory"

	"github.com/loomnetwork/memberapproval"
	"github.com/loomnetwork/memberapproval/auth"
	"github.com/loomnetwork/memberapproval/state"
)

var (
	ErrTxLimitReached = errors.New("tx limit reached, try again later")

	txLimitReachedCount metrics.Counter
)

func init() {
	txLimitReachedCount = kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace: "memberapproval",
		Subsystem: "middleware",
		Name:      "tx_limit_reached",
		Help:      "Number of txs rejected by the tx limiter.",
	}, []string{})
}

type TxLimiterConfig struct {
	// Enables the tx limiter middleware
	Enabled bool
	// Number of seconds each session lasts
	SessionDuration int64
	// Maximum number of txs that should be allowed per session
	MaxTxsPerSession int64
}

func DefaultTxLimiterConfig() *TxLimiterConfig {
	return &TxLimiterConfig{
		SessionDuration:  60,
		MaxTxsPerSession: 60,
	}
}

// Clone returns a deep clone of the config.
func (c *TxLimiterConfig) Clone() *TxLimiterConfig {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

type txLimiter struct {
	*limiter.Limiter
}

func newTxLimiter(cfg *TxLimiterConfig) *txLimiter {
	return &txLimiter{
		Limiter: limiter.New(
			memory.NewStore(),
			limiter.Rate{
				Period: time.Duration(cfg.SessionDuration) * time.Second,
				Limit:  cfg.MaxTxsPerSession,
			},
		),
	}
}

func (txl *txLimiter) isAccountLimitReached(account loom.Address) bool {
	lmtCtx, err := txl.Limiter.Get(context.TODO(), account.String())
	// The in-memory store never returns an error.
	if err != nil {
		panic(err)
	}
	return lmtCtx.Reached
}

// NewTxLimiterMiddleware creates middleware that throttles txs (all types) per signer, the rate
// can be configured in memberapproval.yaml. Every tx counts towards the limit, including txs
// that fail further down the chain. Must be placed after the signature middleware.
func NewTxLimiterMiddleware(cfg *TxLimiterConfig) memberapproval.TxMiddlewareFunc {
	txl := newTxLimiter(cfg)
	return memberapproval.TxMiddlewareFunc(func(
		s state.State,
		txBytes []byte,
		next memberapproval.TxHandlerFunc,
	) (memberapproval.TxHandlerResult, error) {
		origin := auth.Origin(s.Context())
		if origin.IsEmpty() {
			return memberapproval.TxHandlerResult{}, errors.New("throttle: transaction has no origin")
		}

		if txl.isAccountLimitReached(origin) {
			txLimitReachedCount.Add(1)
			return memberapproval.TxHandlerResult{}, ErrTxLimitReached
		}

		return next(s, txBytes)
	})
}
