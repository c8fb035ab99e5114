package memberapproval

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/pkg/errors"
	stdprometheus "github.com/prometheus/client_golang/prometheus"

	"github.com/loomnetwork/memberapproval/log"
	"github.com/loomnetwork/memberapproval/state"
)

type TxMiddleware interface {
	ProcessTx(state state.State, txBytes []byte, next TxHandlerFunc) (TxHandlerResult, error)
}

type TxMiddlewareFunc func(state state.State, txBytes []byte, next TxHandlerFunc) (TxHandlerResult, error)

func (f TxMiddlewareFunc) ProcessTx(state state.State, txBytes []byte, next TxHandlerFunc) (TxHandlerResult, error) {
	return f(state, txBytes, next)
}

type PostCommitHandler func(state state.State, txBytes []byte, res TxHandlerResult) error

type PostCommitMiddleware interface {
	ProcessTx(state state.State, txBytes []byte, res TxHandlerResult, next PostCommitHandler) error
}

type PostCommitMiddlewareFunc func(state state.State, txBytes []byte, res TxHandlerResult, next PostCommitHandler) error

func (f PostCommitMiddlewareFunc) ProcessTx(state state.State, txBytes []byte, res TxHandlerResult, next PostCommitHandler) error {
	return f(state, txBytes, res, next)
}

// MiddlewareTxHandler chains the middlewares in front of the handler, the first middleware is
// the outermost one. The post middlewares run after the handler succeeds, but still within the
// tx, so they can still fail it.
func MiddlewareTxHandler(
	middlewares []TxMiddleware,
	handler TxHandler,
	postMiddlewares []PostCommitMiddleware,
) TxHandler {
	postChain := func(state state.State, txBytes []byte, res TxHandlerResult) error { return nil }
	for i := len(postMiddlewares) - 1; i >= 0; i-- {
		m := postMiddlewares[i]
		localNext := postChain
		postChain = func(state state.State, txBytes []byte, res TxHandlerResult) error {
			return m.ProcessTx(state, txBytes, res, localNext)
		}
	}

	next := TxHandlerFunc(func(state state.State, txBytes []byte) (TxHandlerResult, error) {
		result, err := handler.ProcessTx(state, txBytes)
		if err != nil {
			return result, err
		}
		err = postChain(state, txBytes, result)
		return result, err
	})

	for i := len(middlewares) - 1; i >= 0; i-- {
		m := middlewares[i]
		// Need local var otherwise infinite loop occurs
		nextLocal := next
		next = func(state state.State, txBytes []byte) (TxHandlerResult, error) {
			return m.ProcessTx(state, txBytes, nextLocal)
		}
	}

	return next
}

var NoopTxHandler = TxHandlerFunc(func(state state.State, txBytes []byte) (TxHandlerResult, error) {
	return TxHandlerResult{}, nil
})

func rvalError(r interface{}) error {
	var err error
	switch x := r.(type) {
	case string:
		err = errors.New(x)
	case error:
		err = x
	default:
		err = fmt.Errorf("unknown panic: %v", x)
	}
	return err
}

// RecoveryTxMiddleware turns panics in the rest of the chain into tx errors.
var RecoveryTxMiddleware = TxMiddlewareFunc(func(
	state state.State,
	txBytes []byte,
	next TxHandlerFunc,
) (res TxHandlerResult, err error) {
	defer func() {
		if rval := recover(); rval != nil {
			log.Root.Error("Panic in TX Handler", "rvalue", rval, "stack", string(debug.Stack()))
			err = errors.Wrap(rvalError(rval), "tx handler panic")
		}
	}()

	return next(state, txBytes)
})

var LogPostCommitMiddleware = PostCommitMiddlewareFunc(func(
	state state.State,
	txBytes []byte,
	res TxHandlerResult,
	next PostCommitHandler,
) error {
	log.Debug("Tx processed", "height", state.Block().Height, "events", len(res.Events))
	return next(state, txBytes, res)
})

// InstrumentingTxMiddleware maintains the state of metrics values internally
type InstrumentingTxMiddleware struct {
	method         string
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
}

var _ TxMiddleware = &InstrumentingTxMiddleware{}

var (
	txRequestCount   metrics.Counter
	txRequestLatency metrics.Histogram
)

func init() {
	fieldKeys := []string{"method", "error"}
	txRequestCount = kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace: "memberapproval",
		Subsystem: "tx_service",
		Name:      "request_count",
		Help:      "Number of requests received.",
	}, fieldKeys)
	txRequestLatency = kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
		Namespace: "memberapproval",
		Subsystem: "tx_service",
		Name:      "request_latency_microseconds",
		Help:      "Total duration of requests in microseconds.",
	}, fieldKeys)
}

// NewInstrumentingTxMiddleware returns a middleware that records the count and latency of txs,
// the method label is the name the middleware is created with.
func NewInstrumentingTxMiddleware(method string) TxMiddleware {
	return &InstrumentingTxMiddleware{
		method:         method,
		requestCount:   txRequestCount,
		requestLatency: txRequestLatency,
	}
}

// ProcessTx capture metrics and implements TxMiddleware
func (m InstrumentingTxMiddleware) ProcessTx(state state.State, txBytes []byte, next TxHandlerFunc) (r TxHandlerResult, err error) {
	defer func(begin time.Time) {
		lvs := []string{"method", m.method, "error", fmt.Sprint(err != nil)}
		m.requestCount.With(lvs...).Add(1)
		m.requestLatency.With(lvs...).Observe(time.Since(begin).Seconds())
	}(time.Now())

	r, err = next(state, txBytes)
	return
}
