package memberapproval

import (
	"github.com/gogo/protobuf/proto"
	"github.com/loomnetwork/go-loom/types"
	"github.com/pkg/errors"

	"github.com/loomnetwork/memberapproval/state"
)

// Transaction is the innermost tx envelope, the Id selects the handler for the payload.
type Transaction = types.Transaction

type TxRouter struct {
	routes map[uint32]TxHandler
}

func NewTxRouter() *TxRouter {
	return &TxRouter{
		routes: make(map[uint32]TxHandler),
	}
}

func (r *TxRouter) Handle(txID uint32, handler TxHandler) {
	if _, ok := r.routes[txID]; ok {
		panic("handler for transaction already registered")
	}

	r.routes[txID] = handler
}

func (r *TxRouter) ProcessTx(state state.State, txBytes []byte) (TxHandlerResult, error) {
	var res TxHandlerResult

	var tx Transaction
	if err := proto.Unmarshal(txBytes, &tx); err != nil {
		return res, errors.Wrap(err, "failed to decode transaction")
	}

	handler, ok := r.routes[tx.Id]
	if !ok {
		return res, errors.Errorf("no handler for transaction id %d", tx.Id)
	}

	return handler.ProcessTx(state, tx.Data)
}
