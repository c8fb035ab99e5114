package plugin

import (
	"encoding/json"

	"github.com/loomnetwork/go-loom"
	"github.com/pkg/errors"

	"github.com/loomnetwork/memberapproval"
	"github.com/loomnetwork/memberapproval/auth"
	"github.com/loomnetwork/memberapproval/contract"
	"github.com/loomnetwork/memberapproval/log"
	"github.com/loomnetwork/memberapproval/state"
)

// Tx IDs used to route the inner tx payload.
const (
	InstantiateTxID uint32 = 1
	ExecuteTxID     uint32 = 2
	MigrateTxID     uint32 = 3
)

type InstantiateTx struct {
	Code  string          `json:"code"`
	Label string          `json:"label"`
	Admin string          `json:"admin,omitempty"`
	Msg   json.RawMessage `json:"msg"`
	Funds []contract.Coin `json:"funds,omitempty"`
}

type ExecuteTx struct {
	Contract string          `json:"contract"`
	Msg      json.RawMessage `json:"msg"`
	Funds    []contract.Coin `json:"funds,omitempty"`
}

type MigrateTx struct {
	Contract string          `json:"contract"`
	Code     string          `json:"code"`
	Msg      json.RawMessage `json:"msg"`
}

// InstantiateResult is returned in the data of an instantiate tx.
type InstantiateResult struct {
	Address string `json:"address"`
	Data    []byte `json:"data,omitempty"`
}

// VMFactory creates a VM over the tx state.
type VMFactory func(s state.State) *PluginVM

func NewVMFactory(loader Loader, policy MigrationPolicy, logger log.Logger) VMFactory {
	return func(s state.State) *PluginVM {
		return NewPluginVM(loader, s, policy, logger)
	}
}

func decodeTx(txBytes []byte, tx interface{}) error {
	if err := json.Unmarshal(txBytes, tx); err != nil {
		return errors.Wrap(contract.ErrDeserialization, err.Error())
	}
	return nil
}

func txOrigin(s state.State) (loom.Address, error) {
	origin := auth.Origin(s.Context())
	if origin.IsEmpty() {
		return loom.Address{}, errors.New("transaction has no origin")
	}
	return origin, nil
}

func resultFrom(r *Result) memberapproval.TxHandlerResult {
	return memberapproval.TxHandlerResult{
		Data:   r.Data,
		Events: r.Events,
	}
}

type InstantiateTxHandler struct {
	NewVM VMFactory
}

func (h *InstantiateTxHandler) ProcessTx(s state.State, txBytes []byte) (memberapproval.TxHandlerResult, error) {
	var r memberapproval.TxHandlerResult
	var tx InstantiateTx
	if err := decodeTx(txBytes, &tx); err != nil {
		return r, err
	}
	origin, err := txOrigin(s)
	if err != nil {
		return r, err
	}
	var admin loom.Address
	if tx.Admin != "" {
		if admin, err = loom.ParseAddress(tx.Admin); err != nil {
			return r, errors.Wrap(contract.ErrDeserialization, err.Error())
		}
	}

	addr, res, err := h.NewVM(s).Instantiate(origin, tx.Code, tx.Label, admin, tx.Funds, tx.Msg)
	if err != nil {
		return r, err
	}
	data, err := json.Marshal(&InstantiateResult{
		Address: addr.String(),
		Data:    res.Data,
	})
	if err != nil {
		return r, err
	}
	r = resultFrom(res)
	r.Data = data
	return r, nil
}

type ExecuteTxHandler struct {
	NewVM VMFactory
}

func (h *ExecuteTxHandler) ProcessTx(s state.State, txBytes []byte) (memberapproval.TxHandlerResult, error) {
	var r memberapproval.TxHandlerResult
	var tx ExecuteTx
	if err := decodeTx(txBytes, &tx); err != nil {
		return r, err
	}
	origin, err := txOrigin(s)
	if err != nil {
		return r, err
	}
	addr, err := loom.ParseAddress(tx.Contract)
	if err != nil {
		return r, errors.Wrap(contract.ErrDeserialization, err.Error())
	}

	res, err := h.NewVM(s).Execute(origin, addr, tx.Funds, tx.Msg)
	if err != nil {
		return r, err
	}
	return resultFrom(res), nil
}

type MigrateTxHandler struct {
	NewVM VMFactory
}

func (h *MigrateTxHandler) ProcessTx(s state.State, txBytes []byte) (memberapproval.TxHandlerResult, error) {
	var r memberapproval.TxHandlerResult
	var tx MigrateTx
	if err := decodeTx(txBytes, &tx); err != nil {
		return r, err
	}
	origin, err := txOrigin(s)
	if err != nil {
		return r, err
	}
	addr, err := loom.ParseAddress(tx.Contract)
	if err != nil {
		return r, errors.Wrap(contract.ErrDeserialization, err.Error())
	}

	res, err := h.NewVM(s).Migrate(origin, addr, tx.Code, tx.Msg)
	if err != nil {
		return r, err
	}
	return resultFrom(res), nil
}
