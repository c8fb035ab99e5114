package client

import (
	"encoding/json"
	"strconv"

	"github.com/gogo/protobuf/proto"
	"github.com/loomnetwork/go-loom"
	"github.com/pkg/errors"

	"github.com/loomnetwork/memberapproval"
	"github.com/loomnetwork/memberapproval/auth"
	"github.com/loomnetwork/memberapproval/builtin/modules/name"
	"github.com/loomnetwork/memberapproval/contract"
	"github.com/loomnetwork/memberapproval/plugin"
)

// Backend is the chain the client talks to, *memberapproval.Application implements it.
type Backend interface {
	DeliverTx(txBytes []byte) (memberapproval.TxHandlerResult, error)
	Query(path string, data []byte) ([]byte, error)
}

var _ Backend = &memberapproval.Application{}

// DAppChainClient signs, nonces, and commits txs, and runs queries against a Backend.
type DAppChainClient struct {
	backend Backend
	chainID string
}

func NewDAppChainClient(backend Backend, chainID string) *DAppChainClient {
	return &DAppChainClient{
		backend: backend,
		chainID: chainID,
	}
}

func (c *DAppChainClient) ChainID() string {
	return c.chainID
}

// SignerAddress returns the address txs signed by the signer originate from.
func (c *DAppChainClient) SignerAddress(signer auth.Signer) loom.Address {
	return loom.Address{
		ChainID: c.chainID,
		Local:   loom.LocalAddressFromPublicKey(signer.PublicKey()),
	}
}

func (c *DAppChainClient) GetNonce(addr loom.Address) (uint64, error) {
	data, err := c.backend.Query(plugin.QueryPathNonce+"/"+addr.String(), nil)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(string(data), 10, 64)
}

// CommitTx wraps the tx in a nonce tx and a signed tx, and commits it.
func (c *DAppChainClient) CommitTx(signer auth.Signer, txID uint32, tx interface{}) (memberapproval.TxHandlerResult, error) {
	var r memberapproval.TxHandlerResult
	txBytes, err := json.Marshal(tx)
	if err != nil {
		return r, err
	}
	txBytes, err = proto.Marshal(&memberapproval.Transaction{
		Id:   txID,
		Data: txBytes,
	})
	if err != nil {
		return r, err
	}

	nonce, err := c.GetNonce(c.SignerAddress(signer))
	if err != nil {
		return r, err
	}
	nonceTxBytes, err := proto.Marshal(&auth.NonceTx{
		Inner:    txBytes,
		Sequence: nonce + 1,
	})
	if err != nil {
		return r, err
	}
	signedTxBytes, err := proto.Marshal(auth.SignTx(signer, nonceTxBytes))
	if err != nil {
		return r, err
	}
	return c.backend.DeliverTx(signedTxBytes)
}

// CommitInstantiateTx creates a new contract instance, an empty admin makes the signer the admin.
func (c *DAppChainClient) CommitInstantiateTx(
	signer auth.Signer,
	code, label string,
	admin loom.Address,
	msg []byte,
) (*plugin.InstantiateResult, []contract.Event, error) {
	tx := &plugin.InstantiateTx{
		Code:  code,
		Label: label,
		Msg:   msg,
	}
	if !admin.IsEmpty() {
		tx.Admin = admin.String()
	}
	r, err := c.CommitTx(signer, plugin.InstantiateTxID, tx)
	if err != nil {
		return nil, nil, err
	}
	var res plugin.InstantiateResult
	if err := json.Unmarshal(r.Data, &res); err != nil {
		return nil, nil, errors.Wrap(err, "failed to decode instantiate result")
	}
	return &res, r.Events, nil
}

func (c *DAppChainClient) CommitExecuteTx(signer auth.Signer, tx *plugin.ExecuteTx) (memberapproval.TxHandlerResult, error) {
	return c.CommitTx(signer, plugin.ExecuteTxID, tx)
}

func (c *DAppChainClient) CommitMigrateTx(
	signer auth.Signer,
	contractAddr loom.Address,
	code string,
	msg []byte,
) (memberapproval.TxHandlerResult, error) {
	return c.CommitTx(signer, plugin.MigrateTxID, &plugin.MigrateTx{
		Contract: contractAddr.String(),
		Code:     code,
		Msg:      msg,
	})
}

// QuerySmart runs a contract query.
func (c *DAppChainClient) QuerySmart(contractAddr loom.Address, msg []byte) ([]byte, error) {
	return c.backend.Query(plugin.QueryPathSmart+"/"+contractAddr.String(), msg)
}

func (c *DAppChainClient) ContractInfo(contractAddr loom.Address) (*plugin.ContractInfo, error) {
	data, err := c.backend.Query(plugin.QueryPathContractInfo+"/"+contractAddr.String(), nil)
	if err != nil {
		return nil, err
	}
	var info plugin.ContractInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ResolveName returns the address the name is bound to.
func (c *DAppChainClient) ResolveName(n string) (loom.Address, error) {
	data, err := c.backend.Query(plugin.QueryPathName+"/"+n, nil)
	if err != nil {
		return loom.Address{}, err
	}
	var rec name.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return loom.Address{}, err
	}
	return loom.ParseAddress(rec.Address)
}

// GetAttributes returns the account's attributes with the given name, or all of them if the
// name is empty.
func (c *DAppChainClient) GetAttributes(account loom.Address, attrName string) ([]contract.AccountAttribute, error) {
	data, err := c.backend.Query(plugin.QueryPathAttributes+"/"+account.String(), []byte(attrName))
	if err != nil {
		return nil, err
	}
	var attrs []contract.AccountAttribute
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}
