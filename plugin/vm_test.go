package plugin

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/loomnetwork/go-loom"
	"github.com/loomnetwork/go-loom/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/loomnetwork/memberapproval/auth"
	"github.com/loomnetwork/memberapproval/contract"
	"github.com/loomnetwork/memberapproval/state"
	"github.com/loomnetwork/memberapproval/store"
)

var (
	vmAddr1 = loom.MustParseAddress("chain:0xb16a379ec18d4093666f8f38b11a3071c920207d")
	vmAddr2 = loom.MustParseAddress("chain:0xfa4c7920accfd66b86f5fd0e69682a79f762d49e")
)

var dataKey = []byte("data")

type registryMsg struct {
	Bind      string `json:"bind,omitempty"`
	Attribute string `json:"attribute,omitempty"`
	Value     int64  `json:"value,omitempty"`
}

// registryContract stores whatever it's instantiated with, and binds names or writes attributes
// for the sender when executed.
type registryContract struct {
	version string
}

func (c *registryContract) Meta() (contract.Meta, error) {
	return contract.Meta{Name: "registry", Version: c.version}, nil
}

func (c *registryContract) Instantiate(ctx contract.Context, msg []byte) (*contract.Response, error) {
	ctx.Set(dataKey, msg)
	return contract.NewResponse().
		AddAttribute("action", "instantiate").
		AddEvent(contract.NewEvent("created").Add("version", c.version)), nil
}

func (c *registryContract) Execute(ctx contract.Context, msg []byte) (*contract.Response, error) {
	var m registryMsg
	if err := json.Unmarshal(msg, &m); err != nil {
		return nil, errors.Wrap(contract.ErrDeserialization, err.Error())
	}
	res := contract.NewResponse().AddAttribute("action", "execute")
	if m.Bind != "" {
		res.AddMessage(&contract.BindNameMsg{Name: m.Bind, Address: ctx.ContractAddress(), Restrict: true})
	}
	if m.Attribute != "" {
		res.AddMessage(&contract.AddAttributeMsg{
			Account:   ctx.Message().Sender,
			Name:      m.Attribute,
			Value:     []byte(strconv.FormatInt(m.Value, 10)),
			ValueType: contract.AttributeValueTypeInt,
		})
	}
	return res, nil
}

func (c *registryContract) Query(ctx contract.StaticContext, msg []byte) ([]byte, error) {
	return ctx.Get(dataKey), nil
}

func (c *registryContract) Migrate(ctx contract.Context, msg []byte) (*contract.Response, error) {
	ctx.Set(dataKey, []byte(c.version))
	return contract.NewResponse().AddAttribute("new_version", c.version), nil
}

func newTestVM(t *testing.T) *PluginVM {
	s := state.NewStoreState(context.Background(), store.NewMemStore(), types.BlockHeader{ChainID: "chain"})
	vm := NewPluginVM(
		NewStaticLoader(&registryContract{version: "1.0.0"}, &registryContract{version: "1.1.0"}),
		s,
		DefaultMigrationPolicy(),
		nil,
	)
	require.NoError(t, vm.Names().BindRoot("pb", loom.RootAddress("chain"), false))
	return vm
}

func TestPluginVMInstantiate(t *testing.T) {
	vm := newTestVM(t)

	addr, res, err := vm.Instantiate(vmAddr1, "registry:1.0.0", "first", loom.Address{}, nil, []byte(`"hello"`))
	require.NoError(t, err)
	require.Equal(t, "chain", addr.ChainID)

	require.Len(t, res.Events, 3)
	require.Equal(t, EventTypeInstantiate, res.Events[0].Type)
	contractAddr, _ := res.Events[0].Get(AttributeKeyContractAddr)
	require.Equal(t, addr.String(), contractAddr)
	codeID, _ := res.Events[0].Get(AttributeKeyCodeID)
	require.Equal(t, "registry:1.0.0", codeID)
	require.Equal(t, EventTypeWasm, res.Events[1].Type)
	action, _ := res.Events[1].Get("action")
	require.Equal(t, "instantiate", action)
	require.Equal(t, EventTypeWasm+"-created", res.Events[2].Type)

	info, err := vm.GetContractInfo(addr)
	require.NoError(t, err)
	require.Equal(t, &ContractInfo{
		Code:    "registry:1.0.0",
		Admin:   vmAddr1.String(),
		Creator: vmAddr1.String(),
		Label:   "first",
	}, info)

	data, err := vm.Query(addr, nil)
	require.NoError(t, err)
	require.Equal(t, []byte(`"hello"`), data)

	// every instance gets a new address
	addr2, _, err := vm.Instantiate(vmAddr1, "registry:1.0.0", "second", vmAddr2, nil, nil)
	require.NoError(t, err)
	require.NotEqual(t, addr, addr2)
	info, err = vm.GetContractInfo(addr2)
	require.NoError(t, err)
	require.Equal(t, vmAddr2.String(), info.Admin)

	_, _, err = vm.Instantiate(vmAddr1, "registry:2.0.0", "third", loom.Address{}, nil, nil)
	require.Equal(t, ErrPluginNotFound, errors.Cause(err))
}

func TestPluginVMExecute(t *testing.T) {
	vm := newTestVM(t)
	addr, _, err := vm.Instantiate(vmAddr1, "registry:1.0.0", "first", loom.Address{}, nil, nil)
	require.NoError(t, err)

	res, err := vm.Execute(vmAddr2, addr, nil, []byte(`{"bind":"registry.pb"}`))
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	resolved, err := vm.Names().Resolve("registry.pb")
	require.NoError(t, err)
	require.Equal(t, addr, resolved)

	_, err = vm.Execute(vmAddr2, addr, nil, []byte(`{"attribute":"registry.pb","value":5}`))
	require.NoError(t, err)
	attrs, err := vm.Attributes().Get(vmAddr2, "registry.pb")
	require.NoError(t, err)
	require.Len(t, attrs, 1)
	require.Equal(t, []byte("5"), attrs[0].Value)

	// module failures surface as external service errors
	_, err = vm.Execute(vmAddr2, addr, nil, []byte(`{"attribute":"registry.pb","value":5}`))
	require.Equal(t, contract.ErrExternalService, errors.Cause(err))
	_, err = vm.Execute(vmAddr2, addr, nil, []byte(`{"bind":"registry.pb"}`))
	require.Equal(t, contract.ErrExternalService, errors.Cause(err))

	_, err = vm.Execute(vmAddr2, addr, nil, []byte(`[]`))
	require.Equal(t, contract.ErrDeserialization, errors.Cause(err))

	_, err = vm.Execute(vmAddr2, vmAddr1, nil, []byte(`{}`))
	require.Equal(t, contract.ErrContractNotFound, errors.Cause(err))
}

func TestPluginVMMigrate(t *testing.T) {
	vm := newTestVM(t)
	addr, _, err := vm.Instantiate(vmAddr1, "registry:1.0.0", "first", loom.Address{}, nil, nil)
	require.NoError(t, err)

	_, err = vm.Migrate(vmAddr2, addr, "registry:1.1.0", nil)
	require.Equal(t, contract.ErrUnauthorized, errors.Cause(err))

	_, err = vm.Migrate(vmAddr1, addr, "registry:3.0.0", nil)
	require.Equal(t, ErrPluginNotFound, errors.Cause(err))

	res, err := vm.Migrate(vmAddr1, addr, "registry:1.1.0", nil)
	require.NoError(t, err)
	require.Equal(t, EventTypeMigrate, res.Events[0].Type)
	info, err := vm.GetContractInfo(addr)
	require.NoError(t, err)
	require.Equal(t, "registry:1.1.0", info.Code)

	data, err := vm.Query(addr, nil)
	require.NoError(t, err)
	require.Equal(t, []byte("1.1.0"), data)

	vm.Policy.AdminOnly = false
	_, err = vm.Migrate(vmAddr2, addr, "registry:1.0.0", nil)
	require.NoError(t, err)
}

func TestStaticLoader(t *testing.T) {
	loader := NewStaticLoader(
		&registryContract{version: "1.0.0"},
		&registryContract{version: "1.10.0"},
		&registryContract{version: "1.2.0"},
	)
	c, err := loader.LoadContract("registry:1.2.0")
	require.NoError(t, err)
	meta, err := c.Meta()
	require.NoError(t, err)
	require.Equal(t, "1.2.0", meta.Version)

	_, err = loader.LoadContract("registry")
	require.Error(t, err)
	_, err = loader.LoadContract("registry:latest")
	require.Error(t, err)
	_, err = loader.LoadContract("other:1.0.0")
	require.Equal(t, ErrPluginNotFound, errors.Cause(err))

	latest, err := loader.Latest("registry")
	require.NoError(t, err)
	require.Equal(t, "registry:1.10.0", latest)
	_, err = loader.Latest("other")
	require.Equal(t, ErrPluginNotFound, errors.Cause(err))
}

func signedTxState(s state.State, origin loom.Address) state.State {
	return s.WithContext(auth.WithOrigin(s.Context(), origin))
}

func TestTxHandlersAndQueries(t *testing.T) {
	kvStore := store.NewMemStore()
	s := state.NewStoreState(context.Background(), kvStore, types.BlockHeader{ChainID: "chain"})
	loader := NewStaticLoader(&registryContract{version: "1.0.0"}, &registryContract{version: "1.1.0"})
	newVM := NewVMFactory(loader, DefaultMigrationPolicy(), nil)
	require.NoError(t, newVM(s).Names().BindRoot("pb", loom.RootAddress("chain"), false))

	instantiate := &InstantiateTxHandler{NewVM: newVM}
	_, err := instantiate.ProcessTx(s, []byte(`{"code":"registry:1.0.0","label":"first"}`))
	require.Error(t, err, "txs without an origin are rejected")

	txBytes, err := json.Marshal(&InstantiateTx{Code: "registry:1.0.0", Label: "first", Msg: []byte(`"hello"`)})
	require.NoError(t, err)
	r, err := instantiate.ProcessTx(signedTxState(s, vmAddr1), txBytes)
	require.NoError(t, err)
	var res InstantiateResult
	require.NoError(t, json.Unmarshal(r.Data, &res))
	addr := loom.MustParseAddress(res.Address)

	txBytes, err = json.Marshal(&ExecuteTx{Contract: res.Address, Msg: []byte(`{"bind":"registry.pb"}`)})
	require.NoError(t, err)
	_, err = (&ExecuteTxHandler{NewVM: newVM}).ProcessTx(signedTxState(s, vmAddr2), txBytes)
	require.NoError(t, err)

	_, err = (&ExecuteTxHandler{NewVM: newVM}).ProcessTx(signedTxState(s, vmAddr2), []byte(`{"contract":"nope"}`))
	require.Equal(t, contract.ErrDeserialization, errors.Cause(err))

	txBytes, err = json.Marshal(&MigrateTx{Contract: res.Address, Code: "registry:1.1.0"})
	require.NoError(t, err)
	_, err = (&MigrateTxHandler{NewVM: newVM}).ProcessTx(signedTxState(s, vmAddr1), txBytes)
	require.NoError(t, err)

	qh := &QueryHandler{NewVM: newVM}
	data, err := qh.Handle(s, QueryPathSmart+"/"+addr.String(), nil)
	require.NoError(t, err)
	require.Equal(t, []byte("1.1.0"), data)

	data, err = qh.Handle(s, QueryPathContractInfo+"/"+addr.String(), nil)
	require.NoError(t, err)
	var info ContractInfo
	require.NoError(t, json.Unmarshal(data, &info))
	require.Equal(t, "registry:1.1.0", info.Code)
	require.Equal(t, "first", info.Label)

	data, err = qh.Handle(s, QueryPathName+"/registry.pb", nil)
	require.NoError(t, err)
	require.Contains(t, string(data), addr.String())

	data, err = qh.Handle(s, QueryPathAttributes+"/"+vmAddr2.String(), nil)
	require.NoError(t, err)
	require.Equal(t, "[]", string(data))

	data, err = qh.Handle(s, QueryPathNonce+"/"+vmAddr1.String(), nil)
	require.NoError(t, err)
	require.Equal(t, "0", string(data))

	_, err = qh.Handle(s, "unknown/path", nil)
	require.Error(t, err)
	_, err = qh.Handle(s, "nopath", nil)
	require.Error(t, err)
}
