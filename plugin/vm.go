package plugin

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/loomnetwork/go-loom"
	"github.com/loomnetwork/go-loom/util"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"

	"github.com/loomnetwork/memberapproval"
	"github.com/loomnetwork/memberapproval/builtin/modules/attribute"
	"github.com/loomnetwork/memberapproval/builtin/modules/name"
	"github.com/loomnetwork/memberapproval/contract"
	"github.com/loomnetwork/memberapproval/log"
	"github.com/loomnetwork/memberapproval/state"
)

const (
	EventTypeInstantiate = "instantiate"
	EventTypeMigrate     = "migrate"
	EventTypeWasm        = "wasm"

	AttributeKeyContractAddr = "_contract_address"
	AttributeKeyCodeID       = "code_id"
)

var (
	contractSeqKey = []byte("contract_seq")
)

// MigrationPolicy controls who may migrate contract instances.
type MigrationPolicy struct {
	// Only the admin recorded at instantiation may migrate the instance.
	AdminOnly bool
	// Allow migrating to code with the same version as the stored one, contracts honor this
	// when they're constructed, the VM just carries it.
	AllowSameVersion bool
}

func DefaultMigrationPolicy() MigrationPolicy {
	return MigrationPolicy{
		AdminOnly:        true,
		AllowSameVersion: false,
	}
}

// ContractInfo is stored for every contract instance.
type ContractInfo struct {
	Code    string `json:"code"`
	Admin   string `json:"admin"`
	Creator string `json:"creator"`
	Label   string `json:"label"`
}

func contractPrefix(addr loom.Address) []byte {
	return util.PrefixKey([]byte("contract"), []byte(addr.Local))
}

func infoKey(addr loom.Address) []byte {
	return util.PrefixKey(contractPrefix(addr), []byte("info"))
}

func dataPrefix(addr loom.Address) []byte {
	return util.PrefixKey(contractPrefix(addr), []byte("data"))
}

func createAddress(parent loom.Address, nonce uint64) loom.Address {
	var nonceBuf bytes.Buffer
	binary.Write(&nonceBuf, binary.BigEndian, nonce)
	data := util.PrefixKey(parent.Bytes(), nonceBuf.Bytes())
	hash := sha3.Sum256(data)
	return loom.Address{
		ChainID: parent.ChainID,
		Local:   hash[12:],
	}
}

// Result is the outcome of a mutating contract call.
type Result struct {
	Data   []byte
	Events []contract.Event
}

// PluginVM runs builtin contracts against the app state, and dispatches the module messages
// returned by them. It doesn't provide atomicity itself, the caller must discard the state if
// any call fails.
type PluginVM struct {
	Loader     Loader
	State      state.State
	Policy     MigrationPolicy
	Logger     log.Logger
	names      *name.NameModule
	attributes *attribute.AttributeModule
}

func NewPluginVM(loader Loader, s state.State, policy MigrationPolicy, logger log.Logger) *PluginVM {
	if logger == nil {
		logger = log.Default
	}
	names := name.NewNameModule(s)
	return &PluginVM{
		Loader:     loader,
		State:      s,
		Policy:     policy,
		Logger:     logger,
		names:      names,
		attributes: attribute.NewAttributeModule(s, names),
	}
}

func (vm *PluginVM) Names() *name.NameModule {
	return vm.names
}

func (vm *PluginVM) Attributes() *attribute.AttributeModule {
	return vm.attributes
}

func (vm *PluginVM) GetContractInfo(addr loom.Address) (*ContractInfo, error) {
	data := vm.State.Get(infoKey(addr))
	if len(data) == 0 {
		return nil, errors.Wrap(contract.ErrContractNotFound, addr.String())
	}
	var info ContractInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, errors.Wrap(contract.ErrStore, err.Error())
	}
	return &info, nil
}

func (vm *PluginVM) setContractInfo(addr loom.Address, info *ContractInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return errors.Wrap(contract.ErrStore, err.Error())
	}
	vm.State.Set(infoKey(addr), data)
	return nil
}

func (vm *PluginVM) newContext(caller, addr loom.Address, funds []contract.Coin) *contractContext {
	return &contractContext{
		State:   vm.State.WithPrefix(dataPrefix(addr)),
		vm:      vm,
		caller:  caller,
		address: addr,
		funds:   funds,
	}
}

// Instantiate creates a new instance of the given code, admin may be empty in which case the
// caller becomes the admin.
func (vm *PluginVM) Instantiate(
	caller loom.Address,
	code, label string,
	admin loom.Address,
	funds []contract.Coin,
	msg []byte,
) (loom.Address, *Result, error) {
	c, err := vm.Loader.LoadContract(code)
	if err != nil {
		return loom.Address{}, nil, err
	}

	seq := memberapproval.NewSequence(contractSeqKey).Next(vm.State)
	addr := createAddress(caller, seq)
	if vm.State.Has(infoKey(addr)) {
		return loom.Address{}, nil, errors.Errorf("contract %s already exists", addr.String())
	}
	if admin.IsEmpty() {
		admin = caller
	}
	if err := vm.setContractInfo(addr, &ContractInfo{
		Code:    code,
		Admin:   admin.String(),
		Creator: caller.String(),
		Label:   label,
	}); err != nil {
		return loom.Address{}, nil, err
	}

	res, err := c.Instantiate(vm.newContext(caller, addr, funds), msg)
	if err != nil {
		return loom.Address{}, nil, err
	}

	hostEvent := contract.NewEvent(EventTypeInstantiate).
		Add(AttributeKeyContractAddr, addr.String()).
		Add(AttributeKeyCodeID, code)
	result, err := vm.handleResponse(addr, &hostEvent, res)
	if err != nil {
		return loom.Address{}, nil, err
	}
	vm.Logger.Info("Contract instantiated", "code", code, "address", addr.String(), "label", label)
	return addr, result, nil
}

func (vm *PluginVM) Execute(caller, addr loom.Address, funds []contract.Coin, msg []byte) (*Result, error) {
	info, err := vm.GetContractInfo(addr)
	if err != nil {
		return nil, err
	}
	c, err := vm.Loader.LoadContract(info.Code)
	if err != nil {
		return nil, err
	}

	res, err := c.Execute(vm.newContext(caller, addr, funds), msg)
	if err != nil {
		return nil, err
	}
	return vm.handleResponse(addr, nil, res)
}

// Query runs a read-only query, the contract only gets a StaticContext so it can't write.
func (vm *PluginVM) Query(addr loom.Address, msg []byte) ([]byte, error) {
	info, err := vm.GetContractInfo(addr)
	if err != nil {
		return nil, err
	}
	c, err := vm.Loader.LoadContract(info.Code)
	if err != nil {
		return nil, err
	}
	var ctx contract.StaticContext = vm.newContext(loom.Address{}, addr, nil)
	return c.Query(ctx, msg)
}

// Migrate swaps the code of the instance and runs the migration entry point of the new code.
func (vm *PluginVM) Migrate(caller, addr loom.Address, code string, msg []byte) (*Result, error) {
	info, err := vm.GetContractInfo(addr)
	if err != nil {
		return nil, err
	}
	if vm.Policy.AdminOnly && info.Admin != caller.String() {
		return nil, errors.Wrapf(
			contract.ErrUnauthorized, "%s is not the admin of contract %s", caller.String(), addr.String(),
		)
	}
	c, err := vm.Loader.LoadContract(code)
	if err != nil {
		return nil, err
	}

	res, err := c.Migrate(vm.newContext(caller, addr, nil), msg)
	if err != nil {
		return nil, err
	}

	prevCode := info.Code
	info.Code = code
	if err := vm.setContractInfo(addr, info); err != nil {
		return nil, err
	}

	hostEvent := contract.NewEvent(EventTypeMigrate).
		Add(AttributeKeyContractAddr, addr.String()).
		Add(AttributeKeyCodeID, code)
	result, err := vm.handleResponse(addr, &hostEvent, res)
	if err != nil {
		return nil, err
	}
	vm.Logger.Info("Contract migrated", "address", addr.String(), "from", prevCode, "to", code)
	return result, nil
}

// handleResponse dispatches the messages in the contract response and assembles the events.
func (vm *PluginVM) handleResponse(addr loom.Address, hostEvent *contract.Event, res *contract.Response) (*Result, error) {
	if res == nil {
		res = contract.NewResponse()
	}
	if err := vm.dispatch(addr, res.Messages); err != nil {
		return nil, err
	}

	var events []contract.Event
	if hostEvent != nil {
		events = append(events, *hostEvent)
	}
	if len(res.Attributes) > 0 {
		ev := contract.NewEvent(EventTypeWasm).Add(AttributeKeyContractAddr, addr.String())
		ev.Attributes = append(ev.Attributes, res.Attributes...)
		events = append(events, ev)
	}
	for _, custom := range res.Events {
		ev := contract.NewEvent(EventTypeWasm+"-"+custom.Type).Add(AttributeKeyContractAddr, addr.String())
		ev.Attributes = append(ev.Attributes, custom.Attributes...)
		events = append(events, ev)
	}
	return &Result{
		Data:   res.Data,
		Events: events,
	}, nil
}

func (vm *PluginVM) dispatch(sender loom.Address, msgs []contract.Msg) error {
	for _, m := range msgs {
		var err error
		switch msg := m.(type) {
		case *contract.BindNameMsg:
			err = vm.names.Bind(msg.Name, msg.Address, sender, msg.Restrict)
		case *contract.AddAttributeMsg:
			err = vm.attributes.Add(sender, msg.Account, contract.AccountAttribute{
				Name:      msg.Name,
				Value:     msg.Value,
				ValueType: msg.ValueType,
			})
		default:
			err = errors.Errorf("unsupported message %T", m)
		}
		if err != nil {
			return errors.Wrap(contract.ErrExternalService, err.Error())
		}
	}
	return nil
}

type contractContext struct {
	state.State
	vm      *PluginVM
	caller  loom.Address
	address loom.Address
	funds   []contract.Coin
}

var _ contract.Context = &contractContext{}

func (c *contractContext) Message() contract.Message {
	return contract.Message{
		Sender: c.caller,
		Funds:  c.funds,
	}
}

func (c *contractContext) ContractAddress() loom.Address {
	return c.address
}

func (c *contractContext) Now() time.Time {
	return time.Unix(c.State.Block().Time, 0)
}

func (c *contractContext) Logger() log.Logger {
	return c.vm.Logger.With("contract", c.address.String())
}

func (c *contractContext) GetAttributes(account loom.Address, name string) ([]contract.AccountAttribute, error) {
	return c.vm.attributes.Get(account, name)
}

func (c *contractContext) ResolveName(name string) (loom.Address, error) {
	return c.vm.names.Resolve(name)
}
