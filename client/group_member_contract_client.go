package client

import (
	"encoding/json"
	"strconv"
	"sync"

	"github.com/loomnetwork/go-loom"
	"github.com/pkg/errors"

	"github.com/loomnetwork/memberapproval"
	"github.com/loomnetwork/memberapproval/auth"
	gma "github.com/loomnetwork/memberapproval/builtin/plugins/group_member_approval"
	"github.com/loomnetwork/memberapproval/contract"
	"github.com/loomnetwork/memberapproval/plugin"
)

// ContractAddressResolver locates the group member approval contract.
type ContractAddressResolver interface {
	Resolve(c *DAppChainClient) (loom.Address, error)
}

// ProvidedAddress resolves to a known contract address.
type ProvidedAddress struct {
	Address loom.Address
}

func (r ProvidedAddress) Resolve(c *DAppChainClient) (loom.Address, error) {
	return r.Address, nil
}

// FromName resolves the contract address through the name module.
type FromName struct {
	Name string
}

func (r FromName) Resolve(c *DAppChainClient) (loom.Address, error) {
	return c.ResolveName(r.Name)
}

// ExecuteApproveGroupMembership is the client side form of the approval message, the group id
// is signed so it has to be checked before it's sent.
type ExecuteApproveGroupMembership struct {
	GroupID int64
}

func (m ExecuteApproveGroupMembership) toMsg() (gma.ApproveGroupMembership, error) {
	if m.GroupID < 0 {
		return gma.ApproveGroupMembership{}, errors.Errorf("group id %d must be an unsigned integer", m.GroupID)
	}
	return gma.ApproveGroupMembership{GroupID: contract.Uint64(m.GroupID)}, nil
}

func (m ExecuteApproveGroupMembership) MarshalJSON() ([]byte, error) {
	msg, err := m.toMsg()
	if err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

// ApproveGroupMembershipResponse is decoded from the wasm event emitted by an approval.
type ApproveGroupMembershipResponse struct {
	Result         memberapproval.TxHandlerResult
	Action         string
	AccountAddress string
	AttributeName  string
	GroupID        uint64
}

// GroupMemberContractClient mirrors the execute and query routes of the group member approval
// contract.
type GroupMemberContractClient struct {
	client   *DAppChainClient
	resolver ContractAddressResolver

	mutex        sync.Mutex
	contractAddr loom.Address
}

func NewGroupMemberContractClient(client *DAppChainClient, resolver ContractAddressResolver) *GroupMemberContractClient {
	return &GroupMemberContractClient{
		client:   client,
		resolver: resolver,
	}
}

// ContractAddress resolves the contract address on first use.
func (c *GroupMemberContractClient) ContractAddress() (loom.Address, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.contractAddr.IsEmpty() {
		addr, err := c.resolver.Resolve(c.client)
		if err != nil {
			return loom.Address{}, errors.Wrap(err, "failed to resolve group member approval contract")
		}
		c.contractAddr = addr
	}
	return c.contractAddr, nil
}

// ExecuteGroupMemberApproval signifies that the signer has consented to be a member of the group.
func (c *GroupMemberContractClient) ExecuteGroupMemberApproval(
	msg ExecuteApproveGroupMembership,
	signer auth.Signer,
) (*ApproveGroupMembershipResponse, error) {
	tx, err := c.GenExecuteGroupMemberApprovalMsg(msg)
	if err != nil {
		return nil, err
	}
	r, err := c.client.CommitExecuteTx(signer, tx)
	if err != nil {
		return nil, err
	}
	event, err := singleWasmEvent(r.Events)
	if err != nil {
		return nil, err
	}

	res := &ApproveGroupMembershipResponse{Result: r}
	res.Action, _ = event.Get("action")
	res.AccountAddress, _ = event.Get("account_address")
	res.AttributeName, _ = event.Get("attribute_name")
	groupID, _ := event.Get("group_id")
	if res.GroupID, err = strconv.ParseUint(groupID, 10, 64); err != nil {
		return nil, errors.New("expected group_id attribute to be emitted by the smart contract")
	}
	return res, nil
}

// GenExecuteGroupMemberApprovalMsg generates the execute tx without committing it, so it can be
// signed elsewhere.
func (c *GroupMemberContractClient) GenExecuteGroupMemberApprovalMsg(msg ExecuteApproveGroupMembership) (*plugin.ExecuteTx, error) {
	contractAddr, err := c.ContractAddress()
	if err != nil {
		return nil, err
	}
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return &plugin.ExecuteTx{
		Contract: contractAddr.String(),
		Msg:      msgBytes,
	}, nil
}

// QueryContractState returns the name, version, and other details of the contract instance.
func (c *GroupMemberContractClient) QueryContractState() (*gma.ContractState, error) {
	contractAddr, err := c.ContractAddress()
	if err != nil {
		return nil, err
	}
	query, err := json.Marshal(gma.QueryContractState{})
	if err != nil {
		return nil, err
	}
	data, err := c.client.QuerySmart(contractAddr, query)
	if err != nil {
		return nil, err
	}
	var state gma.ContractState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func singleWasmEvent(events []contract.Event) (*contract.Event, error) {
	var found *contract.Event
	for i := range events {
		if events[i].Type != plugin.EventTypeWasm {
			continue
		}
		if found != nil {
			return nil, errors.New("expected a single wasm event to be emitted")
		}
		found = &events[i]
	}
	if found == nil {
		return nil, errors.New("expected a wasm event to be emitted")
	}
	return found, nil
}
