package group_member_approval

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/loomnetwork/memberapproval/contract"
)

const (
	routeApproveGroupMembership = "approve_group_membership"
	routeQueryContractState     = "query_contract_state"
	routeContractUpgrade        = "contract_upgrade"
)

type InstantiateMsg struct {
	ContractName      string `json:"contract_name"`
	AttributeName     string `json:"attribute_name"`
	BindAttributeName bool   `json:"bind_attribute_name"`
}

// ExecuteMsg is one of: ApproveGroupMembership
type ExecuteMsg interface {
	isExecuteMsg()
}

// ApproveGroupMembership records the sender's consent to be a member of the group.
type ApproveGroupMembership struct {
	GroupID contract.Uint64 `json:"group_id"`
}

func (ApproveGroupMembership) isExecuteMsg() {}

type approveGroupMembershipBody struct {
	GroupID *contract.Uint64 `json:"group_id"`
}

func (m ApproveGroupMembership) MarshalJSON() ([]byte, error) {
	return contract.EncodeVariant(routeApproveGroupMembership, &approveGroupMembershipBody{GroupID: &m.GroupID})
}

func ParseExecuteMsg(data []byte) (ExecuteMsg, error) {
	variant, body, err := contract.DecodeVariant(data)
	if err != nil {
		return nil, err
	}
	switch variant {
	case routeApproveGroupMembership:
		var b approveGroupMembershipBody
		if err := contract.DecodeBody(body, &b); err != nil {
			return nil, err
		}
		if b.GroupID == nil {
			return nil, errors.Wrap(contract.ErrDeserialization, "missing field group_id")
		}
		return ApproveGroupMembership{GroupID: *b.GroupID}, nil
	default:
		return nil, errors.Wrapf(contract.ErrDeserialization, "unknown execute variant %s", variant)
	}
}

// QueryMsg is one of: QueryContractState
type QueryMsg interface {
	isQueryMsg()
}

type QueryContractState struct{}

func (QueryContractState) isQueryMsg() {}

func (QueryContractState) MarshalJSON() ([]byte, error) {
	return contract.EncodeVariant(routeQueryContractState, nil)
}

func ParseQueryMsg(data []byte) (QueryMsg, error) {
	variant, body, err := contract.DecodeVariant(data)
	if err != nil {
		return nil, err
	}
	switch variant {
	case routeQueryContractState:
		if err := contract.DecodeBody(body, &struct{}{}); err != nil {
			return nil, err
		}
		return QueryContractState{}, nil
	default:
		return nil, errors.Wrapf(contract.ErrDeserialization, "unknown query variant %s", variant)
	}
}

// MigrateMsg is one of: ContractUpgrade
type MigrateMsg interface {
	isMigrateMsg()
}

type ContractUpgrade struct{}

func (ContractUpgrade) isMigrateMsg() {}

func (ContractUpgrade) MarshalJSON() ([]byte, error) {
	return contract.EncodeVariant(routeContractUpgrade, nil)
}

// ParseMigrateMsg decodes a migrate message, an empty object (or no message at all) is treated
// as a ContractUpgrade.
func ParseMigrateMsg(data []byte) (MigrateMsg, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("{}")) {
		return ContractUpgrade{}, nil
	}
	variant, body, err := contract.DecodeVariant(trimmed)
	if err != nil {
		return nil, err
	}
	switch variant {
	case routeContractUpgrade:
		if err := contract.DecodeBody(body, &struct{}{}); err != nil {
			return nil, err
		}
		return ContractUpgrade{}, nil
	default:
		return nil, errors.Wrapf(contract.ErrDeserialization, "unknown migrate variant %s", variant)
	}
}
