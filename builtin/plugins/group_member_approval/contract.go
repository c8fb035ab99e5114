package group_member_approval

import (
	"github.com/pkg/errors"

	"github.com/loomnetwork/memberapproval/contract"
)

const (
	ContractName    = "group_member_approval"
	ContractType    = "group_member_approval_smart_contract"
	ContractVersion = "1.0.0"
)

// GroupMemberApproval records the consent of accounts to join groups as attributes on the
// accounts themselves.
type GroupMemberApproval struct {
	version          string
	allowSameVersion bool
}

type Option func(*GroupMemberApproval)

// WithVersion overrides the version of the compiled contract, so newer code can be registered
// next to the older one.
func WithVersion(version string) Option {
	return func(c *GroupMemberApproval) {
		c.version = version
	}
}

// AllowSameVersionMigration lets migrations go ahead when the stored version equals the version
// of this code.
func AllowSameVersionMigration(allow bool) Option {
	return func(c *GroupMemberApproval) {
		c.allowSameVersion = allow
	}
}

func New(opts ...Option) *GroupMemberApproval {
	c := &GroupMemberApproval{
		version: ContractVersion,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var Contract contract.Contract = New()

var _ contract.Contract = &GroupMemberApproval{}

func (c *GroupMemberApproval) Meta() (contract.Meta, error) {
	return contract.Meta{
		Name:    ContractName,
		Version: c.version,
	}, nil
}

func (c *GroupMemberApproval) Instantiate(ctx contract.Context, data []byte) (*contract.Response, error) {
	var msg InstantiateMsg
	if err := contract.DecodeBody(data, &msg); err != nil {
		return nil, err
	}
	return c.instantiate(ctx, &msg)
}

func (c *GroupMemberApproval) Execute(ctx contract.Context, data []byte) (*contract.Response, error) {
	msg, err := ParseExecuteMsg(data)
	if err != nil {
		return nil, err
	}
	switch m := msg.(type) {
	case ApproveGroupMembership:
		return approveGroupMembership(ctx, uint64(m.GroupID))
	default:
		return nil, errors.Wrapf(contract.ErrDeserialization, "unsupported execute msg %T", msg)
	}
}

func (c *GroupMemberApproval) Query(ctx contract.StaticContext, data []byte) ([]byte, error) {
	msg, err := ParseQueryMsg(data)
	if err != nil {
		return nil, err
	}
	switch msg.(type) {
	case QueryContractState:
		return queryContractState(ctx)
	default:
		return nil, errors.Wrapf(contract.ErrDeserialization, "unsupported query msg %T", msg)
	}
}

func (c *GroupMemberApproval) Migrate(ctx contract.Context, data []byte) (*contract.Response, error) {
	msg, err := ParseMigrateMsg(data)
	if err != nil {
		return nil, err
	}
	switch msg.(type) {
	case ContractUpgrade:
		return c.contractUpgrade(ctx)
	default:
		return nil, errors.Wrapf(contract.ErrDeserialization, "unsupported migrate msg %T", msg)
	}
}

func checkFundsAreEmpty(ctx contract.StaticContext) error {
	if len(ctx.Message().Funds) > 0 {
		return errors.Wrap(ErrInvalidFunds, "route requires no funds be present")
	}
	return nil
}
