package group_member_approval

import (
	"github.com/pkg/errors"

	"github.com/loomnetwork/memberapproval/builtin/modules/name"
	"github.com/loomnetwork/memberapproval/contract"
)

func (c *GroupMemberApproval) instantiate(ctx contract.Context, msg *InstantiateMsg) (*contract.Response, error) {
	if msg.ContractName == "" {
		return nil, errors.Wrap(ErrInstantiation, "provided contract name must not be empty")
	}
	if msg.AttributeName == "" {
		return nil, errors.Wrap(ErrInstantiation, "provided attribute name must not be empty")
	}
	if err := name.ValidateName(msg.AttributeName); err != nil {
		return nil, errors.Wrapf(ErrInstantiation, "invalid attribute name %s: %v", msg.AttributeName, err)
	}
	if err := checkFundsAreEmpty(ctx); err != nil {
		return nil, err
	}

	state := &ContractState{
		Admin:           ctx.Message().Sender.String(),
		AttributeName:   msg.AttributeName,
		ContractName:    msg.ContractName,
		ContractType:    ContractType,
		ContractVersion: c.version,
	}
	if err := SetContractState(ctx, state); err != nil {
		return nil, err
	}

	res := contract.NewResponse().
		AddAttribute("action", "instantiate").
		AddAttribute("contract_name", msg.ContractName).
		AddAttribute("contract_attribute", msg.AttributeName)
	if msg.BindAttributeName {
		res.AddMessage(&contract.BindNameMsg{
			Name:     msg.AttributeName,
			Address:  ctx.ContractAddress(),
			Restrict: true,
		})
	}
	ctx.Logger().Info("Group member approval contract instantiated",
		"name", msg.ContractName, "attribute", msg.AttributeName)
	return res, nil
}
