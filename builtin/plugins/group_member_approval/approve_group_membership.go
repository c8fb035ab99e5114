package group_member_approval

import (
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"

	"github.com/loomnetwork/memberapproval/contract"
)

func approveGroupMembership(ctx contract.Context, groupID uint64) (*contract.Response, error) {
	if err := checkFundsAreEmpty(ctx); err != nil {
		return nil, err
	}
	state, err := GetContractState(ctx)
	if err != nil {
		return nil, err
	}
	sender := ctx.Message().Sender

	existing, err := ctx.GetAttributes(sender, state.AttributeName)
	if err != nil {
		return nil, errors.Wrap(contract.ErrExternalService, err.Error())
	}
	for _, id := range GroupIDAttributeValues(existing, state.AttributeName) {
		if id == groupID {
			return nil, executeError(routeApproveGroupMembership,
				"group with id [%d] has already been approved by member [%s]", groupID, sender.String())
		}
	}

	value, err := json.Marshal(groupID)
	if err != nil {
		return nil, err
	}
	return contract.NewResponse().
		AddMessage(&contract.AddAttributeMsg{
			Account:   sender,
			Name:      state.AttributeName,
			Value:     value,
			ValueType: contract.AttributeValueTypeInt,
		}).
		AddAttribute("action", routeApproveGroupMembership).
		AddAttribute("account_address", sender.String()).
		AddAttribute("attribute_name", state.AttributeName).
		AddAttribute("group_id", strconv.FormatUint(groupID, 10)), nil
}
