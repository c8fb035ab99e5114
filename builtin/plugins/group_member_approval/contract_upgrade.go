package group_member_approval

import (
	"encoding/json"

	"github.com/hashicorp/go-version"
	"github.com/pkg/errors"

	"github.com/loomnetwork/memberapproval/contract"
)

func (c *GroupMemberApproval) contractUpgrade(ctx contract.Context) (*contract.Response, error) {
	state, err := GetContractState(ctx)
	if err != nil {
		return nil, err
	}
	if state.ContractType != ContractType {
		return nil, errors.Wrapf(contract.ErrInvalidContractType,
			"target migration contract type [%s] does not match stored contract type [%s]",
			ContractType, state.ContractType)
	}
	if err := checkUpgradeVersion(c.version, state.ContractVersion, c.allowSameVersion); err != nil {
		return nil, err
	}

	state.ContractVersion = c.version
	if err := SetContractState(ctx, state); err != nil {
		return nil, err
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	ctx.Logger().Info("Group member approval contract upgraded", "version", c.version)
	return contract.NewResponse().
		AddAttribute("action", "migrate_contract").
		AddAttribute("new_version", c.version).
		SetData(data), nil
}

func checkUpgradeVersion(target, stored string, allowSame bool) error {
	targetVersion, err := version.NewSemver(target)
	if err != nil {
		return errors.Wrapf(contract.ErrInvalidVersion, "invalid target migration contract version [%s]", target)
	}
	storedVersion, err := version.NewSemver(stored)
	if err != nil {
		return errors.Wrapf(contract.ErrInvalidVersion, "invalid stored contract version [%s]", stored)
	}
	if targetVersion.GreaterThan(storedVersion) || (allowSame && targetVersion.Equal(storedVersion)) {
		return nil
	}
	return errors.Wrapf(contract.ErrInvalidVersion,
		"target migration contract version [%s] is too low to use. stored contract version is [%s]",
		target, stored)
}
