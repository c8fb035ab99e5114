package group_member_approval

import (
	"encoding/json"

	"github.com/loomnetwork/memberapproval/contract"
)

func queryContractState(ctx contract.StaticContext) ([]byte, error) {
	state, err := GetContractState(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(state)
}
