package group_member_approval

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/loomnetwork/memberapproval/contract"
	"github.com/loomnetwork/memberapproval/store"
)

var contractStateKey = []byte("contract_state")

// ContractState is the singleton record of a contract instance. It's created on instantiation
// and only modified by migrations.
type ContractState struct {
	Admin           string `json:"admin"`
	AttributeName   string `json:"attribute_name"`
	ContractName    string `json:"contract_name"`
	ContractType    string `json:"contract_type"`
	ContractVersion string `json:"contract_version"`
}

func GetContractState(s store.KVReader) (*ContractState, error) {
	data := s.Get(contractStateKey)
	if len(data) == 0 {
		return nil, errors.Wrap(contract.ErrStore, "contract state not found")
	}
	var state ContractState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.Wrapf(contract.ErrStore, "failed to decode contract state: %v", err)
	}
	return &state, nil
}

func SetContractState(s store.KVWriter, state *ContractState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return errors.Wrapf(contract.ErrStore, "failed to encode contract state: %v", err)
	}
	s.Set(contractStateKey, data)
	return nil
}
