package group_member_approval

import (
	"encoding/json"

	"github.com/loomnetwork/memberapproval/contract"
)

// GroupIDAttributeValues returns the group ids stored in the attributes, only int attributes
// with the given name and a value that decodes to a uint64 are counted.
func GroupIDAttributeValues(attrs []contract.AccountAttribute, name string) []uint64 {
	var ids []uint64
	for _, attr := range attrs {
		if attr.Name != name || attr.ValueType != contract.AttributeValueTypeInt {
			continue
		}
		var id uint64
		if err := json.Unmarshal(attr.Value, &id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
