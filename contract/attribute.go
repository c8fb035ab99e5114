package contract

import (
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

type AttributeValueType string

const (
	AttributeValueTypeInt    AttributeValueType = "int"
	AttributeValueTypeString AttributeValueType = "string"
	AttributeValueTypeJSON   AttributeValueType = "json"
	AttributeValueTypeBytes  AttributeValueType = "bytes"
)

// Validate checks that the value is well formed for the value type.
func (t AttributeValueType) Validate(value []byte) error {
	switch t {
	case AttributeValueTypeInt:
		if _, err := strconv.ParseInt(string(value), 10, 64); err != nil {
			if _, err := strconv.ParseUint(string(value), 10, 64); err != nil {
				return errors.Errorf("value %q is not an int", value)
			}
		}
	case AttributeValueTypeString, AttributeValueTypeBytes:
	case AttributeValueTypeJSON:
		if !json.Valid(value) {
			return errors.Errorf("value %q is not valid json", value)
		}
	default:
		return errors.Errorf("unknown attribute value type %q", t)
	}
	return nil
}

// AccountAttribute is a named, typed value bound to an account.
type AccountAttribute struct {
	Name      string             `json:"name"`
	Value     []byte             `json:"value"`
	ValueType AttributeValueType `json:"value_type"`
}
