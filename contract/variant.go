package contract

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// DecodeVariant splits a JSON wrapper object of the form {"<variant>": <body>} into the variant
// name and its body.
func DecodeVariant(data []byte) (string, json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", nil, errors.Wrap(ErrDeserialization, err.Error())
	}
	if len(obj) != 1 {
		return "", nil, errors.Wrapf(ErrDeserialization, "expected exactly one variant, got %d", len(obj))
	}
	for name, body := range obj {
		return name, body, nil
	}
	return "", nil, nil
}

// EncodeVariant wraps the body in an object keyed by the variant name, a nil body is encoded
// as an empty object.
func EncodeVariant(name string, body interface{}) ([]byte, error) {
	if body == nil {
		body = struct{}{}
	}
	return json.Marshal(map[string]interface{}{name: body})
}

// DecodeBody unmarshals a variant body, rejecting unknown fields.
func DecodeBody(body json.RawMessage, v interface{}) error {
	if len(body) == 0 {
		body = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Cause(err) == ErrDeserialization {
			return err
		}
		return errors.Wrap(ErrDeserialization, err.Error())
	}
	return nil
}
