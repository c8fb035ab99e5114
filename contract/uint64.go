package contract

import (
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

// Uint64 is an unsigned 64-bit integer that is encoded as a decimal JSON string, so "42" rather
// than 42. Bare numbers, negative, fractional and non-numeric strings are rejected.
type Uint64 uint64

func (u Uint64) String() string {
	return strconv.FormatUint(uint64(u), 10)
}

func (u Uint64) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

func (u *Uint64) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrapf(ErrDeserialization, "expected uint64 encoded as a string, got %s", data)
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return errors.Wrapf(ErrDeserialization, "invalid uint64 %q", s)
	}
	*u = Uint64(v)
	return nil
}
