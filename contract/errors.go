package contract

import "github.com/pkg/errors"

// Errors shared by the host and the contracts it runs, callers should compare against
// errors.Cause(err).
var (
	ErrDeserialization     = errors.New("deserialization error")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidContractType = errors.New("invalid contract type")
	ErrInvalidVersion      = errors.New("invalid contract version")
	ErrExternalService     = errors.New("external service error")
	ErrStore               = errors.New("store error")
	ErrContractNotFound    = errors.New("contract not found")
)
