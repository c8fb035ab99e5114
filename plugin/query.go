package plugin

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/loomnetwork/go-loom"
	"github.com/pkg/errors"

	"github.com/loomnetwork/memberapproval"
	"github.com/loomnetwork/memberapproval/auth"
	"github.com/loomnetwork/memberapproval/state"
)

// Query paths served by the QueryHandler, the address or name is appended after a slash.
const (
	QueryPathSmart        = "contract/smart"
	QueryPathContractInfo = "contract/info"
	QueryPathName         = "name"
	QueryPathAttributes   = "attributes"
	QueryPathNonce        = "nonce"
)

// QueryHandler serves read-only queries against committed state.
type QueryHandler struct {
	NewVM VMFactory
}

var _ memberapproval.QueryHandler = &QueryHandler{}

func splitPath(path string) (string, string, error) {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "", "", errors.Errorf("invalid query path %s", path)
	}
	return path[:idx], path[idx+1:], nil
}

func (h *QueryHandler) Handle(s state.ReadOnlyState, path string, data []byte) ([]byte, error) {
	route, arg, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	vm := h.NewVM(state.ReadOnly(s))

	switch route {
	case QueryPathSmart:
		addr, err := loom.ParseAddress(arg)
		if err != nil {
			return nil, err
		}
		return vm.Query(addr, data)
	case QueryPathContractInfo:
		addr, err := loom.ParseAddress(arg)
		if err != nil {
			return nil, err
		}
		info, err := vm.GetContractInfo(addr)
		if err != nil {
			return nil, err
		}
		return json.Marshal(info)
	case QueryPathName:
		rec, err := vm.Names().GetRecord(arg)
		if err != nil {
			return nil, err
		}
		return json.Marshal(rec)
	case QueryPathAttributes:
		addr, err := loom.ParseAddress(arg)
		if err != nil {
			return nil, err
		}
		attrs, err := vm.Attributes().Get(addr, string(data))
		if err != nil {
			return nil, err
		}
		return json.Marshal(attrs)
	case QueryPathNonce:
		addr, err := loom.ParseAddress(arg)
		if err != nil {
			return nil, err
		}
		return []byte(strconv.FormatUint(auth.Nonce(s, addr), 10)), nil
	default:
		return nil, errors.Errorf("unknown query path %s", path)
	}
}
