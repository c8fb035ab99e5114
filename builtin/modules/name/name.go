package name

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/loomnetwork/go-loom"
	"github.com/loomnetwork/go-loom/util"
	"github.com/pkg/errors"

	"github.com/loomnetwork/memberapproval/store"
)

const (
	minNameLen = 1
	maxNameLen = 255
)

var (
	validSegmentRE = regexp.MustCompile("^[a-zA-Z0-9\\-]+$")

	nameKeyPrefix = []byte("name")
)

var (
	ErrNotFound     = errors.New("[NameModule] name not found")
	ErrAlreadyBound = errors.New("[NameModule] name already bound")
	ErrInvalidName  = errors.New("[NameModule] invalid name")
	ErrRestricted   = errors.New("[NameModule] parent name is restricted")
)

// Record is the stored form of a name binding.
type Record struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	Restricted bool   `json:"restricted"`
}

func nameKey(name string) []byte {
	return util.PrefixKey(nameKeyPrefix, []byte(name))
}

// ValidateName checks that the name is made up of dot separated segments of letters, digits
// and dashes, and is no longer than 255 bytes in total.
func ValidateName(name string) error {
	if len(name) < minNameLen || len(name) > maxNameLen {
		return errors.Wrapf(ErrInvalidName, "name length must be between %d and %d", minNameLen, maxNameLen)
	}
	for _, segment := range strings.Split(name, ".") {
		if !validSegmentRE.MatchString(segment) {
			return errors.Wrapf(ErrInvalidName, "invalid segment %q in name %q", segment, name)
		}
	}
	return nil
}

// parentName returns the name with the first segment removed, or an empty string for root names.
func parentName(name string) string {
	idx := strings.Index(name, ".")
	if idx < 0 {
		return ""
	}
	return name[idx+1:]
}

// NameModule binds hierarchical names to addresses. A name can only be bound under an existing
// parent, and if the parent is restricted only the parent's owner can bind names under it.
type NameModule struct {
	State store.KVStore
}

func NewNameModule(s store.KVStore) *NameModule {
	return &NameModule{State: s}
}

// Bind binds the name to addr on behalf of owner.
func (m *NameModule) Bind(name string, addr, owner loom.Address, restricted bool) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	parent := parentName(name)
	if parent == "" {
		return errors.Wrapf(ErrRestricted, "root name %s can only be bound at genesis", name)
	}
	parentRec, err := m.GetRecord(parent)
	if err != nil {
		return errors.Wrapf(err, "parent of %s", name)
	}
	if parentRec.Restricted {
		parentAddr, err := loom.ParseAddress(parentRec.Address)
		if err != nil {
			return err
		}
		if parentAddr.Compare(owner) != 0 {
			return errors.Wrapf(ErrRestricted, "%s can't bind %s", owner.String(), name)
		}
	}
	return m.set(name, addr, restricted)
}

// BindRoot binds a name without checking for a parent, only used at genesis.
func (m *NameModule) BindRoot(name string, addr loom.Address, restricted bool) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	return m.set(name, addr, restricted)
}

func (m *NameModule) set(name string, addr loom.Address, restricted bool) error {
	if m.State.Has(nameKey(name)) {
		return errors.Wrap(ErrAlreadyBound, name)
	}
	data, err := json.Marshal(&Record{
		Name:       name,
		Address:    addr.String(),
		Restricted: restricted,
	})
	if err != nil {
		return err
	}
	m.State.Set(nameKey(name), data)
	return nil
}

func (m *NameModule) GetRecord(name string) (*Record, error) {
	data := m.State.Get(nameKey(name))
	if len(data) == 0 {
		return nil, errors.Wrap(ErrNotFound, name)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Resolve returns the address the name is bound to.
func (m *NameModule) Resolve(name string) (loom.Address, error) {
	rec, err := m.GetRecord(name)
	if err != nil {
		return loom.Address{}, err
	}
	return loom.ParseAddress(rec.Address)
}
