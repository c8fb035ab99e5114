package attribute

import (
	"encoding/hex"
	"encoding/json"

	"github.com/loomnetwork/go-loom"
	"github.com/loomnetwork/go-loom/util"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"

	"github.com/loomnetwork/memberapproval/contract"
	"github.com/loomnetwork/memberapproval/store"
)

var (
	attrKeyPrefix = []byte("attr")
)

var (
	ErrUnauthorizedNamespace = errors.New("[AttributeModule] unauthorized namespace")
	ErrDuplicateAttribute    = errors.New("[AttributeModule] duplicate attribute")
	ErrInvalidValue          = errors.New("[AttributeModule] invalid attribute value")
)

// NameResolver looks up the owner of an attribute name.
type NameResolver interface {
	Resolve(name string) (loom.Address, error)
}

// AttributeModule stores typed attributes on accounts. Only the address a name is bound to may
// write attributes with that name, an account may hold any number of values for a name but
// never the same value twice.
type AttributeModule struct {
	State store.KVStore
	Names NameResolver
}

func NewAttributeModule(s store.KVStore, names NameResolver) *AttributeModule {
	return &AttributeModule{
		State: s,
		Names: names,
	}
}

func accountPrefix(account loom.Address) []byte {
	return util.PrefixKey(attrKeyPrefix, account.Bytes())
}

func attributeKey(account loom.Address, attr contract.AccountAttribute) []byte {
	hash := sha3.Sum256(util.PrefixKey([]byte(attr.ValueType), attr.Value))
	return util.PrefixKey(accountPrefix(account), []byte(attr.Name), []byte(hex.EncodeToString(hash[:])))
}

// Add writes the attribute to the account on behalf of caller.
func (m *AttributeModule) Add(caller, account loom.Address, attr contract.AccountAttribute) error {
	owner, err := m.Names.Resolve(attr.Name)
	if err != nil {
		return errors.Wrapf(ErrUnauthorizedNamespace, "unable to resolve name %s: %v", attr.Name, err)
	}
	if owner.Compare(caller) != 0 {
		return errors.Wrapf(ErrUnauthorizedNamespace, "%s does not own name %s", caller.String(), attr.Name)
	}
	if err := attr.ValueType.Validate(attr.Value); err != nil {
		return errors.Wrap(ErrInvalidValue, err.Error())
	}

	key := attributeKey(account, attr)
	if m.State.Has(key) {
		return errors.Wrapf(ErrDuplicateAttribute, "%s already has %s=%s", account.String(), attr.Name, attr.Value)
	}
	data, err := json.Marshal(&attr)
	if err != nil {
		return err
	}
	m.State.Set(key, data)
	return nil
}

// Get returns the account's attributes with the given name, or all of them if name is empty.
func (m *AttributeModule) Get(account loom.Address, name string) ([]contract.AccountAttribute, error) {
	prefix := accountPrefix(account)
	if name != "" {
		prefix = util.PrefixKey(prefix, []byte(name))
	}
	attrs := []contract.AccountAttribute{}
	for _, entry := range m.State.Range(prefix) {
		var attr contract.AccountAttribute
		if err := json.Unmarshal(entry.Value, &attr); err != nil {
			return nil, errors.Wrapf(err, "failed to decode attribute %s", entry.Key)
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}
