package attribute

import (
	"testing"

	"github.com/loomnetwork/go-loom"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/loomnetwork/memberapproval/builtin/modules/name"
	"github.com/loomnetwork/memberapproval/contract"
	"github.com/loomnetwork/memberapproval/store"
)

var (
	owner   = loom.MustParseAddress("default:0xb16a379ec18d4093666f8f38b11a3071c920207d")
	member  = loom.MustParseAddress("default:0xfa4c7920accfd66b86f5fd0e69682a79f762d49e")
	someone = loom.MustParseAddress("default:0x5cecd1f7261e1f4c684e297be3edf03b825e01c4")
)

func newAttributeModule(t *testing.T) *AttributeModule {
	s := store.NewMemStore()
	names := name.NewNameModule(s)
	require.NoError(t, names.BindRoot("pb", someone, false))
	require.NoError(t, names.Bind("memberapproval.pb", owner, someone, true))
	require.NoError(t, names.Bind("other.pb", someone, someone, false))
	return NewAttributeModule(s, names)
}

func intAttr(name, value string) contract.AccountAttribute {
	return contract.AccountAttribute{
		Name:      name,
		Value:     []byte(value),
		ValueType: contract.AttributeValueTypeInt,
	}
}

func TestAttributeModuleAdd(t *testing.T) {
	m := newAttributeModule(t)

	require.NoError(t, m.Add(owner, member, intAttr("memberapproval.pb", "42")))
	require.NoError(t, m.Add(owner, member, intAttr("memberapproval.pb", "43")))

	err := m.Add(owner, member, intAttr("memberapproval.pb", "42"))
	require.Equal(t, ErrDuplicateAttribute, errors.Cause(err))

	err = m.Add(someone, member, intAttr("memberapproval.pb", "44"))
	require.Equal(t, ErrUnauthorizedNamespace, errors.Cause(err))

	err = m.Add(owner, member, intAttr("unbound.pb", "44"))
	require.Equal(t, ErrUnauthorizedNamespace, errors.Cause(err))

	err = m.Add(owner, member, intAttr("memberapproval.pb", "forty-two"))
	require.Equal(t, ErrInvalidValue, errors.Cause(err))

	require.NoError(t, m.Add(someone, member, contract.AccountAttribute{
		Name:      "other.pb",
		Value:     []byte(`{"a":1}`),
		ValueType: contract.AttributeValueTypeJSON,
	}))

	attrs, err := m.Get(member, "memberapproval.pb")
	require.NoError(t, err)
	require.Len(t, attrs, 2)
	values := []string{string(attrs[0].Value), string(attrs[1].Value)}
	require.ElementsMatch(t, []string{"42", "43"}, values)

	attrs, err = m.Get(member, "")
	require.NoError(t, err)
	require.Len(t, attrs, 3)

	attrs, err = m.Get(someone, "memberapproval.pb")
	require.NoError(t, err)
	require.NotNil(t, attrs)
	require.Len(t, attrs, 0)
}
