package name

import (
	"testing"

	"github.com/loomnetwork/go-loom"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomnetwork/memberapproval/store"
)

var (
	addr1 = loom.MustParseAddress("default:0xb16a379ec18d4093666f8f38b11a3071c920207d")
	addr2 = loom.MustParseAddress("default:0xfa4c7920accfd66b86f5fd0e69682a79f762d49e")
	addr3 = loom.MustParseAddress("default:0x5cecd1f7261e1f4c684e297be3edf03b825e01c4")
)

func TestValidateName(t *testing.T) {
	valid := []string{"pb", "memberapproval.pb", "a-b.c-d.pb", "X1"}
	for _, name := range valid {
		assert.NoError(t, ValidateName(name), name)
	}
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}
	invalid := []string{"", ".pb", "pb.", "a..pb", "a b.pb", "a_b.pb", string(long)}
	for _, name := range invalid {
		assert.Equal(t, ErrInvalidName, errors.Cause(ValidateName(name)), name)
	}
}

func TestNameModuleBind(t *testing.T) {
	m := NewNameModule(store.NewMemStore())
	require.NoError(t, m.BindRoot("pb", addr1, false))

	// root names can't be bound after genesis
	err := m.Bind("sc", addr2, addr2, false)
	require.Equal(t, ErrRestricted, errors.Cause(err))

	// parent must exist
	err = m.Bind("a.b.pb", addr2, addr2, false)
	require.Equal(t, ErrNotFound, errors.Cause(err))

	require.NoError(t, m.Bind("memberapproval.pb", addr2, addr3, true))
	addr, err := m.Resolve("memberapproval.pb")
	require.NoError(t, err)
	assert.Equal(t, 0, addr.Compare(addr2))

	err = m.Bind("memberapproval.pb", addr3, addr3, false)
	require.Equal(t, ErrAlreadyBound, errors.Cause(err))

	// only the owner of a restricted parent can bind names under it
	err = m.Bind("sub.memberapproval.pb", addr3, addr3, false)
	require.Equal(t, ErrRestricted, errors.Cause(err))
	require.NoError(t, m.Bind("sub.memberapproval.pb", addr3, addr2, false))

	rec, err := m.GetRecord("sub.memberapproval.pb")
	require.NoError(t, err)
	assert.Equal(t, &Record{Name: "sub.memberapproval.pb", Address: addr3.String()}, rec)

	_, err = m.Resolve("missing.pb")
	require.Equal(t, ErrNotFound, errors.Cause(err))
}
