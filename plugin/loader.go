package plugin

import (
	"sort"
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/pkg/errors"

	"github.com/loomnetwork/memberapproval/contract"
)

var (
	ErrPluginNotFound = errors.New("plugin not found")
)

type Loader interface {
	LoadContract(code string) (contract.Contract, error)
}

// Meta is a parsed name:version code id.
type Meta struct {
	Name    string
	Version *version.Version
}

func (m *Meta) String() string {
	return m.Name + ":" + m.Version.String()
}

// Compare orders metas by name, and then by version, newest first.
func (m *Meta) Compare(other *Meta) int {
	ret := strings.Compare(m.Name, other.Name)
	if ret == 0 {
		ret = -1 * m.Version.Compare(other.Version)
	}

	return ret
}

func ParseMeta(s string) (*Meta, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return nil, errors.Errorf("invalid plugin format %q, expected name:version", s)
	}

	ver, err := version.NewVersion(parts[1])
	if err != nil {
		return nil, errors.Wrapf(err, "invalid plugin version in %q", s)
	}

	return &Meta{
		Name:    parts[0],
		Version: ver,
	}, nil
}

func contractMeta(c contract.Contract) (*Meta, error) {
	meta, err := c.Meta()
	if err != nil {
		return nil, err
	}
	return ParseMeta(meta.String())
}

// StaticLoader serves a fixed set of compiled-in contracts.
type StaticLoader struct {
	Contracts []contract.Contract
}

var _ Loader = &StaticLoader{}

func NewStaticLoader(contracts ...contract.Contract) *StaticLoader {
	return &StaticLoader{
		Contracts: contracts,
	}
}

func (m *StaticLoader) LoadContract(code string) (contract.Contract, error) {
	meta, err := ParseMeta(code)
	if err != nil {
		return nil, err
	}
	for _, c := range m.Contracts {
		cMeta, err := contractMeta(c)
		if err != nil {
			return nil, err
		}
		if meta.Compare(cMeta) == 0 {
			return c, nil
		}
	}

	return nil, errors.Wrap(ErrPluginNotFound, code)
}

// Latest returns the code id of the newest version of the named contract.
func (m *StaticLoader) Latest(name string) (string, error) {
	var metas []*Meta
	for _, c := range m.Contracts {
		cMeta, err := contractMeta(c)
		if err != nil {
			return "", err
		}
		if cMeta.Name == name {
			metas = append(metas, cMeta)
		}
	}
	if len(metas) == 0 {
		return "", errors.Wrap(ErrPluginNotFound, name)
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].Compare(metas[j]) < 0
	})
	return metas[0].String(), nil
}
