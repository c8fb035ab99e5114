package config

import (
	"bytes"
	"io/ioutil"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Account is a named signing key known to the local deployment.
type Account struct {
	Name           string
	Address        string
	PrivateKeyPath string
}

// ContractInstance is a contract instance created through the CLI.
type ContractInstance struct {
	Label         string
	Code          string
	Address       string
	AttributeName string
}

// Deployment is the local manifest of accounts and contract instances, so the CLI can refer to
// them by name.
type Deployment struct {
	ChainID   string
	Accounts  []*Account
	Contracts []*ContractInstance
}

// ReadDeployment reads the manifest, a missing file yields an empty manifest.
func ReadDeployment(filename string) (*Deployment, error) {
	var d Deployment
	if _, err := toml.DecodeFile(filename, &d); err != nil {
		if os.IsNotExist(err) {
			return &Deployment{}, nil
		}
		return nil, errors.Wrapf(err, "failed to read deployment manifest %s", filename)
	}
	return &d, nil
}

func (d *Deployment) WriteToFile(filename string) error {
	buf := new(bytes.Buffer)
	if err := toml.NewEncoder(buf).Encode(d); err != nil {
		return errors.Wrap(err, "encoding deployment manifest error")
	}
	return ioutil.WriteFile(filename, buf.Bytes(), 0644)
}

func (d *Deployment) Account(name string) *Account {
	for _, acc := range d.Accounts {
		if acc.Name == name {
			return acc
		}
	}
	return nil
}

// SetAccount adds the account, replacing any existing account with the same name.
func (d *Deployment) SetAccount(acc *Account) {
	for i, existing := range d.Accounts {
		if existing.Name == acc.Name {
			d.Accounts[i] = acc
			return
		}
	}
	d.Accounts = append(d.Accounts, acc)
}

func (d *Deployment) Contract(label string) *ContractInstance {
	for _, c := range d.Contracts {
		if c.Label == label {
			return c
		}
	}
	return nil
}

// SetContract adds the contract instance, replacing any existing instance with the same label.
func (d *Deployment) SetContract(c *ContractInstance) {
	for i, existing := range d.Contracts {
		if existing.Label == c.Label {
			d.Contracts[i] = c
			return
		}
	}
	d.Contracts = append(d.Contracts, c)
}
