package main

import (
	"encoding/base64"
	"fmt"
	"io/ioutil"
	"strings"

	"github.com/loomnetwork/go-loom"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ed25519"

	"github.com/loomnetwork/memberapproval/auth"
	"github.com/loomnetwork/memberapproval/config"
)

func writeKeyPair(chainID, privFile, pubFile string) (loom.Address, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return loom.Address{}, errors.Wrap(err, "error generating key pair")
	}
	encoder := base64.StdEncoding
	if err := ioutil.WriteFile(privFile, []byte(encoder.EncodeToString(priv[:])), 0600); err != nil {
		return loom.Address{}, errors.Wrap(err, "unable to write private key")
	}
	if pubFile != "" {
		if err := ioutil.WriteFile(pubFile, []byte(encoder.EncodeToString(pub[:])), 0644); err != nil {
			return loom.Address{}, errors.Wrap(err, "unable to write public key")
		}
	}
	return loom.Address{
		ChainID: chainID,
		Local:   loom.LocalAddressFromPublicKey(pub[:]),
	}, nil
}

func readSigner(privFile string) (auth.Signer, error) {
	data, err := ioutil.ReadFile(privFile)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read private key")
	}
	priv, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, errors.Wrap(err, "invalid private key")
	}
	if len(priv) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("invalid private key length %d", len(priv))
	}
	return auth.NewEd25519Signer(priv), nil
}

type genKeyFlags struct {
	PublicFile string
	PrivFile   string
	Name       string
}

func newGenKeyCommand(rootFlags *rootFlags) *cobra.Command {
	var flags genKeyFlags
	keygenCmd := &cobra.Command{
		Use:   "genkey",
		Short: "generate a public and private key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := parseConfig(rootFlags)
			if err != nil {
				return err
			}
			if flags.PrivFile == "" {
				return errors.New("private key file is required")
			}
			addr, err := writeKeyPair(cfg.ChainID, flags.PrivFile, flags.PublicFile)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "address: %s\n", addr.String())

			if flags.Name != "" {
				d, err := config.ReadDeployment(cfg.DeploymentPath())
				if err != nil {
					return err
				}
				d.SetAccount(&config.Account{
					Name:           flags.Name,
					Address:        addr.String(),
					PrivateKeyPath: flags.PrivFile,
				})
				return d.WriteToFile(cfg.DeploymentPath())
			}
			return nil
		},
	}
	keygenCmd.Flags().StringVarP(&flags.PublicFile, "public_key", "a", "", "public key file")
	keygenCmd.Flags().StringVarP(&flags.PrivFile, "private_key", "k", "", "private key file")
	keygenCmd.Flags().StringVarP(&flags.Name, "name", "n", "", "name of the account in the deployment manifest")
	return keygenCmd
}
