package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/loomnetwork/go-loom"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/loomnetwork/memberapproval"
	"github.com/loomnetwork/memberapproval/auth"
	gma "github.com/loomnetwork/memberapproval/builtin/plugins/group_member_approval"
	"github.com/loomnetwork/memberapproval/client"
	"github.com/loomnetwork/memberapproval/config"
	"github.com/loomnetwork/memberapproval/node"
	"github.com/loomnetwork/memberapproval/store"
)

type contractFlags struct {
	Contract string
	Key      string
}

func (f *contractFlags) addContractFlag(fs *pflag.FlagSet) {
	fs.StringVar(&f.Contract, "contract", "", "contract address, deployment label, or bound name")
}

func (f *contractFlags) addKeyFlag(fs *pflag.FlagSet) {
	fs.StringVarP(&f.Key, "key", "k", "", "private key file, or the name of a deployment account")
}

// session is an open node along with the deployment manifest for a single command.
type session struct {
	cfg        *config.Config
	node       *node.Node
	client     *client.DAppChainClient
	deployment *config.Deployment
}

func openSession(flags *rootFlags) (*session, error) {
	n, err := loadNode(flags)
	if err != nil {
		return nil, err
	}
	d, err := config.ReadDeployment(n.Config.DeploymentPath())
	if err != nil {
		n.Close()
		return nil, err
	}
	return &session{
		cfg:        n.Config,
		node:       n,
		client:     client.NewDAppChainClient(n.App, n.Config.ChainID),
		deployment: d,
	}, nil
}

func (s *session) Close() error {
	return s.node.Close()
}

func (s *session) signer(key string) (auth.Signer, error) {
	if key == "" {
		key = s.cfg.PrivateKeyPath()
	} else if acc := s.deployment.Account(key); acc != nil {
		key = acc.PrivateKeyPath
	}
	return readSigner(key)
}

// resolver maps a contract reference to an address resolver, addresses are used as is, then
// deployment labels are tried, and anything else is treated as a bound name.
func (s *session) resolver(ref string) (client.ContractAddressResolver, error) {
	if ref == "" {
		return nil, errors.New("contract is required")
	}
	if addr, err := loom.ParseAddress(ref); err == nil {
		return client.ProvidedAddress{Address: addr}, nil
	}
	if c := s.deployment.Contract(ref); c != nil {
		addr, err := loom.ParseAddress(c.Address)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid address for contract %s", ref)
		}
		return client.ProvidedAddress{Address: addr}, nil
	}
	return client.FromName{Name: ref}, nil
}

func (s *session) contractAddress(ref string) (loom.Address, error) {
	r, err := s.resolver(ref)
	if err != nil {
		return loom.Address{}, err
	}
	return r.Resolve(s.client)
}

func (s *session) groupMemberClient(ref string) (*client.GroupMemberContractClient, error) {
	r, err := s.resolver(ref)
	if err != nil {
		return nil, err
	}
	return client.NewGroupMemberContractClient(s.client, r), nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func defaultCode(version string) string {
	return gma.ContractName + ":" + version
}

type instantiateFlags struct {
	contractFlags
	Label         string
	Code          string
	ContractName  string
	AttributeName string
	Bind          bool
	Admin         string
}

func newInstantiateCommand(rootFlags *rootFlags) *cobra.Command {
	var flags instantiateFlags
	cmd := &cobra.Command{
		Use:   "instantiate",
		Short: "Instantiate a group member approval contract",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootFlags)
			if err != nil {
				return err
			}
			defer s.Close()

			signer, err := s.signer(flags.Key)
			if err != nil {
				return err
			}
			var admin loom.Address
			if flags.Admin != "" {
				if admin, err = loom.ParseAddress(flags.Admin); err != nil {
					return err
				}
			}
			msg, err := json.Marshal(&gma.InstantiateMsg{
				ContractName:      flags.ContractName,
				AttributeName:     flags.AttributeName,
				BindAttributeName: flags.Bind,
			})
			if err != nil {
				return err
			}
			label := flags.Label
			if label == "" {
				label = flags.ContractName
			}

			res, _, err := s.client.CommitInstantiateTx(signer, flags.Code, label, admin, msg)
			if err != nil {
				return err
			}
			s.deployment.ChainID = s.cfg.ChainID
			s.deployment.SetContract(&config.ContractInstance{
				Label:         label,
				Code:          flags.Code,
				Address:       res.Address,
				AttributeName: flags.AttributeName,
			})
			if err := s.deployment.WriteToFile(s.cfg.DeploymentPath()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "contract %s instantiated at %s\n", label, res.Address)
			return nil
		},
	}
	flags.addKeyFlag(cmd.Flags())
	cmd.Flags().StringVar(&flags.Label, "label", "", "label of the instance in the deployment manifest")
	cmd.Flags().StringVar(&flags.Code, "code", defaultCode(gma.ContractVersion), "code id of the contract, name:version")
	cmd.Flags().StringVar(&flags.ContractName, "contract-name", "", "name of the contract")
	cmd.Flags().StringVar(&flags.AttributeName, "attribute-name", "", "attribute written to approving accounts")
	cmd.Flags().BoolVar(&flags.Bind, "bind", false, "bind the attribute name to the contract address")
	cmd.Flags().StringVar(&flags.Admin, "admin", "", "admin address, defaults to the signer")
	return cmd
}

func newApproveCommand(rootFlags *rootFlags) *cobra.Command {
	var flags contractFlags
	cmd := &cobra.Command{
		Use:   "approve <group-id>",
		Short: "Approve membership of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errors.Wrapf(err, "invalid group id %s", args[0])
			}
			s, err := openSession(rootFlags)
			if err != nil {
				return err
			}
			defer s.Close()

			signer, err := s.signer(flags.Key)
			if err != nil {
				return err
			}
			c, err := s.groupMemberClient(flags.Contract)
			if err != nil {
				return err
			}
			res, err := c.ExecuteGroupMemberApproval(
				client.ExecuteApproveGroupMembership{GroupID: groupID}, signer,
			)
			if err != nil {
				return err
			}
			fmt.Fprintf(
				cmd.OutOrStdout(), "account %s approved group %d (%s)\n",
				res.AccountAddress, res.GroupID, res.AttributeName,
			)
			return nil
		},
	}
	flags.addContractFlag(cmd.Flags())
	flags.addKeyFlag(cmd.Flags())
	return cmd
}

func newQueryCommand(rootFlags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query contract and account state",
	}
	cmd.AddCommand(
		newQueryStateCommand(rootFlags),
		newQueryAttributesCommand(rootFlags),
		newQueryNonceCommand(rootFlags),
	)
	return cmd
}

func newQueryStateCommand(rootFlags *rootFlags) *cobra.Command {
	var flags contractFlags
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show the stored state of a group member approval contract",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootFlags)
			if err != nil {
				return err
			}
			defer s.Close()

			c, err := s.groupMemberClient(flags.Contract)
			if err != nil {
				return err
			}
			state, err := c.QueryContractState()
			if err != nil {
				return err
			}
			return printJSON(cmd, state)
		},
	}
	flags.addContractFlag(cmd.Flags())
	return cmd
}

func newQueryAttributesCommand(rootFlags *rootFlags) *cobra.Command {
	var attrName string
	cmd := &cobra.Command{
		Use:   "attributes <address>",
		Short: "Show the attributes of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := loom.ParseAddress(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(rootFlags)
			if err != nil {
				return err
			}
			defer s.Close()

			attrs, err := s.client.GetAttributes(addr, attrName)
			if err != nil {
				return err
			}
			return printJSON(cmd, attrs)
		},
	}
	cmd.Flags().StringVarP(&attrName, "name", "n", "", "only show attributes with this name")
	return cmd
}

func newQueryNonceCommand(rootFlags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "nonce <address>",
		Short: "Show the nonce of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := loom.ParseAddress(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(rootFlags)
			if err != nil {
				return err
			}
			defer s.Close()

			nonce, err := s.client.GetNonce(addr)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), nonce)
			return nil
		},
	}
}

func newResolveCommand(rootFlags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <name>",
		Short: "Resolve a bound name to an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootFlags)
			if err != nil {
				return err
			}
			defer s.Close()

			addr, err := s.client.ResolveName(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), addr.String())
			return nil
		},
	}
}

type migrateFlags struct {
	contractFlags
	Code string
}

func newMigrateCommand(rootFlags *rootFlags) *cobra.Command {
	var flags migrateFlags
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate a contract instance to new code",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootFlags)
			if err != nil {
				return err
			}
			defer s.Close()

			signer, err := s.signer(flags.Key)
			if err != nil {
				return err
			}
			addr, err := s.contractAddress(flags.Contract)
			if err != nil {
				return err
			}
			msg, err := json.Marshal(gma.ContractUpgrade{})
			if err != nil {
				return err
			}
			r, err := s.client.CommitMigrateTx(signer, addr, flags.Code, msg)
			if err != nil {
				return err
			}
			var state gma.ContractState
			if err := json.Unmarshal(r.Data, &state); err != nil {
				return errors.Wrap(err, "failed to decode migrated contract state")
			}
			if c := s.deployment.Contract(flags.Contract); c != nil {
				c.Code = flags.Code
				if err := s.deployment.WriteToFile(s.cfg.DeploymentPath()); err != nil {
					return err
				}
			}
			fmt.Fprintf(
				cmd.OutOrStdout(), "contract %s migrated to version %s\n", addr.String(), state.ContractVersion,
			)
			return nil
		},
	}
	flags.addContractFlag(cmd.Flags())
	flags.addKeyFlag(cmd.Flags())
	cmd.Flags().StringVar(&flags.Code, "code", defaultCode(gma.ContractVersion), "code id to migrate to, name:version")
	return cmd
}

type eventsFlags struct {
	From     uint64
	To       uint64
	Contract string
}

func newEventsCommand(rootFlags *rootFlags) *cobra.Command {
	var flags eventsFlags
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List indexed contract events",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootFlags)
			if err != nil {
				return err
			}
			defer s.Close()

			filter := store.EventFilter{
				FromHeight: flags.From,
				ToHeight:   flags.To,
			}
			if flags.Contract != "" {
				addr, err := s.contractAddress(flags.Contract)
				if err != nil {
					return err
				}
				filter.Contract = addr.String()
			}
			evs, err := s.node.FilterEvents(filter)
			if err != nil {
				return err
			}
			if evs == nil {
				evs = []memberapproval.EventData{}
			}
			return printJSON(cmd, evs)
		},
	}
	cmd.Flags().Uint64Var(&flags.From, "from", 0, "first block height")
	cmd.Flags().Uint64Var(&flags.To, "to", 0, "last block height, 0 for the latest")
	cmd.Flags().StringVar(&flags.Contract, "contract", "", "only show events of this contract")
	return cmd
}
