package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/loomnetwork/memberapproval"
	"github.com/loomnetwork/memberapproval/config"
	"github.com/loomnetwork/memberapproval/log"
	"github.com/loomnetwork/memberapproval/node"
)

type rootFlags struct {
	ConfigFile string
}

func parseConfig(flags *rootFlags) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if flags.ConfigFile != "" {
		cfg, err = config.ParseConfigFrom(flags.ConfigFile)
	} else {
		cfg, err = config.ParseConfig()
	}
	if err != nil {
		return nil, err
	}
	log.Setup(cfg.MemberApprovalLogLevel, cfg.LogDestination)
	return cfg, nil
}

func loadNode(flags *rootFlags) (*node.Node, error) {
	cfg, err := parseConfig(flags)
	if err != nil {
		return nil, err
	}
	return node.NewNode(cfg, nil)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the member approval chain version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), memberapproval.FullVersion())
			return nil
		},
	}
}

func printEnv(cmd *cobra.Command, env map[string]string) {
	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, env[key])
	}
}

func newEnvCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Show config settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := parseConfig(flags)
			if err != nil {
				return err
			}

			printEnv(cmd, map[string]string{
				"version":         memberapproval.FullVersion(),
				"build":           memberapproval.Build,
				"git sha":         memberapproval.GitSHA,
				"chain id":        cfg.ChainID,
				"root path":       cfg.RootPath(),
				"db path":         cfg.DBPath(),
				"db backend":      cfg.DBBackend,
				"deployment file": cfg.DeploymentPath(),
				"dispatcher":      cfg.EventDispatcher.Dispatcher,
			})
			return nil
		},
	}
}

func newInitCommand(flags *rootFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize config, node key, and app state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := parseConfig(flags)
			if err != nil {
				return err
			}
			if force {
				if err := os.RemoveAll(cfg.DBPath()); err != nil {
					return err
				}
			}
			if err := os.MkdirAll(cfg.RootPath(), 0755); err != nil {
				return err
			}
			if _, err := os.Stat(cfg.PrivateKeyPath()); os.IsNotExist(err) {
				addr, err := writeKeyPair(cfg.ChainID, cfg.PrivateKeyPath(), "")
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "node key: %s\n", addr.String())
			}

			n, err := node.NewNode(cfg, nil)
			if err != nil {
				return err
			}
			defer n.Close()

			d, err := config.ReadDeployment(cfg.DeploymentPath())
			if err != nil {
				return err
			}
			d.ChainID = cfg.ChainID
			if err := d.WriteToFile(cfg.DeploymentPath()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized chain %s at height %d\n", cfg.ChainID, n.App.Height())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "force initialization")
	return cmd
}

func newRootCommand() *cobra.Command {
	var flags rootFlags
	rootCmd := &cobra.Command{
		Use:           "memberapproval",
		Short:         "Group member approval chain",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(
		&flags.ConfigFile, "config", "c", "", "config file, without the .yaml extension",
	)
	rootCmd.AddCommand(
		newVersionCommand(),
		newEnvCommand(&flags),
		newInitCommand(&flags),
		newGenKeyCommand(&flags),
		newInstantiateCommand(&flags),
		newApproveCommand(&flags),
		newQueryCommand(&flags),
		newResolveCommand(&flags),
		newMigrateCommand(&flags),
		newEventsCommand(&flags),
	)
	return rootCmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
