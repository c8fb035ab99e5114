package main

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loomnetwork/memberapproval"
	gma "github.com/loomnetwork/memberapproval/builtin/plugins/group_member_approval"
	"github.com/loomnetwork/memberapproval/config"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOutput(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func mustRunCommand(t *testing.T, args ...string) string {
	out, err := runCommand(t, args...)
	require.NoError(t, err, strings.Join(args, " "))
	return out
}

func setupRootDir(t *testing.T) (string, string) {
	dir, err := ioutil.TempDir("", "memberapproval-cli")
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.RootDir = dir
	cfg.ChainID = "cli-chain"
	configFile := filepath.Join(dir, "memberapproval")
	require.NoError(t, cfg.WriteToFile(configFile+".yaml"))
	return dir, configFile
}

var addressRegexp = regexp.MustCompile(`cli-chain:0x[0-9a-fA-F]{40}`)

func TestVersionCommand(t *testing.T) {
	out := mustRunCommand(t, "version")
	require.Equal(t, memberapproval.FullVersion()+"\n", out)
}

func TestEnvCommand(t *testing.T) {
	dir, configFile := setupRootDir(t)
	defer os.RemoveAll(dir)

	out := mustRunCommand(t, "env", "--config", configFile)
	require.Contains(t, out, "chain id = cli-chain")
	require.Contains(t, out, "db backend = goleveldb")
}

func TestContractCommands(t *testing.T) {
	dir, configFile := setupRootDir(t)
	defer os.RemoveAll(dir)

	out := mustRunCommand(t, "init", "--config", configFile)
	require.Contains(t, out, "initialized chain cli-chain")
	_, err := os.Stat(filepath.Join(dir, "node_privkey"))
	require.NoError(t, err)

	aliceKey := filepath.Join(dir, "alice_privkey")
	out = mustRunCommand(t, "genkey", "--config", configFile, "-k", aliceKey, "--name", "alice")
	alice := addressRegexp.FindString(out)
	require.NotEmpty(t, alice)

	d, err := config.ReadDeployment(filepath.Join(dir, "deployment.toml"))
	require.NoError(t, err)
	require.Equal(t, "cli-chain", d.ChainID)
	require.NotNil(t, d.Account("alice"))
	require.Equal(t, alice, d.Account("alice").Address)

	out = mustRunCommand(t,
		"instantiate", "--config", configFile,
		"--label", "approvals",
		"--contract-name", "approvals.pb",
		"--attribute-name", "approvals.pb",
		"--bind",
	)
	contractAddr := addressRegexp.FindString(out)
	require.NotEmpty(t, contractAddr)

	out = mustRunCommand(t, "resolve", "--config", configFile, "approvals.pb")
	require.Equal(t, contractAddr+"\n", out)

	out = mustRunCommand(t, "approve", "7", "--config", configFile, "--contract", "approvals", "--key", "alice")
	require.Contains(t, out, "account "+alice+" approved group 7")

	// bound name
	_, err = runCommand(t, "approve", "7", "--config", configFile, "--contract", "approvals.pb", "--key", "alice")
	require.Error(t, err)
	require.Contains(t, err.Error(), "has already been approved")

	_, err = runCommand(t, "approve", "-1", "--config", configFile, "--contract", "approvals", "--key", "alice")
	require.Error(t, err)

	out = mustRunCommand(t, "query", "state", "--config", configFile, "--contract", contractAddr)
	var state gma.ContractState
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	require.Equal(t, "approvals.pb", state.ContractName)
	require.Equal(t, gma.ContractVersion, state.ContractVersion)

	out = mustRunCommand(t, "query", "attributes", alice, "--config", configFile, "--name", "approvals.pb")
	require.Contains(t, out, "approvals.pb")

	out = mustRunCommand(t, "query", "nonce", alice, "--config", configFile)
	require.Equal(t, "1\n", out)

	out = mustRunCommand(t, "events", "--config", configFile, "--contract", "approvals")
	var evs []memberapproval.EventData
	require.NoError(t, json.Unmarshal([]byte(out), &evs))
	require.NotEmpty(t, evs)
	var sawApproval bool
	for _, ev := range evs {
		for _, attr := range ev.Attributes {
			if attr.Key == "action" && attr.Value == "approve_group_membership" {
				sawApproval = true
			}
		}
	}
	require.True(t, sawApproval)

	// the node key is the admin, alice can't migrate
	_, err = runCommand(t, "migrate", "--config", configFile, "--contract", "approvals", "--key", "alice")
	require.Error(t, err)

	_, err = runCommand(t, "migrate", "--config", configFile, "--contract", "approvals")
	require.Error(t, err, "migrating to the same version should fail")
}
