package config

import (
	"bytes"
	"io/ioutil"
	"path"
	"path/filepath"
	"text/template"

	"github.com/spf13/viper"

	"github.com/loomnetwork/memberapproval/events"
	"github.com/loomnetwork/memberapproval/store"
	"github.com/loomnetwork/memberapproval/throttle"
)

const (
	DBBackendGoLevelDB = "goleveldb"
	DBBackendMemDB     = "memdb"
)

type Config struct {
	RootDir   string
	DBName    string
	DBBackend string
	// Size of the goleveldb block cache in megabytes
	DBCacheSizeMeg int
	ChainID        string
	// Names bound at genesis, contracts can only bind names under one of these
	RootNames []string
	// File the node key is read from, relative to RootDir
	PrivateKeyFile string
	// TOML manifest of known accounts and contract instances, relative to RootDir
	DeploymentFile string

	LogDestination         string
	MemberApprovalLogLevel string
	ContractLogLevel       string

	CachingStoreConfig *store.CachingStoreConfig
	EventDispatcher    *events.EventDispatcherConfig
	EventStore         *events.EventStoreConfig
	TxLimiter          *throttle.TxLimiterConfig
	Migration          *MigrationConfig
	Metrics            *Metrics
}

type MigrationConfig struct {
	// Only the admin of a contract instance may migrate it
	AdminOnly bool
	// Allow migrating an instance to code with the same version
	AllowSameVersion bool
}

func DefaultMigrationConfig() *MigrationConfig {
	return &MigrationConfig{
		AdminOnly:        true,
		AllowSameVersion: false,
	}
}

func (c *MigrationConfig) Clone() *MigrationConfig {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

type Metrics struct {
	EventHandling bool
	TxHandling    bool
}

func DefaultMetrics() *Metrics {
	return &Metrics{
		EventHandling: true,
		TxHandling:    true,
	}
}

func (c *Metrics) Clone() *Metrics {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// ParseConfig reads memberapproval.yaml from the current directory or ./config, settings can be
// overridden with MEMBERAPPROVAL_ prefixed environment variables.
func ParseConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("memberapproval")
	v.AddConfigPath("./")
	v.AddConfigPath(filepath.Join("./", "config"))
	return parseConfig(v)
}

// ParseConfigFrom reads the config from the given file (without the .yaml extension).
func ParseConfigFrom(filename string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(filepath.Base(filename))
	v.AddConfigPath(filepath.Dir(filename))
	return parseConfig(v)
}

func parseConfig(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetEnvPrefix("MEMBERAPPROVAL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}
	conf := DefaultConfig()
	if err := v.Unmarshal(conf); err != nil {
		return nil, err
	}
	return conf, nil
}

func DefaultConfig() *Config {
	cfg := &Config{
		RootDir:                ".",
		DBName:                 "app",
		DBBackend:              DBBackendGoLevelDB,
		DBCacheSizeMeg:         16,
		ChainID:                "default",
		RootNames:              []string{"pb"},
		PrivateKeyFile:         "node_privkey",
		DeploymentFile:         "deployment.toml",
		LogDestination:         "",
		MemberApprovalLogLevel: "info",
		ContractLogLevel:       "info",
	}
	cfg.CachingStoreConfig = store.DefaultCachingStoreConfig()
	cfg.EventDispatcher = events.DefaultEventDispatcherConfig()
	cfg.EventStore = events.DefaultEventStoreConfig()
	cfg.TxLimiter = throttle.DefaultTxLimiterConfig()
	cfg.Migration = DefaultMigrationConfig()
	cfg.Metrics = DefaultMetrics()
	return cfg
}

// Clone returns a deep clone of the config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	clone.RootNames = append([]string(nil), c.RootNames...)
	clone.CachingStoreConfig = c.CachingStoreConfig.Clone()
	clone.EventDispatcher = c.EventDispatcher.Clone()
	clone.EventStore = c.EventStore.Clone()
	clone.TxLimiter = c.TxLimiter.Clone()
	clone.Migration = c.Migration.Clone()
	clone.Metrics = c.Metrics.Clone()
	return &clone
}

func (c *Config) fullPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	full, err := filepath.Abs(path.Join(c.RootDir, p))
	if err != nil {
		panic(err)
	}
	return full
}

func (c *Config) RootPath() string {
	return c.fullPath(".")
}

func (c *Config) DBPath() string {
	return c.fullPath("data")
}

func (c *Config) PrivateKeyPath() string {
	return c.fullPath(c.PrivateKeyFile)
}

func (c *Config) DeploymentPath() string {
	return c.fullPath(c.DeploymentFile)
}

func (c *Config) WriteToFile(filename string) error {
	var buf bytes.Buffer
	cfgTemplate, err := parseCfgTemplate()
	if err != nil {
		return err
	}
	if err := cfgTemplate.Execute(&buf, c); err != nil {
		return err
	}
	return ioutil.WriteFile(filename, buf.Bytes(), 0644)
}

var cfgTemplate *template.Template

func parseCfgTemplate() (*template.Template, error) {
	if cfgTemplate != nil {
		return cfgTemplate, nil
	}

	var err error
	cfgTemplate, err = template.New("memberApprovalYamlTemplate").Parse(defaultYamlTemplate)
	if err != nil {
		return nil, err
	}
	return cfgTemplate, nil
}

const defaultYamlTemplate = `# Member approval node config file

#
# Settings that must not change after the chain is initialized.
#

ChainID: "{{ .ChainID }}"
RootNames:{{ range .RootNames }}
  - "{{ . }}"{{ end }}

#
# Storage
#

RootDir: "{{ .RootDir }}"
DBName: "{{ .DBName }}"
# goleveldb or memdb
DBBackend: "{{ .DBBackend }}"
DBCacheSizeMeg: {{ .DBCacheSizeMeg }}
PrivateKeyFile: "{{ .PrivateKeyFile }}"
DeploymentFile: "{{ .DeploymentFile }}"

CachingStoreConfig:
  CachingEnabled: {{ .CachingStoreConfig.CachingEnabled }}
  # bigcache or lru
  Backend: "{{ .CachingStoreConfig.Backend }}"
  Shards: {{ .CachingStoreConfig.Shards }}
  EvictionTimeInSeconds: {{ .CachingStoreConfig.EvictionTimeInSeconds }}
  CleaningIntervalInSeconds: {{ .CachingStoreConfig.CleaningIntervalInSeconds }}
  MaxKeys: {{ .CachingStoreConfig.MaxKeys }}
  MaxSizeOfValueInBytes: {{ .CachingStoreConfig.MaxSizeOfValueInBytes }}
  Verbose: {{ .CachingStoreConfig.Verbose }}

#
# Events
#

EventDispatcher:
  # log, redis, db_indexer, or pubsub
  Dispatcher: "{{ .EventDispatcher.Dispatcher }}"
  Redis:
    URI: "{{ .EventDispatcher.Redis.URI }}"
    Queue: "{{ .EventDispatcher.Redis.Queue }}"
EventStore:
  DBName: "{{ .EventStore.DBName }}"
  Enabled: {{ .EventStore.Enabled }}

#
# Transactions
#

TxLimiter:
  Enabled: {{ .TxLimiter.Enabled }}
  SessionDuration: {{ .TxLimiter.SessionDuration }}
  MaxTxsPerSession: {{ .TxLimiter.MaxTxsPerSession }}
Migration:
  AdminOnly: {{ .Migration.AdminOnly }}
  AllowSameVersion: {{ .Migration.AllowSameVersion }}

#
# Logging & metrics
#

LogDestination: "{{ .LogDestination }}"
MemberApprovalLogLevel: "{{ .MemberApprovalLogLevel }}"
ContractLogLevel: "{{ .ContractLogLevel }}"
Metrics:
  EventHandling: {{ .Metrics.EventHandling }}
  TxHandling: {{ .Metrics.TxHandling }}
`
