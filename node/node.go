package node

import (
	"io"

	"github.com/loomnetwork/go-loom"
	"github.com/pkg/errors"

	"github.com/loomnetwork/memberapproval"
	"github.com/loomnetwork/memberapproval/auth"
	gma "github.com/loomnetwork/memberapproval/builtin/plugins/group_member_approval"
	"github.com/loomnetwork/memberapproval/config"
	"github.com/loomnetwork/memberapproval/events"
	"github.com/loomnetwork/memberapproval/log"
	"github.com/loomnetwork/memberapproval/plugin"
	"github.com/loomnetwork/memberapproval/state"
	"github.com/loomnetwork/memberapproval/store"
	"github.com/loomnetwork/memberapproval/throttle"
)

// Node is an in-process member approval chain, it owns the app store and the event stores.
type Node struct {
	Config     *config.Config
	App        *memberapproval.Application
	Loader     plugin.Loader
	Events     *events.PubSubEventDispatcher
	EventStore store.EventStore

	closers []io.Closer
}

// DefaultLoader returns a loader serving the builtin contracts.
func DefaultLoader(cfg *config.Config) *plugin.StaticLoader {
	return plugin.NewStaticLoader(
		gma.New(gma.AllowSameVersionMigration(cfg.Migration.AllowSameVersion)),
	)
}

func MigrationPolicy(cfg *config.Config) plugin.MigrationPolicy {
	return plugin.MigrationPolicy{
		AdminOnly:        cfg.Migration.AdminOnly,
		AllowSameVersion: cfg.Migration.AllowSameVersion,
	}
}

func (n *Node) openStore(name string) (store.KVStore, error) {
	cfg := n.Config
	switch cfg.DBBackend {
	case config.DBBackendMemDB:
		return store.NewMemStore(), nil
	case config.DBBackendGoLevelDB:
		db, err := store.NewLevelDBStore(name, cfg.DBPath(), cfg.DBCacheSizeMeg)
		if err != nil {
			return nil, err
		}
		n.closers = append(n.closers, db)
		return db, nil
	default:
		return nil, errors.Errorf("unsupported db backend %s", cfg.DBBackend)
	}
}

func (n *Node) loadAppStore() (store.AtomicKVStore, error) {
	appStore, err := n.openStore(n.Config.DBName)
	if err != nil {
		return nil, err
	}
	if n.Config.CachingStoreConfig.CachingEnabled {
		appStore, err = store.NewCachingStore(appStore, n.Config.CachingStoreConfig, log.Default)
		if err != nil {
			return nil, err
		}
	}
	return store.WrapAtomic(appStore), nil
}

func (n *Node) loadEventDispatcher() (memberapproval.EventDispatcher, error) {
	cfg := n.Config
	n.Events = events.NewPubSubEventDispatcher()
	dispatchers := events.MultiEventDispatcher{n.Events}

	if cfg.EventStore.Enabled || cfg.EventDispatcher.Dispatcher == events.DispatcherDBIndexer {
		eventDB, err := n.openStore(cfg.EventStore.DBName)
		if err != nil {
			return nil, err
		}
		n.EventStore = store.NewKVEventStore(eventDB)
		dispatchers = append(dispatchers, events.NewDBIndexerEventDispatcher(n.EventStore))
	}

	switch cfg.EventDispatcher.Dispatcher {
	case events.DispatcherLog:
		log.Info("Using simple log event dispatcher")
		dispatchers = append(dispatchers, events.NewLogEventDispatcher(log.Default))
	case events.DispatcherRedis:
		log.Info("Using redis event dispatcher", "uri", cfg.EventDispatcher.Redis.URI)
		redis, err := events.NewRedisEventDispatcher(cfg.EventDispatcher.Redis.URI, cfg.EventDispatcher.Redis.Queue)
		if err != nil {
			return nil, err
		}
		n.closers = append(n.closers, redis)
		dispatchers = append(dispatchers, redis)
	case events.DispatcherDBIndexer, events.DispatcherPubSub:
	default:
		return nil, errors.Errorf("unsupported event dispatcher %s", cfg.EventDispatcher.Dispatcher)
	}
	return dispatchers, nil
}

// NewNode opens the stores and wires up the application, the genesis state is created if the
// app store is empty. If loader is nil the builtin contracts are served.
func NewNode(cfg *config.Config, loader plugin.Loader) (*Node, error) {
	n := &Node{Config: cfg}
	if loader == nil {
		loader = DefaultLoader(cfg)
	}
	n.Loader = loader

	app, err := n.loadApp()
	if err != nil {
		n.Close()
		return nil, err
	}
	n.App = app

	if app.Height() == 0 {
		if err := app.InitChain(); err != nil {
			n.Close()
			return nil, err
		}
	}
	return n, nil
}

func (n *Node) loadApp() (*memberapproval.Application, error) {
	cfg := n.Config
	appStore, err := n.loadAppStore()
	if err != nil {
		return nil, err
	}

	eventDispatcher, err := n.loadEventDispatcher()
	if err != nil {
		return nil, err
	}
	var eventHandler memberapproval.EventHandler = memberapproval.NewDefaultEventHandler(eventDispatcher)
	if cfg.Metrics.EventHandling {
		eventHandler = memberapproval.NewInstrumentingEventHandler(eventHandler)
	}

	contractLogger := log.NewLogger(cfg.ContractLogLevel, cfg.LogDestination)
	newVM := plugin.NewVMFactory(n.Loader, MigrationPolicy(cfg), contractLogger)

	router := memberapproval.NewTxRouter()
	router.Handle(plugin.InstantiateTxID, &plugin.InstantiateTxHandler{NewVM: newVM})
	router.Handle(plugin.ExecuteTxID, &plugin.ExecuteTxHandler{NewVM: newVM})
	router.Handle(plugin.MigrateTxID, &plugin.MigrateTxHandler{NewVM: newVM})

	txMiddleWare := []memberapproval.TxMiddleware{
		memberapproval.RecoveryTxMiddleware,
	}
	if cfg.Metrics.TxHandling {
		txMiddleWare = append(txMiddleWare, memberapproval.NewInstrumentingTxMiddleware("DeliverTx"))
	}
	txMiddleWare = append(txMiddleWare, auth.SignatureTxMiddleware, auth.NonceTxMiddleware)
	if cfg.TxLimiter.Enabled {
		txMiddleWare = append(txMiddleWare, throttle.NewTxLimiterMiddleware(cfg.TxLimiter))
	}

	rootNames := append([]string(nil), cfg.RootNames...)
	chainID := cfg.ChainID
	return &memberapproval.Application{
		ChainID: chainID,
		Store:   appStore,
		Init: func(s state.State) error {
			names := plugin.NewPluginVM(n.Loader, s, MigrationPolicy(cfg), contractLogger).Names()
			for _, name := range rootNames {
				if err := names.BindRoot(name, loom.RootAddress(chainID), false); err != nil {
					return errors.Wrapf(err, "failed to bind root name %s", name)
				}
			}
			return nil
		},
		TxHandler: memberapproval.MiddlewareTxHandler(
			txMiddleWare,
			router,
			[]memberapproval.PostCommitMiddleware{
				memberapproval.LogPostCommitMiddleware,
			},
		),
		QueryHandler: &plugin.QueryHandler{NewVM: newVM},
		EventHandler: eventHandler,
	}, nil
}

// FilterEvents returns the indexed events matching the filter, decoded.
func (n *Node) FilterEvents(filter store.EventFilter) ([]memberapproval.EventData, error) {
	if n.EventStore == nil {
		return nil, errors.New("event store is disabled")
	}
	msgs, err := n.EventStore.FilterEvents(filter)
	if err != nil {
		return nil, err
	}
	return memberapproval.DecodeEvents(msgs)
}

// Close releases the stores, and closes the event dispatchers.
func (n *Node) Close() error {
	var firstErr error
	for i := len(n.closers) - 1; i >= 0; i-- {
		if err := n.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	n.closers = nil
	return firstErr
}
