package events

const (
	DispatcherDBIndexer = "db_indexer"
	DispatcherRedis     = "redis"
	DispatcherLog       = "log"
	DispatcherPubSub    = "pubsub"
)

type EventStoreConfig struct {
	// DBName defines database file name
	DBName string
	// Index committed events so they can be queried later
	Enabled bool
}

func DefaultEventStoreConfig() *EventStoreConfig {
	return &EventStoreConfig{
		DBName:  "events",
		Enabled: true,
	}
}

// Clone returns a deep clone of the config.
func (c *EventStoreConfig) Clone() *EventStoreConfig {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

type RedisEventDispatcherConfig struct {
	URI   string
	Queue string
}

type EventDispatcherConfig struct {
	// Dispatcher is one of log, redis, db_indexer, or pubsub
	Dispatcher string
	Redis      *RedisEventDispatcherConfig
}

func DefaultEventDispatcherConfig() *EventDispatcherConfig {
	return &EventDispatcherConfig{
		Dispatcher: DispatcherLog,
		Redis: &RedisEventDispatcherConfig{
			URI:   "redis://127.0.0.1:6379",
			Queue: DefaultRedisQueue,
		},
	}
}

// Clone returns a deep clone of the config.
func (c *EventDispatcherConfig) Clone() *EventDispatcherConfig {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Redis != nil {
		redis := *c.Redis
		clone.Redis = &redis
	}
	return &clone
}
