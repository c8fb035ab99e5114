package store

import (
	"fmt"
	"math"
	"time"

	"github.com/allegro/bigcache"
	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	stdprometheus "github.com/prometheus/client_golang/prometheus"

	"github.com/loomnetwork/memberapproval/log"
)

const (
	CacheBackendBigCache = "bigcache"
	CacheBackendLRU      = "lru"
)

var (
	getDuration metrics.Histogram
	hasDuration metrics.Histogram

	cacheHits   metrics.Counter
	cacheErrors metrics.Counter
	cacheMisses metrics.Counter
)

func init() {
	const namespace = "memberapproval"
	const subsystem = "caching_store"

	getDuration = kitprometheus.NewSummaryFrom(
		stdprometheus.SummaryOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "get",
			Help:      "How long CachingStore.Get() took to execute (in miliseconds)",
		}, []string{"isCacheHit"})

	hasDuration = kitprometheus.NewSummaryFrom(
		stdprometheus.SummaryOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "has",
			Help:      "How long CachingStore.Has() took to execute (in miliseconds)",
		}, []string{"isCacheHit"})

	cacheHits = kitprometheus.NewCounterFrom(
		stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_hit",
			Help:      "Number of cache hit for get/has",
		}, []string{"store_operation"})

	cacheMisses = kitprometheus.NewCounterFrom(
		stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_miss",
			Help:      "Number of cache miss for get/has",
		}, []string{"store_operation"})

	cacheErrors = kitprometheus.NewCounterFrom(
		stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_error",
			Help:      "number of errors enocuntered while doing any operation on cache",
		}, []string{"cache_operation"})
}

type CachingStoreConfig struct {
	CachingEnabled bool
	// Either bigcache or lru
	Backend string
	// Number of cache shards, value must be a power of two (bigcache only)
	Shards int
	// Time after we need to evict the key (bigcache only)
	EvictionTimeInSeconds int64
	// interval at which clean up of expired keys will occur (bigcache only)
	CleaningIntervalInSeconds int64
	// Total size of cache would be: MaxKeys*MaxSizeOfValueInBytes
	MaxKeys               int
	MaxSizeOfValueInBytes int

	// Logs operations
	Verbose bool
}

func DefaultCachingStoreConfig() *CachingStoreConfig {
	return &CachingStoreConfig{
		CachingEnabled:            false,
		Backend:                   CacheBackendBigCache,
		Shards:                    1024,
		EvictionTimeInSeconds:     60 * 60, // 1 hour
		CleaningIntervalInSeconds: 10,      // Cleaning per 10 second
		MaxKeys:                   50 * 10 * 100,
		MaxSizeOfValueInBytes:     2048,
		Verbose:                   false,
	}
}

// Clone returns a deep clone of the config.
func (c *CachingStoreConfig) Clone() *CachingStoreConfig {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// kvCache is the subset of cache operations the CachingStore relies on.
type kvCache interface {
	Get(key []byte) ([]byte, error)
	Set(key, val []byte) error
	Delete(key []byte) error
}

var errCacheMiss = errors.New("[CachingStore] cache miss")

type bigCache struct {
	cache *bigcache.BigCache
}

func (c *bigCache) Get(key []byte) ([]byte, error) {
	val, err := c.cache.Get(string(key))
	if err == bigcache.ErrEntryNotFound {
		return nil, errCacheMiss
	}
	return val, err
}

func (c *bigCache) Set(key, val []byte) error {
	return c.cache.Set(string(key), val)
}

func (c *bigCache) Delete(key []byte) error {
	err := c.cache.Delete(string(key))
	if err == bigcache.ErrEntryNotFound {
		return nil
	}
	return err
}

type lruCache struct {
	cache *lru.Cache
}

func (c *lruCache) Get(key []byte) ([]byte, error) {
	val, ok := c.cache.Get(string(key))
	if !ok {
		return nil, errCacheMiss
	}
	return val.([]byte), nil
}

func (c *lruCache) Set(key, val []byte) error {
	c.cache.Add(string(key), val)
	return nil
}

func (c *lruCache) Delete(key []byte) error {
	c.cache.Remove(string(key))
	return nil
}

type CachingStoreLogger struct {
	logger log.Logger
}

func (c CachingStoreLogger) Printf(format string, v ...interface{}) {
	c.logger.Info(fmt.Sprintf(format, v...))
}

func convertToBigCacheConfig(config *CachingStoreConfig, logger log.Logger) (*bigcache.Config, error) {
	if config.MaxKeys == 0 || config.MaxSizeOfValueInBytes == 0 {
		return nil, fmt.Errorf("[CachingStore] max keys and/or max size of value cannot be zero")
	}

	if config.EvictionTimeInSeconds == 0 {
		return nil, fmt.Errorf("[CachingStore] eviction time cannot be zero")
	}

	if config.Shards == 0 {
		return nil, fmt.Errorf("[CachingStore] caching shards cannot be zero")
	}

	configTemplate := bigcache.DefaultConfig(time.Duration(config.EvictionTimeInSeconds) * time.Second)
	configTemplate.Shards = config.Shards
	configTemplate.CleanWindow = time.Duration(config.CleaningIntervalInSeconds) * time.Second
	configTemplate.LifeWindow = time.Duration(config.EvictionTimeInSeconds) * time.Second
	configTemplate.HardMaxCacheSize = config.MaxKeys * config.MaxSizeOfValueInBytes / (1024 * 1024)
	configTemplate.MaxEntriesInWindow = config.MaxKeys
	configTemplate.MaxEntrySize = config.MaxSizeOfValueInBytes
	configTemplate.Verbose = config.Verbose
	configTemplate.Logger = CachingStoreLogger{logger: logger}

	return &configTemplate, nil
}

func newKVCache(config *CachingStoreConfig, logger log.Logger) (kvCache, error) {
	switch config.Backend {
	case CacheBackendLRU:
		if config.MaxKeys <= 0 {
			return nil, fmt.Errorf("[CachingStore] max keys must be positive")
		}
		cache, err := lru.New(config.MaxKeys)
		if err != nil {
			return nil, err
		}
		return &lruCache{cache: cache}, nil
	case CacheBackendBigCache, "":
		bigcacheConfig, err := convertToBigCacheConfig(config, logger)
		if err != nil {
			return nil, err
		}
		cache, err := bigcache.NewBigCache(*bigcacheConfig)
		if err != nil {
			return nil, err
		}
		return &bigCache{cache: cache}, nil
	default:
		return nil, fmt.Errorf("[CachingStore] unknown cache backend %s", config.Backend)
	}
}

// CachingStore wraps a write-through cache around a KVStore, reads are served from the cache
// when possible. Ranges always go to the underlying store.
type CachingStore struct {
	KVStore
	cache  kvCache
	logger log.Logger
}

var _ BatchKVStore = &CachingStore{}

func NewCachingStore(source KVStore, config *CachingStoreConfig, logger log.Logger) (*CachingStore, error) {
	if config == nil {
		return nil, fmt.Errorf("[CachingStore] config can't be null for caching store")
	}
	if logger == nil {
		logger = log.Default
	}

	cache, err := newKVCache(config, logger)
	if err != nil {
		return nil, err
	}

	return &CachingStore{
		KVStore: source,
		cache:   cache,
		logger:  logger,
	}, nil
}

func (c *CachingStore) Delete(key []byte) {
	c.deleteCached(key)
	c.KVStore.Delete(key)
}

func (c *CachingStore) Set(key, val []byte) {
	c.setCached(key, val)
	c.KVStore.Set(key, val)
}

// NewBatch returns a batch that only updates the cache once the underlying store has applied it.
func (c *CachingStore) NewBatch() Batch {
	b := &cachingBatch{store: c}
	if source, ok := c.KVStore.(BatchKVStore); ok {
		b.source = source.NewBatch()
	} else {
		b.source = &replayBatch{store: c.KVStore}
	}
	return b
}

func (c *CachingStore) setCached(key, val []byte) {
	if err := c.cache.Set(key, val); err != nil {
		cacheErrors.With("cache_operation", "set").Add(1)
		c.logger.Error("[CachingStore] error while setting key in cache", "key", string(key), "err", err)
	}
}

func (c *CachingStore) deleteCached(key []byte) {
	if err := c.cache.Delete(key); err != nil {
		// Only log error and dont error out
		cacheErrors.With("cache_operation", "delete").Add(1)
		c.logger.Error("[CachingStore] error while deleting key in cache", "key", string(key), "err", err)
	}
}

func (c *CachingStore) Has(key []byte) bool {
	var err error
	defer func(begin time.Time) {
		hasDuration.With("isCacheHit", fmt.Sprint(err == nil)).
			Observe(float64(time.Since(begin).Nanoseconds()) / math.Pow10(6))
	}(time.Now())

	_, err = c.cache.Get(key)
	if err == nil {
		cacheHits.With("store_operation", "has").Add(1)
		return true
	}
	c.handleMiss("has", key, err)
	return c.fill(key) != nil
}

func (c *CachingStore) Get(key []byte) []byte {
	var err error
	defer func(begin time.Time) {
		getDuration.With("isCacheHit", fmt.Sprint(err == nil)).
			Observe(float64(time.Since(begin).Nanoseconds()) / math.Pow10(6))
	}(time.Now())

	var data []byte
	data, err = c.cache.Get(key)
	if err == nil {
		cacheHits.With("store_operation", "get").Add(1)
		return data
	}
	c.handleMiss("get", key, err)
	return c.fill(key)
}

func (c *CachingStore) handleMiss(op string, key []byte, err error) {
	cacheMisses.With("store_operation", op).Add(1)
	if err != errCacheMiss {
		// The KVStore interface can't return errors so just log it and read from the source
		cacheErrors.With("cache_operation", "get").Add(1)
		c.logger.Error("[CachingStore] error while getting key from cache", "key", string(key), "err", err)
	}
}

// fill loads the key from the underlying store and caches it if it exists.
func (c *CachingStore) fill(key []byte) []byte {
	data := c.KVStore.Get(key)
	if data == nil {
		return nil
	}
	c.setCached(key, data)
	return data
}

type cachingBatch struct {
	store  *CachingStore
	source Batch
	ops    []tempTx
}

func (b *cachingBatch) Set(key, val []byte) {
	b.source.Set(key, val)
	b.ops = append(b.ops, tempTx{Action: txSet, Key: key, Value: val})
}

func (b *cachingBatch) Delete(key []byte) {
	b.source.Delete(key)
	b.ops = append(b.ops, tempTx{Action: txDelete, Key: key})
}

func (b *cachingBatch) Write() {
	b.source.Write()
	for _, op := range b.ops {
		if op.Action == txSet {
			b.store.setCached(op.Key, op.Value)
		} else {
			b.store.deleteCached(op.Key)
		}
	}
	b.ops = nil
}
