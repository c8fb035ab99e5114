package store

import (
	"bytes"
	"sort"

	"github.com/loomnetwork/go-loom/plugin"
	"github.com/loomnetwork/go-loom/util"
)

// KVReader interface for reading data out of a store
type KVReader interface {
	// Get returns nil iff key doesn't exist. Panics on nil key.
	Get(key []byte) []byte

	// Range returns all the entries whose keys are prefixed by the given prefix, the prefix
	// (and separator) is stripped from the returned keys. Entries are sorted by key.
	Range(prefix []byte) plugin.RangeData

	// Has checks if a key exists.
	Has(key []byte) bool
}

type KVWriter interface {
	// Set sets the key. Panics on nil key.
	Set(key, value []byte)

	// Delete deletes the key. Panics on nil key.
	Delete(key []byte)
}

type KVStore interface {
	KVReader
	KVWriter
}

// KVStoreTx buffers writes until Commit is called, Rollback discards all buffered writes.
type KVStoreTx interface {
	KVStore
	Commit()
	Rollback()
}

type AtomicKVStore interface {
	KVStore
	BeginTx() KVStoreTx
}

// Batch buffers writes until Write applies them to the store in one go.
type Batch interface {
	KVWriter
	Write()
}

// BatchKVStore is implemented by stores that apply a Batch atomically, either every write in it
// lands or none do.
type BatchKVStore interface {
	KVStore
	NewBatch() Batch
}

type cacheItem struct {
	Value   []byte
	Deleted bool
}

type txAction int

const (
	txSet txAction = iota
	txDelete
)

type tempTx struct {
	Action     txAction
	Key, Value []byte
}

// cacheTx is a simple write-back cache
type cacheTx struct {
	store KVStore
	cache map[string]cacheItem
	// tmpTxs preserves the order of set and delete actions
	tmpTxs []tempTx
}

func newCacheTx(store KVStore) *cacheTx {
	c := &cacheTx{
		store: store,
	}
	c.Rollback()
	return c
}

func (c *cacheTx) addAction(action txAction, key, value []byte) {
	c.tmpTxs = append(c.tmpTxs, tempTx{
		Action: action,
		Key:    key,
		Value:  value,
	})
}

func (c *cacheTx) setCache(key, val []byte, deleted bool) {
	c.cache[string(key)] = cacheItem{
		Value:   val,
		Deleted: deleted,
	}
}

func (c *cacheTx) Delete(key []byte) {
	c.addAction(txDelete, key, nil)
	c.setCache(key, nil, true)
}

func (c *cacheTx) Set(key, val []byte) {
	c.addAction(txSet, key, val)
	c.setCache(key, val, false)
}

// Range merges the pending writes into the entries of the underlying store so that a tx can
// observe its own writes.
func (c *cacheTx) Range(prefix []byte) plugin.RangeData {
	entries := map[string][]byte{}
	for _, entry := range c.store.Range(prefix) {
		entries[string(entry.Key)] = entry.Value
	}

	for key, item := range c.cache {
		k, ok := stripPrefix([]byte(key), prefix)
		if !ok {
			continue
		}
		if item.Deleted {
			delete(entries, string(k))
		} else {
			entries[string(k)] = item.Value
		}
	}

	return sortedRangeData(entries)
}

func (c *cacheTx) Has(key []byte) bool {
	if item, ok := c.cache[string(key)]; ok {
		return !item.Deleted
	}

	return c.store.Has(key)
}

func (c *cacheTx) Get(key []byte) []byte {
	if item, ok := c.cache[string(key)]; ok {
		return item.Value
	}

	return c.store.Get(key)
}

// Commit writes the pending actions to the store, through a single batch when the store supports
// batching.
func (c *cacheTx) Commit() {
	var batch Batch
	if bs, ok := c.store.(BatchKVStore); ok {
		batch = bs.NewBatch()
	} else {
		batch = &replayBatch{store: c.store}
	}
	for _, tx := range c.tmpTxs {
		if tx.Action == txSet {
			batch.Set(tx.Key, tx.Value)
		} else if tx.Action == txDelete {
			batch.Delete(tx.Key)
		} else {
			panic("invalid cacheTx action type")
		}
	}
	batch.Write()
	c.Rollback()
}

func (c *cacheTx) Rollback() {
	c.tmpTxs = make([]tempTx, 0)
	c.cache = make(map[string]cacheItem)
}

// replayBatch applies its writes one at a time, for stores that can't fail part way through a
// write such as the MemStore.
type replayBatch struct {
	store KVWriter
	ops   []tempTx
}

func (b *replayBatch) Set(key, val []byte) {
	b.ops = append(b.ops, tempTx{Action: txSet, Key: key, Value: val})
}

func (b *replayBatch) Delete(key []byte) {
	b.ops = append(b.ops, tempTx{Action: txDelete, Key: key})
}

func (b *replayBatch) Write() {
	for _, op := range b.ops {
		if op.Action == txSet {
			b.store.Set(op.Key, op.Value)
		} else {
			b.store.Delete(op.Key)
		}
	}
	b.ops = nil
}

type atomicWrapStore struct {
	KVStore
}

func (a *atomicWrapStore) BeginTx() KVStoreTx {
	return newCacheTx(a.KVStore)
}

func WrapAtomic(store KVStore) AtomicKVStore {
	return &atomicWrapStore{
		KVStore: store,
	}
}

// stripPrefix returns the key with the prefix and separator removed, or false if the key doesn't
// belong to the prefix. An empty prefix matches every key.
func stripPrefix(key, prefix []byte) ([]byte, bool) {
	if len(prefix) == 0 {
		return key, true
	}
	if !bytes.HasPrefix(key, prefixWithSeparator(prefix)) {
		return nil, false
	}
	k, err := util.UnprefixKey(key, prefix)
	if err != nil {
		return nil, false
	}
	return k, true
}

func prefixWithSeparator(prefix []byte) []byte {
	return util.PrefixKey(prefix, []byte{})
}

func sortedRangeData(entries map[string][]byte) plugin.RangeData {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ret := make(plugin.RangeData, 0, len(keys))
	for _, k := range keys {
		ret = append(ret, &plugin.RangeEntry{
			Key:   []byte(k),
			Value: entries[k],
		})
	}
	return ret
}

type prefixReader struct {
	prefix []byte
	reader KVReader
}

func (r *prefixReader) Range(prefix []byte) plugin.RangeData {
	if len(prefix) == 0 {
		return r.reader.Range(r.prefix)
	}
	return r.reader.Range(util.PrefixKey(r.prefix, prefix))
}

func (r *prefixReader) Get(key []byte) []byte {
	return r.reader.Get(util.PrefixKey(r.prefix, key))
}

func (r *prefixReader) Has(key []byte) bool {
	return r.reader.Has(util.PrefixKey(r.prefix, key))
}

func PrefixKVReader(prefix []byte, reader KVReader) KVReader {
	return &prefixReader{
		prefix: prefix,
		reader: reader,
	}
}

type prefixWriter struct {
	prefix []byte
	writer KVWriter
}

func (w *prefixWriter) Set(key, val []byte) {
	w.writer.Set(util.PrefixKey(w.prefix, key), val)
}

func (w *prefixWriter) Delete(key []byte) {
	w.writer.Delete(util.PrefixKey(w.prefix, key))
}

func PrefixKVWriter(prefix []byte, writer KVWriter) KVWriter {
	return &prefixWriter{
		prefix: prefix,
		writer: writer,
	}
}

type prefixStore struct {
	prefixReader
	prefixWriter
}

func PrefixKVStore(prefix []byte, store KVStore) KVStore {
	return &prefixStore{
		prefixReader{
			prefix: prefix,
			reader: store,
		},
		prefixWriter{
			prefix: prefix,
			writer: store,
		},
	}
}
