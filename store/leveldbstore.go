package store

import (
	"path/filepath"

	"github.com/loomnetwork/go-loom/plugin"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBStore is a KVStore persisted in a goleveldb database.
// Errors returned by the database are considered fatal and cause a panic since the KVStore
// interface has no way to surface them.
type LevelDBStore struct {
	db *leveldb.DB
}

var _ BatchKVStore = &LevelDBStore{}

// NewLevelDBStore opens (or creates) the database called name inside dir.
func NewLevelDBStore(name, dir string, cacheSizeMeg int) (*LevelDBStore, error) {
	o := &opt.Options{
		BlockCacheCapacity: cacheSizeMeg * opt.MiB,
	}
	db, err := leveldb.OpenFile(filepath.Join(dir, name+".db"), o)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s db", name)
	}
	return &LevelDBStore{db: db}, nil
}

// NewMemLevelDBStore returns a LevelDBStore backed by memory, mostly useful for tests.
func NewMemLevelDBStore() (*LevelDBStore, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &LevelDBStore{db: db}, nil
}

func (s *LevelDBStore) Get(key []byte) []byte {
	val, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil
	}
	if err != nil {
		panic(errors.Wrap(err, "[LevelDBStore] get failed"))
	}
	return val
}

func (s *LevelDBStore) Has(key []byte) bool {
	exists, err := s.db.Has(key, nil)
	if err != nil {
		panic(errors.Wrap(err, "[LevelDBStore] has failed"))
	}
	return exists
}

func (s *LevelDBStore) Set(key, value []byte) {
	if err := s.db.Put(key, value, nil); err != nil {
		panic(errors.Wrap(err, "[LevelDBStore] set failed"))
	}
}

func (s *LevelDBStore) Delete(key []byte) {
	if err := s.db.Delete(key, nil); err != nil {
		panic(errors.Wrap(err, "[LevelDBStore] delete failed"))
	}
}

func (s *LevelDBStore) Range(prefix []byte) plugin.RangeData {
	var r *util.Range
	if len(prefix) > 0 {
		r = util.BytesPrefix(prefixWithSeparator(prefix))
	}
	iter := s.db.NewIterator(r, nil)
	defer iter.Release()

	ret := make(plugin.RangeData, 0)
	for iter.Next() {
		k, ok := stripPrefix(iter.Key(), prefix)
		if !ok {
			continue
		}
		// the iterator reuses its buffers
		key := make([]byte, len(k))
		copy(key, k)
		val := make([]byte, len(iter.Value()))
		copy(val, iter.Value())
		ret = append(ret, &plugin.RangeEntry{Key: key, Value: val})
	}
	if err := iter.Error(); err != nil {
		panic(errors.Wrap(err, "[LevelDBStore] range failed"))
	}
	return ret
}

// NewBatch returns a batch backed by a leveldb.Batch, Write applies it in a single db write.
func (s *LevelDBStore) NewBatch() Batch {
	return &levelDBBatch{db: s.db}
}

func (s *LevelDBStore) Close() error {
	return s.db.Close()
}

type levelDBBatch struct {
	db    *leveldb.DB
	batch leveldb.Batch
}

func (b *levelDBBatch) Set(key, value []byte) {
	b.batch.Put(key, value)
}

func (b *levelDBBatch) Delete(key []byte) {
	b.batch.Delete(key)
}

func (b *levelDBBatch) Write() {
	if err := b.db.Write(&b.batch, nil); err != nil {
		panic(errors.Wrap(err, "[LevelDBStore] batch write failed"))
	}
	b.batch.Reset()
}
