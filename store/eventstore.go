package store

import (
	"encoding/binary"

	"github.com/loomnetwork/go-loom/util"
	"github.com/pkg/errors"
)

var (
	eventKeyPrefix         = []byte("ev")
	contractEventKeyPrefix = []byte("evc")
)

// EventFilter selects indexed events, a zero ToHeight means no upper bound and an empty
// Contract matches events from all contracts.
type EventFilter struct {
	FromHeight uint64
	ToHeight   uint64
	Contract   string
}

func (f EventFilter) match(height uint64) bool {
	return height >= f.FromHeight && (f.ToHeight == 0 || height <= f.ToHeight)
}

// EventStore indexes committed events by block height and event index, and by emitting contract.
type EventStore interface {
	SaveEvent(blockHeight uint64, eventIndex int, contract string, msg []byte) error
	FilterEvents(filter EventFilter) ([][]byte, error)
}

type KVEventStore struct {
	KVStore
}

var _ EventStore = &KVEventStore{}

func NewKVEventStore(s KVStore) *KVEventStore {
	return &KVEventStore{KVStore: s}
}

func heightIndexKey(blockHeight uint64, eventIndex int) []byte {
	key := make([]byte, 12)
	binary.BigEndian.PutUint64(key[:8], blockHeight)
	binary.BigEndian.PutUint32(key[8:], uint32(eventIndex))
	return key
}

func contractEventPrefix(contract string) []byte {
	return util.PrefixKey(contractEventKeyPrefix, []byte(contract))
}

func (s *KVEventStore) SaveEvent(blockHeight uint64, eventIndex int, contract string, msg []byte) error {
	if eventIndex < 0 {
		return errors.Errorf("invalid event index %d", eventIndex)
	}
	key := heightIndexKey(blockHeight, eventIndex)
	s.Set(util.PrefixKey(eventKeyPrefix, key), msg)
	if contract != "" {
		s.Set(util.PrefixKey(contractEventPrefix(contract), key), msg)
	}
	return nil
}

func (s *KVEventStore) FilterEvents(filter EventFilter) ([][]byte, error) {
	prefix := eventKeyPrefix
	if filter.Contract != "" {
		prefix = contractEventPrefix(filter.Contract)
	}
	var events [][]byte
	for _, entry := range s.Range(prefix) {
		if len(entry.Key) != 12 {
			return nil, errors.Errorf("invalid event key %x", entry.Key)
		}
		if filter.match(binary.BigEndian.Uint64(entry.Key[:8])) {
			events = append(events, entry.Value)
		}
	}
	return events, nil
}
