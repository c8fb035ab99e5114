package memberapproval

import (
	"bytes"
	"encoding/binary"

	"github.com/loomnetwork/memberapproval/store"
)

// Sequence is a monotonically increasing counter persisted under a single key.
type Sequence struct {
	Key []byte
}

func NewSequence(key []byte) *Sequence {
	return &Sequence{Key: key}
}

func (s *Sequence) Value(kvStore store.KVReader) uint64 {
	var seq uint64
	data := kvStore.Get(s.Key)
	if len(data) > 0 {
		err := binary.Read(bytes.NewReader(data), binary.BigEndian, &seq)
		if err != nil {
			panic(err)
		}
	}

	return seq
}

func (s *Sequence) Next(kvStore store.KVStore) uint64 {
	seq := s.Value(kvStore) + 1

	var buf bytes.Buffer
	err := binary.Write(&buf, binary.BigEndian, seq)
	if err != nil {
		panic(err)
	}

	kvStore.Set(s.Key, buf.Bytes())
	return seq
}
