package statedb

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// RecordingReader passes reads through to an inner Reader and
// persists every present word into a snapshot store. Running a
// collection through it leaves behind exactly the slots that
// collection touched, ready for offline replay.
type RecordingReader struct {
	inner Reader
	sink  *SnapshotStore

	mu       sync.Mutex
	recorded int
}

func NewRecordingReader(inner Reader, sink *SnapshotStore) *RecordingReader {
	return &RecordingReader{inner: inner, sink: sink}
}

// StorageAt implements Reader. Absent slots are not recorded; a
// missing snapshot entry round-trips back to absent.
func (r *RecordingReader) StorageAt(ctx context.Context, account common.Address, slot common.Hash) (common.Hash, bool, error) {
	word, ok, err := r.inner.StorageAt(ctx, account, slot)
	if err != nil || !ok {
		return word, ok, err
	}
	if err := r.sink.PutStorage(account, slot, word); err != nil {
		return common.Hash{}, false, err
	}
	r.mu.Lock()
	r.recorded++
	r.mu.Unlock()
	return word, true, nil
}

// Recorded returns how many words have been persisted.
func (r *RecordingReader) Recorded() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recorded
}
