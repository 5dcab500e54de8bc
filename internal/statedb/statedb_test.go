package statedb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	testAccount = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testSlot    = common.HexToHash("0x08")
	testWord    = common.HexToHash("0xdeadbeef")
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	store.Put(testAccount, testSlot, testWord)

	word, ok, err := store.StorageAt(context.Background(), testAccount, testSlot)
	if err != nil {
		t.Fatalf("storage at: %v", err)
	}
	if !ok || word != testWord {
		t.Fatalf("stored word not returned: %s, %v", word.Hex(), ok)
	}

	_, ok, err = store.StorageAt(context.Background(), testAccount, common.HexToHash("0x09"))
	if err != nil {
		t.Fatalf("storage at: %v", err)
	}
	if ok {
		t.Fatalf("unset slot reported present")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap")

	snap, err := OpenSnapshot(path)
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	if err := snap.PutStorage(testAccount, testSlot, testWord); err != nil {
		t.Fatalf("put storage: %v", err)
	}
	if err := snap.SetHead(19000000); err != nil {
		t.Fatalf("set head: %v", err)
	}
	if err := snap.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	snap, err = OpenSnapshotReadOnly(path)
	if err != nil {
		t.Fatalf("reopen snapshot: %v", err)
	}
	defer snap.Close()

	word, ok, err := snap.StorageAt(context.Background(), testAccount, testSlot)
	if err != nil {
		t.Fatalf("storage at: %v", err)
	}
	if !ok || word != testWord {
		t.Fatalf("recorded word lost: %s, %v", word.Hex(), ok)
	}

	_, ok, err = snap.StorageAt(context.Background(), testAccount, common.HexToHash("0x09"))
	if err != nil {
		t.Fatalf("storage at: %v", err)
	}
	if ok {
		t.Fatalf("unrecorded slot reported present")
	}

	head, ok, err := snap.Head()
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if !ok || head != 19000000 {
		t.Fatalf("head = %d, %v, want 19000000", head, ok)
	}
}

func TestSnapshotReadOnlyMissing(t *testing.T) {
	if _, err := OpenSnapshotReadOnly(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected error opening a missing snapshot read-only")
	}
}

func TestSnapshotHeadUnset(t *testing.T) {
	snap, err := OpenSnapshot(filepath.Join(t.TempDir(), "snap"))
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	defer snap.Close()

	_, ok, err := snap.Head()
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if ok {
		t.Fatalf("fresh snapshot reported a pinned head")
	}
}

func TestRecordingReader(t *testing.T) {
	snap, err := OpenSnapshot(filepath.Join(t.TempDir(), "snap"))
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	defer snap.Close()

	inner := NewMemoryStore()
	inner.Put(testAccount, testSlot, testWord)

	recorder := NewRecordingReader(inner, snap)

	word, ok, err := recorder.StorageAt(context.Background(), testAccount, testSlot)
	if err != nil {
		t.Fatalf("storage at: %v", err)
	}
	if !ok || word != testWord {
		t.Fatalf("read through recorder lost the word")
	}

	// Absent slots pass through without being recorded.
	if _, ok, err := recorder.StorageAt(context.Background(), testAccount, common.HexToHash("0x09")); err != nil || ok {
		t.Fatalf("absent slot mishandled: %v, %v", ok, err)
	}
	if recorder.Recorded() != 1 {
		t.Fatalf("recorded = %d, want 1", recorder.Recorded())
	}

	// The recorded word replays from the snapshot alone.
	word, ok, err = snap.StorageAt(context.Background(), testAccount, testSlot)
	if err != nil {
		t.Fatalf("snapshot storage at: %v", err)
	}
	if !ok || word != testWord {
		t.Fatalf("recorded word did not reach the snapshot")
	}
}

func TestWithRetryEventualSuccess(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestWithRetryExhaustion(t *testing.T) {
	wantErr := errors.New("permanent")
	attempts := 0
	err := withRetry(context.Background(), 2, time.Millisecond, func(context.Context) error {
		attempts++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want %v", err, wantErr)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestWithRetryContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := withRetry(ctx, 5, time.Hour, func(context.Context) error {
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
