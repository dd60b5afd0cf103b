package cache

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"airbnb-vacancy/utils"
)

func TestKey(t *testing.T) {
	if got := Key("Copenhagen", "StayDuration"); got != "copenhagen-StayDuration" {
		t.Errorf("Key: got %q, want %q", got, "copenhagen-StayDuration")
	}
}

func TestMemoizeComputesOnce(t *testing.T) {
	store := NewMemoryStore()
	calls := 0
	compute := func() ([]int, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("compute called twice")
		}
		return []int{3, 7, 14}, nil
	}

	for i := 0; i < 2; i++ {
		got, err := Memoize(store, "oslo-StayDuration", compute)
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if len(got) != 3 || got[2] != 14 {
			t.Errorf("call %d: got %v", i, got)
		}
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestMemoizeDoesNotPersistErrors(t *testing.T) {
	store := NewMemoryStore()
	_, err := Memoize(store, "k", func() (int, error) { return 0, errors.New("nope") })
	if err == nil {
		t.Fatal("expected compute error")
	}
	if _, ok, _ := store.Load("k"); ok {
		t.Error("failed computation must not be persisted")
	}
}

func TestFileStoreSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	first, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := Memoize(first, "rome-StayDuration", func() (map[int64]int, error) {
		return map[int64]int{1: 5, 2: 7}, nil
	}); err != nil {
		t.Fatalf("first Memoize: %v", err)
	}

	second, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore (reopen): %v", err)
	}
	got, err := Memoize(second, "rome-StayDuration", func() (map[int64]int, error) {
		return nil, errors.New("should be served from disk")
	})
	if err != nil {
		t.Fatalf("second Memoize: %v", err)
	}
	if got[2] != 7 {
		t.Errorf("got[2]: got %d, want 7", got[2])
	}
}

func TestFileStoreCorruptEntryIsFatal(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "lisbon-StayDuration.gob"), []byte("not gob"), 0o644); err != nil {
		t.Fatal(err)
	}

	called := false
	_, err = Memoize(store, "lisbon-StayDuration", func() ([]int, error) {
		called = true
		return []int{1}, nil
	})
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
	if called {
		t.Error("corrupt entry must not fall back to recompute")
	}
}

func TestFileStoreSecondWriterKeepsFirst(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	stored, err := store.Save("k", []byte("first"))
	if err != nil || !stored {
		t.Fatalf("first Save: stored=%v err=%v", stored, err)
	}
	stored, err = store.Save("k", []byte("second"))
	if err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if stored {
		t.Error("second Save should report an existing entry")
	}
	data, _, _ := store.Load("k")
	if string(data) != "first" {
		t.Errorf("data: got %q, want %q", data, "first")
	}
}

func TestFileStoreMkdirIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "_cache")
	for i := 0; i < 2; i++ {
		if _, err := NewFileStore(dir); err != nil {
			t.Fatalf("NewFileStore #%d: %v", i, err)
		}
	}
}

func TestFileStoreEntriesAndClear(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"paris-StayDuration", "paris-ReviewNormalization", "oslo-StayDuration"} {
		if _, err := store.Save(k, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := store.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 3 || entries[0].Key != "oslo-StayDuration" {
		t.Errorf("Entries: got %+v", entries)
	}

	removed, err := store.Clear("paris-")
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed: got %d, want 2", removed)
	}
	if _, ok, _ := store.Load("oslo-StayDuration"); !ok {
		t.Error("oslo entry should survive a paris clear")
	}
}

func TestGetConcurrentCallersComputeOnce(t *testing.T) {
	c := New(NewMemoryStore(), utils.NewDiscardLogger())
	var calls int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	results := make([][]int, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = Get(c, "Berlin", "StayDuration", func() ([]int, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return []int{4, 2}, nil
			})
		}(i)
	}
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
	for i, r := range results {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if len(r) != 2 || r[0] != 4 {
			t.Errorf("caller %d: got %v", i, r)
		}
	}
}

func TestGetRecomputeFailingOnSecondCallStillSucceeds(t *testing.T) {
	c := New(NewMemoryStore(), utils.NewDiscardLogger())
	calls := 0
	compute := func() (string, error) {
		calls++
		if calls == 2 {
			return "", errors.New("recompute must not run twice")
		}
		return "payload", nil
	}
	for i := 0; i < 2; i++ {
		got, err := Get(c, "Madrid", "StayDuration", compute)
		if err != nil {
			t.Fatalf("Get #%d: %v", i, err)
		}
		if got != "payload" {
			t.Errorf("Get #%d: got %q", i, got)
		}
	}
}

func TestGetSharedDirectoryComputesOnce(t *testing.T) {
	dir := t.TempDir()
	var calls int32

	// two caches over the same directory behave like two processes
	var wg sync.WaitGroup
	results := make([][]int, 2)
	errs := make([]error, 2)
	for i := range results {
		store, err := NewFileStore(dir)
		if err != nil {
			t.Fatal(err)
		}
		c := New(store, utils.NewDiscardLogger())
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = Get(c, "Lisbon", "StayDuration", func() ([]int, error) {
				atomic.AddInt32(&calls, 1)
				time.Sleep(100 * time.Millisecond)
				return []int{3, 0, 7}, nil
			})
		}(i)
	}
	wg.Wait()

	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
	for i, r := range results {
		if errs[i] != nil {
			t.Fatalf("cache %d: %v", i, errs[i])
		}
		if len(r) != 3 || r[2] != 7 {
			t.Errorf("cache %d: got %v, want [3 0 7]", i, r)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "lisbon-StayDuration.lock")); !os.IsNotExist(err) {
		t.Errorf("lock file: got %v, want removed", err)
	}
}

func TestFileStoreLockBreaksStaleLock(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	lock := filepath.Join(dir, "rome-StayDuration.lock")
	if err := os.WriteFile(lock, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-2 * lockStaleAfter)
	if err := os.Chtimes(lock, old, old); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		unlock, err := store.Lock("rome-StayDuration")
		if err != nil {
			t.Errorf("Lock: %v", err)
		} else {
			unlock()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Lock: still waiting on a stale lock")
	}
}

func TestFileStoreDeleteMatchesExactKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"oslo-StayDuration", "oslo-ReviewNormalization", "oslo-bergen-StayDuration"} {
		if _, err := store.Save(k, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := store.Delete(MarketKeys("Oslo", "ReviewNormalization", "StayDuration")...)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed: got %d, want 2", removed)
	}
	if _, ok, _ := store.Load("oslo-bergen-StayDuration"); !ok {
		t.Error("oslo-bergen entry should survive an oslo clear")
	}
	if removed, _ := store.Delete("oslo-StayDuration"); removed != 0 {
		t.Errorf("second Delete: got %d, want 0", removed)
	}
}
