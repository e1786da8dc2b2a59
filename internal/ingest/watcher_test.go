package ingest

import (
	"context"
	"testing"
	"time"
)

func TestStartWatcherRequiresRoots(t *testing.T) {
	if _, _, err := StartWatcher(context.Background(), WatchConfig{}, quietLogger()); err == nil {
		t.Error("expected error for empty roots")
	}
}

func TestStartWatcherInitialScanAndCreate(t *testing.T) {
	dir := t.TempDir()
	existing := writeFile(t, dir, "w2.txt", "FORM W-2")
	writeFile(t, dir, "ignore.pdf", "%PDF")
	writeFile(t, dir, ".secret/w2.txt", "FORM W-2")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{
		Roots:       []string{dir},
		SkipHidden:  true,
		InitialScan: true,
		Debounce:    20 * time.Millisecond,
	}, quietLogger())
	if err != nil {
		t.Fatalf("StartWatcher() error = %v", err)
	}

	next := func() string {
		t.Helper()
		select {
		case p := <-events:
			return p
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for watcher event")
			return ""
		}
	}

	if got := next(); got != existing {
		t.Errorf("initial event = %q, want %q", got, existing)
	}

	created := writeFile(t, dir, "1099.txt", "FORM 1099")
	if got := next(); got != created {
		t.Errorf("create event = %q, want %q", got, created)
	}

	cancel()
	for range events {
	}
}

func TestWatchIngestsNewFiles(t *testing.T) {
	dir := t.TempDir()
	ing, docs := newIngestor(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, ing, WatchConfig{Roots: []string{dir}, Debounce: 20 * time.Millisecond}, quietLogger())
	}()

	// give the watcher time to register the root
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "w2_new.txt", "FORM W-2\nWages: $10")

	deadline := time.Now().Add(5 * time.Second)
	for {
		all, _ := docs.List(context.Background())
		if len(all) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("document not ingested, store has %d", len(all))
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch() error = %v", err)
	}
}
