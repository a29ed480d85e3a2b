package upstream

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeSource struct {
	calls atomic.Int32
	body  []byte
	err   error
}

func (f *fakeSource) Fetch(context.Context, string) ([]byte, error) {
	f.calls.Add(1)
	return f.body, f.err
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok, _ := c.Get(ctx, "k"); !ok || string(v) != "v" {
		t.Fatalf("Get = (%q, %v)", v, ok)
	}

	now = now.Add(time.Minute)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("entry should expire at its deadline")
	}
	if _, ok, _ := c.Get(ctx, "missing"); ok {
		t.Error("missing key reported present")
	}
}

func TestSQLiteCache(t *testing.T) {
	ctx := context.Background()
	c, err := OpenSQLiteMemoryCache()
	if err != nil {
		t.Fatalf("OpenSQLiteMemoryCache: %v", err)
	}
	defer c.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := c.Set(ctx, "k", []byte("first"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set(ctx, "k", []byte("second"), time.Minute); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || string(v) != "second" {
		t.Fatalf("Get = (%q, %v, %v)", v, ok, err)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("expired entry returned")
	}
	n, err := c.Purge(ctx)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if n != 1 {
		t.Errorf("Purge removed %d rows, want 1", n)
	}
}

func TestOpenSQLiteCacheFile(t *testing.T) {
	path := t.TempDir() + "/nested/cache.db"
	c, err := OpenSQLiteCache(path)
	if err != nil {
		t.Fatalf("OpenSQLiteCache: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Error("expected hit")
	}
}

func TestCachedSource(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{body: []byte(`{"swagger":"2.0"}`)}
	cs := NewCachedSource(src, NewMemoryCache(), time.Minute)

	for i := 0; i < 3; i++ {
		body, err := cs.Fetch(ctx, "https://billing.internal/spec")
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if string(body) != `{"swagger":"2.0"}` {
			t.Errorf("body = %s", body)
		}
	}
	if got := src.calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}

	if _, err := cs.Fetch(ctx, "https://users.internal/spec"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := src.calls.Load(); got != 2 {
		t.Errorf("different URL should miss, calls = %d", got)
	}
}

func TestCachedSourceDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{err: errors.New("boom")}
	cs := NewCachedSource(src, NewMemoryCache(), time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := cs.Fetch(ctx, "https://x/spec"); err == nil {
			t.Fatal("expected error")
		}
	}
	if got := src.calls.Load(); got != 2 {
		t.Errorf("upstream calls = %d, want 2", got)
	}
}

func TestCacheKeyStable(t *testing.T) {
	a := cacheKey("https://x/spec")
	if a != cacheKey("https://x/spec") {
		t.Error("cache key must be deterministic")
	}
	if a == cacheKey("https://y/spec") {
		t.Error("different URLs must not share a key")
	}
	if len(a) != len("spec:")+32 {
		t.Errorf("unexpected key length %d", len(a))
	}
}

// blockingSource holds every fetch until release is closed or the fetch
// context ends.
type blockingSource struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (b *blockingSource) Fetch(ctx context.Context, _ string) ([]byte, error) {
	if b.calls.Add(1) == 1 {
		close(b.started)
	}
	select {
	case <-b.release:
		return []byte("shared"), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestCachedSourceCancelledCallerDoesNotFailOthers(t *testing.T) {
	src := &blockingSource{started: make(chan struct{}), release: make(chan struct{})}
	cs := NewCachedSource(src, NewMemoryCache(), time.Minute)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := cs.Fetch(ctxA, "http://upstream/spec.json")
		errA <- err
	}()
	<-src.started

	type result struct {
		body []byte
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		body, err := cs.Fetch(context.Background(), "http://upstream/spec.json")
		resB <- result{body, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("cancelled caller err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(src.release)
	select {
	case r := <-resB:
		if r.err != nil {
			t.Fatalf("waiting caller err = %v", r.err)
		}
		if string(r.body) != "shared" {
			t.Errorf("body = %q, want shared", r.body)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiting caller did not return")
	}

	if n := src.calls.Load(); n != 1 {
		t.Errorf("upstream fetched %d times, want 1", n)
	}
	body, err := cs.Fetch(context.Background(), "http://upstream/spec.json")
	if err != nil || string(body) != "shared" {
		t.Errorf("cached Fetch = (%q, %v)", body, err)
	}
	if n := src.calls.Load(); n != 1 {
		t.Errorf("cache miss after shared fetch; %d upstream calls", n)
	}
}
