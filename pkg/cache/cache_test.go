package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || hit || data != nil {
		t.Errorf("Get = %q, %v, %v; want miss", data, hit, err)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, hit, _ := c.Get(ctx, "plan:a"); hit {
		t.Fatal("empty cache hit")
	}
	if err := c.Set(ctx, "plan:a", []byte(`{"step":0}`), 0); err != nil {
		t.Fatal(err)
	}
	data, hit, err := c.Get(ctx, "plan:a")
	if err != nil || !hit || string(data) != `{"step":0}` {
		t.Fatalf("Get = %q, %v, %v", data, hit, err)
	}

	if err := c.Delete(ctx, "plan:a"); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "plan:a"); hit {
		t.Error("hit after Delete")
	}
	if err := c.Delete(ctx, "plan:a"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry was returned")
	}
	if _, err := os.Stat(c.path("k")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expired entry still on disk: %v", err)
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	path := c.path("k")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("Get = %v, %v; want silent miss", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}
	n, err := c.Clear()
	if err != nil || n != 3 {
		t.Fatalf("Clear = %d, %v", n, err)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("hit after Clear")
	}
}

func TestHash(t *testing.T) {
	h1, h2 := Hash([]byte("hello")), Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("different inputs should hash differently")
	}
	if len(h1) != 64 {
		t.Errorf("len = %d, want 64", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	opts := PlanKeyOpts{Timeline: "t1", Rows: 50, Cols: 50, MaxSize: 50}

	tests := []struct {
		name string
		a, b string
	}{
		{"step", k.PlanKey("s", 0, opts), k.PlanKey("s", 1, opts)},
		{"scene", k.PlanKey("s", 0, opts), k.PlanKey("s2", 0, opts)},
		{"timeline", k.PlanKey("s", 0, opts), k.PlanKey("s", 0, PlanKeyOpts{Timeline: "t2", Rows: 50, Cols: 50, MaxSize: 50})},
		{"board", k.PlanKey("s", 0, opts), k.PlanKey("s", 0, PlanKeyOpts{Timeline: "t1", Rows: 20, Cols: 50, MaxSize: 50})},
		{"report vs plan", k.ReportKey("s", opts), k.PlanKey("s", 0, opts)},
		{"format", k.ArtifactKey("p", ArtifactKeyOpts{Format: "json"}), k.ArtifactKey("p", ArtifactKeyOpts{Format: "text"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.a == tt.b {
				t.Errorf("keys collide: %s", tt.a)
			}
		})
	}

	if got := k.PlanKey("s", 0, opts); !strings.HasPrefix(got, KeyTypePlan+":") || got != k.PlanKey("s", 0, opts) {
		t.Errorf("PlanKey = %s", got)
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(nil, "doc:42:")
	inner := NewDefaultKeyer()
	opts := PlanKeyOpts{Timeline: "t"}

	if got, want := scoped.PlanKey("s", 3, opts), "doc:42:"+inner.PlanKey("s", 3, opts); got != want {
		t.Errorf("PlanKey = %s, want %s", got, want)
	}
	if got := scoped.ReportKey("s", opts); !strings.HasPrefix(got, "doc:42:report:") {
		t.Errorf("ReportKey = %s", got)
	}
	if got := scoped.ArtifactKey("p", ArtifactKeyOpts{Format: "json"}); !strings.HasPrefix(got, "doc:42:artifact:") {
		t.Errorf("ArtifactKey = %s", got)
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should be nil")
	}
	err := Retryable(ErrNetwork)
	if !IsRetryable(err) || !errors.Is(err, ErrNetwork) {
		t.Errorf("Retryable(ErrNetwork) = %v", err)
	}
	if err.Error() != ErrNetwork.Error() {
		t.Errorf("message = %q", err.Error())
	}
	if IsRetryable(ErrNetwork) {
		t.Error("unwrapped error should not be retryable")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	retryDelay = time.Millisecond
	t.Cleanup(func() { retryDelay = 100 * time.Millisecond })
	ctx := context.Background()
	permanent := errors.New("permanent")

	tests := []struct {
		name      string
		failures  int
		err       error
		wantCalls int
		wantErr   error
	}{
		{"first try", 0, nil, 1, nil},
		{"permanent", 5, permanent, 1, permanent},
		{"recovers", 1, Retryable(ErrNetwork), 2, nil},
		{"gives up", 5, Retryable(ErrNetwork), 3, ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := RetryWithBackoff(ctx, func() error {
				calls++
				if calls <= tt.failures {
					return tt.err
				}
				return nil
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr == nil && err != nil || tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RetryWithBackoff(ctx, func() error { return Retryable(ErrNetwork) })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("STEPGRID_REDIS_ADDR")
	if addr == "" {
		t.Skip("STEPGRID_REDIS_ADDR not set")
	}
	ctx := context.Background()
	c, err := NewRedisCache(ctx, RedisOptions{Addr: addr, Prefix: "stepgrid-test:"})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	t.Cleanup(func() { _, _ = c.Clear(ctx) })

	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Fatalf("Get on empty = %v, %v", hit, err)
	}
	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit || string(data) != "v" {
		t.Fatalf("Get = %q, %v, %v", data, hit, err)
	}
	if n, err := c.Clear(ctx); err != nil || n != 1 {
		t.Errorf("Clear = %d, %v", n, err)
	}
}
