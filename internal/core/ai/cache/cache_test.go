package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"menu-scanner/internal/core/ai/provider"
	"menu-scanner/internal/pkg/common"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func TestManager_GetSetAndExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	m := newManager(10, time.Minute, clock.now)
	ctx := context.Background()

	if _, err := m.Get(ctx, "k"); !errors.Is(err, common.ErrCacheMiss) {
		t.Fatalf("expected cache miss, got %v", err)
	}

	if err := m.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, err := m.Get(ctx, "k"); err != nil || got != "v" {
		t.Fatalf("expected hit v, got %q %v", got, err)
	}

	clock.t = clock.t.Add(2 * time.Minute)
	if _, err := m.Get(ctx, "k"); !errors.Is(err, common.ErrCacheMiss) {
		t.Fatalf("expected expired entry to miss, got %v", err)
	}

	stats := m.GetStats()
	if stats["hits"].(int64) != 1 || stats["misses"].(int64) != 2 {
		t.Fatalf("unexpected stats %v", stats)
	}
}

func TestManager_EvictsLeastUsed(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	m := newManager(2, time.Hour, clock.now)
	ctx := context.Background()

	_ = m.Set(ctx, "a", "1")
	clock.t = clock.t.Add(time.Second)
	_ = m.Set(ctx, "b", "2")
	if _, err := m.Get(ctx, "a"); err != nil {
		t.Fatalf("get a: %v", err)
	}

	if err := m.Set(ctx, "c", "3"); err != nil {
		t.Fatalf("set c: %v", err)
	}
	if _, err := m.Get(ctx, "b"); !errors.Is(err, common.ErrCacheMiss) {
		t.Fatalf("expected b to be evicted, got %v", err)
	}
	if _, err := m.Get(ctx, "a"); err != nil {
		t.Fatalf("expected a to survive, got %v", err)
	}
}

func TestManager_CloseIsIdempotent(t *testing.T) {
	m := newManager(1, time.Hour, time.Now)
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func newRedisService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc := NewServiceWithClient(client, time.Minute)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, mr
}

func TestService_RedisRoundTrip(t *testing.T) {
	svc, mr := newRedisService(t)
	ctx := context.Background()

	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, common.ErrCacheMiss) {
		t.Fatalf("expected cache miss, got %v", err)
	}

	if err := svc.Set(ctx, "k", `["라떼"]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, err := svc.Get(ctx, "k"); err != nil || got != `["라떼"]` {
		t.Fatalf("expected stored value, got %q %v", got, err)
	}
	if ttl := mr.TTL("k"); ttl != time.Minute {
		t.Fatalf("expected ttl 1m, got %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := svc.Get(ctx, "k"); !errors.Is(err, common.ErrCacheMiss) {
		t.Fatalf("expected expired key to miss, got %v", err)
	}
}

func TestCached_UsesStore(t *testing.T) {
	calls := 0
	next := provider.CompleterFunc(func(ctx context.Context, req provider.Request) (string, error) {
		calls++
		return "응답-" + req.Text, nil
	})
	svc, _ := newRedisService(t)
	cached := NewCached(next, svc)
	ctx := context.Background()
	req := provider.Request{Prompt: "p", Text: "t", MaxTokens: 500}

	for i := 0; i < 3; i++ {
		got, err := cached.Complete(ctx, req)
		if err != nil || got.Text != "응답-t" {
			t.Fatalf("unexpected result %+v %v", got, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single upstream call, got %d", calls)
	}

	if _, err := cached.Complete(ctx, provider.Request{Prompt: "p", Text: "t", MaxTokens: 100}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("different maxTokens must not share a key, calls=%d", calls)
	}
}

func TestCached_StoreFailureDoesNotFailCompletion(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	svc := NewServiceWithClient(client, time.Minute)
	defer svc.Close()

	next := provider.CompleterFunc(func(ctx context.Context, req provider.Request) (string, error) {
		return "ok", nil
	})
	got, err := NewCached(next, svc).Complete(context.Background(), provider.Request{Prompt: "p", Text: "t"})
	if err != nil || got.Text != "ok" {
		t.Fatalf("expected completion despite cache outage, got %+v %v", got, err)
	}
}

type methodCompleter struct {
	calls int
}

func (m *methodCompleter) Name() string { return "http" }

func (m *methodCompleter) Complete(ctx context.Context, req provider.Request) (provider.Completion, error) {
	m.calls++
	return provider.Completion{Text: `["라떼"]`, Method: "meaningful_words"}, nil
}

func TestCached_KeepsMethodAndSkipsUnreadableEntries(t *testing.T) {
	ctx := context.Background()
	req := provider.Request{Prompt: "p", Text: "t", MaxTokens: 500}
	store := newManager(10, time.Hour, time.Now)
	// 舊格式的純文字快取值
	if err := store.Set(ctx, Key(req), "plain text"); err != nil {
		t.Fatal(err)
	}

	next := &methodCompleter{}
	cached := NewCached(next, store)
	for i := 0; i < 2; i++ {
		got, err := cached.Complete(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Text != `["라떼"]` || got.Method != "meaningful_words" {
			t.Fatalf("unexpected completion %+v", got)
		}
	}
	if next.calls != 1 {
		t.Fatalf("expected unreadable entry to be replaced once, calls=%d", next.calls)
	}
}

func TestCached_PropagatesUpstreamError(t *testing.T) {
	boom := errors.New("boom")
	next := provider.CompleterFunc(func(ctx context.Context, req provider.Request) (string, error) {
		return "", boom
	})
	store := newManager(10, time.Hour, time.Now)

	if _, err := NewCached(next, store).Complete(context.Background(), provider.Request{}); !errors.Is(err, boom) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if _, err := store.Get(context.Background(), Key(provider.Request{})); !errors.Is(err, common.ErrCacheMiss) {
		t.Fatalf("failures must not be cached")
	}
}

func TestKey_Deterministic(t *testing.T) {
	a := Key(provider.Request{Prompt: "p", Text: "t", MaxTokens: 1})
	b := Key(provider.Request{Prompt: "p", Text: "t", MaxTokens: 1})
	c := Key(provider.Request{Prompt: "p|t", Text: "", MaxTokens: 1})
	if a != b {
		t.Fatalf("keys differ for identical requests")
	}
	if a == c {
		t.Fatalf("expected different keys")
	}
}
