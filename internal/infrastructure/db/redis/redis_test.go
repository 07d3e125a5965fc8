package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), Config{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestStateStore_ConsumeOnce(t *testing.T) {
	_, client := newTestClient(t)
	store := NewStateStore(client, time.Minute)
	ctx := context.Background()

	if err := store.Save(ctx, "abc"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	ok, err := store.Consume(ctx, "abc")
	if err != nil || !ok {
		t.Fatalf("first consume: ok=%v err=%v", ok, err)
	}
	ok, err = store.Consume(ctx, "abc")
	if err != nil || ok {
		t.Fatalf("second consume must fail: ok=%v err=%v", ok, err)
	}
}

func TestStateStore_Expires(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewStateStore(client, time.Minute)
	ctx := context.Background()

	_ = store.Save(ctx, "abc")
	mr.FastForward(2 * time.Minute)

	if ok, _ := store.Consume(ctx, "abc"); ok {
		t.Fatalf("expired state must not be consumable")
	}
}

func TestStateStore_UnknownState(t *testing.T) {
	_, client := newTestClient(t)
	if ok, err := NewStateStore(client, 0).Consume(context.Background(), "nope"); ok || err != nil {
		t.Fatalf("unexpected result ok=%v err=%v", ok, err)
	}
}

func TestRateLimiter_BlocksAfterLimitUntilWindowResets(t *testing.T) {
	mr, client := newTestClient(t)
	limiter := NewRateLimiter(client, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _, err := limiter.Allow(ctx, "login:1.2.3.4")
		if err != nil || !ok {
			t.Fatalf("hit %d should pass: ok=%v err=%v", i, ok, err)
		}
	}
	ok, retry, err := limiter.Allow(ctx, "login:1.2.3.4")
	if err != nil || ok {
		t.Fatalf("third hit should be blocked: ok=%v err=%v", ok, err)
	}
	if retry <= 0 || retry > time.Minute {
		t.Fatalf("unexpected retry-after %v", retry)
	}

	if ok, _, _ := limiter.Allow(ctx, "login:5.6.7.8"); !ok {
		t.Fatalf("other keys must not be affected")
	}

	mr.FastForward(61 * time.Second)
	if ok, _, _ := limiter.Allow(ctx, "login:1.2.3.4"); !ok {
		t.Fatalf("window should have reset")
	}
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(context.Background(), Config{Addr: "127.0.0.1:1", Timeout: 200 * time.Millisecond})
	if err == nil {
		t.Fatalf("expected connection error")
	}
}
