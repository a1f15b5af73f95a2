package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// countingSource records which wallets reach the primary directory.
type countingSource struct {
	*MemoryStore
	lookups []string
}

func (c *countingSource) DisplayNames(ctx context.Context, wallets []string) (map[string]string, error) {
	c.lookups = append(c.lookups, wallets...)
	return c.MemoryStore.DisplayNames(ctx, wallets)
}

func testRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

// unreachableRedis points at a port nothing listens on.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestCachedDirectory_DegradesToPrimary(t *testing.T) {
	primary := seedMemory()
	cached := NewCachedDirectory(primary, unreachableRedis(t), time.Minute)

	names, err := cached.DisplayNames(context.Background(), []string{"0xa", "0xb"})
	if err != nil {
		t.Fatalf("cache outage should not fail the read: %v", err)
	}
	if len(names) != 1 || names["0xa"] != "alice" {
		t.Errorf("unexpected names: %v", names)
	}
}

func TestCachedDirectory_EmptyWallets(t *testing.T) {
	cached := NewCachedDirectory(seedMemory(), unreachableRedis(t), time.Minute)
	names, err := cached.DisplayNames(context.Background(), nil)
	if err != nil || len(names) != 0 {
		t.Errorf("expected empty result, got %v (%v)", names, err)
	}
}

func TestCachedDirectory_LedgerPassthrough(t *testing.T) {
	primary := seedMemory()
	cached := NewCachedDirectory(primary, unreachableRedis(t), time.Minute)
	ctx := context.Background()

	markets, err := cached.MarketsCreatedOn(ctx, day)
	if err != nil || len(markets) != 1 {
		t.Errorf("expected 1 market from primary, got %d (%v)", len(markets), err)
	}
	fills, err := cached.Fills(ctx, []string{"m1"})
	if err != nil || len(fills) != 1 {
		t.Errorf("expected 1 fill from primary, got %d (%v)", len(fills), err)
	}
}

func TestDisplayNameKey(t *testing.T) {
	if got := displayNameKey("0xabc"); got != "profile:display_name:0xabc" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestCachedDirectory_ServesHitsFromCache(t *testing.T) {
	mr, rdb := testRedis(t)
	primary := &countingSource{MemoryStore: seedMemory()}
	cached := NewCachedDirectory(primary, rdb, time.Minute)

	// The cached name differs from the primary's to show which one answered.
	mr.Set(displayNameKey("0xa"), "alice-cached")

	names, err := cached.DisplayNames(context.Background(), []string{"0xa"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if names["0xa"] != "alice-cached" {
		t.Errorf("expected cached name, got %v", names)
	}
	if len(primary.lookups) != 0 {
		t.Errorf("cache hit should not reach the primary, looked up %v", primary.lookups)
	}
}

func TestCachedDirectory_WritesBackWithTTL(t *testing.T) {
	mr, rdb := testRedis(t)
	primary := &countingSource{MemoryStore: seedMemory()}
	cached := NewCachedDirectory(primary, rdb, 10*time.Minute)

	names, err := cached.DisplayNames(context.Background(), []string{"0xa"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if names["0xa"] != "alice" {
		t.Errorf("expected primary name, got %v", names)
	}

	got, err := mr.Get(displayNameKey("0xa"))
	if err != nil || got != "alice" {
		t.Errorf("expected name written back, got %q (%v)", got, err)
	}
	if ttl := mr.TTL(displayNameKey("0xa")); ttl != 10*time.Minute {
		t.Errorf("expected 10m TTL, got %s", ttl)
	}
}

func TestCachedDirectory_CachesUnknownWallets(t *testing.T) {
	mr, rdb := testRedis(t)
	primary := &countingSource{MemoryStore: seedMemory()}
	cached := NewCachedDirectory(primary, rdb, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		names, err := cached.DisplayNames(ctx, []string{"0xa", "0xnobody"})
		if err != nil {
			t.Fatalf("read %d: %v", i+1, err)
		}
		if len(names) != 1 || names["0xa"] != "alice" {
			t.Errorf("read %d: unexpected names %v", i+1, names)
		}
	}

	if len(primary.lookups) != 2 {
		t.Errorf("primary should be asked once per wallet, looked up %v", primary.lookups)
	}
	if !mr.Exists(displayNameKey("0xnobody")) {
		t.Error("expected an entry for the wallet without a name")
	}
	if ttl := mr.TTL(displayNameKey("0xnobody")); ttl != time.Minute {
		t.Errorf("expected 1m TTL on the empty entry, got %s", ttl)
	}
}

func TestCachedDirectory_ExpiredEntryRefetches(t *testing.T) {
	mr, rdb := testRedis(t)
	primary := &countingSource{MemoryStore: seedMemory()}
	cached := NewCachedDirectory(primary, rdb, time.Minute)
	ctx := context.Background()

	if _, err := cached.DisplayNames(ctx, []string{"0xb"}); err != nil {
		t.Fatalf("first read: %v", err)
	}
	primary.SetDisplayName("0xb", "bob")
	mr.FastForward(2 * time.Minute)

	names, err := cached.DisplayNames(ctx, []string{"0xb"})
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if names["0xb"] != "bob" {
		t.Errorf("expected name set after expiry, got %v", names)
	}
}
