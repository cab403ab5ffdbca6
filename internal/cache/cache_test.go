package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"

	"asnlookup/internal/domain"
)

var sampleEntry = Entry{
	Record: domain.RangeRecord{CIDRRange: "10.0.0.0/8", ISP: "Example ISP", ASN: "AS64500"},
	Source: "index",
	Found:  true,
}

func TestKey(t *testing.T) {
	if got := Key(42, "10.1.2.3"); got != "42:10.1.2.3" {
		t.Fatalf("Key returned %q, want %q", got, "42:10.1.2.3")
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	c := NewMemory(time.Minute, 0)
	defer c.Close()
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, "1:10.0.0.1"); ok || err != nil {
		t.Fatalf("Get on empty cache = (%v, %v), want miss", ok, err)
	}

	if err := c.Set(ctx, "1:10.0.0.1", sampleEntry); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	got, ok, err := c.Get(ctx, "1:10.0.0.1")
	if err != nil || !ok {
		t.Fatalf("Get = (%v, %v), want hit", ok, err)
	}
	if diff := cmp.Diff(sampleEntry, got); diff != "" {
		t.Fatalf("cached entry mismatch (-want +got):\n%s", diff)
	}

	if _, ok, _ := c.Get(ctx, "2:10.0.0.1"); ok {
		t.Fatal("entry leaked across generations")
	}
}

func TestMemoryExpires(t *testing.T) {
	c := NewMemory(20*time.Millisecond, 0)
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "k", sampleEntry); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	time.Sleep(60 * time.Millisecond)

	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("entry still cached after its TTL")
	}
}

func TestMemoryCapacity(t *testing.T) {
	c := NewMemory(time.Minute, 2)
	defer c.Close()
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, sampleEntry); err != nil {
			t.Fatalf("Set(%q) returned error: %v", k, err)
		}
	}
	if got := c.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}
}

func TestRedisRoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("ParseURL returned error: %v", err)
	}
	client := redis.NewClient(opt)
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	c := NewRedis(client, time.Minute)
	key := Key(uint64(time.Now().UnixNano()), "10.0.0.1")
	t.Cleanup(func() { client.Del(context.Background(), redisKeyPrefix+key) })

	if _, ok, err := c.Get(ctx, key); ok || err != nil {
		t.Fatalf("Get before Set = (%v, %v), want miss", ok, err)
	}
	if err := c.Set(ctx, key, sampleEntry); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	got, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Get = (%v, %v), want hit", ok, err)
	}
	if diff := cmp.Diff(sampleEntry, got); diff != "" {
		t.Fatalf("cached entry mismatch (-want +got):\n%s", diff)
	}

	ttl, err := client.TTL(ctx, redisKeyPrefix+key).Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Fatalf("TTL = (%s, %v), want within 1m", ttl, err)
	}
}
