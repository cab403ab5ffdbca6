package rangeindex

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
)

func TestBucketIndexDisjointRanges(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	idx := NewBucketIndex()

	blocks := make(map[uint32]string)
	for len(blocks) < 500 {
		block := rng.Uint32() &^ 0xFF
		if _, exists := blocks[block]; exists {
			continue
		}
		cidr := fmt.Sprintf("%s/24", Uint32ToAddr(block))
		blocks[block] = cidr
		mustInsert(t, idx, cidr, "ISP "+cidr, "AS")
	}

	for block, cidr := range blocks {
		addr := block | uint32(rng.IntN(256))
		rec, ok := idx.Search(addr)
		if !ok || rec.CIDRRange != cidr {
			t.Fatalf("Search(%s) = %+v, want %s", Uint32ToAddr(addr), rec, cidr)
		}
	}

	for i := 0; i < 2000; i++ {
		addr := rng.Uint32()
		if _, inside := blocks[addr&^0xFF]; inside {
			continue
		}
		if rec, ok := idx.Search(addr); ok {
			t.Fatalf("Search(%s) = %+v, want no match", Uint32ToAddr(addr), rec)
		}
	}
}

func TestBucketIndexLongestPrefixWins(t *testing.T) {
	idx := NewBucketIndex()
	mustInsert(t, idx, "10.0.0.0/8", "A", "AS1")
	mustInsert(t, idx, "10.1.0.0/16", "B", "AS2")

	if rec, ok := idx.Search(mustAddr(t, "10.1.2.3")); !ok || rec.CIDRRange != "10.1.0.0/16" {
		t.Fatalf("Search(10.1.2.3) = %+v, want 10.1.0.0/16", rec)
	}
	if rec, ok := idx.Search(mustAddr(t, "10.2.0.1")); !ok || rec.CIDRRange != "10.0.0.0/8" {
		t.Fatalf("Search(10.2.0.1) = %+v, want 10.0.0.0/8", rec)
	}
}

func TestBucketIndexSharedKeyAcrossLengths(t *testing.T) {
	// Both ranges mask to the key 10.0.0.0.
	idx := NewBucketIndex()
	mustInsert(t, idx, "10.0.0.0/8", "short", "AS1")
	mustInsert(t, idx, "10.0.0.0/16", "long", "AS2")

	if rec, ok := idx.Search(mustAddr(t, "10.0.5.5")); !ok || rec.ISP != "long" {
		t.Fatalf("Search(10.0.5.5) = %+v, want the /16", rec)
	}
	if rec, ok := idx.Search(mustAddr(t, "10.5.0.0")); !ok || rec.ISP != "short" {
		t.Fatalf("Search(10.5.0.0) = %+v, want the /8", rec)
	}
}

func TestBucketIndexUnmaskedNetwork(t *testing.T) {
	idx := NewBucketIndex()
	mustInsert(t, idx, "192.168.1.77/24", "A", "AS1")

	rec, ok := idx.Search(mustAddr(t, "192.168.1.1"))
	if !ok || rec.CIDRRange != "192.168.1.77/24" {
		t.Fatalf("Search = %+v, want the range as written", rec)
	}
}

func TestBucketIndexHostAndDefaultRoutes(t *testing.T) {
	idx := NewBucketIndex()
	mustInsert(t, idx, "0.0.0.0/0", "default", "AS0")
	mustInsert(t, idx, "203.0.113.9/32", "host", "AS1")

	if rec, ok := idx.Search(mustAddr(t, "203.0.113.9")); !ok || rec.ISP != "host" {
		t.Fatalf("Search(203.0.113.9) = %+v", rec)
	}
	if rec, ok := idx.Search(mustAddr(t, "203.0.113.10")); !ok || rec.ISP != "default" {
		t.Fatalf("Search(203.0.113.10) = %+v", rec)
	}
}

func TestBucketIndexEmpty(t *testing.T) {
	idx := NewBucketIndex()
	if _, ok := idx.Search(0x01020304); ok {
		t.Fatal("empty index returned a match")
	}
}

func TestBucketIndexMalformedInsert(t *testing.T) {
	idx := NewBucketIndex()
	if err := idx.InsertRange("not-a-cidr", "x", "y"); !errors.Is(err, ErrMalformedCIDR) {
		t.Fatalf("InsertRange error = %v, want ErrMalformedCIDR", err)
	}
	if idx.Len() != 0 || len(idx.buckets) != 0 || idx.lengths != 0 {
		t.Fatal("failed insert modified the index")
	}
}
