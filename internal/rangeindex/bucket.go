package rangeindex

import (
	"math/bits"

	"asnlookup/internal/domain"
)

type bucketEntry struct {
	mask   uint32
	record *domain.RangeRecord
}

// BucketIndex stores every range under its masked network value. A lookup
// probes the prefix lengths present in the index from most to least
// specific, so the first hit is the longest match. It is exact and
// queryable immediately after each insert.
type BucketIndex struct {
	buckets map[uint32][]bucketEntry
	// bit n is set when at least one range of prefix length n exists
	lengths uint64
	size    int
}

func NewBucketIndex() *BucketIndex {
	return &BucketIndex{buckets: make(map[uint32][]bucketEntry)}
}

func (b *BucketIndex) InsertRange(cidr, isp, asn string) error {
	entry, err := NewEntry(cidr, isp, asn)
	if err != nil {
		return err
	}
	m := entry.Mask()
	key := entry.Network & m
	b.buckets[key] = append(b.buckets[key], bucketEntry{mask: m, record: entry.Record})
	b.lengths |= 1 << entry.Prefix
	b.size++
	return nil
}

func (b *BucketIndex) Build() {}

// Search only accepts a bucket entry whose mask equals the probed one.
// Ranges of different lengths can share a key (10.0.0.0/8 and 10.0.0.0/16),
// and the shorter one must not answer for the longer probe.
func (b *BucketIndex) Search(addr uint32) (*domain.RangeRecord, bool) {
	for remaining := b.lengths; remaining != 0; {
		length := bits.Len64(remaining) - 1
		remaining &^= 1 << uint(length)

		m := mask(uint8(length))
		for _, e := range b.buckets[addr&m] {
			if e.mask == m {
				return e.record, true
			}
		}
	}
	return nil, false
}

func (b *BucketIndex) Len() int {
	return b.size
}

func (b *BucketIndex) Kind() Kind {
	return KindBucket
}
