package rangeindex

import "asnlookup/internal/domain"

type slot struct {
	prefix uint8
	record *domain.RangeRecord
}

// DirectIndex trades memory for constant-time lookups: a table of
// 2^indexBits slots is addressed by the top indexBits of the address, and
// each slot holds the most specific range that covers it.
//
// The table is exact only when indexBits >= the prefix length of every
// inserted range. A longer prefix claims the whole slot it falls into, so
// addresses sharing that slot but lying outside the range resolve to it as
// well. See Exact.
type DirectIndex struct {
	table     []slot
	entries   []Entry
	indexBits uint
	shift     uint
}

// NewDirectIndex allocates 2^indexBits empty slots.
func NewDirectIndex(indexBits int) (*DirectIndex, error) {
	if err := validateIndexBits(indexBits); err != nil {
		return nil, err
	}
	return &DirectIndex{
		table:     make([]slot, uint64(1)<<uint(indexBits)),
		indexBits: uint(indexBits),
		shift:     32 - uint(indexBits),
	}, nil
}

// InsertRange queues a range for the next Build.
func (d *DirectIndex) InsertRange(cidr, isp, asn string) error {
	entry, err := NewEntry(cidr, isp, asn)
	if err != nil {
		return err
	}
	d.entries = append(d.entries, entry)
	return nil
}

// Build recomputes every slot from the queued ranges. A slot is taken by a
// range only when it is empty or the range is strictly more specific than
// the occupant, so between equally specific overlapping ranges the first one
// inserted wins.
func (d *DirectIndex) Build() {
	clear(d.table)
	for _, e := range d.entries {
		first := uint64(e.First() >> d.shift)
		last := uint64(e.Last() >> d.shift)
		for i := first; i <= last; i++ {
			s := &d.table[i]
			if s.record == nil || e.Prefix > s.prefix {
				s.prefix = e.Prefix
				s.record = e.Record
			}
		}
	}
}

// Search is a single table read.
func (d *DirectIndex) Search(addr uint32) (*domain.RangeRecord, bool) {
	s := d.table[addr>>d.shift]
	return s.record, s.record != nil
}

func (d *DirectIndex) Len() int {
	return len(d.entries)
}

func (d *DirectIndex) Kind() Kind {
	return KindDirect
}

func (d *DirectIndex) IndexBits() int {
	return int(d.indexBits)
}

// MaxPrefix is the longest prefix length among queued ranges.
func (d *DirectIndex) MaxPrefix() int {
	var longest uint8
	for _, e := range d.entries {
		if e.Prefix > longest {
			longest = e.Prefix
		}
	}
	return int(longest)
}

// Exact reports whether every queued range is at most indexBits long, in
// which case each slot lies entirely inside or outside every range.
func (d *DirectIndex) Exact() bool {
	return d.MaxPrefix() <= int(d.indexBits)
}
