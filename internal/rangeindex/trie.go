package rangeindex

import (
	"github.com/gaissmai/bart"

	"asnlookup/internal/domain"
)

// TrieIndex delegates longest-prefix matching to a bart routing table. Like
// the other indexes, a repeated prefix keeps the first record inserted.
type TrieIndex struct {
	table bart.Table[*domain.RangeRecord]
	size  int
}

func NewTrieIndex() *TrieIndex {
	return &TrieIndex{}
}

func (t *TrieIndex) InsertRange(cidr, isp, asn string) error {
	entry, err := NewEntry(cidr, isp, asn)
	if err != nil {
		return err
	}
	t.table.Update(entry.NetipPrefix(), func(existing *domain.RangeRecord, found bool) *domain.RangeRecord {
		if found {
			return existing
		}
		return entry.Record
	})
	t.size++
	return nil
}

func (t *TrieIndex) Build() {}

func (t *TrieIndex) Search(addr uint32) (*domain.RangeRecord, bool) {
	return t.table.Lookup(Uint32ToAddr(addr))
}

func (t *TrieIndex) Len() int {
	return t.size
}

func (t *TrieIndex) Kind() Kind {
	return KindTrie
}
