package rangeindex

import (
	"errors"
	"fmt"
	"strings"

	"asnlookup/internal/domain"
)

// Index is a structure answering longest-prefix-match queries over IPv4 CIDR
// ranges. Implementations are not safe for concurrent mutation; once Build
// has returned they are read-only and Search may be called from any number
// of goroutines.
type Index interface {
	// InsertRange parses cidr and adds the range. A malformed cidr returns
	// an error wrapping ErrMalformedCIDR and leaves the index unchanged.
	InsertRange(cidr, isp, asn string) error
	// Build makes all inserted ranges queryable. Indexes that are
	// queryable immediately after insertion implement it as a no-op.
	Build()
	// Search returns the most specific range containing addr.
	Search(addr uint32) (*domain.RangeRecord, bool)
	// Len is the number of ranges accepted by InsertRange.
	Len() int
	Kind() Kind
}

// Kind selects an Index implementation.
type Kind string

const (
	// KindDirect is a flat table addressed by the top index bits of the
	// address: O(1) lookups, 2^bits slots of memory.
	KindDirect Kind = "direct"
	// KindBucket is a map keyed by masked network per prefix length: at
	// most 33 probes per lookup, memory proportional to the dataset.
	KindBucket Kind = "bucket"
	// KindTrie is a compressed multibit trie (gaissmai/bart).
	KindTrie Kind = "trie"
)

const DefaultIndexBits = 20

var (
	ErrUnknownKind      = errors.New("rangeindex: unknown index kind")
	ErrInvalidIndexBits = errors.New("rangeindex: index bits must be in 1..32")
)

// ParseKind maps a configuration value onto a Kind. The empty string selects
// the bucket index.
func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindDirect:
		return KindDirect, nil
	case KindBucket, "":
		return KindBucket, nil
	case KindTrie:
		return KindTrie, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, raw)
	}
}

// Factory creates empty indexes of a fixed kind. A fresh index is created for
// every generation.
type Factory func() (Index, error)

// NewFactory validates kind and indexBits once so that later rebuilds cannot
// fail on configuration. indexBits is only used by KindDirect.
func NewFactory(kind Kind, indexBits int) (Factory, error) {
	switch kind {
	case KindDirect:
		if err := validateIndexBits(indexBits); err != nil {
			return nil, err
		}
		return func() (Index, error) { return NewDirectIndex(indexBits) }, nil
	case KindBucket:
		return func() (Index, error) { return NewBucketIndex(), nil }, nil
	case KindTrie:
		return func() (Index, error) { return NewTrieIndex(), nil }, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func validateIndexBits(indexBits int) error {
	if indexBits < 1 || indexBits > 32 {
		return fmt.Errorf("%w: got %d", ErrInvalidIndexBits, indexBits)
	}
	return nil
}
