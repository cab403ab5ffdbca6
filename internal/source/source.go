// Package source provides the datasets an index generation is built from.
package source

import (
	"context"
	"fmt"
	"time"

	"asnlookup/internal/rangeindex"
)

// Version identifies one state of a dataset. Two versions that are not
// Equal mean the dataset changed and the index must be rebuilt.
type Version struct {
	Stamp time.Time `json:"stamp"`
	Size  int64     `json:"size"`
}

func (v Version) Equal(other Version) bool {
	return v.Stamp.Equal(other.Stamp) && v.Size == other.Size
}

func (v Version) IsZero() bool {
	return v.Stamp.IsZero() && v.Size == 0
}

func (v Version) String() string {
	return fmt.Sprintf("%s/%d", v.Stamp.UTC().Format(time.RFC3339Nano), v.Size)
}

// Source is a dataset of CIDR ranges.
type Source interface {
	// Version reports the current state of the dataset without reading it.
	Version(ctx context.Context) (Version, error)
	// Load inserts every range into idx and builds it.
	Load(ctx context.Context, idx rangeindex.Index) (rangeindex.LoadStats, error)
	String() string
}
