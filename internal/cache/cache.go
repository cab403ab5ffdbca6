// Package cache stores recent fallback lookup results keyed by fallback
// database and address.
package cache

import (
	"context"
	"strconv"

	"asnlookup/internal/domain"
)

// Entry is a cached lookup result. Misses are cached too.
type Entry struct {
	Record domain.RangeRecord `json:"record"`
	Source string             `json:"source,omitempty"`
	Found  bool               `json:"found"`
}

type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry) error
	Close() error
}

// Key scopes ip to the build epoch of the fallback database that answered
// it. The epoch comes from the database itself, so instances sharing a redis
// cache agree on keys, and loading a new database invalidates older entries
// without an explicit purge.
func Key(epoch uint64, ip string) string {
	return strconv.FormatUint(epoch, 10) + ":" + ip
}
