// Package reload builds index generations from a dataset source and
// publishes them to concurrent readers.
package reload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"asnlookup/internal/rangeindex"
	"asnlookup/internal/source"
)

var ErrSourceUnreadable = errors.New("reload: dataset source unreadable")

// Generation is one fully built index. It is immutable once published.
type Generation struct {
	ID            uint64
	Index         rangeindex.Index
	Version       source.Version
	Stats         rangeindex.LoadStats
	Source        string
	BuiltAt       time.Time
	BuildDuration time.Duration
}

// RebuildFromSource builds a new generation from src without publishing it.
// The returned generation has no ID yet.
func RebuildFromSource(ctx context.Context, src source.Source, factory rangeindex.Factory) (*Generation, error) {
	start := time.Now()

	// Read the version before the data so that a change during the load is
	// picked up by the next check.
	version, err := src.Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}

	idx, err := factory()
	if err != nil {
		return nil, fmt.Errorf("reload: create index: %w", err)
	}

	stats, err := src.Load(ctx, idx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}

	return &Generation{
		Index:         idx,
		Version:       version,
		Stats:         stats,
		Source:        src.String(),
		BuiltAt:       time.Now(),
		BuildDuration: time.Since(start),
	}, nil
}
