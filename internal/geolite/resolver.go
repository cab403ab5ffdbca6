// Package geolite resolves addresses against a MaxMind GeoLite2-ASN database
// and keeps that database current.
package geolite

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oschwald/geoip2-golang"
	"github.com/oschwald/maxminddb-golang"

	"asnlookup/internal/domain"
)

const asnDatabaseType = "GeoLite2-ASN"

var ErrWrongDatabaseType = errors.New("geolite: not a GeoLite2-ASN database")

type readerState struct {
	reader  *maxminddb.Reader
	modTime time.Time
	size    int64
}

// Resolver answers ASN lookups from an mmdb file that may be replaced on
// disk at any time. Lookups never block on a refresh.
type Resolver struct {
	path  string
	state atomic.Pointer[readerState]
}

func NewResolver(path string) *Resolver {
	return &Resolver{path: path}
}

func (r *Resolver) Path() string {
	return r.path
}

// Loaded reports whether a database is available for lookups.
func (r *Resolver) Loaded() bool {
	return r.state.Load() != nil
}

// Epoch is the build epoch of the loaded database, or 0 when none is loaded.
func (r *Resolver) Epoch() uint64 {
	state := r.state.Load()
	if state == nil {
		return 0
	}
	return uint64(state.reader.Metadata.BuildEpoch)
}

// Refresh opens the database when it is new or changed on disk and swaps it
// in. It reports whether a swap happened. On error the previous database
// stays in use.
func (r *Resolver) Refresh() (bool, error) {
	info, err := os.Stat(r.path)
	if err != nil {
		return false, fmt.Errorf("geolite: stat %s: %w", r.path, err)
	}

	if current := r.state.Load(); current != nil &&
		current.modTime.Equal(info.ModTime()) && current.size == info.Size() {
		return false, nil
	}

	// FromBytes keeps the data on the heap so that a swapped-out reader
	// can still serve lookups that are in flight.
	data, err := os.ReadFile(r.path)
	if err != nil {
		return false, fmt.Errorf("geolite: read %s: %w", r.path, err)
	}
	reader, err := maxminddb.FromBytes(data)
	if err != nil {
		return false, fmt.Errorf("geolite: open %s: %w", r.path, err)
	}
	if reader.Metadata.DatabaseType != asnDatabaseType {
		return false, fmt.Errorf("%w: got %q", ErrWrongDatabaseType, reader.Metadata.DatabaseType)
	}

	r.state.Store(&readerState{reader: reader, modTime: info.ModTime(), size: info.Size()})
	log.Info("GeoLite ASN database loaded",
		"path", r.path,
		"build_epoch", reader.Metadata.BuildEpoch,
		"node_count", reader.Metadata.NodeCount,
	)
	return true, nil
}

// Lookup resolves an IPv4 address. The returned record carries the matched
// network, the AS organisation and the ASN formatted as AS<number>.
func (r *Resolver) Lookup(addr netip.Addr) (domain.RangeRecord, bool) {
	state := r.state.Load()
	if state == nil || !addr.Is4() {
		return domain.RangeRecord{}, false
	}

	var record geoip2.ASN
	network, ok, err := state.reader.LookupNetwork(net.IP(addr.AsSlice()), &record)
	if err != nil {
		log.Debug("GeoLite lookup failed", "ip", addr, "error", err)
		return domain.RangeRecord{}, false
	}
	if !ok || record.AutonomousSystemNumber == 0 {
		return domain.RangeRecord{}, false
	}

	return domain.RangeRecord{
		CIDRRange: network.String(),
		ISP:       record.AutonomousSystemOrganization,
		ASN:       fmt.Sprintf("AS%d", record.AutonomousSystemNumber),
	}, true
}
