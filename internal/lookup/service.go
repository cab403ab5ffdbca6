// Package lookup resolves address text to range records. It layers the
// lookup cache and the GeoLite fallback over the published index generation.
package lookup

import (
	"context"
	"errors"
	"net/netip"
	"strings"

	"github.com/charmbracelet/log"

	"asnlookup/internal/api/dto"
	"asnlookup/internal/cache"
	"asnlookup/internal/domain"
	"asnlookup/internal/metrics"
	"asnlookup/internal/rangeindex"
)

const (
	SourceIndex   = "index"
	SourceGeoLite = "geolite"
)

var (
	ErrInvalidIP = errors.New("lookup: invalid IP address")
	ErrIPv6      = errors.New("lookup: IPv6 not supported")
	ErrNotFound  = errors.New("lookup: IP not found")
	ErrNoIndex   = errors.New("lookup: index not ready")
)

// Message is the client-facing text for a lookup error.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrInvalidIP):
		return "Invalid IP address"
	case errors.Is(err, ErrIPv6):
		return "IPv6 lookup not supported"
	case errors.Is(err, ErrNotFound):
		return "IP not found"
	case errors.Is(err, ErrNoIndex):
		return "Index not ready"
	case err == nil:
		return ""
	default:
		return "Lookup failed"
	}
}

// Searcher is the published index generation. reload.Controller implements
// it.
type Searcher interface {
	Search(addr uint32) (*domain.RangeRecord, uint64, bool)
	Ready() bool
}

// Fallback resolves addresses the index does not cover. Epoch identifies
// the data it currently answers from and is 0 while it has none.
type Fallback interface {
	Lookup(addr netip.Addr) (domain.RangeRecord, bool)
	Epoch() uint64
}

// Result is one resolved address.
type Result struct {
	IP         string
	Record     domain.RangeRecord
	Source     string
	Generation uint64
}

type Service struct {
	index    Searcher
	cache    cache.Cache
	fallback Fallback
}

type Option func(*Service)

func WithCache(c cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithFallback(f Fallback) Option {
	return func(s *Service) { s.fallback = f }
}

func NewService(index Searcher, opts ...Option) *Service {
	s := &Service{index: index}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Ready() bool {
	return s.index.Ready()
}

// ParseIPv4 accepts dotted-quad IPv4 text. IPv6 text yields ErrIPv6 and
// anything else ErrInvalidIP.
func ParseIPv4(text string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(text))
	if err != nil {
		return netip.Addr{}, ErrInvalidIP
	}
	if !addr.Is4() {
		return netip.Addr{}, ErrIPv6
	}
	return addr, nil
}

// Lookup resolves ip. Addresses the index does not cover go through the
// cache and then the fallback; cache failures are logged and bypassed.
func (s *Service) Lookup(ctx context.Context, ip string) (Result, error) {
	addr, err := ParseIPv4(ip)
	if err != nil {
		return Result{IP: ip}, err
	}
	if !s.index.Ready() {
		return Result{IP: ip}, ErrNoIndex
	}

	rec, generation, found := s.index.Search(rangeindex.AddrToUint32(addr))
	if found {
		metrics.RecordLookup(metrics.LookupHit)
		return Result{IP: ip, Record: *rec, Source: SourceIndex, Generation: generation}, nil
	}

	if s.fallback == nil {
		metrics.RecordLookup(metrics.LookupMiss)
		return Result{IP: ip, Generation: generation}, ErrNotFound
	}

	cacheKey := cache.Key(s.fallback.Epoch(), addr.String())
	if s.cache != nil {
		entry, ok, err := s.cache.Get(ctx, cacheKey)
		if err != nil {
			log.Warn("Lookup cache read failed", "key", cacheKey, "error", err)
		} else if ok {
			return s.fromEntry(ip, generation, entry)
		}
	}

	entry := cache.Entry{}
	if fb, ok := s.fallback.Lookup(addr); ok {
		entry = cache.Entry{Record: fb, Source: SourceGeoLite, Found: true}
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, entry); err != nil {
			log.Warn("Lookup cache write failed", "key", cacheKey, "error", err)
		}
	}
	return s.fromEntry(ip, generation, entry)
}

func (s *Service) fromEntry(ip string, generation uint64, entry cache.Entry) (Result, error) {
	if !entry.Found {
		metrics.RecordLookup(metrics.LookupMiss)
		return Result{IP: ip, Generation: generation}, ErrNotFound
	}
	metrics.RecordLookup(metrics.LookupFallback)
	return Result{IP: ip, Record: entry.Record, Source: entry.Source, Generation: generation}, nil
}

// Info renders a lookup outcome in the response shape shared by the HTTP
// routes and the CLI.
func Info(res Result, err error) dto.IPInfo {
	info := dto.IPInfo{IP: res.IP, Generation: res.Generation}
	if err != nil {
		msg := Message(err)
		info.Error = &msg
		return info
	}
	info.Range = &res.Record.CIDRRange
	info.ASN = &res.Record.ASN
	info.ISP = &res.Record.ISP
	info.Source = res.Source
	return info
}
