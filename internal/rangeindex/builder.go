package rangeindex

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

const (
	minDatasetFields   = 4
	maxLoggedMalformed = 20
	readBufferSize     = 64 * 1024
)

// MaxLineLength bounds a dataset line. Longer lines are discarded whole and
// reading resumes at the next line.
const MaxLineLength = 1024 * 1024

// LoadStats summarises one pass over a dataset.
type LoadStats struct {
	Lines     int `json:"lines"`
	Inserted  int `json:"inserted"`
	Skipped   int `json:"skipped"`
	Malformed int `json:"malformed"`
}

// ParseLine extracts the range, ISP and ASN fields from a dataset line of
// the form `cidr, isp, asn, ...`. Lines with fewer than four comma separated
// fields are rejected.
func ParseLine(line string) (cidr, isp, asn string, ok bool) {
	fields := strings.Split(line, ",")
	if len(fields) < minDatasetFields {
		return "", "", "", false
	}
	cidr, isp, asn = NormalizeFields(fields[0], fields[1], fields[2])
	return cidr, isp, asn, true
}

// NormalizeFields trims surrounding whitespace from every field and
// surrounding double quotes from the ISP name.
func NormalizeFields(cidr, isp, asn string) (string, string, string) {
	return strings.TrimSpace(cidr), strings.Trim(strings.TrimSpace(isp), `"`), strings.TrimSpace(asn)
}

// Loader feeds ranges into an index and keeps count. A malformed range is
// counted and skipped; it never aborts the load.
type Loader struct {
	idx    Index
	source string
	stats  LoadStats
}

func NewLoader(idx Index, source string) *Loader {
	return &Loader{idx: idx, source: source}
}

// Add inserts one already-split range. line is the 1-based position used in
// log messages.
func (l *Loader) Add(line int, cidr, isp, asn string) {
	l.stats.Lines++
	cidr, isp, asn = NormalizeFields(cidr, isp, asn)
	if err := l.idx.InsertRange(cidr, isp, asn); err != nil {
		l.stats.Malformed++
		if errors.Is(err, ErrMalformedCIDR) && l.stats.Malformed <= maxLoggedMalformed {
			log.Debug("Skipping malformed range", "source", l.source, "line", line, "error", err)
		}
		return
	}
	l.stats.Inserted++
}

// Discard records a line too long to be parsed.
func (l *Loader) Discard(line int) {
	l.stats.Lines++
	l.stats.Malformed++
	log.Warn("Skipping oversized line", "source", l.source, "line", line, "max_bytes", MaxLineLength)
}

// Skip records a line that did not carry a range at all.
func (l *Loader) Skip() {
	l.stats.Lines++
	l.stats.Skipped++
}

// Finish builds the index and returns the final counts.
func (l *Loader) Finish() LoadStats {
	l.idx.Build()

	if l.stats.Malformed > 0 {
		log.Warn("Dataset contained malformed ranges", "source", l.source, "malformed", l.stats.Malformed)
	}
	if direct, ok := l.idx.(*DirectIndex); ok && !direct.Exact() {
		log.Warn("Direct index is approximate: ranges are longer than the index bits",
			"index_bits", direct.IndexBits(),
			"max_prefix", direct.MaxPrefix(),
		)
	}
	return l.stats
}

// ScanLines calls fn for every line of r with the line terminator removed.
// A line longer than MaxLineLength is reported with oversized set and an
// empty text; it does not stop the scan.
func ScanLines(r io.Reader, fn func(text string, oversized bool)) error {
	reader := bufio.NewReaderSize(r, readBufferSize)

	var (
		buf       []byte
		oversized bool
	)
	for {
		chunk, err := reader.ReadSlice('\n')
		if !oversized {
			if len(buf)+len(bytes.TrimRight(chunk, "\r\n")) > MaxLineLength {
				oversized = true
				buf = buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}

		if err == nil || len(buf) > 0 || oversized {
			fn(string(bytes.TrimRight(buf, "\r\n")), oversized)
		}
		if err != nil {
			return nil
		}
		buf = buf[:0]
		oversized = false
	}
}

// Load reads a line-oriented dataset from r into idx and builds it.
func Load(r io.Reader, idx Index, source string) (LoadStats, error) {
	loader := NewLoader(idx, source)

	line := 0
	err := ScanLines(r, func(text string, oversized bool) {
		line++
		if oversized {
			loader.Discard(line)
			return
		}

		cidr, isp, asn, ok := ParseLine(text)
		if !ok {
			loader.Skip()
			return
		}
		loader.Add(line, cidr, isp, asn)
	})
	if err != nil {
		return loader.stats, fmt.Errorf("rangeindex: read %s: %w", source, err)
	}

	return loader.Finish(), nil
}
