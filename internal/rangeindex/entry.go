package rangeindex

import (
	"net/netip"

	"asnlookup/internal/domain"
)

// Entry is a parsed range ready for insertion. Network keeps the address as
// written in the dataset; masking is applied by the index, never stored.
type Entry struct {
	Network uint32
	Prefix  uint8
	Record  *domain.RangeRecord
}

// NewEntry parses cidr and allocates the single record that every index slot
// covering the range will point at.
func NewEntry(cidr, isp, asn string) (Entry, error) {
	network, prefix, err := ParseCIDR(cidr)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Network: network,
		Prefix:  prefix,
		Record: &domain.RangeRecord{
			CIDRRange: cidr,
			ISP:       isp,
			ASN:       asn,
		},
	}, nil
}

// Mask returns the entry's network mask.
func (e Entry) Mask() uint32 {
	return mask(e.Prefix)
}

// First is the lowest address covered by the entry.
func (e Entry) First() uint32 {
	return e.Network & e.Mask()
}

// Last is the highest address covered by the entry.
func (e Entry) Last() uint32 {
	return e.First() | ^e.Mask()
}

// NetipPrefix converts the entry to a masked netip.Prefix.
func (e Entry) NetipPrefix() netip.Prefix {
	return netip.PrefixFrom(Uint32ToAddr(e.First()), int(e.Prefix))
}
