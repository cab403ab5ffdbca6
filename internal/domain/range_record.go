package domain

// RangeRecord is the ownership metadata attached to one CIDR range of the
// dataset. Values are kept exactly as they appear in the source (trimmed),
// and a record is shared by pointer between every index slot that refers to
// it, so it must never be mutated after construction.
type RangeRecord struct {
	CIDRRange string `json:"cidr_range"`
	ISP       string `json:"isp"`
	ASN       string `json:"asn"`
}
