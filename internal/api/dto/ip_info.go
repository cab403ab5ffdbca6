package dto

// IPInfo is the answer for one address. Range, ASN and ISP are null when
// Error is set.
type IPInfo struct {
	IP         string  `json:"ip"`
	Range      *string `json:"range"`
	ASN        *string `json:"asn"`
	ISP        *string `json:"isp"`
	Source     string  `json:"source,omitempty"`
	Generation uint64  `json:"generation,omitempty"`
	Error      *string `json:"error"`
}

// BulkRequest This is the body of POST /bulk
type BulkRequest struct {
	IPs []string `json:"ips"`
}
