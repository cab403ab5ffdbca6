package domain

import "time"

// DatasetRange is a row of the ip_ranges table used by the database dataset
// source. The text columns are stored as they should be served.
type DatasetRange struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	CIDR string `gorm:"size:64;not null;index"`
	ISP  string `gorm:"size:512;not null;default:''"`
	ASN  string `gorm:"size:64;not null;default:''"`

	UpdatedAt time.Time `gorm:"autoUpdateTime;index"`
}

func (DatasetRange) TableName() string {
	return "ip_ranges"
}
