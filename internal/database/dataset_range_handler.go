package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"asnlookup/internal/domain"
)

// DatasetVersion identifies the state of the ip_ranges table. Any insert,
// update or delete changes either the newest timestamp or the row count.
type DatasetVersion struct {
	LatestUpdate time.Time
	Rows         int64
}

func GetDatasetVersion(ctx context.Context, db *gorm.DB) (DatasetVersion, error) {
	var version DatasetVersion

	if err := db.WithContext(ctx).Model(&domain.DatasetRange{}).Count(&version.Rows).Error; err != nil {
		return DatasetVersion{}, fmt.Errorf("database: count ranges: %w", err)
	}
	if version.Rows == 0 {
		return version, nil
	}

	var latest domain.DatasetRange
	err := db.WithContext(ctx).Order("updated_at DESC").Limit(1).Take(&latest).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return DatasetVersion{}, fmt.Errorf("database: latest range update: %w", err)
	}
	version.LatestUpdate = latest.UpdatedAt
	return version, nil
}

// EachDatasetRange streams the ip_ranges table in primary key order.
func EachDatasetRange(ctx context.Context, db *gorm.DB, batchSize int, fn func(domain.DatasetRange)) error {
	if batchSize <= 0 {
		batchSize = 5000
	}

	var batch []domain.DatasetRange
	result := db.WithContext(ctx).FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
		for _, row := range batch {
			fn(row)
		}
		return ctx.Err()
	})
	if result.Error != nil {
		return fmt.Errorf("database: read ranges: %w", result.Error)
	}
	return nil
}

// ReplaceDatasetRanges swaps the whole table content in one transaction.
// Used by the import command and tests.
func ReplaceDatasetRanges(ctx context.Context, db *gorm.DB, ranges []domain.DatasetRange) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&domain.DatasetRange{}).Error; err != nil {
			return fmt.Errorf("database: clear ranges: %w", err)
		}
		if len(ranges) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(ranges, 1000).Error; err != nil {
			return fmt.Errorf("database: insert ranges: %w", err)
		}
		return nil
	})
}
