package source

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"asnlookup/internal/database"
	"asnlookup/internal/domain"
	"asnlookup/internal/rangeindex"
)

// DatabaseSource reads ranges from the ip_ranges table. Its version is the
// newest updated_at together with the row count, so deletions are noticed
// as well.
type DatabaseSource struct {
	db        *gorm.DB
	batchSize int
}

func NewDatabaseSource(db *gorm.DB, batchSize int) *DatabaseSource {
	return &DatabaseSource{db: db, batchSize: batchSize}
}

func (s *DatabaseSource) String() string {
	return "database:" + domain.DatasetRange{}.TableName()
}

func (s *DatabaseSource) Version(ctx context.Context) (Version, error) {
	v, err := database.GetDatasetVersion(ctx, s.db)
	if err != nil {
		return Version{}, fmt.Errorf("source: %w", err)
	}
	return Version{Stamp: v.LatestUpdate, Size: v.Rows}, nil
}

func (s *DatabaseSource) Load(ctx context.Context, idx rangeindex.Index) (rangeindex.LoadStats, error) {
	loader := rangeindex.NewLoader(idx, s.String())

	row := 0
	err := database.EachDatasetRange(ctx, s.db, s.batchSize, func(r domain.DatasetRange) {
		row++
		loader.Add(row, r.CIDR, r.ISP, r.ASN)
	})
	if err != nil {
		return rangeindex.LoadStats{}, fmt.Errorf("source: %w", err)
	}

	return loader.Finish(), nil
}
