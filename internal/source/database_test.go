package source

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"asnlookup/internal/database"
	"asnlookup/internal/domain"
	"asnlookup/internal/rangeindex"
)

func setupSourceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := database.SetupDB(database.WithDialector(sqlite.Open(dsn)))
	if err != nil {
		t.Fatalf("setup sqlite database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestDatabaseSourceLoad(t *testing.T) {
	db := setupSourceTestDB(t)
	ctx := context.Background()

	rows := []domain.DatasetRange{
		{CIDR: " 10.0.0.0/8 ", ISP: `"ISP A"`, ASN: "AS1"},
		{CIDR: "10.1.0.0/16", ISP: "ISP B", ASN: "AS2"},
		{CIDR: "garbage", ISP: "broken", ASN: "AS3"},
	}
	if err := database.ReplaceDatasetRanges(ctx, db, rows); err != nil {
		t.Fatalf("ReplaceDatasetRanges returned error: %v", err)
	}

	src := NewDatabaseSource(db, 2)
	idx := rangeindex.NewBucketIndex()
	stats, err := src.Load(ctx, idx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if stats.Lines != 3 || stats.Inserted != 2 || stats.Malformed != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	rec, ok := idx.Search(0x0A020304)
	if !ok || rec.CIDRRange != "10.0.0.0/8" || rec.ISP != "ISP A" {
		t.Fatalf("Search(10.2.3.4) = %+v", rec)
	}
	rec, ok = idx.Search(0x0A010203)
	if !ok || rec.ISP != "ISP B" {
		t.Fatalf("Search(10.1.2.3) = %+v", rec)
	}
}

func TestDatabaseSourceVersion(t *testing.T) {
	db := setupSourceTestDB(t)
	ctx := context.Background()
	src := NewDatabaseSource(db, 0)

	empty, err := src.Version(ctx)
	if err != nil {
		t.Fatalf("Version returned error: %v", err)
	}
	if !empty.IsZero() {
		t.Fatalf("empty table version = %s, want zero", empty)
	}

	if err := database.ReplaceDatasetRanges(ctx, db, []domain.DatasetRange{{CIDR: "10.0.0.0/8", ISP: "A", ASN: "AS1"}}); err != nil {
		t.Fatal(err)
	}
	first, err := src.Version(ctx)
	if err != nil {
		t.Fatalf("Version returned error: %v", err)
	}
	if first.Size != 1 || first.Stamp.IsZero() {
		t.Fatalf("version after insert = %s", first)
	}

	// A row added with an older timestamp is still detected by the count.
	older := domain.DatasetRange{CIDR: "10.1.0.0/16", ISP: "B", ASN: "AS2"}
	if err := db.Create(&older).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Model(&older).UpdateColumn("updated_at", time.Unix(0, 0)).Error; err != nil {
		t.Fatal(err)
	}
	second, _ := src.Version(ctx)
	if first.Equal(second) {
		t.Fatal("adding a row did not change the version")
	}
	if src.String() != "database:ip_ranges" {
		t.Fatalf("String() = %q", src.String())
	}
}
