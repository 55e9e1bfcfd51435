package metadata

import (
	"testing"
	"time"

	"github.com/SlpAus/michelin-vote-backend/internal/testutil"
)

func TestSetValue_Upserts(t *testing.T) {
	db := testutil.NewTestDB(t)
	if err := PrimeDB(db); err != nil {
		t.Fatal(err)
	}

	if v, err := GetValue(db, "missing"); err != nil || v != "" {
		t.Fatalf("missing key should read as empty, got %q, %v", v, err)
	}

	if err := SetValue(db, "k", "one"); err != nil {
		t.Fatal(err)
	}
	if err := SetValue(db, "k", "two"); err != nil {
		t.Fatal(err)
	}

	v, err := GetValue(db, "k")
	if err != nil {
		t.Fatal(err)
	}
	if v != "two" {
		t.Errorf("expected upserted value two, got %q", v)
	}

	var count int64
	if err := db.Model(&Metadata{}).Where("key = ?", "k").Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected exactly one row for key, got %d", count)
	}
}

func TestSeedRecord_RoundTrip(t *testing.T) {
	db := testutil.NewTestDB(t)
	if err := PrimeDB(db); err != nil {
		t.Fatal(err)
	}

	record, err := GetSeedRecord(db)
	if err != nil {
		t.Fatal(err)
	}
	if record != nil {
		t.Fatalf("expected no seed record on a fresh database, got %+v", record)
	}

	completed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := SetSeedRecord(db, SeedRecord{CompletedAt: completed, Source: "seed.csv", RowCount: 42}); err != nil {
		t.Fatal(err)
	}

	record, err = GetSeedRecord(db)
	if err != nil {
		t.Fatal(err)
	}
	if record == nil {
		t.Fatal("expected a seed record")
	}
	if !record.CompletedAt.Equal(completed) || record.Source != "seed.csv" || record.RowCount != 42 {
		t.Errorf("unexpected seed record %+v", record)
	}
}
