package startup

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/SlpAus/michelin-vote-backend/internal/restaurant"
	"github.com/SlpAus/michelin-vote-backend/internal/testutil"
)

func TestInitializeApplication_SeedsOnce(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := restaurant.NewGormStore(db, 10, testutil.DiscardLogger())
	ctx := context.Background()

	rows := restaurant.Rows{{Name: "A"}, {Name: "B"}}
	if err := InitializeApplication(ctx, store, rows, testutil.DiscardLogger()); err != nil {
		t.Fatal(err)
	}
	if err := InitializeApplication(ctx, store, rows, testutil.DiscardLogger()); err != nil {
		t.Fatal(err)
	}

	ranked, err := store.AllRanked(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ranked) != 2 {
		t.Errorf("expected 2 restaurants, got %d", len(ranked))
	}
}

func TestInitializeApplication_MissingDatasetIsSeedError(t *testing.T) {
	store := restaurant.NewGormStore(testutil.NewTestDB(t), 10, testutil.DiscardLogger())
	source := restaurant.CSVSource{Path: filepath.Join(t.TempDir(), "missing.csv")}

	err := InitializeApplication(context.Background(), store, source, testutil.DiscardLogger())
	var seedErr *restaurant.SeedError
	if !errors.As(err, &seedErr) {
		t.Fatalf("expected *restaurant.SeedError, got %v", err)
	}
}
