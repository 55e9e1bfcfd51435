package metadata

// --- SQLite Keys ---
// These keys are used for the 'key' column in the 'metadata' table.
const (
	// SeedCompletedAtKey stores the RFC3339 time at which the restaurant table
	// was seeded. Its presence alone means seeding must never run again.
	SeedCompletedAtKey = "seed_completed_at"

	// SeedSourceKey records which dataset the seed came from.
	SeedSourceKey = "seed_source"

	// SeedRowCountKey records how many rows the seed inserted.
	SeedRowCountKey = "seed_row_count"
)
