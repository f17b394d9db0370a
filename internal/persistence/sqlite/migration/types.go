package migration

import (
	"context"
	"time"
)

// Migration is one versioned schema change.
type Migration struct {
	Version     string
	Description string
	SQL         string
	Name        string
	Checksum    string
}

// AppliedMigration is a row of the schema_migrations table.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status summarises the schema state of a database.
type Status struct {
	CurrentVersion string
	Applied        []AppliedMigration
	Pending        []Migration
}

// Scanner lists the migrations available to a Manager, ordered by version.
type Scanner interface {
	ScanMigrations() ([]Migration, error)
}

// Executor applies migrations and reads the version table.
type Executor interface {
	InitializeVersionTable(ctx context.Context) error
	// ExecuteMigration runs the migration and records it in one transaction.
	ExecuteMigration(ctx context.Context, migration Migration) error
	GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error)
}
