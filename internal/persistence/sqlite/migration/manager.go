package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Manager applies pending migrations in version order.
type Manager struct {
	scanner  Scanner
	executor Executor
	logger   *slog.Logger
}

// NewManager creates a Manager. A nil logger uses slog.Default.
func NewManager(scanner Scanner, executor Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{scanner: scanner, executor: executor, logger: logger.With("component", "migration")}
}

// Run executes every pending migration. It stops at the first failure; the
// failed migration leaves no trace because it runs in its own transaction.
func (m *Manager) Run(ctx context.Context) error {
	started := time.Now()

	status, err := m.Status(ctx)
	if err != nil {
		return err
	}
	if len(status.Pending) == 0 {
		m.logger.InfoContext(ctx, "schema up to date", "version", status.CurrentVersion)
		return nil
	}

	m.logger.InfoContext(ctx, "applying migrations", "current_version", status.CurrentVersion, "pending", len(status.Pending))
	for i, migration := range status.Pending {
		m.logger.DebugContext(ctx, "executing migration",
			"version", migration.Version,
			"description", migration.Description,
			"position", fmt.Sprintf("%d/%d", i+1, len(status.Pending)))

		if err := m.executor.ExecuteMigration(ctx, migration); err != nil {
			m.logger.ErrorContext(ctx, "migration failed", "version", migration.Version, "error", err)
			return NewMigrationError(migration.Version, migration.Name, "execute migration",
				fmt.Errorf("%w: %w", ErrMigrationFailed, err))
		}
	}

	m.logger.InfoContext(ctx, "migrations applied",
		"count", len(status.Pending),
		"version", status.Pending[len(status.Pending)-1].Version,
		"duration", time.Since(started))
	return nil
}

// Status reports applied and pending migrations after validating that the
// available files and the version table agree.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, fmt.Errorf("failed to initialize version table: %w", err)
	}

	available, err := m.scanner.ScanMigrations()
	if err != nil {
		return Status{}, fmt.Errorf("failed to scan migrations: %w", err)
	}
	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("failed to get applied versions: %w", err)
	}

	if err := validateSequence(available, applied); err != nil {
		return Status{}, err
	}

	appliedByVersion := make(map[int]AppliedMigration, len(applied))
	status := Status{Applied: applied}
	for _, a := range applied {
		appliedByVersion[versionNumber(a.Version)] = a
		if versionNumber(a.Version) > versionNumber(status.CurrentVersion) {
			status.CurrentVersion = a.Version
		}
	}
	for _, migration := range available {
		if _, ok := appliedByVersion[versionNumber(migration.Version)]; !ok {
			status.Pending = append(status.Pending, migration)
		}
	}
	return status, nil
}

// validateSequence rejects gaps in the available versions, applied versions
// with no file, and applied files whose checksum has changed.
func validateSequence(available []Migration, applied []AppliedMigration) error {
	byVersion := make(map[int]Migration, len(available))
	for i, migration := range available {
		n := versionNumber(migration.Version)
		if n < 0 {
			return NewMigrationError(migration.Version, migration.Name, "validate sequence", ErrInvalidMigrationFile)
		}
		if i > 0 && n != versionNumber(available[i-1].Version)+1 {
			return fmt.Errorf("%w: missing migration version %03d", ErrVersionConflict, versionNumber(available[i-1].Version)+1)
		}
		byVersion[n] = migration
	}

	for _, a := range applied {
		migration, ok := byVersion[versionNumber(a.Version)]
		if !ok {
			return fmt.Errorf("%w: applied migration %s not found in available migrations", ErrVersionConflict, a.Version)
		}
		if a.Checksum != "" && migration.Checksum != "" && a.Checksum != migration.Checksum {
			return NewMigrationError(a.Version, migration.Name, "verify checksum", ErrChecksumMismatch)
		}
	}
	return nil
}
