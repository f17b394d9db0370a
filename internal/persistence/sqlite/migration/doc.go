// Package migration applies versioned SQL schema changes to SQLite databases.
//
// Migrations are read from an fs.FS, usually an embedded directory, and must
// be named {version}_{description}.sql. Applied versions are tracked in the
// schema_migrations table together with a checksum of the file, so an edited
// migration is reported instead of being silently skipped.
//
//	manager := migration.NewManager(migration.NewFileScanner(files, "migrations"), migration.NewSQLiteExecutor(db), logger)
//	if err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
