// Package database provides SQLite connectivity for the audit trail.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Forward-only schema migrations read from an fs.FS
//   - Connection pooling suited to SQLite's single writer
//
// Socket and user definitions do not live here; they are JSON datasets
// (see infrastructure/datastore). SQLite holds only append-mostly history.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
