// Package database provides the SQLite store behind the intercom event journal.
//
// The database is opened with WAL mode and a busy timeout so the HTTP API can
// read the journal while the controller loop appends to it. Schema changes are
// applied from versioned .up.sql/.down.sql pairs registered through
// MigrationsFS (see the migrations package).
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// All queries are parameterised. The database file is created with 0600
// permissions because the journal records who opened the door and when.
package database
