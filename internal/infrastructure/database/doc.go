// Package database provides the SQLite store for validated system snapshots
// and the ingest audit trail.
//
// This package manages:
//   - Database connection with WAL mode for concurrent reads
//   - Versioned schema migrations registered from an fs.FS
//   - Transaction helpers
//
// Security Considerations:
//   - All queries use parameterised statements
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database
