// Package database provides SQLite persistence for Visionflow Core.
//
// It wraps database/sql with:
//   - Connection management tuned for SQLite (single writer, WAL mode)
//   - Embedded schema migrations applied at startup
//   - Health checks for the API health endpoint
//
// # Usage
//
//	db, err := database.Open(database.Config{
//	    Path:        cfg.Database.Path,
//	    WALMode:     cfg.Database.WALMode,
//	    BusyTimeout: cfg.Database.BusyTimeout,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files live in the top-level migrations package and are embedded
// into the binary via go:embed. Filenames follow the pattern
// YYYYMMDD_HHMMSS_description.up.sql (with an optional matching .down.sql).
package database
