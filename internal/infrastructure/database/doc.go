// Package database provides SQLite connectivity for the DHD800 bridge.
//
// It wraps database/sql with the mattn/go-sqlite3 driver and adds
// lifecycle management, health checks, and a small built-in migration
// runner for the bridge's state-history schema.
//
// # Usage
//
//	db, err := database.Open(database.Config{
//	    Path:        "./data/dhd800.db",
//	    WALMode:     true,
//	    BusyTimeout: 5,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Concurrency
//
// SQLite supports a single writer. The connection pool is limited to
// one open connection so writes never contend inside the process; WAL
// mode keeps reads cheap during writes.
package database
