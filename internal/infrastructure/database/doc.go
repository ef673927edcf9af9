// Package database provides the SQLite store behind the Toon bridge's
// channel history.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are pairs of YYYYMMDD_HHMMSS_name.up.sql and .down.sql files
// read from any fs.FS; the migrations package embeds the bridge's own set.
// Each migration runs in its own transaction and is recorded in
// schema_migrations.
//
// The database file is created with 0600 permissions. It holds telemetry
// only; OAuth2 tokens are never written to it.
package database
