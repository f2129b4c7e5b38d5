package identity

import "embed"

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS exposes the embedded schema migrations so callers can
// apply them with their own migrator.
func GetMigrationsFS() embed.FS {
	return migrationsFS
}
