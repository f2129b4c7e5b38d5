package identity

import (
	"database/sql"

	goerrors "github.com/goliatone/go-errors"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// RegisterModels registers the identity models with the persistence layer
// so relations resolve before any query runs.
func RegisterModels() {
	persistence.RegisterModel((*User)(nil))
	persistence.RegisterModel((*Passcode)(nil))
	persistence.RegisterModel((*AccessToken)(nil))
}

// OpenDB opens a sqlite backed bun.DB for the given DSN.
func OpenDB(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open database")
	}

	RegisterModels()

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}
