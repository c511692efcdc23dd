package mssql

import (
	"context"

	"musiclake/internal/storage"
	mssqlddl "musiclake/internal/storage/mssql/ddl"
)

// open is replaced in tests.
var open = Open

var _ storage.Repository = (*Repository)(nil)

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, err := open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return r, nil
	})
	storage.RegisterDDL("mssql", mssqlddl.Dialect)
}
