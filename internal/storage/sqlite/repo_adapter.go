package sqlite

import (
	"context"

	"musiclake/internal/storage"
	sqliteddl "musiclake/internal/storage/sqlite/ddl"
)

// open is replaced in tests.
var open = Open

var _ storage.Repository = (*Repository)(nil)

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, err := open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return r, nil
	})
	storage.RegisterDDL("sqlite", sqliteddl.Dialect)
}
