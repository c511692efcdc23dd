package postgres

import (
	"context"

	"musiclake/internal/storage"
	pgddl "musiclake/internal/storage/postgres/ddl"
)

// open is replaced in tests.
var open = Open

var _ storage.Repository = (*Repository)(nil)

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, err := open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return r, nil
	})
	storage.RegisterDDL("postgres", pgddl.Dialect)
}
