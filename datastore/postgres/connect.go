package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cvelab/vulnenrich"
)

// Connect initializes a [pgxpool.Pool] based on the connection string.
func Connect(ctx context.Context, connString string, applicationName string) (*pgxpool.Pool, error) {
	const op = `datastore/postgres/Connect`
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, &vulnenrich.Error{
			Op:      op,
			Kind:    vulnenrich.ErrInvalid,
			Message: "failed to parse connection string",
			Inner:   err,
		}
	}
	const appnameKey = `application_name`
	params := cfg.ConnConfig.RuntimeParams
	if _, ok := params[appnameKey]; !ok {
		params[appnameKey] = applicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, &vulnenrich.Error{
			Op:      op,
			Kind:    vulnenrich.ErrUnreachable,
			Message: "failed to create connection pool",
			Inner:   err,
		}
	}

	return pool, nil
}
