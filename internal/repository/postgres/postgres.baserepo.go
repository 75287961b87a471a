package postgres

import (
	"context"

	"github.com/ChilliBits/particulate-matter-api/internal/database"
	"github.com/ChilliBits/particulate-matter-api/internal/errors"
)

type PostgresBaseRepo struct {
	db database.DB
}

func (r *PostgresBaseRepo) selectContext(ctx context.Context, msg string, dest any, query string, args ...any) error {
	if err := r.db.GetDB().SelectContext(ctx, dest, query, args...); err != nil {
		return errors.NewDataAccessError(msg, err)
	}
	return nil
}

func (r *PostgresBaseRepo) getContext(ctx context.Context, msg string, dest any, query string, args ...any) error {
	if err := r.db.GetDB().GetContext(ctx, dest, query, args...); err != nil {
		return errors.NewDataAccessError(msg, err)
	}
	return nil
}

func (r *PostgresBaseRepo) Ping(ctx context.Context) error {
	if err := r.db.GetDB().PingContext(ctx); err != nil {
		return errors.NewDataAccessError("failed to ping database", err)
	}
	return nil
}

func (r *PostgresBaseRepo) Close() error {
	if err := r.db.GetDB().Close(); err != nil {
		return errors.NewDataAccessError("failed to close database", err)
	}
	return nil
}
