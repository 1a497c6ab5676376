// Package store implements the core repositories on PostgreSQL via pgx.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kubidu/kubidu/internal/errs"
)

// DB defines the database operations used by the stores.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"

	subdomainConstraint   = "services_subdomain_key"
	serviceNameConstraint = "services_project_name_key"
)

// mapError translates driver errors into the errs taxonomy. what names the
// resource for NotFound messages.
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", errs.ErrNotFound, what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			switch pgErr.ConstraintName {
			case subdomainConstraint:
				return errs.ErrSubdomainTaken
			case serviceNameConstraint:
				return errs.Conflict("service name already exists in project")
			}
			return errs.WrapMsg(errs.ErrConflict, what, err)
		case pgForeignKeyViolation:
			return errs.WrapMsg(errs.ErrNotFound, what+" parent", err)
		case pgCheckViolation:
			return errs.WrapMsg(errs.ErrInvalidInput, what, err)
		}
	}
	return err
}

// expectOne returns ErrNotFound when an UPDATE or DELETE matched no row.
func expectOne(tag pgconn.CommandTag, what string) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", errs.ErrNotFound, what)
	}
	return nil
}
