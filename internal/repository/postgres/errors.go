package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/quietpages/quietpages-server/internal/model"
)

// SQLSTATE codes the repositories classify into model errors.
const (
	codeUndefinedTable        = "42P01"
	codeUndefinedColumn       = "42703"
	codeInsufficientPrivilege = "42501"
	codeUniqueViolation       = "23505"
)

// classify maps backend errors onto the model's error taxonomy. Structured
// SQLSTATE codes are preferred; message sniffing is a best-effort fallback
// for poolers that strip them.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUndefinedTable:
			return model.ErrNotProvisioned
		case codeInsufficientPrivilege:
			return model.ErrPermissionDenied
		}
		return err
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "does not exist"), strings.Contains(msg, "schema cache"):
		return model.ErrNotProvisioned
	case strings.Contains(msg, "permission denied"):
		return model.ErrPermissionDenied
	}
	return err
}

// isUniqueViolation reports whether err is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// needsFilterFallback reports whether a compound listing query failed in a
// way the plain ownership query can still serve (partially provisioned
// schema without the tags column or operator support).
func needsFilterFallback(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUndefinedColumn
}
