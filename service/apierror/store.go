package apierror

import (
	"errors"
	"strings"

	sqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// SQLite extended result codes.
const (
	sqlitePrimaryKey = 1555
	sqliteUnique     = 2067
	sqliteForeignKey = 787
)

// FromStore classifies a persistence failure. Unknown errors become
// Unexpected so their detail stays server side.
func FromStore(err error) *Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound("Subscription not found")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return Conflict(err, pgColumns(pgErr)...)
		case pgForeignKeyViolation:
			return Constraint(err)
		}
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqliteUnique, sqlitePrimaryKey:
			return Conflict(err, sqliteColumns(liteErr.Error())...)
		case sqliteForeignKey:
			return Constraint(err)
		}
	}

	// Dialects running with TranslateError surface gorm's own sentinels.
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return Conflict(err)
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return Constraint(err)
	}

	return Unexpected(err)
}

// pgColumns reads the column list out of a detail such as
// `Key (user_id, name)=(a, b) already exists.`
func pgColumns(pgErr *pgconn.PgError) []string {
	if pgErr.ColumnName != "" {
		return []string{JSONName(pgErr.ColumnName)}
	}
	_, rest, ok := strings.Cut(pgErr.Detail, "Key (")
	if ok {
		if cols, _, ok := strings.Cut(rest, ")="); ok {
			return splitColumns(cols)
		}
	}
	if pgErr.ConstraintName != "" {
		return []string{pgErr.ConstraintName}
	}
	return nil
}

// sqliteColumns reads the column list out of a message such as
// `UNIQUE constraint failed: subscriptions.user_id, subscriptions.name (2067)`.
func sqliteColumns(msg string) []string {
	i := strings.LastIndex(msg, "failed: ")
	if i < 0 {
		return nil
	}
	cols := msg[i+len("failed: "):]
	if j := strings.LastIndex(cols, " ("); j >= 0 {
		cols = cols[:j]
	}
	return splitColumns(cols)
}

func splitColumns(list string) []string {
	var fields []string
	for _, col := range strings.Split(list, ",") {
		col = strings.TrimSpace(col)
		if dot := strings.LastIndex(col, "."); dot >= 0 {
			col = col[dot+1:]
		}
		col = strings.Trim(col, `"`)
		if col != "" {
			fields = append(fields, JSONName(col))
		}
	}
	return fields
}
