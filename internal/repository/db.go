package repository

import (
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrConflict          = errors.New("unique constraint violation")
	ErrInvalidReference  = errors.New("foreign key violation")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrItemPaid          = errors.New("cart item already paid")
	ErrOutOfRange        = errors.New("numeric value out of range")
)

// psql renders $n placeholders for pgx.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNumericOutOfRange   = "22003"
)

// translate maps constraint violations and numeric overflow onto repository
// sentinels and leaves every other error untouched.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return ErrConflict
	case pgForeignKeyViolation:
		return ErrInvalidReference
	case pgNumericOutOfRange:
		return ErrOutOfRange
	}
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// contains builds an ILIKE pattern matching s anywhere, with wildcards in s
// taken literally.
func contains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
