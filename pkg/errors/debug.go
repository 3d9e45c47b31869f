package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	sqlStateUniqueViolation = "23505"
	sqliteUniquePrefix      = "UNIQUE constraint failed: "
)

// ErrorDump flattens an error chain for structured logs. Store fields are
// filled from whichever driver raised the error.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`
	Retryable  bool   `json:"retryable,omitempty"`

	Chain []string `json:"chain,omitempty"`

	Driver          string `json:"driver,omitempty"`
	SQLState        string `json:"sql_state,omitempty"`
	Constraint      string `json:"constraint,omitempty"`
	Table           string `json:"table,omitempty"`
	Column          string `json:"column,omitempty"`
	Detail          string `json:"detail,omitempty"`
	StoreMessage    string `json:"store_message,omitempty"`
	UniqueViolation bool   `json:"unique_violation,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
		d.Retryable = MetadataFor(te.Code()).Retryable
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.Driver = "pgx"
		d.SQLState = pgxErr.Code
		d.Constraint = pgxErr.ConstraintName
		d.Table = pgxErr.TableName
		d.Column = pgxErr.ColumnName
		d.Detail = pgxErr.Detail
		d.StoreMessage = pgxErr.Message
		d.UniqueViolation = pgxErr.Code == sqlStateUniqueViolation
		return d
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.Driver = "pq"
		d.SQLState = string(pqErr.Code)
		d.Constraint = pqErr.Constraint
		d.Table = pqErr.Table
		d.Column = pqErr.Column
		d.Detail = pqErr.Detail
		d.StoreMessage = pqErr.Message
		d.UniqueViolation = d.SQLState == sqlStateUniqueViolation
		return d
	}

	// sqlite only reports "UNIQUE constraint failed: table.col[, table.col]"
	// and never names the index.
	for e := err; e != nil; e = errors.Unwrap(e) {
		msg := e.Error()
		idx := strings.Index(msg, sqliteUniquePrefix)
		if idx < 0 {
			continue
		}
		d.Driver = "sqlite"
		d.StoreMessage = msg[idx:]
		d.UniqueViolation = true
		d.Table, d.Column = sqliteColumns(msg[idx+len(sqliteUniquePrefix):])
		return d
	}

	return d
}

func sqliteColumns(list string) (string, string) {
	if i := strings.Index(list, " ("); i >= 0 {
		list = list[:i]
	}
	var table string
	var cols []string
	for part := range strings.SplitSeq(list, ",") {
		tbl, col, ok := strings.Cut(strings.TrimSpace(part), ".")
		if !ok {
			continue
		}
		if table == "" {
			table = tbl
		}
		cols = append(cols, strings.TrimSpace(col))
	}
	return table, strings.Join(cols, ", ")
}
