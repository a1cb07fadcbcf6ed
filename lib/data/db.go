package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"certification/lib/apperr"
	"certification/lib/models"

	"github.com/lib/pq"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so helpers run inside or
// outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Messages returned for unique constraint violations, by constraint name.
var uniqueViolationMessages = map[string]string{
	"oias_identification_key":                   "an OIA with this identification already exists",
	"users_email_key":                           "a user with this email already exists",
	"users_auth_email_key":                      "a user with this email already exists",
	"inspectors_oia_identification_key":         "an inspector with this identification already exists in this OIA",
	"construction_companies_identification_key": "a construction company with this identification already exists",
	"oia_files_sequence_key":                    "a file with this sequence already exists",
	"oia_files_storage_key_key":                 "a file with this storage key already exists",
}

// translatePgError maps Postgres constraint violations to error kinds. Other
// errors are returned unchanged.
func translatePgError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "23505":
		if message, ok := uniqueViolationMessages[pqErr.Constraint]; ok {
			return apperr.Conflict("%s", message)
		}
		return apperr.Conflict("duplicate value violates %s", pqErr.Constraint)
	case "23503":
		return apperr.NotFound(referencedEntity(pqErr.Constraint))
	default:
		return err
	}
}

// referencedEntity guesses the referenced table from a foreign key name such as
// reports_inspection_type_id_fkey.
func referencedEntity(constraint string) string {
	name := strings.TrimSuffix(constraint, "_fkey")
	for _, table := range []string{"reports_", "inspectors_", "oias_", "oia_users_", "oia_files_", "report_checks_", "permissions_"} {
		name = strings.TrimPrefix(name, table)
	}
	name = strings.TrimSuffix(name, "_id")
	if name == "" {
		return "referenced record"
	}
	return strings.ReplaceAll(name, "_", " ")
}

// whereBuilder collects AND-ed conditions, numbering ? placeholders as $n.
type whereBuilder struct {
	clauses []string
	args    []interface{}
}

func (w *whereBuilder) add(clause string, args ...interface{}) {
	for _, arg := range args {
		w.args = append(w.args, arg)
		clause = strings.Replace(clause, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.clauses = append(w.clauses, clause)
}

// addSearch matches term case-insensitively against any of columns.
func (w *whereBuilder) addSearch(term string, columns ...string) {
	if term == "" {
		return
	}
	w.args = append(w.args, "%"+escapeLike(term)+"%")
	placeholder := fmt.Sprintf("$%d", len(w.args))
	parts := make([]string, len(columns))
	for i, column := range columns {
		parts[i] = column + " ILIKE " + placeholder
	}
	w.clauses = append(w.clauses, "("+strings.Join(parts, " OR ")+")")
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// page appends LIMIT and OFFSET placeholders and returns the clause with every argument.
func (w *whereBuilder) page(req models.PageRequest) (string, []interface{}) {
	args := append(append([]interface{}{}, w.args...), req.Limit, req.Offset())
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args
}

func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}

// buildUpdate renders UPDATE table SET ... , updated_at = now() WHERE id = $n.
func buildUpdate(table string, set []models.ColumnValue, id int64) (string, []interface{}) {
	assignments := make([]string, 0, len(set)+1)
	args := make([]interface{}, 0, len(set)+1)
	for _, cv := range set {
		args = append(args, cv.Value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", cv.Column, len(args)))
	}
	assignments = append(assignments, "updated_at = now()")
	args = append(args, id)
	return fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", table, strings.Join(assignments, ", "), len(args)), args
}

func assignedValue(set []models.ColumnValue, column string) (interface{}, bool) {
	for _, cv := range set {
		if cv.Column == column {
			return cv.Value, true
		}
	}
	return nil, false
}

func nullInt64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func nullStringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
