package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Row is a column name to scalar value record decoded from a query result.
// Values are strings, int64s, or float64s depending on the column affinity.
type Row map[string]any

// Schema describes the single table a Repository operates on. The table,
// primary key, and column names form the identifier allow-list: they are
// fixed at construction time and are the only strings ever interpolated
// into statement text. Values always travel as bound parameters.
type Schema struct {
	Table   string
	PK      string
	Columns []string
	// DDL is the idempotent create statement executed by Init. It must be
	// safe to run on every process start.
	DDL string
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Repository builds parameterized CRUD statements over one named table and
// decodes result rows into Row mappings. It holds a shared bun handle and
// performs no retries and no cross-statement transactions: every mutation
// is a single statement committed atomically by the driver.
type Repository struct {
	db      bun.IDB
	schema  Schema
	allowed map[string]struct{}
}

// New validates the schema identifiers and returns a repository bound to
// the given handle. The primary key defaults to "id".
func New(db bun.IDB, schema Schema) (*Repository, error) {
	if schema.Table == "" {
		return nil, errors.New("schema requires a table name", errors.CategoryBadInput)
	}
	if schema.PK == "" {
		schema.PK = "id"
	}
	if len(schema.Columns) == 0 {
		return nil, errors.New("schema requires at least one column", errors.CategoryBadInput)
	}

	allowed := make(map[string]struct{}, len(schema.Columns)+1)
	for _, name := range append([]string{schema.Table, schema.PK}, schema.Columns...) {
		if !identPattern.MatchString(name) {
			return nil, errors.New(
				fmt.Sprintf("invalid identifier %q in schema for table %q", name, schema.Table),
				errors.CategoryBadInput,
			)
		}
		allowed[name] = struct{}{}
	}
	delete(allowed, schema.Table)

	return &Repository{
		db:      db,
		schema:  schema,
		allowed: allowed,
	}, nil
}

// Table returns the table name the repository operates on.
func (r *Repository) Table() string {
	return r.schema.Table
}

// Init executes the schema DDL. It is idempotent and must run before any
// other operation.
func (r *Repository) Init(ctx context.Context) error {
	if r.schema.DDL == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, r.schema.DDL); err != nil {
		return r.storeError(err, "schema initialisation failed")
	}
	return nil
}

// Create inserts all given fields and returns the backend assigned id.
func (r *Repository) Create(ctx context.Context, fields Row) (int64, error) {
	cols, args, err := r.splitFields(fields)
	if err != nil {
		return 0, err
	}

	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		r.schema.Table, strings.Join(cols, ", "), marks,
	)

	res, err := r.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		if isConstraintViolation(err) {
			return 0, errors.Wrap(err, errors.CategoryConflict, "constraint violated on create").
				WithTextCode("CONSTRAINT_VIOLATION").
				WithMetadata(map[string]any{"table": r.schema.Table})
		}
		return 0, r.storeError(err, "create failed")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, r.storeError(err, "create failed to report new id")
	}
	return id, nil
}

// GetByID reads the row identified by the primary key. A nil projection
// selects all columns. Absence is (nil, nil), not an error.
func (r *Repository) GetByID(ctx context.Context, id int64, projection []string) (Row, error) {
	return r.GetByColumn(ctx, r.schema.PK, id, projection)
}

// GetByColumn reads at most one row matching an equality filter on an
// arbitrary allow-listed column.
func (r *Repository) GetByColumn(ctx context.Context, column string, value any, projection []string) (Row, error) {
	if err := r.checkColumn(column); err != nil {
		return nil, err
	}
	selection, err := r.selection(projection)
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = ? LIMIT 1",
		selection, r.schema.Table, column,
	)

	rows, err := r.queryRows(ctx, stmt, value)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// List reads up to limit rows. Ordering is mandatory so results stay
// deterministic for pagination.
func (r *Repository) List(ctx context.Context, projection []string, orderBy string, ascending bool, limit int) ([]Row, error) {
	selection, order, err := r.selectionAndOrder(projection, orderBy, ascending)
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf(
		"SELECT %s FROM %s ORDER BY %s LIMIT ?",
		selection, r.schema.Table, order,
	)
	return r.queryRows(ctx, stmt, limit)
}

// ListByColumn reads up to limit rows matching an equality filter, with the
// same ordering contract as List.
func (r *Repository) ListByColumn(ctx context.Context, column string, value any, projection []string, orderBy string, ascending bool, limit int) ([]Row, error) {
	if err := r.checkColumn(column); err != nil {
		return nil, err
	}
	selection, order, err := r.selectionAndOrder(projection, orderBy, ascending)
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = ? ORDER BY %s LIMIT ?",
		selection, r.schema.Table, column, order,
	)
	return r.queryRows(ctx, stmt, value, limit)
}

// ListBetween reads up to limit rows whose column value lies in the
// inclusive [low, high] range.
func (r *Repository) ListBetween(ctx context.Context, column string, low, high any, projection []string, orderBy string, ascending bool, limit int) ([]Row, error) {
	if err := r.checkColumn(column); err != nil {
		return nil, err
	}
	selection, order, err := r.selectionAndOrder(projection, orderBy, ascending)
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s BETWEEN ? AND ? ORDER BY %s LIMIT ?",
		selection, r.schema.Table, column, order,
	)
	return r.queryRows(ctx, stmt, low, high, limit)
}

// Update sets the given fields on the row identified by id and reports
// whether exactly one row was affected. Zero matched rows is false, not an
// error: callers must treat it as "not found or no-op".
func (r *Repository) Update(ctx context.Context, id int64, fields Row) (bool, error) {
	cols, args, err := r.splitFields(fields)
	if err != nil {
		return false, err
	}

	assignments := make([]string, len(cols))
	for i, col := range cols {
		assignments[i] = col + " = ?"
	}
	stmt := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = ?",
		r.schema.Table, strings.Join(assignments, ", "), r.schema.PK,
	)
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		if isConstraintViolation(err) {
			return false, errors.Wrap(err, errors.CategoryConflict, "constraint violated on update").
				WithTextCode("CONSTRAINT_VIOLATION").
				WithMetadata(map[string]any{"table": r.schema.Table})
		}
		return false, r.storeError(err, "update failed")
	}
	return r.oneRowAffected(res)
}

// Delete removes the row identified by id, with the same one-row-affected
// contract as Update.
func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", r.schema.Table, r.schema.PK)

	res, err := r.db.ExecContext(ctx, stmt, id)
	if err != nil {
		return false, r.storeError(err, "delete failed")
	}
	return r.oneRowAffected(res)
}

func (r *Repository) queryRows(ctx context.Context, stmt string, args ...any) ([]Row, error) {
	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, r.storeError(err, "query failed")
	}
	defer rows.Close()

	out, err := unpackRows(rows)
	if err != nil {
		return nil, r.storeError(err, "row decoding failed")
	}
	return out, nil
}

// unpackRows decodes every result row into a Row keyed by the column names
// the statement actually selected.
func unpackRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// splitFields validates every field name against the allow-list and returns
// columns in a stable order so equivalent mappings produce identical
// statement text.
func (r *Repository) splitFields(fields Row) ([]string, []any, error) {
	if len(fields) == 0 {
		return nil, nil, errors.New("no fields given", errors.CategoryBadInput)
	}

	cols := make([]string, 0, len(fields))
	for col := range fields {
		if err := r.checkColumn(col); err != nil {
			return nil, nil, err
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	args := make([]any, len(cols))
	for i, col := range cols {
		args[i] = fields[col]
	}
	return cols, args, nil
}

func (r *Repository) selectionAndOrder(projection []string, orderBy string, ascending bool) (string, string, error) {
	selection, err := r.selection(projection)
	if err != nil {
		return "", "", err
	}
	if err := r.checkColumn(orderBy); err != nil {
		return "", "", err
	}
	direction := "DESC"
	if ascending {
		direction = "ASC"
	}
	return selection, orderBy + " " + direction, nil
}

func (r *Repository) selection(projection []string) (string, error) {
	if projection == nil {
		return "*", nil
	}
	if len(projection) == 0 {
		return "", errors.New("empty projection", errors.CategoryBadInput)
	}
	for _, col := range projection {
		if err := r.checkColumn(col); err != nil {
			return "", err
		}
	}
	return strings.Join(projection, ", "), nil
}

func (r *Repository) checkColumn(column string) error {
	if _, ok := r.allowed[column]; !ok {
		return errors.New(
			fmt.Sprintf("column %q is not part of the %q schema", column, r.schema.Table),
			errors.CategoryBadInput,
		)
	}
	return nil
}

func (r *Repository) oneRowAffected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, r.storeError(err, "affected row count unavailable")
	}
	return n == 1, nil
}

func (r *Repository) storeError(err error, msg string) error {
	return errors.Wrap(err, errors.CategoryInternal, msg).
		WithTextCode("STORE_ERROR").
		WithMetadata(map[string]any{"table": r.schema.Table})
}

// isConstraintViolation sniffs driver error text: sqliteshim may resolve to
// either mattn or modernc sqlite, neither of which exposes a shared typed
// error for constraint failures.
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "unique constraint") ||
		strings.Contains(text, "constraint failed")
}

// IsConflict reports whether err carries the conflict category raised on
// uniqueness violations.
func IsConflict(err error) bool {
	var rich *errors.Error
	if errors.As(err, &rich) {
		return rich.Category == errors.CategoryConflict
	}
	return false
}
