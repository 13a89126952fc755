package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	// SQLite driver using pure Go implementation
	_ "modernc.org/sqlite"

	"github.com/spektr-org/tabula/dataframe"
	"github.com/spektr-org/tabula/enumerator"
	tberrors "github.com/spektr-org/tabula/errors"
	"github.com/spektr-org/tabula/logger"
	"github.com/spektr-org/tabula/value"
)

// ============================================================================
// SQL — Query results as lazy frames, frames as table rows
// ============================================================================
// Query runs the statement once for its column names and returns a lazy
// frame. Each enumeration of that frame re-runs the statement, buffers the
// result set and closes it before the first row is yielded, so abandoned
// enumerations never hold a connection.
// ============================================================================

// SQL wraps a database handle.
type SQL struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSQL wraps db.
func NewSQL(db *sql.DB, opts ...Option) *SQL {
	return &SQL{db: db, log: applyOptions(opts).log}
}

// OpenSQLite opens a SQLite database through the pure-Go modernc driver.
func OpenSQLite(dsn string, opts ...Option) (*SQL, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, tberrors.IOFailure("open sqlite "+dsn, err)
	}
	return NewSQL(db, opts...), nil
}

// DB returns the wrapped handle.
func (s *SQL) DB() *sql.DB { return s.db }

// Close closes the wrapped handle.
func (s *SQL) Close() error { return s.db.Close() }

// Query returns the result of query as a lazy frame. Scan errors surface
// from the frame's enumerator.
func (s *SQL) Query(ctx context.Context, query string, args ...any) (dataframe.DataFrame, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, tberrors.IOFailure("sql query", err)
	}
	names, err := rows.Columns()
	rows.Close()
	if err != nil {
		return nil, tberrors.IOFailure("sql query", err)
	}

	s.log.Debug().
		Str(logger.FieldOperation, "sql_query").
		Strs("columns", names).
		Msg("query columns resolved")

	return dataframe.New(dataframe.Config{
		ColumnNames: names,
		RowsFunc: func() enumerator.Enumerator[[]any] {
			var buffered enumerator.Enumerator[[]any]
			return enumerator.FromFunc(func() ([]any, bool, error) {
				if buffered == nil {
					all, err := s.fetch(ctx, len(names), query, args)
					if err != nil {
						return nil, false, err
					}
					buffered = enumerator.FromSlice(all)
				}
				if !buffered.MoveNext() {
					return nil, false, nil
				}
				return buffered.Current(), true, nil
			})
		},
	})
}

func (s *SQL) fetch(ctx context.Context, width int, query string, args []any) ([][]any, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, tberrors.IOFailure("sql query", err)
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		cells := make([]any, width)
		ptrs := make([]any, width)
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, tberrors.IOFailure("sql scan", err)
		}
		for i, c := range cells {
			cells[i] = fromSQL(c)
		}
		out = append(out, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, tberrors.IOFailure("sql scan", err)
	}

	s.log.Debug().
		Str(logger.FieldOperation, "sql_fetch").
		Int(logger.FieldRows, len(out)).
		Int64(logger.FieldDuration, time.Since(start).Milliseconds()).
		Msg("result set fetched")
	return out, nil
}

// fromSQL maps driver values onto frame cells: text bytes become strings
// and integers become int.
func fromSQL(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case int64:
		return int(t)
	}
	return v
}

// toSQL maps frame cells onto driver values. Types the driver cannot
// store are rendered as text.
func toSQL(v any) any {
	switch v.(type) {
	case nil, string, bool, int, int8, int16, int32, int64,
		uint8, uint16, uint32, float32, float64, time.Time, []byte:
		return v
	}
	return value.ToString(v)
}

// ============================================================================
// TABLE SINK
// ============================================================================

// WriteTable inserts every row of df into table inside one transaction,
// creating the table when it does not exist. Columns are untyped, which
// SQLite accepts. It returns the number of rows inserted.
func (s *SQL) WriteTable(ctx context.Context, table string, df dataframe.DataFrame) (int, error) {
	names := df.GetColumnNames()
	if len(names) == 0 {
		return 0, tberrors.InvalidArgument("df", "frame has no columns")
	}
	rows, err := df.ToRows()
	if err != nil {
		return 0, err
	}

	quoted := make([]string, len(names))
	marks := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
		marks[i] = "?"
	}
	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(table), strings.Join(quoted, ", "))
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))

	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, tberrors.IOFailure("sql begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, create); err != nil {
		return 0, tberrors.IOFailure("sql create "+table, err)
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, tberrors.IOFailure("sql prepare "+table, err)
	}
	defer stmt.Close()

	args := make([]any, len(names))
	for _, row := range rows {
		for i := range args {
			var cell any
			if i < len(row) {
				cell = row[i]
			}
			args[i] = toSQL(cell)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, tberrors.IOFailure("sql insert "+table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, tberrors.IOFailure("sql commit", err)
	}

	s.log.Info().
		Str(logger.FieldOperation, "sql_write").
		Str("table", table).
		Int(logger.FieldRows, len(rows)).
		Int64(logger.FieldDuration, time.Since(start).Milliseconds()).
		Msg("table written")
	return len(rows), nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
