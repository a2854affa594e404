package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/snowcache/snowcache/internal/config"
)

const bulkWriteBatchSize = 500

// SQLSession implements Session on top of a database/sql handle.
type SQLSession struct {
	db     *sql.DB
	driver string
}

// NewSQLSession wraps db as a single warehouse session. Context
// statements like USE DATABASE and USE SCHEMA set per-connection state,
// so the handle is pinned to one connection instead of pooling.
func NewSQLSession(db *sql.DB, driver string) *SQLSession {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return &SQLSession{db: db, driver: driver}
}

func (s *SQLSession) Execute(ctx context.Context, sqlText string) error {
	_, err := s.db.ExecContext(ctx, sqlText)
	return err
}

func (s *SQLSession) Query(ctx context.Context, sqlText string) (Table, error) {
	rows, err := s.db.QueryContext(ctx, sqlText)
	if err != nil {
		return Table{}, err
	}
	defer func() { _ = rows.Close() }()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return Table{}, fmt.Errorf("query columns: %w", err)
	}
	columns := make([]Column, len(columnTypes))
	untyped := make([]bool, len(columnTypes))
	for i, ct := range columnTypes {
		dbType := ct.DatabaseTypeName()
		columns[i] = Column{Name: ct.Name(), Type: columnTypeFor(dbType)}
		untyped[i] = dbType == ""
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return Table{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return Table{}, fmt.Errorf("iterate rows: %w", err)
	}

	sniffColumnTypes(columns, untyped, resultRows)
	return Table{Columns: columns, Rows: resultRows}, nil
}

func (s *SQLSession) BulkWrite(ctx context.Context, table string, data Table) (int64, error) {
	if data.Empty() {
		return 0, nil
	}
	names := data.ColumnNames()

	var written int64
	for start := 0; start < len(data.Rows); start += bulkWriteBatchSize {
		end := min(start+bulkWriteBatchSize, len(data.Rows))
		batch := data.Rows[start:end]

		placeholders := make([]string, len(batch))
		args := make([]any, 0, len(batch)*len(names))
		for i, row := range batch {
			placeholders[i] = s.rowPlaceholder(i*len(names), len(names))
			args = append(args, row...)
		}
		stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, strings.Join(names, ", "), strings.Join(placeholders, ", "))

		result, err := s.db.ExecContext(ctx, stmt, args...)
		if err != nil {
			return written, fmt.Errorf("bulk write rows %d-%d into %s: %w", start, end-1, table, err)
		}
		affected, err := result.RowsAffected()
		if err != nil || affected < 0 {
			affected = int64(len(batch))
		}
		written += affected
	}
	return written, nil
}

// rowPlaceholder renders one VALUES tuple. The pgx driver only accepts
// numbered placeholders; everything else takes ?.
func (s *SQLSession) rowPlaceholder(offset, width int) string {
	parts := make([]string, width)
	for i := range parts {
		if s.driver == config.DriverPostgres {
			parts[i] = "$" + strconv.Itoa(offset+i+1)
		} else {
			parts[i] = "?"
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (s *SQLSession) Close() error {
	return s.db.Close()
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func columnTypeFor(dbType string) ColumnType {
	upper := strings.ToUpper(dbType)
	switch {
	case upper == "FLOAT" || upper == "FLOAT4" || upper == "FLOAT8" || upper == "DOUBLE" || upper == "REAL":
		return TypeFloat
	case upper == "FIXED" || upper == "NUMBER" || strings.Contains(upper, "INT") || strings.Contains(upper, "NUMERIC") || strings.Contains(upper, "DECIMAL"):
		return TypeInteger
	case upper == "BOOL" || upper == "BOOLEAN":
		return TypeBoolean
	case strings.Contains(upper, "TIMESTAMP") || upper == "DATETIME" || upper == "DATE":
		return TypeTimestamp
	default:
		return TypeString
	}
}

// sniffColumnTypes refines columns the driver reported without a
// database type, using the first non-nil value in each column.
func sniffColumnTypes(columns []Column, untyped []bool, rows [][]any) {
	for i := range columns {
		if !untyped[i] {
			continue
		}
		for _, row := range rows {
			if i >= len(row) || row[i] == nil {
				continue
			}
			switch row[i].(type) {
			case int64, int32, int:
				columns[i].Type = TypeInteger
			case float64, float32:
				columns[i].Type = TypeFloat
			case bool:
				columns[i].Type = TypeBoolean
			case time.Time:
				columns[i].Type = TypeTimestamp
			default:
				columns[i].Type = TypeString
			}
			break
		}
	}
}
