package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestQueryMapsColumnTypes(t *testing.T) {
	db, mock := newSQLMock(t)
	session := NewSQLSession(db, "snowflake")

	columns := []*sqlmock.Column{
		sqlmock.NewColumn("ID").OfType("FIXED", int64(0)),
		sqlmock.NewColumn("SCORE").OfType("FLOAT", float64(0)),
		sqlmock.NewColumn("ACTIVE").OfType("BOOLEAN", false),
		sqlmock.NewColumn("NAME").OfType("TEXT", ""),
	}
	rows := sqlmock.NewRowsWithColumnDefinition(columns...).
		AddRow(int64(1), 1.5, true, "alpha").
		AddRow(int64(2), 2.5, false, "beta")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM scores")).WillReturnRows(rows)

	result, err := session.Query(context.Background(), "SELECT * FROM scores")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("rows = %d", len(result.Rows))
	}
	want := []ColumnType{TypeInteger, TypeFloat, TypeBoolean, TypeString}
	for i, colType := range want {
		if result.Columns[i].Type != colType {
			t.Fatalf("column %d type = %q, want %q", i, result.Columns[i].Type, colType)
		}
	}
	assertSQLMock(t, mock)
}

func TestQueryNormalizesByteSlices(t *testing.T) {
	db, mock := newSQLMock(t)
	session := NewSQLSession(db, "snowflake")

	rows := sqlmock.NewRows([]string{"NAME"}).AddRow([]byte("alpha"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM users")).WillReturnRows(rows)

	result, err := session.Query(context.Background(), "SELECT name FROM users")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if result.Rows[0][0] != "alpha" {
		t.Fatalf("value = %#v, want string", result.Rows[0][0])
	}
	assertSQLMock(t, mock)
}

func TestQuerySniffsUntypedColumns(t *testing.T) {
	db, mock := newSQLMock(t)
	session := NewSQLSession(db, "duckdb")

	rows := sqlmock.NewRows([]string{"ID", "SCORE"}).AddRow(int64(1), 0.5)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, score FROM t")).WillReturnRows(rows)

	result, err := session.Query(context.Background(), "SELECT id, score FROM t")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if result.Columns[0].Type != TypeInteger {
		t.Fatalf("id type = %q", result.Columns[0].Type)
	}
	if result.Columns[1].Type != TypeFloat {
		t.Fatalf("score type = %q", result.Columns[1].Type)
	}
	assertSQLMock(t, mock)
}

func TestQueryPropagatesDriverError(t *testing.T) {
	db, mock := newSQLMock(t)
	session := NewSQLSession(db, "snowflake")

	driverErr := errors.New("syntax error at line 1")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT nope")).WillReturnError(driverErr)

	_, err := session.Query(context.Background(), "SELECT nope")
	if !errors.Is(err, driverErr) {
		t.Fatalf("error = %v, want driver error unwrapped", err)
	}
	assertSQLMock(t, mock)
}

func TestBulkWriteBatchesRows(t *testing.T) {
	db, mock := newSQLMock(t)
	session := NewSQLSession(db, "snowflake")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO metrics (ID, NAME) VALUES (?, ?), (?, ?)")).
		WithArgs(int64(1), "alpha", int64(2), "beta").
		WillReturnResult(sqlmock.NewResult(0, 2))

	data := Table{
		Columns: []Column{{Name: "ID", Type: TypeInteger}, {Name: "NAME", Type: TypeString}},
		Rows:    [][]any{{int64(1), "alpha"}, {int64(2), "beta"}},
	}
	written, err := session.BulkWrite(context.Background(), "metrics", data)
	if err != nil {
		t.Fatalf("BulkWrite() error = %v", err)
	}
	if written != 2 {
		t.Fatalf("written = %d, want 2", written)
	}
	assertSQLMock(t, mock)
}

func TestNewSQLSessionPinsSingleConnection(t *testing.T) {
	db, _ := newSQLMock(t)
	NewSQLSession(db, "snowflake")

	if got := db.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("MaxOpenConnections = %d, want 1", got)
	}
}

func TestBulkWritePostgresUsesNumberedPlaceholders(t *testing.T) {
	db, mock := newSQLMock(t)
	session := NewSQLSession(db, "postgres")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO metrics (ID, NAME) VALUES ($1, $2), ($3, $4)")).
		WithArgs(int64(1), "alpha", int64(2), "beta").
		WillReturnResult(sqlmock.NewResult(0, 2))

	data := Table{
		Columns: []Column{{Name: "ID", Type: TypeInteger}, {Name: "NAME", Type: TypeString}},
		Rows:    [][]any{{int64(1), "alpha"}, {int64(2), "beta"}},
	}
	written, err := session.BulkWrite(context.Background(), "metrics", data)
	if err != nil {
		t.Fatalf("BulkWrite() error = %v", err)
	}
	if written != 2 {
		t.Fatalf("written = %d, want 2", written)
	}
	assertSQLMock(t, mock)
}

func TestBulkWriteEmptyTableIsNoop(t *testing.T) {
	db, mock := newSQLMock(t)
	session := NewSQLSession(db, "snowflake")

	written, err := session.BulkWrite(context.Background(), "metrics", Table{})
	if err != nil {
		t.Fatalf("BulkWrite() error = %v", err)
	}
	if written != 0 {
		t.Fatalf("written = %d, want 0", written)
	}
	assertSQLMock(t, mock)
}

func TestExecutePropagatesDriverError(t *testing.T) {
	db, mock := newSQLMock(t)
	session := NewSQLSession(db, "snowflake")

	driverErr := errors.New("permission denied")
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE sc.t")).WillReturnError(driverErr)

	if err := session.Execute(context.Background(), "DROP TABLE sc.t"); !errors.Is(err, driverErr) {
		t.Fatalf("error = %v, want driver error unwrapped", err)
	}
	assertSQLMock(t, mock)
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
