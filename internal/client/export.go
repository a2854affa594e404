package client

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/snowcache/snowcache/internal/observability"
	"github.com/snowcache/snowcache/internal/warehouse"
)

type ExportResult struct {
	Success bool
	Rows    int64
	Message string
}

// ExportData writes a table to the warehouse, creating it with inferred
// column types when it does not exist. A bulk-write failure is a soft
// failure reported through the result, not an error.
func (c *Client) ExportData(ctx context.Context, database, schema, table string, data warehouse.Table, appendRows bool) (ExportResult, error) {
	if !appendRows {
		if err := c.DropTable(ctx, database, schema, table); err != nil {
			return ExportResult{}, err
		}
	}
	if data.Empty() {
		c.logger.Info("no rows to export", slog.String("table", table))
		return ExportResult{Success: true}, nil
	}

	upper := data.Uppercased()
	if err := c.useContext(ctx, database, schema); err != nil {
		return ExportResult{}, err
	}
	exists, err := c.tableExists(ctx, schema, table)
	if err != nil {
		return ExportResult{}, err
	}
	if !exists {
		createSQL := createTableSQL(schema, table, upper)
		c.logger.Info("creating table", slog.String("table", table), slog.String("sql", createSQL))
		if err := c.session.Execute(ctx, createSQL); err != nil {
			return ExportResult{}, err
		}
	}

	c.logger.Info("writing rows", slog.String("table", table), slog.Int("rows", len(upper.Rows)))
	written, err := c.session.BulkWrite(ctx, table, upper)
	if err != nil {
		observability.IncrementExportFailure()
		c.logger.Error("bulk write failed", slog.String("table", table), slog.Any("error", err))
		return ExportResult{Success: false, Rows: written, Message: err.Error()}, nil
	}
	observability.ObserveExport(written)
	return ExportResult{Success: true, Rows: written}, nil
}

// DropTable drops the table when it exists. Idempotent.
func (c *Client) DropTable(ctx context.Context, database, schema, table string) error {
	if err := c.useContext(ctx, database, schema); err != nil {
		return err
	}
	exists, err := c.tableExists(ctx, schema, table)
	if err != nil {
		return err
	}
	if !exists {
		c.logger.Debug("table does not exist", slog.String("table", table))
		return nil
	}
	if err := c.session.Execute(ctx, fmt.Sprintf("DROP TABLE %s.%s", schema, table)); err != nil {
		return err
	}
	c.logger.Info("table dropped", slog.String("table", table))
	return nil
}

func (c *Client) useContext(ctx context.Context, database, schema string) error {
	if err := c.session.Execute(ctx, "USE DATABASE "+database); err != nil {
		return err
	}
	return c.session.Execute(ctx, "USE SCHEMA "+schema)
}

func (c *Client) tableExists(ctx context.Context, schema, table string) (bool, error) {
	stmt := fmt.Sprintf(
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = '%s' AND table_name = '%s'",
		schema, strings.ToUpper(table),
	)
	result, err := c.session.Query(ctx, stmt)
	if err != nil {
		return false, err
	}
	if result.Empty() || len(result.Rows[0]) == 0 {
		return false, nil
	}
	return asCount(result.Rows[0][0]) > 0, nil
}

func createTableSQL(schema, table string, data warehouse.Table) string {
	defs := make([]string, len(data.Columns))
	for i, col := range data.Columns {
		defs[i] = col.Name + " " + warehouseType(col.Type)
	}
	return fmt.Sprintf("CREATE TABLE %s.%s (%s)", schema, table, strings.Join(defs, ", "))
}

// warehouseType maps a column type to the warehouse type used in
// generated CREATE TABLE statements. Unrecognized types land on STRING
// so a lossy load beats a failed one.
func warehouseType(t warehouse.ColumnType) string {
	switch t {
	case warehouse.TypeInteger:
		return "NUMBER"
	case warehouse.TypeFloat:
		return "FLOAT"
	case warehouse.TypeTimestamp:
		return "TIMESTAMP_NTZ"
	case warehouse.TypeBoolean:
		return "BOOLEAN"
	default:
		return "STRING"
	}
}

func asCount(value any) int64 {
	switch typed := value.(type) {
	case int64:
		return typed
	case int32:
		return int64(typed)
	case int:
		return int64(typed)
	case float64:
		return int64(typed)
	case string:
		n, err := strconv.ParseInt(typed, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
