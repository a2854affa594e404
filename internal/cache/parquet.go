package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/snowcache/snowcache/internal/warehouse"
)

// Parquet groups sort fields by name, so the original column order is
// carried in file metadata as a JSON array and restored on decode.
const columnOrderKey = "snowcache.column_order"

func Encode(t warehouse.Table) ([]byte, error) {
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("table has no columns")
	}

	schema, err := schemaFor(t)
	if err != nil {
		return nil, err
	}
	fields := schema.Fields()
	fieldIndex := make(map[string]int, len(fields))
	for i, field := range fields {
		fieldIndex[field.Name()] = i
	}

	order, err := json.Marshal(t.ColumnNames())
	if err != nil {
		return nil, fmt.Errorf("encode column order: %w", err)
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewWriter(buf, schema,
		parquet.KeyValueMetadata(columnOrderKey, string(order)),
	)

	for _, source := range t.Rows {
		row := make(parquet.Row, len(fields))
		for colIdx, col := range t.Columns {
			fi := fieldIndex[col.Name]
			if colIdx >= len(source) || source[colIdx] == nil {
				row[fi] = parquet.ValueOf(nil).Level(0, 0, fi)
				continue
			}
			value, err := parquetValue(col, source[colIdx])
			if err != nil {
				return nil, err
			}
			row[fi] = value.Level(0, 1, fi)
		}
		if _, err := writer.WriteRows([]parquet.Row{row}); err != nil {
			return nil, fmt.Errorf("write parquet row: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func Decode(data []byte) (warehouse.Table, error) {
	file, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return warehouse.Table{}, fmt.Errorf("open parquet artifact: %w", err)
	}

	fields := file.Schema().Fields()
	columns := make([]warehouse.Column, len(fields))
	for i, field := range fields {
		columns[i] = warehouse.Column{Name: field.Name(), Type: columnTypeOf(field)}
	}

	var rows [][]any
	for _, rowGroup := range file.RowGroups() {
		reader := rowGroup.Rows()
		buf := make([]parquet.Row, 64)
		for {
			n, readErr := reader.ReadRows(buf)
			for _, raw := range buf[:n] {
				row := make([]any, len(columns))
				for _, value := range raw {
					i := value.Column()
					if i < 0 || i >= len(columns) || value.IsNull() {
						continue
					}
					row[i] = goValue(columns[i].Type, value)
				}
				rows = append(rows, row)
			}
			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				_ = reader.Close()
				return warehouse.Table{}, fmt.Errorf("read parquet rows: %w", readErr)
			}
			if n == 0 {
				break
			}
		}
		if err := reader.Close(); err != nil {
			return warehouse.Table{}, fmt.Errorf("close parquet reader: %w", err)
		}
	}

	table := warehouse.Table{Columns: columns, Rows: rows}
	return reorderColumns(table, storedColumnOrder(file)), nil
}

func schemaFor(t warehouse.Table) (*parquet.Schema, error) {
	group := parquet.Group{}
	for _, col := range t.Columns {
		if col.Name == "" {
			return nil, fmt.Errorf("column name is required")
		}
		if _, exists := group[col.Name]; exists {
			return nil, fmt.Errorf("duplicate column name %q", col.Name)
		}
		var node parquet.Node
		switch col.Type {
		case warehouse.TypeInteger:
			node = parquet.Int(64)
		case warehouse.TypeFloat:
			node = parquet.Leaf(parquet.DoubleType)
		case warehouse.TypeBoolean:
			node = parquet.Leaf(parquet.BooleanType)
		case warehouse.TypeTimestamp:
			node = parquet.Timestamp(parquet.Millisecond)
		default:
			node = parquet.String()
		}
		group[col.Name] = parquet.Optional(node)
	}
	return parquet.NewSchema("result", group), nil
}

func parquetValue(col warehouse.Column, value any) (parquet.Value, error) {
	switch col.Type {
	case warehouse.TypeInteger:
		n, err := toInt64(value)
		if err != nil {
			return parquet.Value{}, fmt.Errorf("column %q: %w", col.Name, err)
		}
		return parquet.Int64Value(n), nil
	case warehouse.TypeFloat:
		f, err := toFloat64(value)
		if err != nil {
			return parquet.Value{}, fmt.Errorf("column %q: %w", col.Name, err)
		}
		return parquet.DoubleValue(f), nil
	case warehouse.TypeBoolean:
		b, ok := value.(bool)
		if !ok {
			return parquet.Value{}, fmt.Errorf("column %q: value %T is not a bool", col.Name, value)
		}
		return parquet.BooleanValue(b), nil
	case warehouse.TypeTimestamp:
		ts, ok := value.(time.Time)
		if !ok {
			return parquet.Value{}, fmt.Errorf("column %q: value %T is not a time", col.Name, value)
		}
		return parquet.Int64Value(ts.UnixMilli()), nil
	default:
		return parquet.ByteArrayValue([]byte(fmt.Sprint(value))), nil
	}
}

func goValue(colType warehouse.ColumnType, value parquet.Value) any {
	switch colType {
	case warehouse.TypeInteger:
		return value.Int64()
	case warehouse.TypeFloat:
		return value.Double()
	case warehouse.TypeBoolean:
		return value.Boolean()
	case warehouse.TypeTimestamp:
		return time.UnixMilli(value.Int64()).UTC()
	default:
		return string(value.ByteArray())
	}
}

func columnTypeOf(field parquet.Field) warehouse.ColumnType {
	typ := field.Type()
	if lt := typ.LogicalType(); lt != nil {
		switch {
		case lt.UTF8 != nil:
			return warehouse.TypeString
		case lt.Timestamp != nil:
			return warehouse.TypeTimestamp
		}
	}
	switch typ.Kind() {
	case parquet.Boolean:
		return warehouse.TypeBoolean
	case parquet.Int32, parquet.Int64:
		return warehouse.TypeInteger
	case parquet.Float, parquet.Double:
		return warehouse.TypeFloat
	default:
		return warehouse.TypeString
	}
}

func storedColumnOrder(file *parquet.File) []string {
	for _, kv := range file.Metadata().KeyValueMetadata {
		if kv.Key != columnOrderKey || kv.Value == "" {
			continue
		}
		var order []string
		if err := json.Unmarshal([]byte(kv.Value), &order); err != nil {
			return nil
		}
		return order
	}
	return nil
}

func reorderColumns(t warehouse.Table, order []string) warehouse.Table {
	if len(order) != len(t.Columns) {
		return t
	}
	indexByName := make(map[string]int, len(t.Columns))
	for i, col := range t.Columns {
		indexByName[col.Name] = i
	}
	mapping := make([]int, len(order))
	for i, name := range order {
		idx, ok := indexByName[name]
		if !ok {
			return t
		}
		mapping[i] = idx
	}

	columns := make([]warehouse.Column, len(mapping))
	for i, idx := range mapping {
		columns[i] = t.Columns[idx]
	}
	rows := make([][]any, len(t.Rows))
	for r, source := range t.Rows {
		row := make([]any, len(mapping))
		for i, idx := range mapping {
			row[i] = source[idx]
		}
		rows[r] = row
	}
	return warehouse.Table{Columns: columns, Rows: rows}
}

func toInt64(value any) (int64, error) {
	switch typed := value.(type) {
	case int64:
		return typed, nil
	case int:
		return int64(typed), nil
	case int32:
		return int64(typed), nil
	case int16:
		return int64(typed), nil
	case int8:
		return int64(typed), nil
	case uint32:
		return int64(typed), nil
	case uint64:
		return int64(typed), nil
	case float64:
		return int64(typed), nil
	default:
		return 0, fmt.Errorf("value %T is not an integer", value)
	}
}

func toFloat64(value any) (float64, error) {
	switch typed := value.(type) {
	case float64:
		return typed, nil
	case float32:
		return float64(typed), nil
	case int64:
		return float64(typed), nil
	case int:
		return float64(typed), nil
	default:
		return 0, fmt.Errorf("value %T is not a float", value)
	}
}
