package warehouse

import "strings"

type ColumnType string

const (
	TypeString    ColumnType = "string"
	TypeInteger   ColumnType = "integer"
	TypeFloat     ColumnType = "float"
	TypeBoolean   ColumnType = "boolean"
	TypeTimestamp ColumnType = "timestamp"
)

// Column names starting with this marker carry warehouse metadata and
// are stripped before results reach the caller.
const metadataMarker = "_"

type Column struct {
	Name string
	Type ColumnType
}

type Table struct {
	Columns []Column
	Rows    [][]any
}

func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// Clean drops metadata columns and lowercases the remaining column
// names, returning a new table.
func (t Table) Clean() Table {
	keep := make([]int, 0, len(t.Columns))
	columns := make([]Column, 0, len(t.Columns))
	for i, col := range t.Columns {
		if strings.HasPrefix(col.Name, metadataMarker) {
			continue
		}
		keep = append(keep, i)
		columns = append(columns, Column{Name: strings.ToLower(col.Name), Type: col.Type})
	}

	rows := make([][]any, len(t.Rows))
	for r, source := range t.Rows {
		projected := make([]any, len(keep))
		for j, i := range keep {
			if i < len(source) {
				projected[j] = source[i]
			}
		}
		rows[r] = projected
	}
	return Table{Columns: columns, Rows: rows}
}

// Uppercased returns the table with column names uppercased, the
// warehouse convention for unquoted identifiers. Rows are shared with
// the receiver.
func (t Table) Uppercased() Table {
	columns := make([]Column, len(t.Columns))
	for i, col := range t.Columns {
		columns[i] = Column{Name: strings.ToUpper(col.Name), Type: col.Type}
	}
	return Table{Columns: columns, Rows: t.Rows}
}
