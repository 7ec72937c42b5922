package canopy

import (
	"strconv"
	"strings"
)

// ColumnType is the inferred semantic type of a table column. Cell values
// themselves stay as the strings read from the source; the type records
// what every sampled value parsed as.
type ColumnType int

// Types a column can be inferred to hold.
const (
	ColumnString ColumnType = iota
	ColumnInt
	ColumnFloat
	ColumnBool
)

func (t ColumnType) String() string {
	switch t {
	case ColumnInt:
		return "int"
	case ColumnFloat:
		return "float"
	case ColumnBool:
		return "bool"
	default:
		return "string"
	}
}

// Schema describes the columns of a Table: normalized names, inferred
// types, and a name-to-position index.
type Schema struct {
	Columns []string
	Types   []ColumnType

	index map[string]int
}

func newSchema(columns []string, types []ColumnType) *Schema {
	index := make(map[string]int, len(columns))
	for i, col := range columns {
		index[col] = i
	}
	return &Schema{
		Columns: columns,
		Types:   types,
		index:   index,
	}
}

// Column returns the position of the named column, if present.
func (s *Schema) Column(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Row is one record of the source table.
type Row []string

// Table is an ordered collection of rows sharing one schema. A table is
// built once by the reader; statistics treat it as read-only, so one table
// can back any number of concurrent transforms.
type Table struct {
	Schema      *Schema
	Rows        []Row
	SkippedRows int
}

// Len returns the number of rows in the table.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Value returns the cell at row i of the given column position.
func (t *Table) Value(i, col int) string {
	return t.Rows[i][col]
}

// normalizeColumn canonicalizes a header cell so downstream filters can
// use stable names: lowercased, trimmed, runs of inner whitespace
// collapsed to a single underscore.
func normalizeColumn(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}

// classifyValue reports the narrowest type a single cell parses as.
func classifyValue(v string) ColumnType {
	if _, err := strconv.ParseInt(v, 10, 64); err == nil {
		return ColumnInt
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return ColumnFloat
	}
	if _, err := strconv.ParseBool(v); err == nil {
		return ColumnBool
	}
	return ColumnString
}

// widen merges the type observed for a new cell into the type inferred so
// far. Ints widen to floats; any other disagreement falls back to string.
func widen(current, observed ColumnType) ColumnType {
	if current == observed {
		return current
	}
	if (current == ColumnInt && observed == ColumnFloat) ||
		(current == ColumnFloat && observed == ColumnInt) {
		return ColumnFloat
	}
	return ColumnString
}

// inferTypes determines a type for each column from a sample of rows, then
// validates the inference against the remaining rows. A mismatch outside
// the sample demotes the column to string rather than failing the read.
// Empty cells carry no type information and are ignored.
func inferTypes(numColumns int, rows []Row, sampleSize int) []ColumnType {
	types := make([]ColumnType, numColumns)
	seen := make([]bool, numColumns)

	sample := len(rows)
	if sampleSize > 0 && sampleSize < sample {
		sample = sampleSize
	}

	for _, row := range rows[:sample] {
		for col := 0; col < numColumns; col++ {
			if row[col] == "" {
				continue
			}
			observed := classifyValue(row[col])
			if !seen[col] {
				types[col] = observed
				seen[col] = true
				continue
			}
			types[col] = widen(types[col], observed)
		}
	}

	for _, row := range rows[sample:] {
		for col := 0; col < numColumns; col++ {
			if row[col] == "" || types[col] == ColumnString {
				continue
			}
			if widen(types[col], classifyValue(row[col])) != types[col] {
				types[col] = ColumnString
			}
		}
	}

	return types
}
