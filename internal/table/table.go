package table

import (
	"encoding/json"
	"fmt"
	"strings"

	"nhmexplorer/internal/occurrence"
)

// Table is the tabular projection of occurrence records: one row per record
// and the union of their fields as columns, in first-seen order. Missing
// cells are nil.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]any
}

// FromRecords builds a table from records. Only values named in a record's
// Fields become cells.
func FromRecords(records []occurrence.Record) *Table {
	t := &Table{
		index: make(map[string]int),
		rows:  make([][]any, 0, len(records)),
	}

	for _, rec := range records {
		for _, field := range rec.Fields {
			if _, ok := t.index[field]; ok {
				continue
			}
			t.index[field] = len(t.columns)
			t.columns = append(t.columns, field)
		}
	}

	for _, rec := range records {
		row := make([]any, len(t.columns))
		for _, field := range rec.Fields {
			row[t.index[field]] = rec.Values[field]
		}
		t.rows = append(t.rows, row)
	}

	return t
}

func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}

	return append([]string(nil), t.columns...)
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}

	return len(t.rows)
}

// Column returns the cells of the named column, or false when the column
// does not exist.
func (t *Table) Column(name string) ([]any, bool) {
	if t == nil {
		return nil, false
	}

	i, ok := t.index[name]
	if !ok {
		return nil, false
	}

	cells := make([]any, len(t.rows))
	for r, row := range t.rows {
		cells[r] = row[i]
	}

	return cells, true
}

func (t *Table) Cell(row int, column string) any {
	i, ok := t.index[column]
	if !ok || row < 0 || row >= len(t.rows) {
		return nil
	}

	return t.rows[row][i]
}

func (t *Table) Row(i int) []any {
	return append([]any(nil), t.rows[i]...)
}

// Project returns a table restricted to the given columns that exist in t,
// keeping their order as given.
func (t *Table) Project(columns ...string) *Table {
	out := &Table{index: make(map[string]int)}

	var src []int
	for _, c := range columns {
		i, ok := t.index[c]
		if !ok {
			continue
		}
		if _, dup := out.index[c]; dup {
			continue
		}
		out.index[c] = len(out.columns)
		out.columns = append(out.columns, c)
		src = append(src, i)
	}

	out.rows = make([][]any, 0, len(t.rows))
	for _, row := range t.rows {
		projected := make([]any, len(src))
		for j, i := range src {
			projected[j] = row[i]
		}
		out.rows = append(out.rows, projected)
	}

	return out
}

// Head returns a table with at most n first rows.
func (t *Table) Head(n int) *Table {
	n = max(min(n, len(t.rows)), 0)

	return &Table{
		columns: t.columns,
		index:   t.index,
		rows:    t.rows[:n],
	}
}

// MapCells returns a copy of t with fn applied to every cell.
func (t *Table) MapCells(fn func(v any) any) *Table {
	out := &Table{
		columns: t.columns,
		index:   t.index,
		rows:    make([][]any, 0, len(t.rows)),
	}

	for _, row := range t.rows {
		mapped := make([]any, len(row))
		for i, v := range row {
			mapped[i] = fn(v)
		}
		out.rows = append(out.rows, mapped)
	}

	return out
}

type tableJSON struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

func (t *Table) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("null"), nil
	}

	out := tableJSON{Columns: t.columns, Rows: t.rows}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	if out.Rows == nil {
		out.Rows = [][]any{}
	}

	return json.Marshal(out)
}

// FormatCell renders a cell value as text. Nil renders as the empty string.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, FormatCell(e))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	default:
		return fmt.Sprint(x)
	}
}
