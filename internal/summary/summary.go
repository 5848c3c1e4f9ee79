package summary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"nhmexplorer/internal/table"
)

const (
	NoRecordsMessage = "No records returned"

	TopN = 5

	countryColumn    = "country"
	yearColumn       = "year"
	recordedByColumn = "recordedBy"
)

// Summary is the aggregate report of a table. For an empty table only
// Message is set. A count facet is nil when its column is absent and empty
// when the column holds no usable values.
type Summary struct {
	Message       string     `json:"summary,omitempty"`
	TotalRecords  int        `json:"total_records,omitempty"`
	TopCountries  Counts     `json:"top_countries,omitzero"`
	YearRange     *YearRange `json:"year_range,omitempty"`
	TopCollectors Counts     `json:"top_collectors,omitzero"`
}

func (s Summary) Empty() bool {
	return s.Message == NoRecordsMessage
}

type YearRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

type Count struct {
	Value string
	Count int
}

// Counts is ordered by descending count. It marshals as a JSON object that
// keeps that order.
type Counts []Count

func (c Counts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, entry := range c {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(entry.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(entry.Count))
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// Map returns the counts as a plain map.
func (c Counts) Map() map[string]int {
	m := make(map[string]int, len(c))
	for _, entry := range c {
		m[entry.Value] = entry.Count
	}

	return m
}

// InvalidYearError reports a year cell that cannot be read as an integer.
type InvalidYearError struct {
	Row   int
	Value any
}

func (e *InvalidYearError) Error() string {
	return fmt.Sprintf("invalid year %q at row %d", table.FormatCell(e.Value), e.Row)
}

func Summarize(t *table.Table) (Summary, error) {
	if t.Len() == 0 {
		return Summary{Message: NoRecordsMessage}, nil
	}

	s := Summary{TotalRecords: t.Len()}

	if cells, ok := t.Column(countryColumn); ok {
		s.TopCountries = topValues(cells, table.FormatCell, TopN)
	}

	if cells, ok := t.Column(yearColumn); ok {
		yr, err := yearRange(cells)
		if err != nil {
			return Summary{}, err
		}
		s.YearRange = yr
	}

	if cells, ok := t.Column(recordedByColumn); ok {
		s.TopCollectors = topValues(cells, NormalizeCollector, TopN)
	}

	return s, nil
}

// topValues counts the labels of non-nil cells and returns the n most
// frequent. Ties keep first-encountered order. Cells whose label is empty
// are skipped.
func topValues(cells []any, label func(any) string, n int) Counts {
	counts := make(map[string]int)
	var order []string

	for _, cell := range cells {
		if cell == nil {
			continue
		}

		value := label(cell)
		if value == "" {
			continue
		}

		if _, ok := counts[value]; !ok {
			order = append(order, value)
		}
		counts[value]++
	}

	out := make(Counts, 0, len(order))
	for _, value := range order {
		out = append(out, Count{Value: value, Count: counts[value]})
	}

	slices.SortStableFunc(out, func(a, b Count) int {
		return b.Count - a.Count
	})

	if len(out) > n {
		out = out[:n]
	}

	return out
}

func yearRange(cells []any) (*YearRange, error) {
	var yr *YearRange

	for row, cell := range cells {
		if cell == nil {
			continue
		}

		year, err := coerceYear(cell)
		if err != nil {
			return nil, &InvalidYearError{Row: row, Value: cell}
		}

		if yr == nil {
			yr = &YearRange{Min: year, Max: year}
			continue
		}

		yr.Min = min(yr.Min, year)
		yr.Max = max(yr.Max, year)
	}

	return yr, nil
}

func coerceYear(v any) (int64, error) {
	var text string

	switch x := v.(type) {
	case json.Number:
		text = x.String()
	case string:
		text = strings.TrimSpace(x)
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case float64:
		return integral(x)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}

	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, nil
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, err
	}

	return integral(f)
}

func integral(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer: %v", f)
	}

	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("out of int64 range: %v", f)
	}

	return int64(f), nil
}

var collectorReplacer = strings.NewReplacer("'", "", `"`, "")

// NormalizeCollector turns a recordedBy cell into a collector label. List-like
// strings such as "['A. Smith', 'B. Jones']" lose their brackets and quotes,
// and JSON arrays are joined with ", ".
func NormalizeCollector(v any) string {
	var text string

	switch x := v.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			if e == nil {
				continue
			}
			parts = append(parts, table.FormatCell(e))
		}
		text = strings.Join(parts, ", ")
	default:
		text = table.FormatCell(x)
	}

	text = strings.Trim(text, "[]")
	text = collectorReplacer.Replace(text)

	return strings.TrimSpace(text)
}
