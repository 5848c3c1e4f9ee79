package summary_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"testing"

	"nhmexplorer/internal/occurrence"
	"nhmexplorer/internal/summary"
	"nhmexplorer/internal/table"
)

func tableOf(rows ...map[string]any) *table.Table {
	records := make([]occurrence.Record, 0, len(rows))
	for _, row := range rows {
		rec := occurrence.Record{Values: row}
		for _, f := range []string{"key", "country", "year", "recordedBy"} {
			if _, ok := row[f]; ok {
				rec.Fields = append(rec.Fields, f)
			}
		}
		records = append(records, rec)
	}

	return table.FromRecords(records)
}

func TestSummarizeEmptyTable(t *testing.T) {
	s, err := summary.Summarize(table.FromRecords(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !s.Empty() {
		t.Fatalf("expected empty sentinel, got %+v", s)
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if string(data) != `{"summary":"No records returned"}` {
		t.Fatalf("unexpected JSON: %s", data)
	}
}

func TestSummarizeScenario(t *testing.T) {
	tbl := tableOf(
		map[string]any{"country": "GB", "year": json.Number("1850")},
		map[string]any{"country": "GB", "year": json.Number("1900")},
		map[string]any{"country": "FR", "year": json.Number("1820")},
	)

	s, err := summary.Summarize(tbl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.TotalRecords != 3 {
		t.Fatalf("unexpected total: %d", s.TotalRecords)
	}

	if want := map[string]int{"GB": 2, "FR": 1}; !maps.Equal(s.TopCountries.Map(), want) {
		t.Fatalf("unexpected top countries: %v", s.TopCountries)
	}

	if s.YearRange == nil || s.YearRange.Min != 1820 || s.YearRange.Max != 1900 {
		t.Fatalf("unexpected year range: %+v", s.YearRange)
	}

	if s.TopCollectors != nil {
		t.Fatalf("expected no collectors facet, got %v", s.TopCollectors)
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"total_records":3,"top_countries":{"GB":2,"FR":1},"year_range":{"min":1820,"max":1900}}`
	if string(data) != want {
		t.Fatalf("unexpected JSON:\n%s\nwant:\n%s", data, want)
	}
}

func TestSummarizeMissingColumns(t *testing.T) {
	s, err := summary.Summarize(tableOf(map[string]any{"key": json.Number("1")}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.TotalRecords != 1 || s.TopCountries != nil || s.YearRange != nil || s.TopCollectors != nil {
		t.Fatalf("expected only the total, got %+v", s)
	}
}

func TestSummarizeTopValuesCappedAndOrdered(t *testing.T) {
	var rows []map[string]any
	add := func(country string, n int) {
		for range n {
			rows = append(rows, map[string]any{"country": country})
		}
	}

	add("AA", 1)
	add("BB", 3)
	add("CC", 1)
	add("DD", 2)
	add("EE", 1)
	add("FF", 4)
	add("GG", 1)
	rows = append(rows, map[string]any{"country": nil})

	s, err := summary.Summarize(tableOf(rows...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := summary.Counts{
		{Value: "FF", Count: 4},
		{Value: "BB", Count: 3},
		{Value: "DD", Count: 2},
		{Value: "AA", Count: 1},
		{Value: "CC", Count: 1},
	}

	if len(s.TopCountries) != len(want) {
		t.Fatalf("unexpected top countries: %v", s.TopCountries)
	}

	for i := range want {
		if s.TopCountries[i] != want[i] {
			t.Fatalf("unexpected entry %d: got %+v want %+v", i, s.TopCountries[i], want[i])
		}
	}
}

func TestSummarizeYearRange(t *testing.T) {
	tests := []struct {
		name    string
		years   []any
		wantMin int64
		wantMax int64
		wantNil bool
	}{
		{"Numbers", []any{json.Number("1900"), json.Number("1850")}, 1850, 1900, false},
		{"Numeric strings", []any{"1901", " 1799 "}, 1799, 1901, false},
		{"Integral floats", []any{json.Number("1850.0"), json.Number("1851")}, 1850, 1851, false},
		{"Nil cells are skipped", []any{nil, json.Number("1777"), nil}, 1777, 1777, false},
		{"Only nil cells", []any{nil, nil}, 0, 0, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rows := make([]map[string]any, 0, len(test.years))
			for _, y := range test.years {
				rows = append(rows, map[string]any{"year": y})
			}

			s, err := summary.Summarize(tableOf(rows...))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if test.wantNil {
				if s.YearRange != nil {
					t.Fatalf("expected no year range, got %+v", s.YearRange)
				}
				return
			}

			if s.YearRange == nil {
				t.Fatalf("expected year range")
			}

			if s.YearRange.Min > s.YearRange.Max {
				t.Fatalf("min above max: %+v", s.YearRange)
			}

			if s.YearRange.Min != test.wantMin || s.YearRange.Max != test.wantMax {
				t.Fatalf("unexpected year range: %+v", s.YearRange)
			}
		})
	}
}

func TestSummarizeInvalidYear(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"free text", "circa 1900"},
		{"fractional", json.Number("1850.5")},
		{"beyond int64", json.Number("1e30")},
		{"negative beyond int64", json.Number("-1e30")},
		{"float at int64 bound", float64(1 << 63)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tbl := tableOf(
				map[string]any{"year": json.Number("1850")},
				map[string]any{"year": test.value},
			)

			s, err := summary.Summarize(tbl)

			var yearErr *summary.InvalidYearError
			if !errors.As(err, &yearErr) {
				t.Fatalf("expected InvalidYearError, got %v (year range %+v)", err, s.YearRange)
			}

			if yearErr.Row != 1 {
				t.Fatalf("unexpected row: %d", yearErr.Row)
			}
		})
	}
}

func TestSummarizePresentColumnWithoutValues(t *testing.T) {
	s, err := summary.Summarize(tableOf(
		map[string]any{"country": nil, "recordedBy": "[]"},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"total_records":1,"top_countries":{},"top_collectors":{}}`
	if string(data) != want {
		t.Fatalf("unexpected JSON:\n%s\nwant:\n%s", data, want)
	}
}

func TestSummarizeCollectors(t *testing.T) {
	tbl := tableOf(
		map[string]any{"recordedBy": "['A. Smith', 'B. Jones']"},
		map[string]any{"recordedBy": "A. Smith, B. Jones"},
		map[string]any{"recordedBy": []any{"A. Smith", "B. Jones"}},
		map[string]any{"recordedBy": "'C. Darwin'"},
		map[string]any{"recordedBy": nil},
		map[string]any{"recordedBy": "[]"},
	)

	s, err := summary.Summarize(tbl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := summary.Counts{
		{Value: "A. Smith, B. Jones", Count: 3},
		{Value: "C. Darwin", Count: 1},
	}

	if len(s.TopCollectors) != len(want) {
		t.Fatalf("unexpected collectors: %v", s.TopCollectors)
	}

	for i := range want {
		if s.TopCollectors[i] != want[i] {
			t.Fatalf("unexpected entry %d: got %+v want %+v", i, s.TopCollectors[i], want[i])
		}
	}
}

func TestCountsMarshalJSONKeepsOrder(t *testing.T) {
	c := summary.Counts{{Value: "z", Count: 3}, {Value: `a"b`, Count: 1}}

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if want := fmt.Sprintf(`{"z":3,%q:1}`, `a"b`); string(data) != want {
		t.Fatalf("got %s want %s", data, want)
	}
}
