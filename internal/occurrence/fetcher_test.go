package occurrence_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"testing"
	"time"

	"nhmexplorer/internal/domain"
	"nhmexplorer/internal/occurrence"
)

func newFetcher(t *testing.T, searchURL string) *occurrence.Fetcher {
	t.Helper()

	f, err := occurrence.NewFetcher(occurrence.Config{
		SearchURL: searchURL,
		Timeout:   5 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}

	return f
}

func TestInstitutionCode(t *testing.T) {
	if got := newFetcher(t, "").InstitutionCode(); got != occurrence.DefaultInstitutionCode {
		t.Fatalf("unexpected default institution code: %q", got)
	}

	f, err := occurrence.NewFetcher(occurrence.Config{
		InstitutionCode: " BMNH ",
		Timeout:         5 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}

	if got := f.InstitutionCode(); got != "BMNH" {
		t.Fatalf("unexpected institution code: %q", got)
	}

	if got := f.Params(domain.Query{Limit: 1}).Get("institutionCode"); got != "BMNH" {
		t.Fatalf("unexpected institutionCode param: %q", got)
	}
}

func TestParamsOmitUnsetFilters(t *testing.T) {
	f := newFetcher(t, "")

	tests := []struct {
		name  string
		query domain.Query
		want  url.Values
	}{
		{
			"No optional filters",
			domain.Query{Limit: 20},
			url.Values{
				"limit":           {"20"},
				"offset":          {"0"},
				"institutionCode": {"NHMUK"},
			},
		},
		{
			"Only country",
			domain.Query{Country: "GB", Limit: 5, Offset: 10},
			url.Values{
				"limit":           {"5"},
				"offset":          {"10"},
				"institutionCode": {"NHMUK"},
				"country":         {"GB"},
			},
		},
		{
			"All filters",
			domain.Query{ScientificName: "Quercus robur", Country: "GB", Year: "1800,1950", Limit: 10},
			url.Values{
				"limit":           {"10"},
				"offset":          {"0"},
				"institutionCode": {"NHMUK"},
				"scientificName":  {"Quercus robur"},
				"country":         {"GB"},
				"year":            {"1800,1950"},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := f.Params(test.query)

			if len(got) != len(test.want) {
				t.Fatalf("unexpected params: got %v want %v", got, test.want)
			}

			for key, want := range test.want {
				if !slices.Equal(got[key], want) {
					t.Fatalf("unexpected %s: got %v want %v", key, got[key], want)
				}
			}
		})
	}
}

func TestSearchSendsQueryAndDecodesRecords(t *testing.T) {
	var gotQuery url.Values

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"offset": 0,
			"count": 1234,
			"results": [
				{"key": 1, "year": 1850, "country": "GB"},
				{"key": 2, "recordedBy": "A. Smith", "country": "FR", "year": null}
			]
		}`)
	}))
	defer srv.Close()

	f := newFetcher(t, srv.URL)

	res, err := f.Search(context.Background(), domain.Query{ScientificName: "Quercus robur", Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotQuery.Get("scientificName") != "Quercus robur" || gotQuery.Get("institutionCode") != "NHMUK" {
		t.Fatalf("unexpected query sent: %v", gotQuery)
	}

	if gotQuery.Has("country") || gotQuery.Has("year") {
		t.Fatalf("expected unset filters to be omitted, got %v", gotQuery)
	}

	if res.Count == nil || *res.Count != 1234 {
		t.Fatalf("unexpected count: %v", res.Count)
	}

	if len(res.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(res.Records))
	}

	if want := []string{"key", "year", "country"}; !slices.Equal(res.Records[0].Fields, want) {
		t.Fatalf("unexpected field order: got %v want %v", res.Records[0].Fields, want)
	}

	if want := []string{"key", "recordedBy", "country", "year"}; !slices.Equal(res.Records[1].Fields, want) {
		t.Fatalf("unexpected field order: got %v want %v", res.Records[1].Fields, want)
	}

	year, ok := res.Records[0].Get("year")
	if !ok || year != json.Number("1850") {
		t.Fatalf("unexpected year: %#v", year)
	}

	if v, ok := res.Records[1].Get("year"); !ok || v != nil {
		t.Fatalf("expected null year to be kept as nil, got %#v", v)
	}

	if _, ok = res.Body["offset"]; !ok {
		t.Fatalf("expected raw body to be kept verbatim")
	}
}

func TestSearchNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "upstream exploded\n")
	}))
	defer srv.Close()

	f := newFetcher(t, srv.URL)

	res, err := f.Search(context.Background(), domain.Query{Limit: 10})
	if res != nil {
		t.Fatalf("expected no result, got %+v", res)
	}

	var remoteErr *occurrence.RemoteRequestError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteRequestError, got %v", err)
	}

	if remoteErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", remoteErr.StatusCode)
	}

	if remoteErr.Body != "upstream exploded" {
		t.Fatalf("unexpected body: %q", remoteErr.Body)
	}
}

func TestSearchUnexpectedShapes(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantErr     bool
		wantRecords int
		wantCount   bool
	}{
		{"Results is not an array", `{"count": 3, "results": "nope"}`, false, 0, true},
		{"Missing results", `{"count": 0}`, false, 0, true},
		{"Non-object elements are skipped", `{"results": [1, {"a": 1}, "x"]}`, false, 1, false},
		{"Non-numeric count", `{"count": "many", "results": []}`, false, 0, false},
		{"Top-level array", `[{"a": 1}]`, true, 0, false},
		{"Invalid JSON", `{"count":`, true, 0, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, test.body)
			}))
			defer srv.Close()

			res, err := newFetcher(t, srv.URL).Search(context.Background(), domain.Query{Limit: 1})

			if test.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(res.Records) != test.wantRecords {
				t.Fatalf("unexpected record count: got %d want %d", len(res.Records), test.wantRecords)
			}

			if (res.Count != nil) != test.wantCount {
				t.Fatalf("unexpected count presence: %v", res.Count)
			}
		})
	}
}
