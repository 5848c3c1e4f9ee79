package occurrence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"nhmexplorer/internal/domain"
	"nhmexplorer/internal/metrics"
)

const (
	DefaultSearchURL       = "https://api.gbif.org/v1/occurrence/search"
	DefaultInstitutionCode = "NHMUK"

	maxErrorBodyBytes = 64 << 10
)

// RemoteRequestError is returned when the occurrence API answers with a
// non-2xx status.
type RemoteRequestError struct {
	StatusCode int
	Body       string
}

func (e *RemoteRequestError) Error() string {
	return fmt.Sprintf("occurrence API returned status %d: %s", e.StatusCode, e.Body)
}

type Config struct {
	SearchURL       string
	InstitutionCode string
	Timeout         time.Duration
}

type Fetcher struct {
	searchURL       string
	institutionCode string
	client          *http.Client
	log             *slog.Logger
}

func NewFetcher(cfg Config, log *slog.Logger) (*Fetcher, error) {
	searchURL := strings.TrimSpace(cfg.SearchURL)
	if searchURL == "" {
		searchURL = DefaultSearchURL
	}

	if _, err := url.Parse(searchURL); err != nil {
		return nil, fmt.Errorf("parse search URL: %w", err)
	}

	institutionCode := strings.TrimSpace(cfg.InstitutionCode)
	if institutionCode == "" {
		institutionCode = DefaultInstitutionCode
	}

	return &Fetcher{
		searchURL:       searchURL,
		institutionCode: institutionCode,
		client:          &http.Client{Timeout: cfg.Timeout},
		log:             log,
	}, nil
}

// InstitutionCode returns the institution filter sent with every search.
func (f *Fetcher) InstitutionCode() string {
	return f.institutionCode
}

// Params builds the query string for q. Optional filters are only present
// when set, and the institution filter is always present.
func (f *Fetcher) Params(q domain.Query) url.Values {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("offset", strconv.Itoa(q.Offset))
	params.Set("institutionCode", f.institutionCode)

	if q.ScientificName != "" {
		params.Set("scientificName", q.ScientificName)
	}
	if q.Country != "" {
		params.Set("country", q.Country)
	}
	if q.Year != "" {
		params.Set("year", q.Year)
	}

	return params
}

func (f *Fetcher) Search(ctx context.Context, q domain.Query) (*RawResult, error) {
	start := time.Now()

	res, err := f.search(ctx, q)

	metrics.OccurrenceRequestDuration.Observe(time.Since(start).Seconds())

	var remoteErr *RemoteRequestError
	switch {
	case err == nil:
		metrics.OccurrenceRequestsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
		metrics.OccurrenceRecordsReturned.Observe(float64(len(res.Records)))
	case errors.As(err, &remoteErr):
		metrics.OccurrenceRequestsTotal.WithLabelValues(metrics.OutcomeRemoteError).Inc()
	default:
		metrics.OccurrenceRequestsTotal.WithLabelValues(metrics.OutcomeError).Inc()
	}

	return res, err
}

func (f *Fetcher) search(ctx context.Context, q domain.Query) (*RawResult, error) {
	u, err := url.Parse(f.searchURL)
	if err != nil {
		return nil, fmt.Errorf("parse search URL: %w", err)
	}
	u.RawQuery = f.Params(q).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req) //nolint:gosec // Configured occurrence API URL.
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			f.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"searchURL", f.searchURL,
				"operation", "Search")
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		if readErr != nil {
			f.log.WarnContext(ctx, "Failed to read error response body",
				"error", readErr,
				"statusCode", resp.StatusCode)
		}

		return nil, &RemoteRequestError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	res, err := decodeRawResult(data)
	if err != nil {
		return nil, err
	}

	f.log.DebugContext(ctx, "Occurrence search is done",
		"statusCode", resp.StatusCode,
		"returnedRecords", len(res.Records),
		"bodyBytes", len(data))

	return res, nil
}
