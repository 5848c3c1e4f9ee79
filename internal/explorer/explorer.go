package explorer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"nhmexplorer/internal/domain"
	"nhmexplorer/internal/occurrence"
	"nhmexplorer/internal/summary"
	"nhmexplorer/internal/table"
)

// Searcher runs one occurrence search.
type Searcher interface {
	Search(ctx context.Context, q domain.Query) (*occurrence.RawResult, error)
}

// Result is everything a front-end needs after running a query.
type Result struct {
	RunID           string          `json:"run_id"`
	AppliedFilters  domain.Query    `json:"applied_filters"`
	TotalCount      *int64          `json:"total_count"`
	ReturnedRecords int             `json:"returned_records"`
	Summary         summary.Summary `json:"summary"`
	Records         *table.Table    `json:"records"`
}

type Explorer struct {
	searcher Searcher
	log      *slog.Logger
}

func New(searcher Searcher, log *slog.Logger) *Explorer {
	return &Explorer{
		searcher: searcher,
		log:      log,
	}
}

// Run fetches one page of records for q and summarizes it. A failed fetch
// yields no result.
func (e *Explorer) Run(ctx context.Context, q domain.Query) (*Result, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	start := time.Now()

	raw, err := e.searcher.Search(ctx, q)
	if err != nil {
		e.log.WarnContext(ctx, "Occurrence search failed",
			"error", err,
			"runID", runID,
			"query", q)

		return nil, fmt.Errorf("search occurrences: %w", err)
	}

	tbl := table.FromRecords(raw.Records)

	s, err := summary.Summarize(tbl)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	e.log.InfoContext(ctx, "Query is done",
		"runID", runID,
		"query", q,
		"totalCount", raw.Count,
		"returnedRecords", tbl.Len(),
		"columns", len(tbl.Columns()),
		"durationSeconds", time.Since(start).Seconds())

	return &Result{
		RunID:           runID,
		AppliedFilters:  q,
		TotalCount:      raw.Count,
		ReturnedRecords: tbl.Len(),
		Summary:         s,
		Records:         tbl,
	}, nil
}
