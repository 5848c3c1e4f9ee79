package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"nhmexplorer/internal/analyst"
	"nhmexplorer/internal/domain"
	"nhmexplorer/internal/explorer"
	"nhmexplorer/internal/occurrence"
	"nhmexplorer/internal/table"
)

// Explorer runs occurrence queries.
type Explorer interface {
	Run(ctx context.Context, q domain.Query) (*explorer.Result, error)
}

// Analyst answers a question given a table.
type Analyst interface {
	Ask(ctx context.Context, t *table.Table, question string) (string, error)
}

type Handler struct {
	explorer Explorer
	analyst  Analyst
	log      *slog.Logger
}

// NewHandler builds the occurrence API. A nil analyst makes the ask route
// answer 503.
func NewHandler(exp Explorer, an Analyst, log *slog.Logger) *Handler {
	return &Handler{explorer: exp, analyst: an, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.search)        // GET /api/occurrences
	rg.GET("/export", h.export) // GET /api/occurrences/export
	rg.POST("/ask", h.ask)      // POST /api/occurrences/ask
}

type askRequest struct {
	Filters  domain.Query `json:"filters"`
	Question string       `json:"question"`
}

func (h *Handler) search(c *gin.Context) {
	res, ok := h.run(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *Handler) export(c *gin.Context) {
	res, ok := h.run(c)
	if !ok {
		return
	}

	data, err := table.XLSX(res.Records)
	if err != nil {
		h.log.ErrorContext(c.Request.Context(), "Failed to build xlsx",
			"error", err,
			"runID", res.RunID)

		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", table.ExportFilename))
	c.Data(http.StatusOK, table.ExportMIMEType, data)
}

func (h *Handler) ask(c *gin.Context) {
	if h.analyst == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no language model is configured"})
		return
	}

	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": analyst.ErrEmptyQuestion.Error()})
		return
	}

	limit := req.Filters.Limit
	if limit == 0 {
		limit = domain.DefaultLimit
	}

	q, err := domain.NewQuery(
		req.Filters.ScientificName,
		strings.ToUpper(req.Filters.Country),
		req.Filters.Year,
		limit,
		req.Filters.Offset,
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, ok := h.runQuery(c, q)
	if !ok {
		return
	}

	answer, err := h.analyst.Ask(c.Request.Context(), res.Records, req.Question)
	if err != nil {
		h.log.ErrorContext(c.Request.Context(), "Failed to answer question",
			"error", err,
			"runID", res.RunID)

		c.JSON(http.StatusBadGateway, gin.H{"error": "answer failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id": res.RunID,
		"answer": answer,
	})
}

func (h *Handler) run(c *gin.Context) (*explorer.Result, bool) {
	limit, err := parseInt(c.Query("limit"), domain.DefaultLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
		return nil, false
	}

	offset, err := parseInt(c.Query("offset"), 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be an integer"})
		return nil, false
	}

	q, err := domain.NewQuery(
		c.Query("scientificName"),
		strings.ToUpper(c.Query("country")),
		c.Query("year"),
		limit,
		offset,
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	return h.runQuery(c, q)
}

func (h *Handler) runQuery(c *gin.Context, q domain.Query) (*explorer.Result, bool) {
	res, err := h.explorer.Run(c.Request.Context(), q)
	if err == nil {
		return res, true
	}

	var remoteErr *occurrence.RemoteRequestError
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &remoteErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":           "occurrence API request failed",
			"upstream_status": remoteErr.StatusCode,
			"upstream_body":   remoteErr.Body,
		})
	default:
		h.log.ErrorContext(c.Request.Context(), "Failed to run query",
			"error", err,
			"query", q)

		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
	}

	return nil, false
}

func parseInt(s string, def int) (int, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return strconv.Atoi(strings.TrimSpace(s))
}
