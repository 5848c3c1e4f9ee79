package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultLimit = 20
	MinLimit     = 1
	MaxLimit     = 500
)

var ErrInvalidQuery = errors.New("invalid query")

// Query describes the filters of one occurrence search. Empty text fields
// mean the filter is not applied.
type Query struct {
	ScientificName string `json:"scientific_name"`
	Country        string `json:"country"`
	// Year is a single year ("1900") or an inclusive range ("1800,1950").
	Year   string `json:"year"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

func NewQuery(scientificName, country, year string, limit, offset int) (Query, error) {
	q := Query{
		ScientificName: strings.TrimSpace(scientificName),
		Country:        strings.TrimSpace(country),
		Year:           strings.TrimSpace(year),
		Limit:          limit,
		Offset:         offset,
	}

	if err := q.Validate(); err != nil {
		return Query{}, err
	}

	return q, nil
}

func (q Query) Validate() error {
	if q.Limit < MinLimit || q.Limit > MaxLimit {
		return fmt.Errorf("%w: limit must be in [%d, %d], got %d", ErrInvalidQuery, MinLimit, MaxLimit, q.Limit)
	}

	if q.Offset < 0 {
		return fmt.Errorf("%w: offset must be non-negative, got %d", ErrInvalidQuery, q.Offset)
	}

	return nil
}

type Session struct {
	ChatID    int64
	UserID    int64
	Query     Query
	RunID     string
	UpdatedAt time.Time
}

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type Message struct {
	ID        int64
	ChatID    int64
	Role      MessageRole
	Text      string
	CreatedAt time.Time
}
