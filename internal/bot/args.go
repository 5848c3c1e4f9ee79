package bot

import (
	"fmt"
	"strconv"
	"strings"

	"nhmexplorer/internal/domain"
)

//nolint:gochecknoglobals // Demo filters shown in the welcome text.
var defaultQuery = domain.Query{
	ScientificName: "Quercus robur",
	Country:        "GB",
	Year:           "1800,1950",
	Limit:          10,
}

// parseQueryArgs reads "key=value" pairs separated by ";" or new lines.
// Keys are case-insensitive; unknown keys are an error.
func parseQueryArgs(args string) (domain.Query, error) {
	scientificName, country, year := "", "", ""
	limit, offset := domain.DefaultLimit, 0

	fields := strings.FieldsFunc(args, func(r rune) bool {
		return r == ';' || r == '\n'
	})

	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return domain.Query{}, fmt.Errorf("expected key=value, got %q", field)
		}

		value = strings.TrimSpace(value)

		switch normalizeKey(key) {
		case "name", "scientificname", "species":
			scientificName = value
		case "country":
			country = strings.ToUpper(value)
		case "year", "years":
			year = strings.ReplaceAll(value, " ", "")
		case "limit":
			n, err := strconv.Atoi(value)
			if err != nil {
				return domain.Query{}, fmt.Errorf("parse limit: %w", err)
			}
			limit = n
		case "offset":
			n, err := strconv.Atoi(value)
			if err != nil {
				return domain.Query{}, fmt.Errorf("parse offset: %w", err)
			}
			offset = n
		default:
			return domain.Query{}, fmt.Errorf("unknown key %q", strings.TrimSpace(key))
		}
	}

	return domain.NewQuery(scientificName, country, year, limit, offset)
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
}

func nextPage(q domain.Query) (domain.Query, error) {
	next := q
	next.Offset += q.Limit

	if err := next.Validate(); err != nil {
		return domain.Query{}, fmt.Errorf("build next page: %w", err)
	}

	return next, nil
}
