package bot

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"nhmexplorer/internal/domain"
	"nhmexplorer/internal/explorer"
	"nhmexplorer/internal/markdown"
	"nhmexplorer/internal/table"
)

const (
	telegramMessageMaxLength = 4096
	answerChunkMaxLength     = 3500
	tablePreviewRows         = 10
	tablePreviewCellMaxRunes = 24
	historyMessages          = 10
)

//nolint:gochecknoglobals // Columns shown in chat previews, in this order.
var previewColumns = []string{"key", "scientificName", "country", "year", "recordedBy"}

func formatFilters(q domain.Query) string {
	data, err := json.MarshalIndent(q, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", q)
	}

	return string(data)
}

func formatResult(res *explorer.Result) string {
	var b strings.Builder

	b.WriteString("🔎 *Applied filters*\n")
	b.WriteString(markdown.CodeBlock("json", formatFilters(res.AppliedFilters)))
	b.WriteString("\n\n")
	b.WriteString(formatSummary(res))

	return b.String()
}

func formatSummary(res *explorer.Result) string {
	var b strings.Builder

	b.WriteString("📊 *Summary*\n")

	data, err := json.MarshalIndent(res.Summary, "", "  ")
	if err != nil {
		data = []byte(res.Summary.Message)
	}
	b.WriteString(markdown.CodeBlock("json", string(data)))
	b.WriteString("\n\n")

	total := "unknown"
	if res.TotalCount != nil {
		total = strconv.FormatInt(*res.TotalCount, 10)
	}

	b.WriteString(fmt.Sprintf(
		"Matching records: *%s*, returned: *%d*\\.",
		markdown.EscapeV2(total),
		res.ReturnedRecords,
	))

	return b.String()
}

// formatTablePreview renders the first rows of the table restricted to the
// preview columns, or to the first columns when none of them is present.
func formatTablePreview(t *table.Table) string {
	if t.Len() == 0 {
		return "✖️ The table is empty\\."
	}

	preview := t.Project(previewColumns...)
	if len(preview.Columns()) == 0 {
		columns := t.Columns()
		preview = t.Project(columns[:min(len(previewColumns), len(columns))]...)
	}
	preview = preview.Head(tablePreviewRows)

	var grid strings.Builder
	_ = table.WriteMarkdown(&grid, truncateCells(preview))

	header := fmt.Sprintf("📋 *Records* \\(first %d of %d, %d columns\\)\n",
		preview.Len(), t.Len(), len(t.Columns()))

	body := grid.String()
	if maxBody := telegramMessageMaxLength - len(header) - len("```\n\n```") - 64; len(body) > maxBody {
		body = truncateUTF8(body, maxBody) + "\n…"
	}

	return header + markdown.CodeBlock("", strings.TrimRight(body, "\n"))
}

func truncateCells(t *table.Table) *table.Table {
	return t.MapCells(func(v any) any {
		if v == nil {
			return nil
		}
		return truncateRunes(table.FormatCell(v), tablePreviewCellMaxRunes)
	})
}

func formatHistory(messages []domain.Message) string {
	if len(messages) == 0 {
		return "✖️ History is empty\\."
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("💬 *Last %d messages*\n\n", len(messages)))

	for _, m := range messages {
		icon := "👤"
		if m.Role == domain.RoleAssistant {
			icon = "🤖"
		}

		line := fmt.Sprintf("%s %s\n\n", icon, markdown.EscapeV2(truncateRunes(m.Text, 300)))
		if b.Len()+len(line) > telegramMessageMaxLength {
			break
		}
		b.WriteString(line)
	}

	return strings.TrimRight(b.String(), "\n")
}

func formatRemoteError(statusCode int) string {
	return fmt.Sprintf("❌ Occurrence API returned status %d\\. Previous results are kept\\.", statusCode)
}

// splitText cuts text into chunks of at most maxLen bytes, preferring line
// breaks and never splitting a UTF-8 sequence.
func splitText(text string, maxLen int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	for len(text) > maxLen {
		cut := strings.LastIndex(text[:maxLen], "\n")
		if cut <= 0 {
			cut = len(truncateUTF8(text, maxLen))
		}

		chunks = append(chunks, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}

	if text != "" {
		chunks = append(chunks, text)
	}

	return chunks
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	return string(runes[:n-1]) + "…"
}

func truncateUTF8(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}

	cut := maxBytes
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}

	return s[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
