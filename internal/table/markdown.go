package table

import (
	"io"
	"strconv"
	"strings"
)

var markdownCellReplacer = strings.NewReplacer(
	"|", `\|`,
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
)

// Markdown renders t as a pipe table with a leading row-index column.
func Markdown(t *Table) string {
	var b strings.Builder
	_ = WriteMarkdown(&b, t)

	return b.String()
}

func WriteMarkdown(w io.Writer, t *Table) error {
	var b strings.Builder

	b.WriteString("|   |")
	for _, c := range t.Columns() {
		b.WriteString(" ")
		b.WriteString(markdownCellReplacer.Replace(c))
		b.WriteString(" |")
	}
	b.WriteString("\n|--:|")
	for range t.Columns() {
		b.WriteString(":---|")
	}
	b.WriteString("\n")

	for i := range t.Len() {
		b.WriteString("| ")
		b.WriteString(strconv.Itoa(i))
		b.WriteString(" |")
		for _, v := range t.Row(i) {
			b.WriteString(" ")
			b.WriteString(markdownCellReplacer.Replace(FormatCell(v)))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
