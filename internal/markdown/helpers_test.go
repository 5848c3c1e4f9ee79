package markdown_test

import (
	"testing"

	"nhmexplorer/internal/markdown"
)

func TestEscapeV2(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Plain text", "Quercus robur", "Quercus robur"},
		{"Special characters", "A. Smith (1850)!", `A\. Smith \(1850\)\!`},
		{"Backslash", `a\b`, `a\\b`},
		{"Year range", "1800-1950", `1800\-1950`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := markdown.EscapeV2(test.in); got != test.want {
				t.Fatalf("got %q want %q", got, test.want)
			}
		})
	}
}

func TestEscapeCode(t *testing.T) {
	in := "{\"a\": \"x`y\\z\"} (ok)."
	want := "{\"a\": \"x\\`y\\\\z\"} (ok)."

	if got := markdown.EscapeCode(in); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestCodeBlock(t *testing.T) {
	got := markdown.CodeBlock("json", `{"total_records":3}`)
	want := "```json\n{\"total_records\":3}\n```"

	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
