package markdown

import "strings"

// Taken from https://core.telegram.org/bots/api#markdownv2-style.
const (
	mdV2SpecialChars   = `_*[]()~>#+-=|{}.!` + "`"
	mdV2CodeBlockChars = "`\\"
)

//nolint:gochecknoglobals // Lookup tables meant to be immutable.
var (
	mdV2Lookup          = lookupOf(mdV2SpecialChars + `\`)
	mdV2CodeBlockLookup = lookupOf(mdV2CodeBlockChars)
)

// EscapeV2 escapes text for use outside of code entities.
func EscapeV2(input string) string {
	return escape(input, &mdV2Lookup)
}

// EscapeCode escapes text for use inside pre and code entities, where only
// "`" and "\" must be escaped.
func EscapeCode(input string) string {
	return escape(input, &mdV2CodeBlockLookup)
}

// CodeBlock wraps text into a pre entity with an optional language.
func CodeBlock(language, text string) string {
	return "```" + language + "\n" + EscapeCode(text) + "\n```"
}

func escape(input string, lookup *[256]bool) string {
	charsToEscape := 0

	for i := range len(input) {
		if lookup[input[i]] {
			charsToEscape++
		}
	}

	if charsToEscape == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input) + charsToEscape)

	for i := range len(input) {
		c := input[i]
		if lookup[c] {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}

	return b.String()
}

func lookupOf(chars string) [256]bool {
	var m [256]bool
	for i := range len(chars) {
		m[chars[i]] = true
	}
	return m
}
