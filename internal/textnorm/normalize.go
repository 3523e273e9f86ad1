// Package textnorm provides search query normalization: Unicode width folding,
// punctuation folding, whitespace collapsing and multi-query splitting.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// punctuation folds Japanese and full-width punctuation that NFKC leaves alone.
var punctuation = strings.NewReplacer(
	"・", " ",
	"･", " ",
	"·", " ",
	"•", " ",
	"、", ",",
	"，", ",",
	"｡", ".",
	"。", ".",
	"（", "(",
	"）", ")",
	"［", "[",
	"］", "]",
	"｛", "{",
	"｝", "}",
	"「", `"`,
	"」", `"`,
	"『", `"`,
	"』", `"`,
)

// Normalize returns the canonical search form of text.
// It is total and idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	folded := norm.NFKC.String(text)
	folded = punctuation.Replace(folded)

	return strings.Join(strings.Fields(folded), " ")
}

// SplitMulti splits a multi-query input on comma, semicolon, slash, pipe and
// newline. Parts are trimmed, empty parts dropped and exact duplicates removed,
// keeping the first occurrence.
func SplitMulti(text string) []string {
	parts := strings.FieldsFunc(text, isMultiSeparator)

	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	return out
}

// RemoveSpaces strips every whitespace rune from text.
func RemoveSpaces(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
}

// Tokenize normalizes text and splits it on whitespace.
func Tokenize(text string) []string {
	return strings.Fields(Normalize(text))
}

// Fold is Normalize followed by lower-casing, the form used for substring matching.
func Fold(text string) string {
	return strings.ToLower(Normalize(text))
}

func isMultiSeparator(r rune) bool {
	switch r {
	case ',', ';', '/', '|', '\n':
		return true
	}
	return false
}
