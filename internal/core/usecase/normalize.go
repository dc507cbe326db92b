package usecase

import (
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/kirillkom/openplag/internal/core/domain"
)

const (
	DefaultMaxQueries = 3
	minQueryRunes     = 40
	maxQueryRunes     = 200
)

// DeriveQueries picks the longest sentences of text as search probes.
// Sentences of 40 runes or fewer are ignored; each query is cut to 200 runes.
func DeriveQueries(text string, maxQueries int) []domain.Query {
	if maxQueries <= 0 {
		maxQueries = DefaultMaxQueries
	}

	var long []string
	for _, s := range SplitSentences(text) {
		if utf8.RuneCountInString(s) > minQueryRunes {
			long = append(long, s)
		}
	}
	sort.SliceStable(long, func(i, j int) bool {
		return utf8.RuneCountInString(long[i]) > utf8.RuneCountInString(long[j])
	})
	if len(long) > maxQueries {
		long = long[:maxQueries]
	}

	out := make([]domain.Query, 0, len(long))
	for _, s := range long {
		out = append(out, domain.Query(truncateRunes(s, maxQueryRunes)))
	}
	return out
}

// SplitSentences breaks text on a single whitespace rune that follows '.' or
// '?', except after initials ("e.g.", "U.S.") and short capitalised
// abbreviations ("Mr.", "Dr.").
func SplitSentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0
	for i, r := range runes {
		if !unicode.IsSpace(r) || i == 0 {
			continue
		}
		prev := runes[i-1]
		if prev != '.' && prev != '?' {
			continue
		}
		if i >= 4 && isWordRune(runes[i-4]) && runes[i-3] == '.' && isWordRune(runes[i-2]) {
			continue
		}
		if i >= 3 && isASCIIUpper(runes[i-3]) && isASCIILower(runes[i-2]) && prev == '.' {
			continue
		}
		out = append(out, string(runes[start:i]))
		start = i + 1
	}
	out = append(out, string(runes[start:]))
	return out
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isASCIIUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isASCIILower(r rune) bool { return r >= 'a' && r <= 'z' }

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
