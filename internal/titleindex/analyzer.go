// Package titleindex provides the normalized, fuzzy-queryable title index
// kept for each primary language.
package titleindex

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTable maps letters that carry no combining mark after NFD to their
// closest ASCII spelling.
var foldTable = map[rune]string{
	'ł': "l", 'Ł': "l",
	'ø': "o", 'Ø': "o",
	'đ': "d", 'Đ': "d",
	'ß': "ss", 'ẞ': "ss",
	'æ': "ae", 'Æ': "ae",
	'œ': "oe", 'Œ': "oe",
	'ı': "i",
	'þ': "th", 'Þ': "th",
}

// Tokens splits text into lowercase, accent-free word tokens.
// Anything that is neither a letter nor a digit is a boundary, underscores
// included, so "New_York" and "New York" produce the same tokens.
func Tokens(text string) []string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, text)
	if err != nil {
		stripped = text
	}

	var sb strings.Builder
	sb.Grow(len(stripped))
	for _, r := range stripped {
		if f, ok := foldTable[r]; ok {
			sb.WriteString(f)
			continue
		}
		sb.WriteRune(unicode.ToLower(r))
	}

	return strings.FieldsFunc(sb.String(), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Normalize returns the tokens of text joined by a single space.
func Normalize(text string) string {
	return strings.Join(Tokens(text), " ")
}
