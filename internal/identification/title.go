package identification

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// bracketPattern matches bracketed release tags such as "[1080p]" or "(Extended)".
var bracketPattern = regexp.MustCompile(`[\[(][^\])]*[\])]`)

// cleanTitle turns a scraped title into a search query: bracketed tags are
// dropped, separators become single spaces, and the result is title cased.
func cleanTitle(raw string) string {
	raw = bracketPattern.ReplaceAllString(raw, " ")
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range raw {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r) || r == '\'' || r == '&':
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.' || r == ':':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return ""
	}
	return cases.Title(language.Und, cases.NoLower).String(title)
}

// parseYear returns a plausible four-digit year or 0.
func parseYear(raw string) int {
	raw = strings.TrimSpace(raw)
	if len(raw) != 4 {
		return 0
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1870 || year > 2200 {
		return 0
	}
	return year
}
