package textutil

import "strings"

var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName makes a resolved title safe to use as a file name.
// Separators, colons and asterisks become dashes so "Title: Subtitle" keeps
// its shape; the remaining unsafe characters are dropped.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

// StripProhibitedChars removes characters that are not allowed in file or
// folder names on common filesystems, including control characters, and
// trims the result. Unlike SanitizeFileName nothing is substituted.
func StripProhibitedChars(name string) string {
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		if strings.ContainsRune(`<>:"/\|?*`, r) {
			return -1
		}
		return r
	}, name)
	return strings.TrimSpace(strings.TrimRight(name, ". "))
}
