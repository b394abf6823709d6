// Package textutil provides small string helpers shared across the pipeline.
package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
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

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. The result is trimmed of leading/trailing whitespace.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

var titleCaser = cases.Title(language.Und)

// DisplayTitle normalizes a folder display name for human-facing output
// (notifications, status tables). Internal whitespace runs collapse to a
// single space and the result is title-cased.
func DisplayTitle(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return titleCaser.String(strings.Join(fields, " "))
}
