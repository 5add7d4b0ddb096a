package naming

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TitleCase capitalizes each word of an all-lowercase title.
func TitleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// SameTitle compares two titles ignoring case and surrounding whitespace.
func SameTitle(a, b string) bool {
	fold := cases.Fold()
	return foldKey(fold, a) == foldKey(fold, b)
}

func foldKey(c cases.Caser, s string) string {
	return normalizeSpaces(strings.TrimSpace(c.String(s)))
}
