package shared

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var nameCaser = cases.Title(language.Spanish, cases.NoLower)

// CanonicalName normalizes a display name: collapses whitespace and
// title-cases each word with Spanish casing rules.
func CanonicalName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	for i, f := range fields {
		fields[i] = nameCaser.String(strings.ToLower(f))
	}
	return strings.Join(fields, " ")
}
