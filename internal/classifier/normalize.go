package classifier // import "streamlance.app/internal/classifier"

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	compoundReplacer = strings.NewReplacer("ui/ux", "ui ux", "ci/cd", "ci cd")
	delimReplacer    = strings.NewReplacer("-", " ", "_", " ", "/", " ")
)

// Normalize returns lower-cased s with compound abbreviations split, hyphens,
// underscores and slashes turned into spaces and whitespace collapsed.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	// A Caser keeps state, so every call needs its own.
	s = cases.Lower(language.Und).String(s)
	s = compoundReplacer.Replace(s)
	s = delimReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// searchText normalizes every part independently and joins non-empty results
// by single spaces: title, then skills, then description.
func searchText(title string, skills []string, description string) string {
	parts := make([]string, 0, len(skills)+2)
	add := func(s string) {
		if s = Normalize(s); s != "" {
			parts = append(parts, s)
		}
	}

	add(title)
	for _, s := range skills {
		add(s)
	}
	add(description)
	return strings.Join(parts, " ")
}
