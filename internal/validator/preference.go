package validator

import (
	"errors"
	"fmt"
	"strings"

	"streamlance.app/internal/taxonomy"
)

var (
	ErrNoPreferences         = errors.New("at least one category is required")
	ErrTooManyPreferences    = errors.New("too many categories")
	ErrUnknownCategory       = errors.New("unknown category")
	ErrCategoryNotSelectable = errors.New("category can't be selected")
)

// ValidatePreferences checks categories a user wants to subscribe to and
// returns them trimmed and without duplicates.
func ValidatePreferences(tax *taxonomy.Taxonomy, categories []string,
	maxPreferences int,
) ([]string, error) {
	seen := make(map[string]struct{}, len(categories))
	valid := make([]string, 0, len(categories))
	for _, name := range categories {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		} else if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		switch {
		case !tax.Has(name):
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
		case !tax.Selectable(name):
			return nil, fmt.Errorf("%w: %q", ErrCategoryNotSelectable, name)
		}
		valid = append(valid, name)
	}

	switch {
	case len(valid) == 0:
		return nil, ErrNoPreferences
	case len(valid) > maxPreferences:
		return nil, fmt.Errorf("%w: %d selected, at most %d allowed",
			ErrTooManyPreferences, len(valid), maxPreferences)
	}
	return valid, nil
}
