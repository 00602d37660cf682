package model // import "streamlance.app/internal/model"

import (
	"fmt"
	"strconv"
	"time"
)

// Posting represents a freelance job posting ingested from a feed. Postings
// are write-once and deduplicated by Link.
type Posting struct {
	ID             int64      `json:"id" db:"id"`
	Title          string     `json:"title" db:"title"`
	Link           string     `json:"link" db:"link"`
	Description    string     `json:"description" db:"description"`
	PublishedAt    *time.Time `json:"published_at" db:"published_at"`
	Category       string     `json:"category" db:"category"`
	BudgetAmount   *float64   `json:"budget_amount" db:"budget_amount"`
	BudgetCurrency *string    `json:"budget_currency" db:"budget_currency"`
	Skills         []string   `json:"skills" db:"skills"`
	SourcePlatform string     `json:"source_platform" db:"source_platform"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

func (self *Posting) String() string {
	return fmt.Sprintf("#%d %q (%s)", self.ID, self.Title, self.Link)
}

// HasBudget returns true if both amount and currency of the budget are known.
func (self *Posting) HasBudget() bool {
	return self.BudgetAmount != nil && self.BudgetCurrency != nil
}

// Budget returns the budget formatted like "600 USD" or an empty string.
func (self *Posting) Budget() string {
	if !self.HasBudget() {
		return ""
	}
	return strconv.FormatFloat(*self.BudgetAmount, 'f', -1, 64) + " " +
		*self.BudgetCurrency
}

// Postings represents a list of postings.
type Postings []*Posting

// Links returns links of all postings.
func (self Postings) Links() []string {
	links := make([]string, len(self))
	for i, p := range self {
		links[i] = p.Link
	}
	return links
}

// IDs returns identifiers of all postings.
func (self Postings) IDs() []int64 {
	ids := make([]int64, len(self))
	for i, p := range self {
		ids[i] = p.ID
	}
	return ids
}
