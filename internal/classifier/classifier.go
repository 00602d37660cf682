// Package classifier assigns a category of the taxonomy to a posting by
// weighted keyword scoring.
package classifier // import "streamlance.app/internal/classifier"

import (
	"streamlance.app/internal/taxonomy"
)

// Classifier is safe for concurrent use.
type Classifier struct {
	fallback      string
	minScore      int
	weights       taxonomy.Weights
	dict          *dictionary
	disqualifiers []int
	categories    []category
}

type category struct {
	name       string
	primary    []int
	secondary  []int
	skills     []int
	exclusions []int
}

// Result describes how a text was classified.
type Result struct {
	Category     string
	Score        int
	Disqualified bool
	Scores       []CategoryScore
}

type CategoryScore struct {
	Name     string
	Score    int
	Excluded bool
	Matched  []string
}

// New compiles all keyword lists of tax.
func New(tax *taxonomy.Taxonomy) *Classifier {
	dict := newDictionary()
	self := &Classifier{
		fallback:      tax.Fallback,
		minScore:      tax.MinScore,
		weights:       tax.Weights,
		dict:          dict,
		disqualifiers: dict.addAll(tax.Disqualifiers),
		categories:    make([]category, len(tax.Categories)),
	}

	for i := range tax.Categories {
		c := &tax.Categories[i]
		self.categories[i] = category{
			name:       c.Name,
			primary:    dict.addAll(c.Primary),
			secondary:  dict.addAll(c.Secondary),
			skills:     dict.addAll(c.Skills),
			exclusions: dict.addAll(c.Exclusions),
		}
	}
	dict.build()
	return self
}

// Fallback returns the category of postings nothing else fits.
func (self *Classifier) Fallback() string { return self.fallback }

// Classify returns the best category for a posting, or the fallback.
func (self *Classifier) Classify(title string, skills []string,
	description string,
) string {
	return self.Explain(title, skills, description).Category
}

// Explain classifies a posting and returns the score of every category.
func (self *Classifier) Explain(title string, skills []string,
	description string,
) Result {
	text := searchText(title, skills, description)
	found := self.dict.match(text)
	result := Result{Category: self.fallback}

	if anyFound(found, self.disqualifiers) {
		result.Disqualified = true
		return result
	}

	result.Scores = make([]CategoryScore, len(self.categories))
	best := -1
	for i := range self.categories {
		s := self.score(&self.categories[i], found)
		result.Scores[i] = s
		// Strictly greater keeps the earliest category on ties.
		if s.Score > 0 && (best < 0 || s.Score > result.Scores[best].Score) {
			best = i
		}
	}

	if best >= 0 && result.Scores[best].Score >= self.minScore {
		result.Category = result.Scores[best].Name
		result.Score = result.Scores[best].Score
	}
	return result
}

func (self *Classifier) score(c *category, found map[int]struct{},
) CategoryScore {
	s := CategoryScore{Name: c.name}
	if anyFound(found, c.exclusions) {
		s.Excluded = true
		return s
	}

	lists := []struct {
		ids    []int
		weight int
	}{
		{c.primary, self.weights.Primary},
		{c.secondary, self.weights.Secondary},
		{c.skills, self.weights.Skill},
	}
	for _, l := range lists {
		for _, id := range l.ids {
			if _, ok := found[id]; ok {
				s.Score += l.weight
				s.Matched = append(s.Matched, self.dict.phrases[id])
			}
		}
	}
	return s
}

func anyFound(found map[int]struct{}, ids []int) bool {
	for _, id := range ids {
		if _, ok := found[id]; ok {
			return true
		}
	}
	return false
}
