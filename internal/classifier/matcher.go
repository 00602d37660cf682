package classifier

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/cloudflare/ahocorasick"
)

// dictionary finds whole-word occurrences of a fixed set of phrases. A single
// Aho-Corasick pass selects candidate phrases, then every candidate is
// checked for word boundaries.
type dictionary struct {
	phrases []string
	index   map[string]int

	mu      sync.Mutex
	matcher *ahocorasick.Matcher
}

func newDictionary() *dictionary {
	return &dictionary{index: make(map[string]int)}
}

// add normalizes phrase and returns its id, or -1 if nothing left after
// normalization.
func (self *dictionary) add(phrase string) int {
	phrase = Normalize(phrase)
	if phrase == "" {
		return -1
	}
	if id, ok := self.index[phrase]; ok {
		return id
	}
	id := len(self.phrases)
	self.phrases = append(self.phrases, phrase)
	self.index[phrase] = id
	return id
}

func (self *dictionary) addAll(phrases []string) []int {
	ids := make([]int, 0, len(phrases))
	seen := make(map[int]struct{}, len(phrases))
	for _, phrase := range phrases {
		id := self.add(phrase)
		if id < 0 {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

func (self *dictionary) build() {
	if len(self.phrases) > 0 {
		self.matcher = ahocorasick.NewStringMatcher(self.phrases)
	}
}

// match returns ids of phrases which occur in text as whole words.
func (self *dictionary) match(text string) map[int]struct{} {
	found := make(map[int]struct{})
	if self.matcher == nil || text == "" {
		return found
	}

	// Matcher keeps per call state inside.
	self.mu.Lock()
	hits := self.matcher.Match([]byte(text))
	self.mu.Unlock()

	for _, id := range hits {
		if id < len(self.phrases) && containsWord(text, self.phrases[id]) {
			found[id] = struct{}{}
		}
	}
	return found
}

// containsWord returns true if phrase occurs in text and neither of its
// neighbour characters is a letter or a digit.
func containsWord(text, phrase string) bool {
	for offset := 0; offset < len(text); {
		i := strings.Index(text[offset:], phrase)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(phrase)
		if wordBoundaryBefore(text, start) && wordBoundaryAfter(text, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return false
}

func wordBoundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func wordBoundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }
