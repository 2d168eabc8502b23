package search

import (
	"regexp"
	"strings"

	"algoflow/internal/model"
)

// wordRune is the class of runes that make up a word; anything else is a boundary.
const wordRune = `\p{L}\p{N}_`

// WholeWord returns a case-insensitive pattern that finds keyword only where
// it is preceded by the start of the text or a non-word rune, and followed by
// the end of the text or a non-word rune.
func WholeWord(keyword string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^` + wordRune + `])` + regexp.QuoteMeta(keyword) + `(?:$|[^` + wordRune + `])`)
}

// Matcher reports whether text matches a keyword under a match mode.
type Matcher struct {
	mode    model.MatchMode
	keyword string
	word    *regexp.Regexp
}

// NewMatcher compiles keyword for mode.
func NewMatcher(keyword string, mode model.MatchMode) *Matcher {
	m := &Matcher{mode: mode, keyword: strings.ToLower(keyword)}
	if mode == model.MatchWholeWord {
		m.word = WholeWord(keyword)
	}
	return m
}

// Match reports whether text matches.
func (m *Matcher) Match(text string) bool {
	if m.word != nil {
		return m.word.MatchString(text)
	}
	return strings.Contains(strings.ToLower(text), m.keyword)
}
