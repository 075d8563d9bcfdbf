package extraction

import (
	"strings"
	"unicode"

	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/library"
)

// token is one word-like unit of normalized text with its byte span.
type token struct {
	text  string
	start int
	end   int
}

// isTokenRune reports whether r belongs inside a token.  Apostrophes stay so
// clinical contractions ("can't sleep") tokenize the same way in phrases and
// notes; all other punctuation separates tokens, which is what makes phrase
// lookup whitespace- and punctuation-insensitive.
func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\''
}

// tokenize splits s into tokens, reporting spans relative to s plus base.
func tokenize(s string, base int) []token {
	var tokens []token
	start := -1
	for i, r := range s {
		if isTokenRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, token{text: s[start:i], start: base + start, end: base + i})
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{text: s[start:], start: base + start, end: base + len(s)})
	}
	return tokens
}

// phraseKey reduces a phrase to its canonical lookup key: lowercased tokens
// joined by single spaces.
func phraseKey(phrase string) string {
	tokens := tokenize(strings.ToLower(phrase), 0)
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.text
	}
	return strings.Join(parts, " ")
}

// joinTokens builds the lookup key for a run of already-lowercased tokens.
func joinTokens(tokens []token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.text
	}
	return strings.Join(parts, " ")
}

// PhraseIndex is the matcher's library-derived lookup structure: canonical
// phrase key → first-registered master record.  Built once per library and
// shared read-only by every concurrent matcher.
type PhraseIndex struct {
	entries   map[string]library.SymptomMasterRecord
	maxTokens int
}

// BuildIndex constructs the phrase index from the library's records in
// insertion order.  When two records produce the same key (identical-length
// phrase ties included), the first registered wins. The tie-break is
// deterministic but essentially arbitrary.
func BuildIndex(lib *library.Library) *PhraseIndex {
	idx := &PhraseIndex{entries: make(map[string]library.SymptomMasterRecord, lib.Len())}
	for _, rec := range lib.Records() {
		key := phraseKey(rec.SymptomSegment)
		if key == "" {
			continue
		}
		if _, exists := idx.entries[key]; exists {
			continue
		}
		idx.entries[key] = rec
		if n := 1 + strings.Count(key, " "); n > idx.maxTokens {
			idx.maxTokens = n
		}
	}
	return idx
}

// Lookup returns the record registered for the exact canonical key.
func (idx *PhraseIndex) Lookup(key string) (library.SymptomMasterRecord, bool) {
	rec, ok := idx.entries[key]
	return rec, ok
}

// MaxTokens returns the token count of the longest indexed phrase; the
// matcher never probes n-grams longer than this.
func (idx *PhraseIndex) MaxTokens() int {
	return idx.maxTokens
}

// Len returns the number of distinct phrase keys.
func (idx *PhraseIndex) Len() int {
	return len(idx.entries)
}
