package note

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Clause is a byte span [Start, End) in the normalized text.  Negation scope
// is bounded to a clause, never to the whole note.
type Clause struct {
	Start int
	End   int
}

// NormalizedText is the matcher-facing view of a note's text.  Text is
// lowercased with whitespace runs collapsed to single spaces; the offset maps
// lead back to the original text so audit snippets are never case-mangled.
type NormalizedText struct {
	// Raw is the original text, untouched.
	Raw string

	// Text is the normalized form the matcher scans.
	Text string

	// starts[i] is the byte offset in Raw of the rune that produced Text
	// byte i; ends[i] is that rune's exclusive end offset in Raw.
	starts []int
	ends   []int

	// Clauses are the clause-level segments of Text, split on sentence
	// boundaries and common clinical delimiters.
	Clauses []Clause
}

// clause delimiters that end a segment in-line.
func isClauseDelimiter(r rune) bool {
	switch r {
	case '.', ';', '!', '?':
		return true
	}
	return false
}

// Normalize produces the NormalizedText for raw.  Pure and deterministic:
// identical input yields identical output, which the batch-level determinism
// guarantees depend on.
func Normalize(raw string) NormalizedText {
	n := NormalizedText{
		Raw:    raw,
		starts: make([]int, 0, len(raw)),
		ends:   make([]int, 0, len(raw)),
	}

	var b strings.Builder
	b.Grow(len(raw))

	var boundaries []int
	pendingSpace := false
	pendingBreak := false
	spaceStart := 0

	appendRune := func(r rune, rawStart, rawEnd int) {
		var buf [utf8.UTFMax]byte
		w := utf8.EncodeRune(buf[:], r)
		b.Write(buf[:w])
		for i := 0; i < w; i++ {
			n.starts = append(n.starts, rawStart)
			n.ends = append(n.ends, rawEnd)
		}
	}

	markBoundary := func() {
		at := b.Len()
		if len(boundaries) == 0 || boundaries[len(boundaries)-1] != at {
			boundaries = append(boundaries, at)
		}
	}

	for i, r := range raw {
		if unicode.IsSpace(r) {
			if !pendingSpace {
				spaceStart = i
			}
			pendingSpace = true
			if r == '\n' || r == '\r' {
				pendingBreak = true
			}
			continue
		}

		if pendingSpace && b.Len() > 0 {
			if pendingBreak {
				// A line break ends the clause before the joining space.
				markBoundary()
			}
			appendRune(' ', spaceStart, spaceStart+1)
		}
		pendingSpace = false
		pendingBreak = false

		appendRune(unicode.ToLower(r), i, i+utf8.RuneLen(r))
		if isClauseDelimiter(r) {
			markBoundary()
		}
	}
	markBoundary()

	n.Text = b.String()
	n.Clauses = buildClauses(n.Text, boundaries)
	return n
}

// buildClauses turns boundary end-positions into trimmed, non-empty spans.
func buildClauses(text string, boundaries []int) []Clause {
	var clauses []Clause
	prev := 0
	for _, end := range boundaries {
		start := prev
		prev = end
		// Trim surrounding spaces and bare delimiters from the span.
		for start < end && (text[start] == ' ' || isClauseDelimiter(rune(text[start]))) {
			start++
		}
		trimmed := end
		for trimmed > start && (text[trimmed-1] == ' ') {
			trimmed--
		}
		if trimmed > start {
			clauses = append(clauses, Clause{Start: start, End: trimmed})
		}
	}
	return clauses
}

// OriginalSpan maps a byte span of the normalized text back to the original
// text.  Out-of-range spans are clamped.
func (n NormalizedText) OriginalSpan(start, end int) (int, int) {
	if len(n.starts) == 0 || start >= end {
		return 0, 0
	}
	if start < 0 {
		start = 0
	}
	if end > len(n.ends) {
		end = len(n.ends)
	}
	return n.starts[start], n.ends[end-1]
}

// Snippet returns the original-cased text covered by a normalized span,
// for display to users auditing a match.
func (n NormalizedText) Snippet(start, end int) string {
	s, e := n.OriginalSpan(start, end)
	return n.Raw[s:e]
}

// ClauseAt returns the clause containing the given start offset.  A match at
// a clause boundary resolves to the clause containing its starting offset.
func (n NormalizedText) ClauseAt(pos int) (Clause, bool) {
	// Positions in inter-clause gaps (delimiters, joining spaces) attach to
	// the following clause when one exists.
	i := sort.Search(len(n.Clauses), func(i int) bool {
		return n.Clauses[i].End > pos
	})
	if i < len(n.Clauses) {
		return n.Clauses[i], true
	}
	return Clause{}, false
}
