package extraction

import (
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/library"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/note"
)

// Options configures a Matcher.
type Options struct {
	// Name identifies the engine configuration in comparison reports.
	Name string

	// NegationWindow is the number of preceding tokens within the same
	// clause inspected for negation cues.  Zero selects the default.
	NegationWindow int

	// PreserveDuplicates keeps every occurrence of a phrase as its own
	// event (the intensity signal).  When false the matcher collapses
	// repeats to the first occurrence per symptom ID per note, the
	// historical deduplicating behaviour, kept as an explicit mode: the
	// two semantics answer different questions.
	PreserveDuplicates bool
}

// DefaultOptions is the production configuration: duplicates preserved,
// default negation window.
func DefaultOptions() Options {
	return Options{
		Name:               "default",
		NegationWindow:     defaultNegationWindow,
		PreserveDuplicates: true,
	}
}

// Matcher scans normalized note text for reference phrases.  A Matcher is
// immutable after construction and safe for concurrent use: matching reads
// only the shared phrase index and writes only its own output slice.
type Matcher struct {
	index *PhraseIndex
	opts  Options
}

// NewMatcher builds a Matcher over the given library.  The phrase index is
// constructed once here; match calls never touch the library again.
func NewMatcher(lib *library.Library, opts Options) *Matcher {
	if opts.NegationWindow <= 0 {
		opts.NegationWindow = defaultNegationWindow
	}
	if opts.Name == "" {
		opts.Name = "default"
	}
	return &Matcher{index: BuildIndex(lib), opts: opts}
}

// Name returns the engine configuration name.
func (m *Matcher) Name() string {
	return m.opts.Name
}

// MatchNote validates, normalizes, and scans one note.  Returns the per-note
// recoverable error (malformed note, unparseable date) without touching the
// batch; callers decide whether to skip or abort.
func (m *Matcher) MatchNote(n note.ClinicalNote) ([]ExtractedSymptomEvent, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	normalized := note.Normalize(n.RawText)
	return m.match(n, normalized), nil
}

// match runs the longest-match-first, leftmost scan over every clause.
func (m *Matcher) match(n note.ClinicalNote, text note.NormalizedText) []ExtractedSymptomEvent {
	var events []ExtractedSymptomEvent

	for _, clause := range text.Clauses {
		tokens := tokenize(text.Text[clause.Start:clause.End], clause.Start)

		i := 0
		for i < len(tokens) {
			matched := false

			// Longest candidate first so a specific phrase is never also
			// counted as the generic phrase it contains.  Once a span is
			// consumed, no shorter overlapping match inside it is emitted.
			limit := m.index.MaxTokens()
			if rest := len(tokens) - i; rest < limit {
				limit = rest
			}
			for size := limit; size >= 1; size-- {
				rec, ok := m.index.Lookup(joinTokens(tokens[i : i+size]))
				if !ok {
					continue
				}

				windowStart := i - m.opts.NegationWindow
				if windowStart < 0 {
					windowStart = 0
				}
				start := tokens[i].start
				end := tokens[i+size-1].end

				ev := ExtractedSymptomEvent{
					PatientID:          n.PatientID,
					NoteID:             n.NoteID,
					DateOfService:      n.DateOfService,
					SymptomID:          rec.SymptomID,
					SymptomSegment:     rec.SymptomSegment,
					Diagnosis:          rec.Diagnosis,
					DiagnosticCategory: rec.DiagnosticCategory,
					ICD10Code:          rec.ICD10Code,
					Negated:            negatedBy(tokens[windowStart:i]),
					StartOffset:        start,
					EndOffset:          end,
					Snippet:            text.Snippet(start, end),
				}
				if label, ok := rec.HRSNIndicator(); ok {
					ev.HRSNIndicator = label
				}
				events = append(events, ev)

				i += size
				matched = true
				break
			}

			if !matched {
				i++
			}
		}
	}

	if !m.opts.PreserveDuplicates {
		events = dedupePerNote(events)
	}
	return events
}

// dedupePerNote keeps the first occurrence per symptom ID, preserving scan
// order for the survivors.
func dedupePerNote(events []ExtractedSymptomEvent) []ExtractedSymptomEvent {
	seen := make(map[string]bool, len(events))
	out := events[:0]
	for _, ev := range events {
		if seen[ev.SymptomID] {
			continue
		}
		seen[ev.SymptomID] = true
		out = append(out, ev)
	}
	return out
}
