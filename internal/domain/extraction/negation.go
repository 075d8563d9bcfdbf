package extraction

import "strings"

// negationCues is the fixed cue vocabulary.  Deliberately small and explicit:
// the clause boundary limits scope, and widening this list is a clinical
// review decision, not an engineering one.
//
// Multi-word cues are matched as token subsequences inside the window.
var negationCues = []string{
	"no",
	"not",
	"denies",
	"denied",
	"denying",
	"without",
	"never",
	"negative for",
	"no evidence of",
	"rules out",
	"ruled out",
}

// defaultNegationWindow is the number of preceding tokens inspected when the
// caller does not configure one.
const defaultNegationWindow = 5

// negatedBy reports whether the window of tokens preceding a match contains a
// negation cue.  The window is already bounded to the match's clause by the
// caller; this function only inspects what it is given.
func negatedBy(window []token) bool {
	if len(window) == 0 {
		return false
	}
	parts := make([]string, len(window))
	for i, t := range window {
		parts[i] = t.text
	}
	haystack := " " + strings.Join(parts, " ") + " "
	for _, cue := range negationCues {
		if strings.Contains(haystack, " "+cue+" ") {
			return true
		}
	}
	return false
}
