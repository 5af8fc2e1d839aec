package review

import "strings"

// Verdict is the structured result of a review stage. Free-text parsing
// of reviewer prose is confined to ParseVerdict; everything downstream
// of the reviewer boundary works with this type.
type Verdict struct {
	Approved  bool   `json:"approved"`
	Reasoning string `json:"reasoning"`
}

type keyword struct {
	word     string
	approved bool
}

var (
	plainKeywords = []keyword{
		{"APPROVE", true},
		{"REJECT", false},
	}
	executiveKeywords = []keyword{
		{"EXECUTIVE APPROVE", true},
		{"EXECUTIVE REJECT", false},
	}
)

// ParseVerdict extracts a verdict from reviewer prose. The text is
// expected to start with an approve/reject keyword followed by the
// justification, but reviewers wrap keywords in markdown emphasis and
// sometimes bury them mid-sentence, so the parser:
//
//  1. strips markdown emphasis characters,
//  2. locates the verdict keyword case-insensitively (the executive
//     stage prefers the EXECUTIVE-prefixed forms, falling back to the
//     plain ones); when both keywords appear, the earliest wins,
//  3. takes everything after the keyword, minus leading punctuation,
//     as the reasoning.
//
// If no keyword is found the verdict is a rejection carrying the whole
// cleaned text as reasoning; reviewer output is never discarded.
func ParseVerdict(text string, executive bool) Verdict {
	cleaned := strings.TrimSpace(stripEmphasis(text))
	upper := strings.ToUpper(cleaned)

	if executive {
		if v, ok := matchKeywords(cleaned, upper, executiveKeywords); ok {
			return v
		}
	}
	if v, ok := matchKeywords(cleaned, upper, plainKeywords); ok {
		return v
	}
	return Verdict{Approved: false, Reasoning: cleaned}
}

// matchKeywords finds the earliest keyword occurrence and splits out
// the trailing reasoning.
func matchKeywords(cleaned, upper string, kws []keyword) (Verdict, bool) {
	best := -1
	var hit keyword
	for _, kw := range kws {
		idx := strings.Index(upper, kw.word)
		if idx < 0 {
			continue
		}
		if best < 0 || idx < best {
			best = idx
			hit = kw
		}
	}
	if best < 0 {
		return Verdict{}, false
	}
	reason := cleaned[best+len(hit.word):]
	reason = strings.TrimLeft(reason, " \t\n:;,.-")
	return Verdict{Approved: hit.approved, Reasoning: strings.TrimSpace(reason)}, true
}

// stripEmphasis removes markdown emphasis characters so keywords like
// **APPROVE** or `REJECT` still match.
func stripEmphasis(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '*', '_', '`', '#':
			return -1
		}
		return r
	}, s)
}
