package collab

import "strings"

// Kind classifies an operator response.
type Kind string

// Kind values.
const (
	// KindApproved creates a grant when the request names an operation.
	KindApproved Kind = "approved"

	// KindRejected resumes the waiter without a grant; the call fails.
	KindRejected Kind = "rejected"

	// KindInformational is any free-form text. It resumes the waiter but
	// the agent must re-interpret the response itself.
	KindInformational Kind = "informational"
)

// The approval and rejection vocabularies are part of the stable external
// contract; do not change them without a compatibility note.
var (
	approvalWords  = []string{"yes", "ok", "proceed", "approve", "confirm"}
	rejectionWords = []string{"no", "cancel", "stop", "deny"}
)

// Classify maps operator text to a response kind. Matching is
// case-insensitive on the leading word so "Yes, proceed" approves, and
// punctuation after the keyword is ignored.
func Classify(text string) Kind {
	word := leadingWord(text)
	for _, w := range approvalWords {
		if word == w {
			return KindApproved
		}
	}
	for _, w := range rejectionWords {
		if word == w {
			return KindRejected
		}
	}
	return KindInformational
}

// leadingWord extracts the first alphabetic run of the text, lowercased.
func leadingWord(text string) string {
	text = strings.TrimSpace(strings.ToLower(text))
	end := 0
	for end < len(text) {
		c := text[end]
		if c < 'a' || c > 'z' {
			break
		}
		end++
	}
	return text[:end]
}
