package safety

import "regexp"

// Reply shape rules enforced after generation, regardless of path.
const (
	MinReplySentences = 2
	MaxReplySentences = 5
)

// personalInfoPatterns reject content that leaks phone numbers, email
// addresses or ZIP codes.
var personalInfoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`),
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	regexp.MustCompile(`\b\d{5}(?:[-\s]\d{4})?\b`),
}

// harmfulPhrases are rejected outright, lowercase substring match.
var harmfulPhrases = []string{
	"kill yourself", "harm yourself", "suicide method",
	"illegal drug source", "buy drugs", "sell drugs",
}

// urlPattern finds link markers anywhere in reply text. Replies must never
// carry links, whichever path produced them.
var urlPattern = regexp.MustCompile(`(?i)(https?://|www\.)`)

// ContainsURL reports whether text carries any link marker.
func ContainsURL(text string) bool {
	return urlPattern.MatchString(text)
}
