package analysis

import (
	"errors"
	"strings"
)

// ErrUnscorableAnswer marks an answer whose value has no position in its
// question's choice list. It never leaves the aggregation: unscorable
// answers are simply excluded from the totals.
var ErrUnscorableAnswer = errors.New("answer value is not in the question's choice list")

// Score returns the 1-based position of value within choices. Both sides are
// compared after trimming surrounding whitespace; the comparison is
// case-sensitive. Free-text questions carry no choices and are therefore
// always unscorable.
func Score(value string, choices []string) (int, error) {
	needle := strings.TrimSpace(value)
	for i, choice := range choices {
		if strings.TrimSpace(choice) == needle {
			return i + 1, nil
		}
	}
	return 0, ErrUnscorableAnswer
}
