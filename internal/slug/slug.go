// Package slug allocates the URL-safe identifiers surveys are addressed by.
package slug

import (
	"fmt"
	"math/rand"
	"strings"

	"surveyhub/survey-backend/internal"

	"github.com/google/uuid"
)

// MaxAttempts bounds the collision retry loop. Collisions are rare in
// practice; the bound exists so adversarial input cannot spin the loop.
const MaxAttempts = 100

const suffixLength = 5

// ExistsFunc reports whether a candidate slug is taken and, if so, by which
// record. Lookup errors abort generation.
type ExistsFunc func(candidate string) (uuid.UUID, bool, error)

// Generate turns name into a URL-safe slug that is unused by any record
// other than preserveID. Re-saving an unchanged record therefore keeps its
// slug. When the plain slug is taken, a random 5-letter suffix plus an
// incrementing counter is appended until a free candidate is found or
// MaxAttempts is exhausted.
func Generate(name string, exists ExistsFunc, preserveID uuid.UUID) (string, error) {
	base := Slugify(name)
	if base == "" {
		base = "survey"
	}

	candidate := base
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		owner, taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken || owner == preserveID {
			return candidate, nil
		}

		candidate = fmt.Sprintf("%s-%s-%d", base, randomSuffix(), attempt)
	}

	return "", internal.ErrSlugExhausted
}

// Slugify lowercases name and collapses every run of non-alphanumeric
// characters into a single hyphen.
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	pendingHyphen := false
	for _, r := range strings.ToLower(name) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			if b.Len() > 0 {
				pendingHyphen = true
			}
			continue
		}
		if pendingHyphen {
			b.WriteByte('-')
			pendingHyphen = false
		}
		b.WriteRune(r)
	}

	return b.String()
}

func randomSuffix() string {
	letters := make([]byte, suffixLength)
	for i := range letters {
		letters[i] = byte('a' + rand.Intn(26))
	}
	return string(letters)
}
