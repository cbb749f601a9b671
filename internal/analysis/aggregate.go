package analysis

import "errors"

// ScoredInput is one answer joined with the scoring-relevant parts of its
// question.
type ScoredInput struct {
	Dimension string
	Area      string
	Choices   []string
	Value     string
}

// Bucket is the aggregate for one dimension or area tag.
type Bucket struct {
	Tag     string  `json:"tag"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Summary groups score averages by dimension and by area. Buckets appear in
// order of first appearance in the input, which keeps output deterministic
// for a given response set.
type Summary struct {
	Dimensions []Bucket `json:"dimensions"`
	Areas      []Bucket `json:"areas"`
}

func (s Summary) Dimension(tag string) (Bucket, bool) {
	return findBucket(s.Dimensions, tag)
}

func (s Summary) Area(tag string) (Bucket, bool) {
	return findBucket(s.Areas, tag)
}

func findBucket(buckets []Bucket, tag string) (Bucket, bool) {
	for _, b := range buckets {
		if b.Tag == tag {
			return b, true
		}
	}
	return Bucket{}, false
}

// Aggregate scores each input and accumulates the scores into dimension and
// area buckets. Unscorable answers are skipped; a tag that never received a
// scored answer does not appear in the result, so no bucket ever averages
// over zero entries.
func Aggregate(items []ScoredInput) Summary {
	dimensions := newAccumulator()
	areas := newAccumulator()

	for _, item := range items {
		score, err := Score(item.Value, item.Choices)
		if errors.Is(err, ErrUnscorableAnswer) {
			continue
		}

		if item.Dimension != "" {
			dimensions.add(item.Dimension, score)
		}
		if item.Area != "" {
			areas.add(item.Area, score)
		}
	}

	return Summary{
		Dimensions: dimensions.buckets(),
		Areas:      areas.buckets(),
	}
}

type accumulator struct {
	order  []string
	scores map[string][]int
}

func newAccumulator() *accumulator {
	return &accumulator{scores: make(map[string][]int)}
}

func (a *accumulator) add(tag string, score int) {
	if _, seen := a.scores[tag]; !seen {
		a.order = append(a.order, tag)
	}
	a.scores[tag] = append(a.scores[tag], score)
}

func (a *accumulator) buckets() []Bucket {
	buckets := make([]Bucket, 0, len(a.order))
	for _, tag := range a.order {
		scores := a.scores[tag]

		sum := 0
		for _, s := range scores {
			sum += s
		}

		buckets = append(buckets, Bucket{
			Tag:     tag,
			Average: float64(sum) / float64(len(scores)),
			Count:   len(scores),
		})
	}
	return buckets
}
