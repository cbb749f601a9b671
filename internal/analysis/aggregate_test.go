package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAggregate_Empty(t *testing.T) {
	t.Parallel()

	summary := Aggregate(nil)
	require.Empty(t, summary.Dimensions)
	require.Empty(t, summary.Areas)
}

func TestAggregate_DimensionAverage(t *testing.T) {
	t.Parallel()

	choices := []string{"1", "2", "3", "4", "5"}
	items := []ScoredInput{
		{Dimension: "D1", Choices: choices, Value: "1"},
		{Dimension: "D1", Choices: choices, Value: "3"},
		{Dimension: "D1", Choices: choices, Value: "5"},
	}

	summary := Aggregate(items)

	bucket, ok := summary.Dimension("D1")
	require.True(t, ok)
	require.InDelta(t, 3.0, bucket.Average, 1e-9)
	require.Equal(t, 3, bucket.Count)
	require.Empty(t, summary.Areas)
}

func TestAggregate_SplitsByDimensionAndArea(t *testing.T) {
	t.Parallel()

	choices := []string{"Low", "Medium", "High"}
	items := []ScoredInput{
		{Dimension: "Culture", Area: "Engineering", Choices: choices, Value: "High"},
		{Dimension: "Culture", Area: "Engineering", Choices: choices, Value: "Low"},
		{Dimension: "Process", Choices: choices, Value: "Medium"},
		{Area: "Sales", Choices: choices, Value: "Medium"},
	}

	summary := Aggregate(items)

	culture, ok := summary.Dimension("Culture")
	require.True(t, ok)
	require.InDelta(t, 2.0, culture.Average, 1e-9)
	require.Equal(t, 2, culture.Count)

	process, ok := summary.Dimension("Process")
	require.True(t, ok)
	require.InDelta(t, 2.0, process.Average, 1e-9)
	require.Equal(t, 1, process.Count)

	engineering, ok := summary.Area("Engineering")
	require.True(t, ok)
	require.InDelta(t, 2.0, engineering.Average, 1e-9)

	sales, ok := summary.Area("Sales")
	require.True(t, ok)
	require.Equal(t, 1, sales.Count)
}

func TestAggregate_UnscorableAnswersAreExcluded(t *testing.T) {
	t.Parallel()

	choices := []string{"Yes", "No"}
	items := []ScoredInput{
		{Dimension: "D1", Choices: choices, Value: "Yes"},
		{Dimension: "D1", Choices: choices, Value: "Definitely"},
		// Free-text answers tagged with an area never produce a bucket.
		{Area: "A1", Choices: nil, Value: "long form feedback"},
		{Area: "A1", Choices: nil, Value: "more feedback"},
	}

	summary := Aggregate(items)

	bucket, ok := summary.Dimension("D1")
	require.True(t, ok)
	require.Equal(t, 1, bucket.Count)
	require.InDelta(t, 1.0, bucket.Average, 1e-9)

	_, ok = summary.Area("A1")
	require.False(t, ok, "a bucket with zero scored entries must be absent")
}

func TestAggregate_UntaggedQuestionsIgnored(t *testing.T) {
	t.Parallel()

	items := []ScoredInput{
		{Choices: []string{"A", "B"}, Value: "A"},
	}

	summary := Aggregate(items)
	require.Empty(t, summary.Dimensions)
	require.Empty(t, summary.Areas)
}

func TestAggregate_BucketOrderIsFirstAppearance(t *testing.T) {
	t.Parallel()

	choices := []string{"1", "2"}
	items := []ScoredInput{
		{Dimension: "Beta", Choices: choices, Value: "1"},
		{Dimension: "Alpha", Choices: choices, Value: "2"},
		{Dimension: "Beta", Choices: choices, Value: "2"},
	}

	summary := Aggregate(items)

	require.Len(t, summary.Dimensions, 2)
	require.Equal(t, "Beta", summary.Dimensions[0].Tag)
	require.Equal(t, "Alpha", summary.Dimensions[1].Tag)
}
