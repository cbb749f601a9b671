package slug

import (
	"errors"
	"strings"
	"testing"

	"surveyhub/survey-backend/internal"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	t.Parallel()

	type testCase struct {
		name     string
		input    string
		expected string
	}

	testCases := []testCase{
		{name: "simple title", input: "Customer Satisfaction", expected: "customer-satisfaction"},
		{name: "mixed case and punctuation", input: "Q3 Review: Team Health!", expected: "q3-review-team-health"},
		{name: "collapses separator runs", input: "a  --  b", expected: "a-b"},
		{name: "trims leading and trailing separators", input: "  hello  ", expected: "hello"},
		{name: "empty input", input: "", expected: ""},
		{name: "only punctuation", input: "!!!", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.expected, Slugify(tc.input))
		})
	}
}

func TestGenerate_FreeSlug(t *testing.T) {
	t.Parallel()

	exists := func(candidate string) (uuid.UUID, bool, error) {
		return uuid.Nil, false, nil
	}

	got, err := Generate("Team Health Check", exists, uuid.Nil)
	require.NoError(t, err)
	require.Equal(t, "team-health-check", got)
}

func TestGenerate_PreservesOwnSlug(t *testing.T) {
	t.Parallel()

	ownID := uuid.New()
	exists := func(candidate string) (uuid.UUID, bool, error) {
		if candidate == "team-health-check" {
			return ownID, true, nil
		}
		return uuid.Nil, false, nil
	}

	// Re-saving the same record with the same name must not change the slug.
	first, err := Generate("Team Health Check", exists, ownID)
	require.NoError(t, err)
	second, err := Generate("Team Health Check", exists, ownID)
	require.NoError(t, err)

	require.Equal(t, "team-health-check", first)
	require.Equal(t, first, second)
}

func TestGenerate_CollisionAppendsSuffix(t *testing.T) {
	t.Parallel()

	otherID := uuid.New()
	exists := func(candidate string) (uuid.UUID, bool, error) {
		if candidate == "survey" {
			return otherID, true, nil
		}
		return uuid.Nil, false, nil
	}

	got, err := Generate("Survey", exists, uuid.Nil)
	require.NoError(t, err)
	require.NotEqual(t, "survey", got)
	require.True(t, strings.HasPrefix(got, "survey-"))
	require.True(t, strings.HasSuffix(got, "-1"))

	// The generated slug is URL-safe.
	require.Regexp(t, `^[a-z0-9]+(?:-[a-z0-9]+)*$`, got)
}

func TestGenerate_EmptyNameFallsBack(t *testing.T) {
	t.Parallel()

	exists := func(candidate string) (uuid.UUID, bool, error) {
		return uuid.Nil, false, nil
	}

	got, err := Generate("!!!", exists, uuid.Nil)
	require.NoError(t, err)
	require.Equal(t, "survey", got)
}

func TestGenerate_Exhaustion(t *testing.T) {
	t.Parallel()

	otherID := uuid.New()
	calls := 0
	exists := func(candidate string) (uuid.UUID, bool, error) {
		calls++
		return otherID, true, nil
	}

	_, err := Generate("popular", exists, uuid.Nil)
	require.ErrorIs(t, err, internal.ErrSlugExhausted)
	require.Equal(t, MaxAttempts, calls)
}

func TestGenerate_LookupErrorAborts(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	exists := func(candidate string) (uuid.UUID, bool, error) {
		return uuid.Nil, false, boom
	}

	_, err := Generate("anything", exists, uuid.Nil)
	require.ErrorIs(t, err, boom)
}
