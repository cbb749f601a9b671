package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	t.Parallel()

	choices := []string{"Strongly disagree", "Disagree", "Neutral", "Agree", "Strongly agree"}

	type testCase struct {
		name        string
		value       string
		choices     []string
		expected    int
		expectedErr bool
	}

	testCases := []testCase{
		{
			name:     "first choice scores one",
			value:    "Strongly disagree",
			choices:  choices,
			expected: 1,
		},
		{
			name:     "last choice scores list length",
			value:    "Strongly agree",
			choices:  choices,
			expected: 5,
		},
		{
			name:     "surrounding whitespace is trimmed on the value",
			value:    "  Neutral  ",
			choices:  choices,
			expected: 3,
		},
		{
			name:     "surrounding whitespace is trimmed on the choices",
			value:    "Agree",
			choices:  []string{" Disagree ", " Agree "},
			expected: 2,
		},
		{
			name:        "comparison is case-sensitive",
			value:       "neutral",
			choices:     choices,
			expectedErr: true,
		},
		{
			name:        "value absent from choices",
			value:       "Maybe",
			choices:     choices,
			expectedErr: true,
		},
		{
			name:        "free text has no choices and is never scored",
			value:       "anything at all",
			choices:     nil,
			expectedErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := Score(tc.value, tc.choices)
			if tc.expectedErr {
				require.ErrorIs(t, err, ErrUnscorableAnswer)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.expected, got)
		})
	}
}
