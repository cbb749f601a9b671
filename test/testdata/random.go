// Package testdata provides random fixture values for tests.
package testdata

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
)

func RandomSurveyName() string {
	return fmt.Sprintf("%s %s Survey", gofakeit.AdjectiveDescriptive(), gofakeit.NounAbstract())
}

func RandomDescription() string {
	return gofakeit.Sentence(8)
}

func RandomEmail() string {
	return strings.ToLower(gofakeit.Email())
}

func RandomQuestionLabel() string {
	return gofakeit.Question()
}
