// Package access holds the visibility rules for surveys and responses as
// pure predicates over snapshots. Every enforcement point in the services
// goes through here so the role branching lives in exactly one place.
package access

import (
	"strings"

	"surveyhub/survey-backend/internal"

	"github.com/google/uuid"
)

// Survey is the policy-relevant snapshot of a survey. Services build it from
// their own row types; the policy never touches storage.
type Survey struct {
	ID                       uuid.UUID
	CreatedBy                uuid.UUID
	Published                bool
	AllowMultipleSubmissions bool
	RecipientEmails          []string
	HasPassword              bool
}

// CanAuthor reports whether the actor may create surveys and manage
// questions.
func CanAuthor(actor internal.Actor) bool {
	return actor.IsSuperuser()
}

// CanList reports whether the actor may see the survey at all: superusers
// and creators always, everyone else only once it is published and, when an
// allow-list is set, only when their email is on it.
func CanList(actor internal.Actor, s Survey) bool {
	if actor.IsSuperuser() || actor.ID == s.CreatedBy {
		return true
	}
	if !s.Published {
		return false
	}
	if len(s.RecipientEmails) == 0 {
		return true
	}
	return emailInvited(actor.Email, s.RecipientEmails)
}

// CanSubmit reports whether the actor may submit a response. hasPrior is
// whether the actor already has a response for this survey; passwordOK is
// whether the matching access password was supplied (session tracking is the
// caller's concern).
func CanSubmit(actor internal.Actor, s Survey, hasPrior bool, passwordOK bool) bool {
	if !CanList(actor, s) {
		return false
	}
	if hasPrior && !s.AllowMultipleSubmissions {
		return false
	}
	if s.HasPassword && !passwordOK {
		return false
	}
	return true
}

// CanViewResponses reports whether the actor may view the responses of the
// requested respondent. requestedID == uuid.Nil asks for all respondents,
// which only superusers and the creator get.
func CanViewResponses(actor internal.Actor, s Survey, requestedID uuid.UUID) bool {
	if actor.IsSuperuser() || actor.ID == s.CreatedBy {
		return true
	}
	return requestedID != uuid.Nil && requestedID == actor.ID
}

// CanDeleteResponse reports whether the actor may delete a response of the
// survey created by surveyCreator.
func CanDeleteResponse(actor internal.Actor, surveyCreator uuid.UUID) bool {
	return actor.IsSuperuser() || actor.ID == surveyCreator
}

func emailInvited(email string, invited []string) bool {
	needle := strings.ToLower(strings.TrimSpace(email))
	if needle == "" {
		return false
	}
	for _, candidate := range invited {
		if strings.ToLower(strings.TrimSpace(candidate)) == needle {
			return true
		}
	}
	return false
}
