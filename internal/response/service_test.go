package response

import (
	"context"
	"testing"

	"surveyhub/survey-backend/internal"
	"surveyhub/survey-backend/internal/question"
	"surveyhub/survey-backend/internal/survey"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

type mockQuerier struct {
	mock.Mock
}

func (m *mockQuerier) CreateResponse(ctx context.Context, arg CreateResponseParams) (Response, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(Response), args.Error(1)
}

func (m *mockQuerier) CreateAnswer(ctx context.Context, arg CreateAnswerParams) (Answer, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(Answer), args.Error(1)
}

func (m *mockQuerier) ExistsBySurveyAndRespondent(ctx context.Context, surveyID, respondentID uuid.UUID) (bool, error) {
	args := m.Called(ctx, surveyID, respondentID)
	return args.Bool(0), args.Error(1)
}

func (m *mockQuerier) Get(ctx context.Context, id uuid.UUID) (Response, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Response), args.Error(1)
}

func (m *mockQuerier) ListBySurveyID(ctx context.Context, surveyID uuid.UUID) ([]Response, error) {
	args := m.Called(ctx, surveyID)
	return args.Get(0).([]Response), args.Error(1)
}

func (m *mockQuerier) ListBySurveyIDAndRespondent(ctx context.Context, surveyID, respondentID uuid.UUID) ([]Response, error) {
	args := m.Called(ctx, surveyID, respondentID)
	return args.Get(0).([]Response), args.Error(1)
}

func (m *mockQuerier) ListAnswersByResponseIDs(ctx context.Context, responseIDs []uuid.UUID) ([]Answer, error) {
	args := m.Called(ctx, responseIDs)
	return args.Get(0).([]Answer), args.Error(1)
}

func (m *mockQuerier) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockSurveyGetter struct {
	mock.Mock
}

func (m *mockSurveyGetter) GetByID(ctx context.Context, id uuid.UUID) (survey.Survey, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(survey.Survey), args.Error(1)
}

type mockQuestionLister struct {
	mock.Mock
}

func (m *mockQuestionLister) ListBySurvey(ctx context.Context, actor internal.Actor, surveyID uuid.UUID) ([]question.Question, error) {
	args := m.Called(ctx, actor, surveyID)
	return args.Get(0).([]question.Question), args.Error(1)
}

// passthroughTxRunner hands fn the same querier and counts invocations, so
// tests can assert nothing was written when validation fails.
type passthroughTxRunner struct {
	queries Querier
	calls   int
}

func (r *passthroughTxRunner) RunInTx(_ context.Context, fn func(q Querier) error) error {
	r.calls++
	return fn(r.queries)
}

func newTestService(queries Querier, tx TxRunner, surveys SurveyGetter, questions QuestionLister) *Service {
	return &Service{
		logger:    zap.NewNop(),
		queries:   queries,
		tracer:    noop.NewTracerProvider().Tracer("test"),
		tx:        tx,
		surveys:   surveys,
		questions: questions,
	}
}

func TestService_Submit(t *testing.T) {
	t.Parallel()

	authorID := uuid.New()
	surveyID := uuid.New()
	respondent := internal.Actor{ID: uuid.New(), Email: "member@example.com", Role: internal.RoleUser}

	published := survey.Survey{ID: surveyID, Published: true, CreatedBy: authorID}

	requiredText := question.Question{
		ID: uuid.New(), SurveyID: surveyID,
		Label: "Anything to add?", FieldType: question.FieldTypeFreeText, IsRequired: true,
	}
	singleChoice := question.Question{
		ID: uuid.New(), SurveyID: surveyID,
		Label: "Rating", FieldType: question.FieldTypeSingleChoice, Choices: []string{"Low", "Mid", "High"},
	}
	multiSelect := question.Question{
		ID: uuid.New(), SurveyID: surveyID,
		Label: "Topics", FieldType: question.FieldTypeMultiSelect, Choices: []string{"Pay", "Workload", "Growth"},
	}

	t.Run("Should persist nothing when a required answer is missing", func(t *testing.T) {
		t.Parallel()

		queries := new(mockQuerier)
		queries.On("ExistsBySurveyAndRespondent", mock.Anything, surveyID, respondent.ID).Return(false, nil)

		surveys := new(mockSurveyGetter)
		surveys.On("GetByID", mock.Anything, surveyID).Return(published, nil)

		lister := new(mockQuestionLister)
		lister.On("ListBySurvey", mock.Anything, respondent, surveyID).
			Return([]question.Question{requiredText, singleChoice}, nil)

		tx := &passthroughTxRunner{queries: queries}
		service := newTestService(queries, tx, surveys, lister)

		_, err := service.Submit(context.Background(), respondent, surveyID, SubmitInput{
			Answers: []AnswerInput{
				{QuestionID: requiredText.ID, Value: "   "},
				{QuestionID: singleChoice.ID, Value: "Mid"},
			},
		})
		require.ErrorIs(t, err, internal.ErrRequiredFieldMissing)
		require.Zero(t, tx.calls)
	})

	t.Run("Should reject a value outside the question's choices", func(t *testing.T) {
		t.Parallel()

		queries := new(mockQuerier)
		queries.On("ExistsBySurveyAndRespondent", mock.Anything, surveyID, respondent.ID).Return(false, nil)

		surveys := new(mockSurveyGetter)
		surveys.On("GetByID", mock.Anything, surveyID).Return(published, nil)

		lister := new(mockQuestionLister)
		lister.On("ListBySurvey", mock.Anything, respondent, surveyID).
			Return([]question.Question{singleChoice}, nil)

		tx := &passthroughTxRunner{queries: queries}
		service := newTestService(queries, tx, surveys, lister)

		_, err := service.Submit(context.Background(), respondent, surveyID, SubmitInput{
			Answers: []AnswerInput{{QuestionID: singleChoice.ID, Value: "Extreme"}},
		})
		require.ErrorIs(t, err, internal.ErrValidationFailed)
		require.Zero(t, tx.calls)
	})

	t.Run("Should reject a second submission when not allowed", func(t *testing.T) {
		t.Parallel()

		queries := new(mockQuerier)
		queries.On("ExistsBySurveyAndRespondent", mock.Anything, surveyID, respondent.ID).Return(true, nil)

		surveys := new(mockSurveyGetter)
		surveys.On("GetByID", mock.Anything, surveyID).Return(published, nil)

		service := newTestService(queries, &passthroughTxRunner{queries: queries}, surveys, new(mockQuestionLister))

		_, err := service.Submit(context.Background(), respondent, surveyID, SubmitInput{})
		require.ErrorIs(t, err, internal.ErrDuplicateSubmission)
	})

	t.Run("Should reject a wrong access password", func(t *testing.T) {
		t.Parallel()

		protected := published
		protected.AccessPassword = pgtype.Text{String: "secret", Valid: true}

		queries := new(mockQuerier)
		queries.On("ExistsBySurveyAndRespondent", mock.Anything, surveyID, respondent.ID).Return(false, nil)

		surveys := new(mockSurveyGetter)
		surveys.On("GetByID", mock.Anything, surveyID).Return(protected, nil)

		service := newTestService(queries, &passthroughTxRunner{queries: queries}, surveys, new(mockQuestionLister))

		_, err := service.Submit(context.Background(), respondent, surveyID, SubmitInput{Password: "guess"})
		require.ErrorIs(t, err, internal.ErrSurveyPasswordInvalid)
	})

	t.Run("Should deny uninvited respondent on allow-listed survey", func(t *testing.T) {
		t.Parallel()

		restricted := published
		restricted.RecipientEmails = []string{"someone-else@example.com"}

		surveys := new(mockSurveyGetter)
		surveys.On("GetByID", mock.Anything, surveyID).Return(restricted, nil)

		service := newTestService(new(mockQuerier), &passthroughTxRunner{}, surveys, new(mockQuestionLister))

		_, err := service.Submit(context.Background(), respondent, surveyID, SubmitInput{})
		require.ErrorIs(t, err, internal.ErrAccessDenied)
	})

	t.Run("Should store the response and its answers in one transaction", func(t *testing.T) {
		t.Parallel()

		responseID := uuid.New()

		queries := new(mockQuerier)
		queries.On("ExistsBySurveyAndRespondent", mock.Anything, surveyID, respondent.ID).Return(false, nil)
		queries.On("CreateResponse", mock.Anything, mock.MatchedBy(func(arg CreateResponseParams) bool {
			return arg.SurveyID == surveyID && arg.RespondentID.Valid && arg.RespondentEmail == respondent.Email
		})).Return(Response{ID: responseID, SurveyID: surveyID}, nil)
		queries.On("CreateAnswer", mock.Anything, mock.MatchedBy(func(arg CreateAnswerParams) bool {
			return arg.ResponseID == responseID
		})).Return(Answer{ResponseID: responseID}, nil).Times(3)

		surveys := new(mockSurveyGetter)
		surveys.On("GetByID", mock.Anything, surveyID).Return(published, nil)

		lister := new(mockQuestionLister)
		lister.On("ListBySurvey", mock.Anything, respondent, surveyID).
			Return([]question.Question{requiredText, multiSelect}, nil)

		tx := &passthroughTxRunner{queries: queries}
		service := newTestService(queries, tx, surveys, lister)

		detail, err := service.Submit(context.Background(), respondent, surveyID, SubmitInput{
			Answers: []AnswerInput{
				{QuestionID: requiredText.ID, Value: "All good"},
				{QuestionID: multiSelect.ID, Value: "Pay"},
				{QuestionID: multiSelect.ID, Value: "Growth"},
			},
		})
		require.NoError(t, err)
		require.Equal(t, 1, tx.calls)
		require.Len(t, detail.Answers, 3)

		queries.AssertExpectations(t)
	})

	t.Run("Should accept anonymous submission on an open survey", func(t *testing.T) {
		t.Parallel()

		responseID := uuid.New()

		queries := new(mockQuerier)
		queries.On("CreateResponse", mock.Anything, mock.MatchedBy(func(arg CreateResponseParams) bool {
			return !arg.RespondentID.Valid
		})).Return(Response{ID: responseID, SurveyID: surveyID}, nil)

		surveys := new(mockSurveyGetter)
		surveys.On("GetByID", mock.Anything, surveyID).Return(published, nil)

		lister := new(mockQuestionLister)
		lister.On("ListBySurvey", mock.Anything, internal.Actor{}, surveyID).
			Return([]question.Question{singleChoice}, nil)

		tx := &passthroughTxRunner{queries: queries}
		service := newTestService(queries, tx, surveys, lister)

		_, err := service.Submit(context.Background(), internal.Actor{}, surveyID, SubmitInput{})
		require.NoError(t, err)
		queries.AssertNotCalled(t, "ExistsBySurveyAndRespondent", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_List(t *testing.T) {
	t.Parallel()

	authorID := uuid.New()
	surveyID := uuid.New()
	author := internal.Actor{ID: authorID, Role: internal.RoleSuperuser}
	respondent := internal.Actor{ID: uuid.New(), Email: "member@example.com", Role: internal.RoleUser}

	published := survey.Survey{ID: surveyID, Published: true, CreatedBy: authorID}

	t.Run("Should scope an unfiltered request from a respondent to themselves", func(t *testing.T) {
		t.Parallel()

		own := Response{ID: uuid.New(), SurveyID: surveyID}

		queries := new(mockQuerier)
		queries.On("ListBySurveyIDAndRespondent", mock.Anything, surveyID, respondent.ID).
			Return([]Response{own}, nil)
		queries.On("ListAnswersByResponseIDs", mock.Anything, []uuid.UUID{own.ID}).
			Return([]Answer{}, nil)

		surveys := new(mockSurveyGetter)
		surveys.On("GetByID", mock.Anything, surveyID).Return(published, nil)

		service := newTestService(queries, nil, surveys, nil)

		details, err := service.List(context.Background(), respondent, surveyID, uuid.Nil)
		require.NoError(t, err)
		require.Len(t, details, 1)
		queries.AssertNotCalled(t, "ListBySurveyID", mock.Anything, mock.Anything)
	})

	t.Run("Should deny an anonymous caller", func(t *testing.T) {
		t.Parallel()

		surveys := new(mockSurveyGetter)
		surveys.On("GetByID", mock.Anything, surveyID).Return(published, nil)

		service := newTestService(new(mockQuerier), nil, surveys, nil)

		_, err := service.List(context.Background(), internal.Actor{}, surveyID, uuid.Nil)
		require.ErrorIs(t, err, internal.ErrAccessDenied)
	})

	t.Run("Should scope respondent to their own responses", func(t *testing.T) {
		t.Parallel()

		own := Response{ID: uuid.New(), SurveyID: surveyID}

		queries := new(mockQuerier)
		queries.On("ListBySurveyIDAndRespondent", mock.Anything, surveyID, respondent.ID).
			Return([]Response{own}, nil)
		queries.On("ListAnswersByResponseIDs", mock.Anything, []uuid.UUID{own.ID}).
			Return([]Answer{{ResponseID: own.ID, Value: "Mid"}}, nil)

		surveys := new(mockSurveyGetter)
		surveys.On("GetByID", mock.Anything, surveyID).Return(published, nil)

		service := newTestService(queries, nil, surveys, nil)

		details, err := service.List(context.Background(), respondent, surveyID, respondent.ID)
		require.NoError(t, err)
		require.Len(t, details, 1)
		require.Len(t, details[0].Answers, 1)
	})

	t.Run("Should give the creator every response", func(t *testing.T) {
		t.Parallel()

		first := Response{ID: uuid.New(), SurveyID: surveyID}
		second := Response{ID: uuid.New(), SurveyID: surveyID}

		queries := new(mockQuerier)
		queries.On("ListBySurveyID", mock.Anything, surveyID).Return([]Response{first, second}, nil)
		queries.On("ListAnswersByResponseIDs", mock.Anything, []uuid.UUID{first.ID, second.ID}).
			Return([]Answer{}, nil)

		surveys := new(mockSurveyGetter)
		surveys.On("GetByID", mock.Anything, surveyID).Return(published, nil)

		service := newTestService(queries, nil, surveys, nil)

		details, err := service.List(context.Background(), author, surveyID, uuid.Nil)
		require.NoError(t, err)
		require.Len(t, details, 2)
	})
}

func TestService_Delete(t *testing.T) {
	t.Parallel()

	authorID := uuid.New()
	surveyID := uuid.New()
	responseID := uuid.New()

	existing := Response{ID: responseID, SurveyID: surveyID}
	parent := survey.Survey{ID: surveyID, Published: true, CreatedBy: authorID}

	t.Run("Should deny a plain respondent", func(t *testing.T) {
		t.Parallel()

		queries := new(mockQuerier)
		queries.On("Get", mock.Anything, responseID).Return(existing, nil)

		surveys := new(mockSurveyGetter)
		surveys.On("GetByID", mock.Anything, surveyID).Return(parent, nil)

		service := newTestService(queries, nil, surveys, nil)

		err := service.Delete(context.Background(), internal.Actor{ID: uuid.New(), Role: internal.RoleUser}, responseID)
		require.ErrorIs(t, err, internal.ErrAccessDenied)
		queries.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("Should let the survey creator delete", func(t *testing.T) {
		t.Parallel()

		queries := new(mockQuerier)
		queries.On("Get", mock.Anything, responseID).Return(existing, nil)
		queries.On("Delete", mock.Anything, responseID).Return(nil)

		surveys := new(mockSurveyGetter)
		surveys.On("GetByID", mock.Anything, surveyID).Return(parent, nil)

		service := newTestService(queries, nil, surveys, nil)

		err := service.Delete(context.Background(), internal.Actor{ID: authorID, Role: internal.RoleSuperuser}, responseID)
		require.NoError(t, err)
		queries.AssertExpectations(t)
	})
}
