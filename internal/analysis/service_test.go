package analysis

import (
	"context"
	"testing"

	"surveyhub/survey-backend/internal"
	"surveyhub/survey-backend/internal/question"
	"surveyhub/survey-backend/internal/response"
	"surveyhub/survey-backend/internal/survey"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

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

type mockResponseLister struct {
	mock.Mock
}

func (m *mockResponseLister) List(ctx context.Context, actor internal.Actor, surveyID uuid.UUID, requestedRespondent uuid.UUID) ([]response.Detail, error) {
	args := m.Called(ctx, actor, surveyID, requestedRespondent)
	return args.Get(0).([]response.Detail), args.Error(1)
}

type stubRenderer struct {
	bar []byte
	pie []byte
}

func (r stubRenderer) RenderBar(context.Context, string, []Bucket) ([]byte, error) {
	return r.bar, nil
}

func (r stubRenderer) RenderPie(context.Context, string, []Bucket) ([]byte, error) {
	return r.pie, nil
}

func newTestService(surveys SurveyGetter, questions QuestionLister, responses ResponseLister, renderer Renderer) *Service {
	if renderer == nil {
		renderer = NopRenderer{}
	}
	return &Service{
		logger:    zap.NewNop(),
		tracer:    noop.NewTracerProvider().Tracer("test"),
		surveys:   surveys,
		questions: questions,
		responses: responses,
		renderer:  renderer,
	}
}

func respondentID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func TestService_Analyze(t *testing.T) {
	t.Parallel()

	authorID := uuid.New()
	surveyID := uuid.New()
	author := internal.Actor{ID: authorID, Role: internal.RoleSuperuser}
	member := internal.Actor{ID: uuid.New(), Email: "member@example.com", Role: internal.RoleUser}

	parent := survey.Survey{ID: surveyID, Name: "Team Health", Published: true, CreatedBy: authorID}

	scored := question.Question{
		ID: uuid.New(), SurveyID: surveyID,
		FieldType: question.FieldTypeSingleChoice,
		Choices:   []string{"Low", "Mid", "High"},
		Dimension: "D1", Area: "A1",
	}
	freeText := question.Question{
		ID: uuid.New(), SurveyID: surveyID,
		FieldType: question.FieldTypeFreeText,
		Dimension: "D1",
	}

	buildDetail := func(who uuid.UUID, email string, values ...string) response.Detail {
		d := response.Detail{
			Response: response.Response{ID: uuid.New(), SurveyID: surveyID, RespondentID: respondentID(who), RespondentEmail: email},
		}
		for _, v := range values {
			d.Answers = append(d.Answers, response.Answer{QuestionID: scored.ID, Value: v})
		}
		return d
	}

	t.Run("Should average scored answers per dimension and area", func(t *testing.T) {
		t.Parallel()

		surveys := new(mockSurveyGetter)
		surveys.On("GetByID", mock.Anything, surveyID).Return(parent, nil)

		questions := new(mockQuestionLister)
		questions.On("ListBySurvey", mock.Anything, author, surveyID).
			Return([]question.Question{scored, freeText}, nil)

		responses := new(mockResponseLister)
		responses.On("List", mock.Anything, author, surveyID, uuid.Nil).
			Return([]response.Detail{
				buildDetail(uuid.New(), "a@example.com", "Low"),
				buildDetail(uuid.New(), "b@example.com", "High"),
			}, nil)

		service := newTestService(surveys, questions, responses, nil)

		report, err := service.Analyze(context.Background(), author, surveyID, uuid.Nil)
		require.NoError(t, err)
		require.Equal(t, 2, report.ResponseCount)

		d1, ok := report.Summary.Dimension("D1")
		require.True(t, ok)
		require.InDelta(t, 2.0, d1.Average, 0.001)
		require.Equal(t, 2, d1.Count)

		a1, ok := report.Summary.Area("A1")
		require.True(t, ok)
		require.Equal(t, 2, a1.Count)
	})

	t.Run("Should include respondents only for the creator", func(t *testing.T) {
		t.Parallel()

		surveys := new(mockSurveyGetter)
		surveys.On("GetByID", mock.Anything, surveyID).Return(parent, nil)

		questions := new(mockQuestionLister)
		questions.On("ListBySurvey", mock.Anything, mock.Anything, surveyID).
			Return([]question.Question{scored}, nil)

		own := buildDetail(member.ID, member.Email, "Mid")

		responses := new(mockResponseLister)
		responses.On("List", mock.Anything, author, surveyID, uuid.Nil).
			Return([]response.Detail{own, buildDetail(uuid.New(), "c@example.com", "High")}, nil)
		// The response service scopes an unfiltered request from a plain
		// respondent to their own submissions.
		responses.On("List", mock.Anything, member, surveyID, uuid.Nil).
			Return([]response.Detail{own}, nil)

		service := newTestService(surveys, questions, responses, nil)

		creatorReport, err := service.Analyze(context.Background(), author, surveyID, uuid.Nil)
		require.NoError(t, err)
		require.Len(t, creatorReport.Respondents, 2)

		memberReport, err := service.Analyze(context.Background(), member, surveyID, uuid.Nil)
		require.NoError(t, err)
		require.Empty(t, memberReport.Respondents)
		require.Equal(t, 1, memberReport.ResponseCount)
	})

	t.Run("Should attach rendered charts as base64", func(t *testing.T) {
		t.Parallel()

		surveys := new(mockSurveyGetter)
		surveys.On("GetByID", mock.Anything, surveyID).Return(parent, nil)

		questions := new(mockQuestionLister)
		questions.On("ListBySurvey", mock.Anything, author, surveyID).
			Return([]question.Question{scored}, nil)

		responses := new(mockResponseLister)
		responses.On("List", mock.Anything, author, surveyID, uuid.Nil).
			Return([]response.Detail{buildDetail(uuid.New(), "a@example.com", "Mid")}, nil)

		service := newTestService(surveys, questions, responses, stubRenderer{bar: []byte("bar-png"), pie: []byte("pie-png")})

		report, err := service.Analyze(context.Background(), author, surveyID, uuid.Nil)
		require.NoError(t, err)
		require.NotEmpty(t, report.Charts.DimensionBar)
		require.NotEmpty(t, report.Charts.AreaPie)
	})
}

func TestService_Export(t *testing.T) {
	t.Parallel()

	authorID := uuid.New()
	surveyID := uuid.New()
	author := internal.Actor{ID: authorID, Role: internal.RoleSuperuser}

	parent := survey.Survey{ID: surveyID, Name: "Team Health", Published: true, CreatedBy: authorID}

	t.Run("Should deny a plain respondent", func(t *testing.T) {
		t.Parallel()

		surveys := new(mockSurveyGetter)
		surveys.On("GetByID", mock.Anything, surveyID).Return(parent, nil)

		service := newTestService(surveys, new(mockQuestionLister), new(mockResponseLister), nil)

		_, err := service.Export(context.Background(), internal.Actor{ID: uuid.New(), Role: internal.RoleUser}, surveyID)
		require.ErrorIs(t, err, internal.ErrAccessDenied)
	})

	t.Run("Should produce a workbook for the creator", func(t *testing.T) {
		t.Parallel()

		surveys := new(mockSurveyGetter)
		surveys.On("GetByID", mock.Anything, surveyID).Return(parent, nil)

		questions := new(mockQuestionLister)
		questions.On("ListBySurvey", mock.Anything, author, surveyID).
			Return([]question.Question{}, nil)

		responses := new(mockResponseLister)
		responses.On("List", mock.Anything, author, surveyID, uuid.Nil).
			Return([]response.Detail{}, nil)

		service := newTestService(surveys, questions, responses, nil)

		workbook, err := service.Export(context.Background(), author, surveyID)
		require.NoError(t, err)
		require.NotEmpty(t, workbook)
	})
}
