package analysis

import (
	"context"
	"encoding/base64"

	"surveyhub/survey-backend/internal"
	"surveyhub/survey-backend/internal/access"
	"surveyhub/survey-backend/internal/question"
	"surveyhub/survey-backend/internal/response"
	"surveyhub/survey-backend/internal/survey"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SurveyGetter is the slice of the survey service this package needs.
type SurveyGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (survey.Survey, error)
}

// QuestionLister is the slice of the question service this package needs.
type QuestionLister interface {
	ListBySurvey(ctx context.Context, actor internal.Actor, surveyID uuid.UUID) ([]question.Question, error)
}

// ResponseLister is the slice of the response service this package needs.
type ResponseLister interface {
	List(ctx context.Context, actor internal.Actor, surveyID uuid.UUID, requestedRespondent uuid.UUID) ([]response.Detail, error)
}

// Respondent identifies who submitted, for the creator's view of a report.
type Respondent struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// Charts carries rendered chart images, base64-encoded for transport.
type Charts struct {
	DimensionBar string `json:"dimensionBar,omitempty"`
	AreaPie      string `json:"areaPie,omitempty"`
}

// Report is the aggregated view of a survey's submissions.
type Report struct {
	SurveyID      uuid.UUID    `json:"surveyId"`
	ResponseCount int          `json:"responseCount"`
	Summary       Summary      `json:"summary"`
	Respondents   []Respondent `json:"respondents,omitempty"`
	Charts        Charts       `json:"charts"`
}

type Service struct {
	logger    *zap.Logger
	tracer    trace.Tracer
	surveys   SurveyGetter
	questions QuestionLister
	responses ResponseLister
	renderer  Renderer
}

func NewService(logger *zap.Logger, surveys SurveyGetter, questions QuestionLister, responses ResponseLister, renderer Renderer) *Service {
	if renderer == nil {
		renderer = NopRenderer{}
	}
	return &Service{
		logger:    logger,
		tracer:    otel.Tracer("analysis/service"),
		surveys:   surveys,
		questions: questions,
		responses: responses,
		renderer:  renderer,
	}
}

// Analyze scores and aggregates a survey's submissions. Respondents get a
// report over their own submissions only; the creator and superusers get
// everything plus the respondent list.
func (s *Service) Analyze(ctx context.Context, actor internal.Actor, surveyID uuid.UUID, requestedRespondent uuid.UUID) (Report, error) {
	ctx, span := s.tracer.Start(ctx, "Analyze")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	parent, err := s.surveys.GetByID(ctx, surveyID)
	if err != nil {
		span.RecordError(err)
		return Report{}, err
	}

	questions, err := s.questions.ListBySurvey(ctx, actor, surveyID)
	if err != nil {
		span.RecordError(err)
		return Report{}, err
	}
	byID := make(map[uuid.UUID]question.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	details, err := s.responses.List(ctx, actor, surveyID, requestedRespondent)
	if err != nil {
		span.RecordError(err)
		return Report{}, err
	}

	var items []ScoredInput
	for _, d := range details {
		for _, a := range d.Answers {
			q, ok := byID[a.QuestionID]
			if !ok {
				continue
			}
			items = append(items, ScoredInput{
				Dimension: q.Dimension,
				Area:      q.Area,
				Choices:   q.Choices,
				Value:     a.Value,
			})
		}
	}

	report := Report{
		SurveyID:      parent.ID,
		ResponseCount: len(details),
		Summary:       Aggregate(items),
	}

	policy := survey.PolicyView(parent)
	if actor.IsSuperuser() || policy.CreatedBy == actor.ID {
		report.Respondents = collectRespondents(details)
	}

	s.renderCharts(ctx, logger, &report)

	return report, nil
}

func collectRespondents(details []response.Detail) []Respondent {
	seen := make(map[uuid.UUID]bool)
	var respondents []Respondent
	for _, d := range details {
		if !d.Response.RespondentID.Valid {
			continue
		}
		id := uuid.UUID(d.Response.RespondentID.Bytes)
		if seen[id] {
			continue
		}
		seen[id] = true
		respondents = append(respondents, Respondent{ID: id, Email: d.Response.RespondentEmail})
	}
	return respondents
}

func (s *Service) renderCharts(ctx context.Context, logger *zap.Logger, report *Report) {
	if len(report.Summary.Dimensions) > 0 {
		img, err := s.renderer.RenderBar(ctx, "Dimensions", report.Summary.Dimensions)
		if err != nil {
			logger.Warn("Failed to render dimension chart", zap.Error(err))
		} else if len(img) > 0 {
			report.Charts.DimensionBar = base64.StdEncoding.EncodeToString(img)
		}
	}
	if len(report.Summary.Areas) > 0 {
		img, err := s.renderer.RenderPie(ctx, "Areas", report.Summary.Areas)
		if err != nil {
			logger.Warn("Failed to render area chart", zap.Error(err))
		} else if len(img) > 0 {
			report.Charts.AreaPie = base64.StdEncoding.EncodeToString(img)
		}
	}
}

// Export renders the report as an xlsx workbook. Only the creator and
// superusers may export.
func (s *Service) Export(ctx context.Context, actor internal.Actor, surveyID uuid.UUID) ([]byte, error) {
	ctx, span := s.tracer.Start(ctx, "Export")
	defer span.End()

	parent, err := s.surveys.GetByID(ctx, surveyID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if !access.CanViewResponses(actor, survey.PolicyView(parent), uuid.Nil) {
		return nil, internal.ErrAccessDenied
	}

	report, err := s.Analyze(ctx, actor, surveyID, uuid.Nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return writeWorkbook(parent, report)
}
