package response

import (
	"context"
	"errors"
	"slices"
	"strings"

	"surveyhub/survey-backend/internal"
	"surveyhub/survey-backend/internal/access"
	"surveyhub/survey-backend/internal/question"
	"surveyhub/survey-backend/internal/survey"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Querier interface {
	CreateResponse(ctx context.Context, arg CreateResponseParams) (Response, error)
	CreateAnswer(ctx context.Context, arg CreateAnswerParams) (Answer, error)
	ExistsBySurveyAndRespondent(ctx context.Context, surveyID, respondentID uuid.UUID) (bool, error)
	Get(ctx context.Context, id uuid.UUID) (Response, error)
	ListBySurveyID(ctx context.Context, surveyID uuid.UUID) ([]Response, error)
	ListBySurveyIDAndRespondent(ctx context.Context, surveyID, respondentID uuid.UUID) ([]Response, error)
	ListAnswersByResponseIDs(ctx context.Context, responseIDs []uuid.UUID) ([]Answer, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TxRunner runs fn against a transactional Querier; nothing written inside
// fn survives if it returns an error.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(q Querier) error) error
}

type PoolTxRunner struct {
	pool *pgxpool.Pool
}

func NewPoolTxRunner(pool *pgxpool.Pool) *PoolTxRunner {
	return &PoolTxRunner{pool: pool}
}

func (r *PoolTxRunner) RunInTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(New(tx)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// SurveyGetter is the slice of the survey service this package needs.
type SurveyGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (survey.Survey, error)
}

// QuestionLister is the slice of the question service this package needs.
type QuestionLister interface {
	ListBySurvey(ctx context.Context, actor internal.Actor, surveyID uuid.UUID) ([]question.Question, error)
}

type AnswerInput struct {
	QuestionID uuid.UUID
	Value      string
}

type SubmitInput struct {
	Password string
	Answers  []AnswerInput
}

// Detail bundles a response with its answers.
type Detail struct {
	Response Response
	Answers  []Answer
}

type Service struct {
	logger    *zap.Logger
	queries   Querier
	tracer    trace.Tracer
	tx        TxRunner
	surveys   SurveyGetter
	questions QuestionLister
}

func NewService(logger *zap.Logger, db DBTX, tx TxRunner, surveys SurveyGetter, questions QuestionLister) *Service {
	return &Service{
		logger:    logger,
		queries:   New(db),
		tracer:    otel.Tracer("response/service"),
		tx:        tx,
		surveys:   surveys,
		questions: questions,
	}
}

// Submit validates and stores one submission. Validation runs before any
// write, and the response row and its answers commit together or not at
// all.
func (s *Service) Submit(ctx context.Context, actor internal.Actor, surveyID uuid.UUID, input SubmitInput) (Detail, error) {
	ctx, span := s.tracer.Start(ctx, "Submit")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	parent, err := s.surveys.GetByID(ctx, surveyID)
	if err != nil {
		span.RecordError(err)
		return Detail{}, err
	}

	policy := survey.PolicyView(parent)
	if !access.CanList(actor, policy) {
		return Detail{}, internal.ErrAccessDenied
	}

	hasPrior := false
	if actor.ID != uuid.Nil && !parent.AllowMultipleSubmissions {
		hasPrior, err = s.queries.ExistsBySurveyAndRespondent(ctx, parent.ID, actor.ID)
		if err != nil {
			err = databaseutil.WrapDBError(err, logger, "check prior submission")
			span.RecordError(err)
			return Detail{}, err
		}
	}
	passwordOK := survey.PasswordMatches(parent, input.Password)

	if !access.CanSubmit(actor, policy, hasPrior, passwordOK) {
		switch {
		case hasPrior:
			return Detail{}, internal.ErrDuplicateSubmission
		case !passwordOK:
			return Detail{}, internal.ErrSurveyPasswordInvalid
		default:
			return Detail{}, internal.ErrAccessDenied
		}
	}

	questions, err := s.questions.ListBySurvey(ctx, actor, parent.ID)
	if err != nil {
		span.RecordError(err)
		return Detail{}, err
	}

	toStore, err := validateAnswers(questions, input.Answers)
	if err != nil {
		return Detail{}, err
	}

	tracker := logutil.StartDBOperation(ctx, logger, "Submit", map[string]interface{}{
		"survey_id": parent.ID.String(),
		"answers":   len(toStore),
	})

	var detail Detail
	err = s.tx.RunInTx(ctx, func(q Querier) error {
		created, err := q.CreateResponse(ctx, CreateResponseParams{
			SurveyID:        parent.ID,
			RespondentID:    pgtype.UUID{Bytes: actor.ID, Valid: actor.ID != uuid.Nil},
			RespondentEmail: actor.Email,
		})
		if err != nil {
			return err
		}

		answers := make([]Answer, 0, len(toStore))
		for _, a := range toStore {
			stored, err := q.CreateAnswer(ctx, CreateAnswerParams{
				ResponseID: created.ID,
				QuestionID: a.QuestionID,
				Value:      a.Value,
			})
			if err != nil {
				return err
			}
			answers = append(answers, stored)
		}

		detail = Detail{Response: created, Answers: answers}
		return nil
	})
	if err != nil {
		err = databaseutil.WrapDBErrorWithTracker(err, tracker, "store submission")
		span.RecordError(err)
		return Detail{}, err
	}

	tracker.SuccessWrite(detail.Response.ID.String())

	return detail, nil
}

// validateAnswers checks the submission against the question set and returns
// the answers worth storing. Unanswered optional questions are dropped;
// unanswered required ones fail the whole submission.
func validateAnswers(questions []question.Question, answers []AnswerInput) ([]AnswerInput, error) {
	byQuestion := make(map[uuid.UUID][]string, len(answers))
	for _, a := range answers {
		trimmed := strings.TrimSpace(a.Value)
		if trimmed == "" {
			continue
		}
		byQuestion[a.QuestionID] = append(byQuestion[a.QuestionID], trimmed)
	}

	known := make(map[uuid.UUID]question.Question, len(questions))
	var toStore []AnswerInput

	for _, q := range questions {
		known[q.ID] = q

		values := byQuestion[q.ID]
		if len(values) == 0 {
			if q.IsRequired {
				return nil, internal.ErrRequiredFieldMissing
			}
			continue
		}

		switch {
		case q.FieldType == question.FieldTypeMultiSelect:
			for _, v := range values {
				if !slices.Contains(q.Choices, v) {
					return nil, internal.ErrValidationFailed
				}
				toStore = append(toStore, AnswerInput{QuestionID: q.ID, Value: v})
			}
		case q.FieldType.HasChoices():
			if len(values) > 1 || !slices.Contains(q.Choices, values[0]) {
				return nil, internal.ErrValidationFailed
			}
			toStore = append(toStore, AnswerInput{QuestionID: q.ID, Value: values[0]})
		default:
			if len(values) > 1 {
				return nil, internal.ErrValidationFailed
			}
			toStore = append(toStore, AnswerInput{QuestionID: q.ID, Value: values[0]})
		}
	}

	// Answers pointing at questions outside the survey are rejected rather
	// than silently dropped.
	for id := range byQuestion {
		if _, ok := known[id]; !ok {
			return nil, internal.ErrValidationFailed
		}
	}

	return toStore, nil
}

// List returns the survey's responses the actor may see, each with its
// answers. Respondents only ever see their own.
func (s *Service) List(ctx context.Context, actor internal.Actor, surveyID uuid.UUID, requestedRespondent uuid.UUID) ([]Detail, error) {
	ctx, span := s.tracer.Start(ctx, "List")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	parent, err := s.surveys.GetByID(ctx, surveyID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	policy := survey.PolicyView(parent)

	// An unfiltered request from a plain respondent means "my responses",
	// not "everyone's".
	if requestedRespondent == uuid.Nil && !actor.IsSuperuser() && actor.ID != parent.CreatedBy {
		requestedRespondent = actor.ID
	}
	if !access.CanViewResponses(actor, policy, requestedRespondent) {
		return nil, internal.ErrAccessDenied
	}

	tracker := logutil.StartDBOperation(ctx, logger, "List", map[string]interface{}{
		"survey_id": surveyID.String(),
	})

	var responses []Response
	if requestedRespondent == uuid.Nil {
		responses, err = s.queries.ListBySurveyID(ctx, parent.ID)
	} else {
		responses, err = s.queries.ListBySurveyIDAndRespondent(ctx, parent.ID, requestedRespondent)
	}
	if err != nil {
		err = databaseutil.WrapDBErrorWithTracker(err, tracker, "list responses")
		span.RecordError(err)
		return nil, err
	}

	details, err := s.attachAnswers(ctx, responses)
	if err != nil {
		err = databaseutil.WrapDBErrorWithTracker(err, tracker, "list answers")
		span.RecordError(err)
		return nil, err
	}

	tracker.SuccessRead(len(details), surveyID.String())

	return details, nil
}

func (s *Service) attachAnswers(ctx context.Context, responses []Response) ([]Detail, error) {
	if len(responses) == 0 {
		return []Detail{}, nil
	}

	ids := make([]uuid.UUID, 0, len(responses))
	for _, r := range responses {
		ids = append(ids, r.ID)
	}

	answers, err := s.queries.ListAnswersByResponseIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	grouped := make(map[uuid.UUID][]Answer, len(responses))
	for _, a := range answers {
		grouped[a.ResponseID] = append(grouped[a.ResponseID], a)
	}

	details := make([]Detail, 0, len(responses))
	for _, r := range responses {
		details = append(details, Detail{Response: r, Answers: grouped[r.ID]})
	}
	return details, nil
}

func (s *Service) Delete(ctx context.Context, actor internal.Actor, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "Delete")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	existing, err := s.queries.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return internal.ErrResponseNotFound
		}
		err = databaseutil.WrapDBErrorWithKeyValue(err, "response", "id", id.String(), logger, "get response")
		span.RecordError(err)
		return err
	}

	parent, err := s.surveys.GetByID(ctx, existing.SurveyID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if !access.CanDeleteResponse(actor, parent.CreatedBy) {
		return internal.ErrAccessDenied
	}

	tracker := logutil.StartDBOperation(ctx, logger, "Delete", map[string]interface{}{
		"id": id.String(),
	})

	if err := s.queries.Delete(ctx, id); err != nil {
		err = databaseutil.WrapDBErrorWithTracker(err, tracker, "delete response")
		span.RecordError(err)
		return err
	}

	tracker.SuccessWrite(id.String())

	return nil
}
