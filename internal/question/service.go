package question

import (
	"context"
	"errors"
	"strings"

	"surveyhub/survey-backend/internal"
	"surveyhub/survey-backend/internal/access"
	"surveyhub/survey-backend/internal/survey"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Querier interface {
	Create(ctx context.Context, arg CreateParams) (Question, error)
	Update(ctx context.Context, arg UpdateParams) (Question, error)
	ShiftOrderFrom(ctx context.Context, surveyID uuid.UUID, from int32, exclude uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (Question, error)
	ListBySurveyID(ctx context.Context, surveyID uuid.UUID) ([]Question, error)
	CountBySurveyID(ctx context.Context, surveyID uuid.UUID) (int64, error)
}

// SurveyGetter is the slice of the survey service this package needs.
type SurveyGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (survey.Survey, error)
}

type Service struct {
	logger  *zap.Logger
	queries Querier
	tracer  trace.Tracer
	surveys SurveyGetter
}

func NewService(logger *zap.Logger, db DBTX, surveys SurveyGetter) *Service {
	return &Service{
		logger:  logger,
		queries: New(db),
		tracer:  otel.Tracer("question/service"),
		surveys: surveys,
	}
}

func (s *Service) Create(ctx context.Context, actor internal.Actor, surveyID uuid.UUID, req Request) (Question, error) {
	ctx, span := s.tracer.Start(ctx, "Create")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	parent, err := s.editableSurvey(ctx, actor, surveyID)
	if err != nil {
		span.RecordError(err)
		return Question{}, err
	}

	if err := validateFields(req); err != nil {
		return Question{}, err
	}

	count, err := s.queries.CountBySurveyID(ctx, parent.ID)
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "count questions")
		span.RecordError(err)
		return Question{}, err
	}

	order := clampOrder(req.DisplayOrder, int32(count)+1)

	tracker := logutil.StartDBOperation(ctx, logger, "Create", map[string]interface{}{
		"survey_id":     parent.ID.String(),
		"display_order": order,
	})

	if err := s.queries.ShiftOrderFrom(ctx, parent.ID, order, uuid.Nil); err != nil {
		err = databaseutil.WrapDBErrorWithTracker(err, tracker, "shift question order")
		span.RecordError(err)
		return Question{}, err
	}

	created, err := s.queries.Create(ctx, CreateParams{
		SurveyID:     parent.ID,
		Label:        strings.TrimSpace(req.Label),
		FieldType:    req.FieldType,
		Choices:      req.Choices,
		IsRequired:   req.IsRequired,
		DisplayOrder: order,
		Dimension:    req.Dimension,
		Area:         req.Area,
	})
	if err != nil {
		err = databaseutil.WrapDBErrorWithTracker(err, tracker, "create question")
		span.RecordError(err)
		return Question{}, err
	}

	tracker.SuccessWrite(created.ID.String())

	return created, nil
}

func (s *Service) Update(ctx context.Context, actor internal.Actor, id uuid.UUID, req Request) (Question, error) {
	ctx, span := s.tracer.Start(ctx, "Update")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	current, err := s.getByID(ctx, logger, id)
	if err != nil {
		span.RecordError(err)
		return Question{}, err
	}

	if _, err := s.editableSurvey(ctx, actor, current.SurveyID); err != nil {
		span.RecordError(err)
		return Question{}, err
	}

	if err := validateFields(req); err != nil {
		return Question{}, err
	}

	count, err := s.queries.CountBySurveyID(ctx, current.SurveyID)
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "count questions")
		span.RecordError(err)
		return Question{}, err
	}

	order := clampOrder(req.DisplayOrder, int32(count))

	tracker := logutil.StartDBOperation(ctx, logger, "Update", map[string]interface{}{
		"id":            id.String(),
		"display_order": order,
	})

	if order != current.DisplayOrder {
		if err := s.queries.ShiftOrderFrom(ctx, current.SurveyID, order, id); err != nil {
			err = databaseutil.WrapDBErrorWithTracker(err, tracker, "shift question order")
			span.RecordError(err)
			return Question{}, err
		}
	}

	updated, err := s.queries.Update(ctx, UpdateParams{
		ID:           id,
		Label:        strings.TrimSpace(req.Label),
		FieldType:    req.FieldType,
		Choices:      req.Choices,
		IsRequired:   req.IsRequired,
		DisplayOrder: order,
		Dimension:    req.Dimension,
		Area:         req.Area,
	})
	if err != nil {
		err = databaseutil.WrapDBErrorWithTracker(err, tracker, "update question")
		span.RecordError(err)
		return Question{}, err
	}

	tracker.SuccessWrite(id.String())

	return updated, nil
}

func (s *Service) Delete(ctx context.Context, actor internal.Actor, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "Delete")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	current, err := s.getByID(ctx, logger, id)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if _, err := s.editableSurvey(ctx, actor, current.SurveyID); err != nil {
		span.RecordError(err)
		return err
	}

	tracker := logutil.StartDBOperation(ctx, logger, "Delete", map[string]interface{}{
		"id": id.String(),
	})

	if err := s.queries.Delete(ctx, id); err != nil {
		err = databaseutil.WrapDBErrorWithTracker(err, tracker, "delete question")
		span.RecordError(err)
		return err
	}

	tracker.SuccessWrite(id.String())

	return nil
}

// ListBySurvey returns the survey's questions in display order for any
// actor allowed to see the survey.
func (s *Service) ListBySurvey(ctx context.Context, actor internal.Actor, surveyID uuid.UUID) ([]Question, error) {
	ctx, span := s.tracer.Start(ctx, "ListBySurvey")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	parent, err := s.surveys.GetByID(ctx, surveyID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if !access.CanList(actor, survey.PolicyView(parent)) {
		return nil, internal.ErrAccessDenied
	}

	tracker := logutil.StartDBOperation(ctx, logger, "ListBySurveyID", map[string]interface{}{
		"survey_id": surveyID.String(),
	})

	items, err := s.queries.ListBySurveyID(ctx, surveyID)
	if err != nil {
		err = databaseutil.WrapDBErrorWithTracker(err, tracker, "list questions")
		span.RecordError(err)
		return nil, err
	}

	tracker.SuccessRead(len(items), surveyID.String())

	return items, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (Question, error) {
	ctx, span := s.tracer.Start(ctx, "GetByID")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	found, err := s.getByID(ctx, logger, id)
	if err != nil {
		span.RecordError(err)
		return Question{}, err
	}

	return found, nil
}

func (s *Service) getByID(ctx context.Context, logger *zap.Logger, id uuid.UUID) (Question, error) {
	found, err := s.queries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Question{}, internal.ErrQuestionNotFound
		}
		return Question{}, databaseutil.WrapDBErrorWithKeyValue(err, "question", "id", id.String(), logger, "get question by id")
	}
	return found, nil
}

func (s *Service) editableSurvey(ctx context.Context, actor internal.Actor, surveyID uuid.UUID) (survey.Survey, error) {
	if !access.CanAuthor(actor) {
		return survey.Survey{}, internal.ErrAccessDenied
	}

	parent, err := s.surveys.GetByID(ctx, surveyID)
	if err != nil {
		return survey.Survey{}, err
	}

	if parent.CreatedBy != actor.ID {
		return survey.Survey{}, internal.ErrAccessDenied
	}
	if !parent.IsEditable {
		return survey.Survey{}, internal.ErrSurveyNotEditable
	}

	return parent, nil
}

func validateFields(req Request) error {
	if strings.TrimSpace(req.Label) == "" {
		return internal.ErrValidationFailed
	}
	if !req.FieldType.Valid() {
		return internal.ErrValidationFailed
	}
	if req.FieldType.HasChoices() && len(req.Choices) == 0 {
		return internal.ErrChoicesRequired
	}
	return nil
}

// clampOrder keeps a requested position inside [1, max].
func clampOrder(requested, max int32) int32 {
	if requested < 1 {
		return 1
	}
	if requested > max {
		return max
	}
	return requested
}
