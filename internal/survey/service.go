package survey

import (
	"context"
	"errors"

	"surveyhub/survey-backend/internal"
	"surveyhub/survey-backend/internal/access"
	"surveyhub/survey-backend/internal/slug"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Querier interface {
	Create(ctx context.Context, arg CreateParams) (Survey, error)
	Update(ctx context.Context, arg UpdateParams) (Survey, error)
	SetPublished(ctx context.Context, id uuid.UUID) (Survey, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (Survey, error)
	GetBySlug(ctx context.Context, slug string) (Survey, error)
	GetIDBySlug(ctx context.Context, slug string) (uuid.UUID, error)
	List(ctx context.Context) ([]Survey, error)
}

// Inviter delivers invitation messages when a survey with an allow-list is
// published. Delivery itself is external to this backend.
type Inviter interface {
	SendInvitations(ctx context.Context, s Survey) error
}

type Service struct {
	logger    *zap.Logger
	queries   Querier
	tracer    trace.Tracer
	inviter   Inviter
	sanitizer *bluemonday.Policy
}

func NewService(logger *zap.Logger, db DBTX, inviter Inviter) *Service {
	return &Service{
		logger:    logger,
		queries:   New(db),
		tracer:    otel.Tracer("survey/service"),
		inviter:   inviter,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// PolicyView converts a survey row into the snapshot the access predicates
// operate on.
func PolicyView(s Survey) access.Survey {
	return access.Survey{
		ID:                       s.ID,
		CreatedBy:                s.CreatedBy,
		Published:                s.Published,
		AllowMultipleSubmissions: s.AllowMultipleSubmissions,
		RecipientEmails:          s.RecipientEmails,
		HasPassword:              s.AccessPassword.Valid && s.AccessPassword.String != "",
	}
}

// PasswordMatches checks a supplied access password against the survey's.
// Surveys without a password accept anything.
func PasswordMatches(s Survey, password string) bool {
	if !s.AccessPassword.Valid || s.AccessPassword.String == "" {
		return true
	}
	return s.AccessPassword.String == password
}

func (s *Service) Create(ctx context.Context, actor internal.Actor, req Request) (Survey, error) {
	ctx, span := s.tracer.Start(ctx, "Create")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	if !access.CanAuthor(actor) {
		return Survey{}, internal.ErrAccessDenied
	}

	if req.Name == "" || req.Description == "" {
		return Survey{}, internal.ErrValidationFailed
	}

	name := s.sanitizer.Sanitize(req.Name)
	description := s.sanitizer.Sanitize(req.Description)

	// New surveys are editable unless the request says otherwise.
	isEditable := true
	if req.IsEditable != nil {
		isEditable = *req.IsEditable
	}

	surveySlug, err := s.resolveSlug(ctx, name, req.Slug, uuid.Nil)
	if err != nil {
		span.RecordError(err)
		return Survey{}, err
	}

	dbParams := map[string]interface{}{
		"name":       name,
		"slug":       surveySlug,
		"created_by": actor.ID.String(),
	}
	tracker := logutil.StartDBOperation(ctx, logger, "Create", dbParams)

	created, err := s.queries.Create(ctx, CreateParams{
		Name:                     name,
		Description:              description,
		Slug:                     surveySlug,
		IsEditable:               isEditable,
		AllowMultipleSubmissions: req.AllowMultipleSubmissions,
		Published:                req.Published,
		CreatedBy:                actor.ID,
		RecipientEmails:          req.RecipientEmails,
		AccessPassword:           pgtype.Text{String: req.Password, Valid: req.Password != ""},
	})
	if err != nil {
		err = databaseutil.WrapDBErrorWithTracker(err, tracker, "create survey")
		span.RecordError(err)
		return Survey{}, err
	}

	tracker.SuccessWrite(created.ID.String())

	return created, nil
}

func (s *Service) Update(ctx context.Context, actor internal.Actor, id uuid.UUID, req Request) (Survey, error) {
	ctx, span := s.tracer.Start(ctx, "Update")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	current, err := s.getByID(ctx, logger, id)
	if err != nil {
		span.RecordError(err)
		return Survey{}, err
	}

	if current.CreatedBy != actor.ID {
		return Survey{}, internal.ErrAccessDenied
	}
	if !current.IsEditable {
		return Survey{}, internal.ErrSurveyNotEditable
	}

	if req.Name == "" || req.Description == "" {
		return Survey{}, internal.ErrValidationFailed
	}

	name := s.sanitizer.Sanitize(req.Name)
	description := s.sanitizer.Sanitize(req.Description)

	requestedSlug := req.Slug
	if requestedSlug == "" {
		requestedSlug = current.Slug
	}
	surveySlug, err := s.resolveSlug(ctx, name, requestedSlug, id)
	if err != nil {
		span.RecordError(err)
		return Survey{}, err
	}

	tracker := logutil.StartDBOperation(ctx, logger, "Update", map[string]interface{}{
		"id":   id.String(),
		"slug": surveySlug,
	})

	updated, err := s.queries.Update(ctx, UpdateParams{
		ID:                       id,
		Name:                     name,
		Description:              description,
		Slug:                     surveySlug,
		AllowMultipleSubmissions: req.AllowMultipleSubmissions,
		RecipientEmails:          req.RecipientEmails,
		AccessPassword:           pgtype.Text{String: req.Password, Valid: req.Password != ""},
	})
	if err != nil {
		err = databaseutil.WrapDBErrorWithTracker(err, tracker, "update survey")
		span.RecordError(err)
		return Survey{}, err
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

	if !actor.IsSuperuser() && current.CreatedBy != actor.ID {
		return internal.ErrAccessDenied
	}

	tracker := logutil.StartDBOperation(ctx, logger, "Delete", map[string]interface{}{
		"id": id.String(),
	})

	// Questions and responses go with the survey via FK cascade.
	err = s.queries.Delete(ctx, id)
	if err != nil {
		err = databaseutil.WrapDBErrorWithTracker(err, tracker, "delete survey")
		span.RecordError(err)
		return err
	}

	tracker.SuccessWrite(id.String())

	return nil
}

// Publish flips a draft survey to published. The transition is one-way;
// publishing an already published survey is a no-op. Invitation mail goes
// out on the first transition when an allow-list is present.
func (s *Service) Publish(ctx context.Context, actor internal.Actor, id uuid.UUID) (Survey, error) {
	ctx, span := s.tracer.Start(ctx, "Publish")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	current, err := s.getByID(ctx, logger, id)
	if err != nil {
		span.RecordError(err)
		return Survey{}, err
	}

	if !actor.IsSuperuser() && current.CreatedBy != actor.ID {
		return Survey{}, internal.ErrAccessDenied
	}

	if current.Published {
		return current, nil
	}

	published, err := s.queries.SetPublished(ctx, id)
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "publish survey")
		span.RecordError(err)
		return Survey{}, err
	}

	if len(published.RecipientEmails) > 0 && s.inviter != nil {
		if err := s.inviter.SendInvitations(ctx, published); err != nil {
			// Publication already happened; a delivery failure is not worth
			// rolling it back.
			logger.Warn("Failed to send survey invitations",
				zap.Error(err),
				zap.String("survey_id", published.ID.String()),
			)
		}
	}

	return published, nil
}

func (s *Service) GetBySlug(ctx context.Context, actor internal.Actor, surveySlug string) (Survey, error) {
	ctx, span := s.tracer.Start(ctx, "GetBySlug")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	found, err := s.queries.GetBySlug(ctx, surveySlug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Survey{}, internal.ErrSurveyNotFound
		}
		err = databaseutil.WrapDBErrorWithKeyValue(err, "survey", "slug", surveySlug, logger, "get survey by slug")
		span.RecordError(err)
		return Survey{}, err
	}

	if !access.CanList(actor, PolicyView(found)) {
		return Survey{}, internal.ErrAccessDenied
	}

	return found, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (Survey, error) {
	ctx, span := s.tracer.Start(ctx, "GetByID")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	found, err := s.getByID(ctx, logger, id)
	if err != nil {
		span.RecordError(err)
		return Survey{}, err
	}

	return found, nil
}

// List returns the surveys the actor is allowed to see.
func (s *Service) List(ctx context.Context, actor internal.Actor) ([]Survey, error) {
	ctx, span := s.tracer.Start(ctx, "List")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	tracker := logutil.StartDBOperation(ctx, logger, "List", nil)

	all, err := s.queries.List(ctx)
	if err != nil {
		err = databaseutil.WrapDBErrorWithTracker(err, tracker, "list surveys")
		span.RecordError(err)
		return nil, err
	}

	visible := make([]Survey, 0, len(all))
	for _, candidate := range all {
		if access.CanList(actor, PolicyView(candidate)) {
			visible = append(visible, candidate)
		}
	}

	tracker.SuccessRead(len(visible), "")

	return visible, nil
}

// VerifyPassword checks a candidate access password against the survey's
// stored one. Surveys without a password always verify.
func (s *Service) VerifyPassword(ctx context.Context, surveySlug string, password string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "VerifyPassword")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	found, err := s.queries.GetBySlug(ctx, surveySlug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, internal.ErrSurveyNotFound
		}
		err = databaseutil.WrapDBErrorWithKeyValue(err, "survey", "slug", surveySlug, logger, "get survey by slug")
		span.RecordError(err)
		return false, err
	}

	return PasswordMatches(found, password), nil
}

func (s *Service) getByID(ctx context.Context, logger *zap.Logger, id uuid.UUID) (Survey, error) {
	found, err := s.queries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Survey{}, internal.ErrSurveyNotFound
		}
		return Survey{}, databaseutil.WrapDBErrorWithKeyValue(err, "survey", "id", id.String(), logger, "get survey by id")
	}
	return found, nil
}

// resolveSlug picks the survey's slug: an explicit request wins if free,
// otherwise one is generated from the name. preserveID lets a record keep
// its own slug across re-saves.
func (s *Service) resolveSlug(ctx context.Context, name, requested string, preserveID uuid.UUID) (string, error) {
	exists := func(candidate string) (uuid.UUID, bool, error) {
		owner, err := s.queries.GetIDBySlug(ctx, candidate)
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, false, nil
		}
		if err != nil {
			return uuid.Nil, false, err
		}
		return owner, true, nil
	}

	if requested != "" {
		owner, taken, err := exists(requested)
		if err != nil {
			return "", err
		}
		if taken && owner != preserveID {
			return "", internal.ErrSlugTaken
		}
		return requested, nil
	}

	return slug.Generate(name, exists, preserveID)
}
