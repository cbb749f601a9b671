package question

import (
	"context"
	"net/http"
	"time"

	"surveyhub/survey-backend/internal"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Request struct {
	Label        string    `json:"label" validate:"required"`
	FieldType    FieldType `json:"fieldType" validate:"required,oneof=single_choice single_select multi_select free_text"`
	Choices      []string  `json:"choices"`
	IsRequired   bool      `json:"isRequired"`
	DisplayOrder int32     `json:"displayOrder"`
	Dimension    string    `json:"dimension"`
	Area         string    `json:"area"`
}

type Response struct {
	ID           uuid.UUID `json:"id"`
	SurveyID     uuid.UUID `json:"surveyId"`
	Label        string    `json:"label"`
	FieldType    FieldType `json:"fieldType"`
	Choices      []string  `json:"choices"`
	IsRequired   bool      `json:"isRequired"`
	DisplayOrder int32     `json:"displayOrder"`
	Dimension    string    `json:"dimension"`
	Area         string    `json:"area"`
	CreatedAt    string    `json:"createdAt"`
	UpdatedAt    string    `json:"updatedAt"`
}

type Store interface {
	Create(ctx context.Context, actor internal.Actor, surveyID uuid.UUID, req Request) (Question, error)
	Update(ctx context.Context, actor internal.Actor, id uuid.UUID, req Request) (Question, error)
	Delete(ctx context.Context, actor internal.Actor, id uuid.UUID) error
	ListBySurvey(ctx context.Context, actor internal.Actor, surveyID uuid.UUID) ([]Question, error)
}

type Handler struct {
	logger        *zap.Logger
	validator     *validator.Validate
	problemWriter *problem.HttpWriter
	store         Store
	tracer        trace.Tracer
}

func NewHandler(logger *zap.Logger, validator *validator.Validate, problemWriter *problem.HttpWriter, store Store) *Handler {
	return &Handler{
		logger:        logger,
		validator:     validator,
		problemWriter: problemWriter,
		store:         store,
		tracer:        otel.Tracer("question/handler"),
	}
}

func ToResponse(q Question) Response {
	return Response{
		ID:           q.ID,
		SurveyID:     q.SurveyID,
		Label:        q.Label,
		FieldType:    q.FieldType,
		Choices:      q.Choices,
		IsRequired:   q.IsRequired,
		DisplayOrder: q.DisplayOrder,
		Dimension:    q.Dimension,
		Area:         q.Area,
		CreatedAt:    q.CreatedAt.Time.Format(time.RFC3339),
		UpdatedAt:    q.UpdatedAt.Time.Format(time.RFC3339),
	}
}

func (h *Handler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "CreateHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	actor, ok := internal.GetActorFromContext(traceCtx)
	if !ok {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrNoActorInContext, logger)
		return
	}

	surveyID, err := handlerutil.ParseUUID(r.PathValue("survey_id"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	var req Request
	err = handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	created, err := h.store.Create(traceCtx, actor, surveyID, req)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusCreated, ToResponse(created))
}

func (h *Handler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "UpdateHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	actor, ok := internal.GetActorFromContext(traceCtx)
	if !ok {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrNoActorInContext, logger)
		return
	}

	id, err := handlerutil.ParseUUID(r.PathValue("question_id"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	var req Request
	err = handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	updated, err := h.store.Update(traceCtx, actor, id, req)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, ToResponse(updated))
}

func (h *Handler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "DeleteHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	actor, ok := internal.GetActorFromContext(traceCtx)
	if !ok {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrNoActorInContext, logger)
		return
	}

	id, err := handlerutil.ParseUUID(r.PathValue("question_id"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	err = h.store.Delete(traceCtx, actor, id)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListBySurveyHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "ListBySurveyHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	// Anonymous viewers are fine here; the access policy decides per survey.
	actor, _ := internal.GetActorFromContext(traceCtx)

	surveyID, err := handlerutil.ParseUUID(r.PathValue("survey_id"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	questions, err := h.store.ListBySurvey(traceCtx, actor, surveyID)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	responses := make([]Response, 0, len(questions))
	for _, q := range questions {
		responses = append(responses, ToResponse(q))
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, responses)
}
