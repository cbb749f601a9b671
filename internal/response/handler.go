package response

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

type AnswerRequest struct {
	QuestionID uuid.UUID `json:"questionId" validate:"required"`
	Value      string    `json:"value"`
}

type SubmitRequest struct {
	Password string          `json:"password"`
	Answers  []AnswerRequest `json:"answers" validate:"required,dive"`
}

type AnswerResponse struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"questionId"`
	Value      string    `json:"value"`
}

type DetailResponse struct {
	ID              uuid.UUID        `json:"id"`
	SurveyID        uuid.UUID        `json:"surveyId"`
	RespondentID    *uuid.UUID       `json:"respondentId,omitempty"`
	RespondentEmail string           `json:"respondentEmail,omitempty"`
	CreatedAt       string           `json:"createdAt"`
	Answers         []AnswerResponse `json:"answers"`
}

type Store interface {
	Submit(ctx context.Context, actor internal.Actor, surveyID uuid.UUID, input SubmitInput) (Detail, error)
	List(ctx context.Context, actor internal.Actor, surveyID uuid.UUID, requestedRespondent uuid.UUID) ([]Detail, error)
	Delete(ctx context.Context, actor internal.Actor, id uuid.UUID) error
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
		tracer:        otel.Tracer("response/handler"),
	}
}

func ToDetailResponse(d Detail) DetailResponse {
	answers := make([]AnswerResponse, 0, len(d.Answers))
	for _, a := range d.Answers {
		answers = append(answers, AnswerResponse{ID: a.ID, QuestionID: a.QuestionID, Value: a.Value})
	}

	resp := DetailResponse{
		ID:              d.Response.ID,
		SurveyID:        d.Response.SurveyID,
		RespondentEmail: d.Response.RespondentEmail,
		CreatedAt:       d.Response.CreatedAt.Time.Format(time.RFC3339),
		Answers:         answers,
	}
	if d.Response.RespondentID.Valid {
		id := uuid.UUID(d.Response.RespondentID.Bytes)
		resp.RespondentID = &id
	}
	return resp
}

// SubmitHandler accepts a submission. The actor is optional here: open
// surveys take anonymous responses.
func (h *Handler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "SubmitHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	actor, _ := internal.GetActorFromContext(traceCtx)

	surveyID, err := handlerutil.ParseUUID(r.PathValue("survey_id"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	var req SubmitRequest
	err = handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	input := SubmitInput{Password: req.Password}
	for _, a := range req.Answers {
		input.Answers = append(input.Answers, AnswerInput{QuestionID: a.QuestionID, Value: a.Value})
	}

	detail, err := h.store.Submit(traceCtx, actor, surveyID, input)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusCreated, ToDetailResponse(detail))
}

func (h *Handler) ListHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "ListHandler")
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

	requestedRespondent := uuid.Nil
	if raw := r.URL.Query().Get("respondent"); raw != "" {
		requestedRespondent, err = uuid.Parse(raw)
		if err != nil {
			h.problemWriter.WriteError(traceCtx, w, internal.ErrInvalidRequestBody, logger)
			return
		}
	}

	details, err := h.store.List(traceCtx, actor, surveyID, requestedRespondent)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	responses := make([]DetailResponse, 0, len(details))
	for _, d := range details {
		responses = append(responses, ToDetailResponse(d))
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, responses)
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

	id, err := handlerutil.ParseUUID(r.PathValue("response_id"))
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
