package survey

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

// Request carries the writable survey fields for create and update.
type Request struct {
	Name                     string   `json:"name" validate:"required"`
	Description              string   `json:"description" validate:"required"`
	Slug                     string   `json:"slug" validate:"omitempty,slug"`
	IsEditable               *bool    `json:"isEditable"`
	AllowMultipleSubmissions bool     `json:"allowMultipleSubmissions"`
	Published                bool     `json:"published"`
	RecipientEmails          []string `json:"recipientEmails" validate:"omitempty,dive,email"`
	Password                 string   `json:"password"`
}

type PasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

type Response struct {
	ID                       uuid.UUID `json:"id"`
	Name                     string    `json:"name"`
	Description              string    `json:"description"`
	Slug                     string    `json:"slug"`
	IsEditable               bool      `json:"isEditable"`
	AllowMultipleSubmissions bool      `json:"allowMultipleSubmissions"`
	Published                bool      `json:"published"`
	CreatedBy                uuid.UUID `json:"createdBy"`
	RecipientEmails          []string  `json:"recipientEmails"`
	HasPassword              bool      `json:"hasPassword"`
	CreatedAt                string    `json:"createdAt"`
	UpdatedAt                string    `json:"updatedAt"`
}

type PasswordResponse struct {
	Valid bool `json:"valid"`
}

type Store interface {
	Create(ctx context.Context, actor internal.Actor, req Request) (Survey, error)
	Update(ctx context.Context, actor internal.Actor, id uuid.UUID, req Request) (Survey, error)
	Delete(ctx context.Context, actor internal.Actor, id uuid.UUID) error
	Publish(ctx context.Context, actor internal.Actor, id uuid.UUID) (Survey, error)
	GetBySlug(ctx context.Context, actor internal.Actor, surveySlug string) (Survey, error)
	List(ctx context.Context, actor internal.Actor) ([]Survey, error)
	VerifyPassword(ctx context.Context, surveySlug string, password string) (bool, error)
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
		tracer:        otel.Tracer("survey/handler"),
	}
}

func ToResponse(s Survey) Response {
	return Response{
		ID:                       s.ID,
		Name:                     s.Name,
		Description:              s.Description,
		Slug:                     s.Slug,
		IsEditable:               s.IsEditable,
		AllowMultipleSubmissions: s.AllowMultipleSubmissions,
		Published:                s.Published,
		CreatedBy:                s.CreatedBy,
		RecipientEmails:          s.RecipientEmails,
		HasPassword:              s.AccessPassword.Valid && s.AccessPassword.String != "",
		CreatedAt:                s.CreatedAt.Time.Format(time.RFC3339),
		UpdatedAt:                s.UpdatedAt.Time.Format(time.RFC3339),
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

	var req Request
	err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	created, err := h.store.Create(traceCtx, actor, req)
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

	id, err := handlerutil.ParseUUID(r.PathValue("id"))
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

	id, err := handlerutil.ParseUUID(r.PathValue("id"))
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

func (h *Handler) PublishHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "PublishHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	actor, ok := internal.GetActorFromContext(traceCtx)
	if !ok {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrNoActorInContext, logger)
		return
	}

	id, err := handlerutil.ParseUUID(r.PathValue("id"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	published, err := h.store.Publish(traceCtx, actor, id)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, ToResponse(published))
}

func (h *Handler) GetBySlugHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "GetBySlugHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	// Anonymous viewers are fine here; the access policy decides per survey.
	actor, _ := internal.GetActorFromContext(traceCtx)

	surveySlug := r.PathValue("slug")
	if surveySlug == "" {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrSurveyNotFound, logger)
		return
	}

	found, err := h.store.GetBySlug(traceCtx, actor, surveySlug)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, ToResponse(found))
}

func (h *Handler) VerifyPasswordHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "VerifyPasswordHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	surveySlug := r.PathValue("slug")
	if surveySlug == "" {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrSurveyNotFound, logger)
		return
	}

	var req PasswordRequest
	err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	valid, err := h.store.VerifyPassword(traceCtx, surveySlug, req.Password)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, PasswordResponse{Valid: valid})
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

	surveys, err := h.store.List(traceCtx, actor)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	responses := make([]Response, 0, len(surveys))
	for _, s := range surveys {
		responses = append(responses, ToResponse(s))
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, responses)
}
