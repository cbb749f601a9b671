package analysis

import (
	"context"
	"fmt"
	"net/http"

	"surveyhub/survey-backend/internal"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Store interface {
	Analyze(ctx context.Context, actor internal.Actor, surveyID uuid.UUID, requestedRespondent uuid.UUID) (Report, error)
	Export(ctx context.Context, actor internal.Actor, surveyID uuid.UUID) ([]byte, error)
}

type Handler struct {
	logger        *zap.Logger
	problemWriter *problem.HttpWriter
	store         Store
	tracer        trace.Tracer
}

func NewHandler(logger *zap.Logger, problemWriter *problem.HttpWriter, store Store) *Handler {
	return &Handler{
		logger:        logger,
		problemWriter: problemWriter,
		store:         store,
		tracer:        otel.Tracer("analysis/handler"),
	}
}

func (h *Handler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "AnalyzeHandler")
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

	report, err := h.store.Analyze(traceCtx, actor, surveyID, requestedRespondent)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, report)
}

func (h *Handler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "ExportHandler")
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

	workbook, err := h.store.Export(traceCtx, actor, surveyID)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "survey-report.xlsx"))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(workbook); err != nil {
		logger.Warn("Failed to write export body", zap.Error(err))
	}
}
