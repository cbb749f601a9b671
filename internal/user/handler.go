package user

import (
	"context"
	"net/http"

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

type LoginRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID    uuid.UUID     `json:"id"`
	Email string        `json:"email"`
	Name  string        `json:"name"`
	Role  internal.Role `json:"role"`
}

type Store interface {
	Login(ctx context.Context, email, name string) (User, error)
	Get(ctx context.Context, id uuid.UUID) (User, error)
}

// TokenIssuer mints an access token for an authenticated actor.
type TokenIssuer interface {
	GenerateToken(ctx context.Context, actor internal.Actor) (string, error)
}

type Handler struct {
	logger        *zap.Logger
	validator     *validator.Validate
	problemWriter *problem.HttpWriter
	store         Store
	issuer        TokenIssuer
	tracer        trace.Tracer
}

func NewHandler(logger *zap.Logger, validator *validator.Validate, problemWriter *problem.HttpWriter, store Store, issuer TokenIssuer) *Handler {
	return &Handler{
		logger:        logger,
		validator:     validator,
		problemWriter: problemWriter,
		store:         store,
		issuer:        issuer,
		tracer:        otel.Tracer("user/handler"),
	}
}

func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "LoginHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	var req LoginRequest
	err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	u, err := h.store.Login(traceCtx, req.Email, req.Name)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	token, err := h.issuer.GenerateToken(traceCtx, Actor(u))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, LoginResponse{
		Token: token,
		User:  UserResponse{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role},
	})
}

// MeHandler returns the stored record of the actor resolved from the access
// token, so name and role changes show up without re-login.
func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "MeHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	actor, ok := internal.GetActorFromContext(traceCtx)
	if !ok {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrNoActorInContext, logger)
		return
	}

	u, err := h.store.Get(traceCtx, actor.ID)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, UserResponse{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
	})
}
