package auth

import (
	"context"
	"net/http"
	"strings"

	"surveyhub/survey-backend/internal"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type TokenParser interface {
	ParseToken(ctx context.Context, raw string) (internal.Actor, error)
}

type Middleware struct {
	logger        *zap.Logger
	tracer        trace.Tracer
	problemWriter *problem.HttpWriter
	parser        TokenParser
}

func NewMiddleware(logger *zap.Logger, problemWriter *problem.HttpWriter, parser TokenParser) *Middleware {
	return &Middleware{
		logger:        logger,
		tracer:        otel.Tracer("auth/middleware"),
		problemWriter: problemWriter,
		parser:        parser,
	}
}

// AuthenticateMiddleware resolves the bearer token into an actor and puts it
// on the request context for downstream handlers.
func (m *Middleware) AuthenticateMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		traceCtx, span := m.tracer.Start(r.Context(), "AuthenticateMiddleware")
		defer span.End()
		logger := logutil.WithContext(traceCtx, m.logger)

		header := r.Header.Get("Authorization")
		if header == "" {
			m.problemWriter.WriteError(traceCtx, w, internal.ErrMissingAuthHeader, logger)
			return
		}

		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			m.problemWriter.WriteError(traceCtx, w, internal.ErrInvalidAuthHeaderFormat, logger)
			return
		}

		actor, err := m.parser.ParseToken(traceCtx, token)
		if err != nil {
			m.problemWriter.WriteError(traceCtx, w, err, logger)
			return
		}

		ctx := internal.WithActor(traceCtx, actor)
		next(w, r.WithContext(ctx))
	}
}

// OptionalAuthenticateMiddleware resolves an actor when a bearer token is
// present and lets the request through anonymously when it is not. A token
// that is present but invalid still fails the request.
func (m *Middleware) OptionalAuthenticateMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		traceCtx, span := m.tracer.Start(r.Context(), "OptionalAuthenticateMiddleware")
		defer span.End()
		logger := logutil.WithContext(traceCtx, m.logger)

		header := r.Header.Get("Authorization")
		if header == "" {
			next(w, r.WithContext(traceCtx))
			return
		}

		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			m.problemWriter.WriteError(traceCtx, w, internal.ErrInvalidAuthHeaderFormat, logger)
			return
		}

		actor, err := m.parser.ParseToken(traceCtx, token)
		if err != nil {
			m.problemWriter.WriteError(traceCtx, w, err, logger)
			return
		}

		ctx := internal.WithActor(traceCtx, actor)
		next(w, r.WithContext(ctx))
	}
}
