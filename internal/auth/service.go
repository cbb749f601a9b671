package auth

import (
	"context"
	"time"

	"surveyhub/survey-backend/internal"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const Issuer = "survey-hub"

type claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Service mints and parses the access tokens that carry an actor descriptor.
type Service struct {
	logger     *zap.Logger
	tracer     trace.Tracer
	secret     string
	expiration time.Duration
}

func NewService(logger *zap.Logger, secret string, expiration time.Duration) *Service {
	return &Service{
		logger:     logger,
		tracer:     otel.Tracer("auth/service"),
		secret:     secret,
		expiration: expiration,
	}
}

func (s *Service) GenerateToken(ctx context.Context, actor internal.Actor) (string, error) {
	_, span := s.tracer.Start(ctx, "GenerateToken")
	defer span.End()

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: actor.Email,
		Role:  string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   actor.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
		},
	})

	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	return signed, nil
}

func (s *Service) ParseToken(ctx context.Context, raw string) (internal.Actor, error) {
	ctx, span := s.tracer.Start(ctx, "ParseToken")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	var c claims
	token, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.secret), nil
	}, jwt.WithIssuer(Issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		logger.Debug("Failed to parse access token", zap.Error(err))
		span.RecordError(err)
		return internal.Actor{}, internal.ErrInvalidJWTToken
	}

	id, err := uuid.Parse(c.Subject)
	if err != nil {
		span.RecordError(err)
		return internal.Actor{}, internal.ErrInvalidJWTToken
	}

	role := internal.Role(c.Role)
	if role != internal.RoleSuperuser {
		role = internal.RoleUser
	}

	return internal.Actor{
		ID:    id,
		Email: c.Email,
		Role:  role,
	}, nil
}
