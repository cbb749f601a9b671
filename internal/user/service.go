package user

import (
	"context"
	"errors"
	"strings"

	"surveyhub/survey-backend/internal"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Querier interface {
	Upsert(ctx context.Context, arg UpsertParams) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
}

type Service struct {
	logger      *zap.Logger
	queries     Querier
	tracer      trace.Tracer
	adminEmails map[string]bool
}

func NewService(logger *zap.Logger, db DBTX, adminEmails []string) *Service {
	admins := make(map[string]bool, len(adminEmails))
	for _, email := range adminEmails {
		admins[normalizeEmail(email)] = true
	}
	return &Service{
		logger:      logger,
		queries:     New(db),
		tracer:      otel.Tracer("user/service"),
		adminEmails: admins,
	}
}

// Login upserts the user record for the given identity and returns it.
// The superuser role comes from the configured admin allow-list, never
// from the request.
func (s *Service) Login(ctx context.Context, email, name string) (User, error) {
	ctx, span := s.tracer.Start(ctx, "Login")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	email = normalizeEmail(email)
	if email == "" {
		return User{}, internal.ErrValidationFailed
	}

	role := internal.RoleUser
	if s.adminEmails[email] {
		role = internal.RoleSuperuser
	}

	tracker := logutil.StartDBOperation(ctx, logger, "Upsert", map[string]interface{}{
		"email": email,
	})

	u, err := s.queries.Upsert(ctx, UpsertParams{Email: email, Name: name, Role: role})
	if err != nil {
		err = databaseutil.WrapDBErrorWithTracker(err, tracker, "upsert user")
		span.RecordError(err)
		return User{}, err
	}

	tracker.SuccessWrite(u.ID.String())

	return u, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (User, error) {
	ctx, span := s.tracer.Start(ctx, "Get")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	u, err := s.queries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, internal.ErrNotFound
		}
		err = databaseutil.WrapDBError(err, logger, "get user by id")
		span.RecordError(err)
		return User{}, err
	}

	return u, nil
}

// Actor converts a user row to the request actor shape.
func Actor(u User) internal.Actor {
	return internal.Actor{ID: u.ID, Email: u.Email, Role: u.Role}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
