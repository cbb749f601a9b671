package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"surveyhub/survey-backend/internal"
	"surveyhub/survey-backend/internal/analysis"
	"surveyhub/survey-backend/internal/auth"
	"surveyhub/survey-backend/internal/config"
	"surveyhub/survey-backend/internal/cors"
	"surveyhub/survey-backend/internal/mail"
	"surveyhub/survey-backend/internal/question"
	"surveyhub/survey-backend/internal/response"
	"surveyhub/survey-backend/internal/survey"
	"surveyhub/survey-backend/internal/trace"
	"surveyhub/survey-backend/internal/user"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.6.1"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var AppName = "no-app-name"

var Version = "no-version"

var BuildTime = "no-build-time"

var CommitHash = "no-commit-hash"

var Environment = "no-env"

const tokenExpiration = 24 * time.Hour

func main() {
	AppName = os.Getenv("APP_NAME")
	if AppName == "" {
		AppName = "survey-backend"
	}

	if BuildTime == "no-build-time" {
		now := time.Now()
		BuildTime = "not provided (now: " + now.Format(time.RFC3339) + ")"
	}

	Environment = os.Getenv("ENV")
	if Environment == "" {
		Environment = "no-env"
	}

	appMetadata := []zap.Field{
		zap.String("app_name", AppName),
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit_hash", CommitHash),
		zap.String("environment", Environment),
	}

	cfg := config.Load()
	err := cfg.Validate()
	if err != nil {
		if errors.Is(err, config.ErrDatabaseURLRequired) {
			title := "Database URL is required"
			message := "Please set the DATABASE_URL environment variable or provide a config file with the database_url key."
			log.Fatal(EarlyApplicationFailed(title, message))
		} else {
			log.Fatalf("Failed to validate config: %v, exiting...", err)
		}
	}

	logger, err := initLogger(&cfg, appMetadata)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v, exiting...", err)
	}

	if cfg.Secret == config.DefaultSecret && !cfg.Debug {
		logger.Warn("Default secret detected in production environment, replace it with a secure random string")
		cfg.Secret = uuid.New().String()
	}

	logger.Info("Starting application...")

	logger.Info("Starting database migration...")

	err = databaseutil.MigrationUp(cfg.MigrationSource, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to run database migration", zap.Error(err))
	}

	dbPool, err := initDatabasePool(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to initialize database pool", zap.Error(err))
	}
	defer dbPool.Close()

	shutdown, err := initOpenTelemetry(AppName, Version, BuildTime, CommitHash, Environment, cfg.OtelCollectorUrl)
	if err != nil {
		logger.Fatal("Failed to initialize OpenTelemetry", zap.Error(err))
	}

	validator := internal.NewValidator()
	problemWriter := internal.NewProblemWriter()

	// ============================================
	// Service
	// ============================================

	userService := user.NewService(logger, dbPool, cfg.AdminEmails)
	authService := auth.NewService(logger, cfg.Secret, tokenExpiration)
	mailService := mail.NewService(logger, mail.LogSender{Logger: logger}, cfg.BaseURL, cfg.MailSender)
	surveyService := survey.NewService(logger, dbPool, mailService)
	questionService := question.NewService(logger, dbPool, surveyService)
	responseService := response.NewService(logger, dbPool, response.NewPoolTxRunner(dbPool), surveyService, questionService)
	analysisService := analysis.NewService(logger, surveyService, questionService, responseService, analysis.NopRenderer{})

	// ============================================
	// Handler
	// ============================================

	userHandler := user.NewHandler(logger, validator, problemWriter, userService, authService)
	surveyHandler := survey.NewHandler(logger, validator, problemWriter, surveyService)
	questionHandler := question.NewHandler(logger, validator, problemWriter, questionService)
	responseHandler := response.NewHandler(logger, validator, problemWriter, responseService)
	analysisHandler := analysis.NewHandler(logger, problemWriter, analysisService)

	// ============================================
	// Middleware
	// ============================================

	traceMiddleware := trace.NewMiddleware(logger, cfg.Debug)
	corsMiddleware := cors.NewMiddleware(logger, cfg.AllowOrigins)
	authMiddleware := auth.NewMiddleware(logger, problemWriter, authService)

	// Basic Middleware (Tracing and Recovery)
	basicSet := middleware.NewSet(traceMiddleware.RecoverMiddleware)
	basicSet = basicSet.Append(traceMiddleware.TraceMiddleware)

	// Auth Middleware
	authSet := basicSet.Append(authMiddleware.AuthenticateMiddleware)

	// Optional-auth Middleware (anonymous submissions on open surveys)
	optionalAuthSet := basicSet.Append(authMiddleware.OptionalAuthenticateMiddleware)

	// HTTP Server
	mux := http.NewServeMux()

	// Health check route
	mux.Handle("GET /api/healthz", basicSet.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		if err != nil {
			logger.Error("Failed to write response", zap.Error(err))
		}
	}))

	// Authentication
	// ----------------------
	mux.Handle("POST /api/auth/login", basicSet.HandlerFunc(userHandler.LoginHandler))
	mux.Handle("GET /api/users/me", authSet.HandlerFunc(userHandler.MeHandler))

	// Survey Management
	// ----------------------
	mux.Handle("GET /api/surveys", authSet.HandlerFunc(surveyHandler.ListHandler))
	mux.Handle("POST /api/surveys", authSet.HandlerFunc(surveyHandler.CreateHandler))
	mux.Handle("GET /api/surveys/{slug}", optionalAuthSet.HandlerFunc(surveyHandler.GetBySlugHandler))
	mux.Handle("PUT /api/surveys/{id}", authSet.HandlerFunc(surveyHandler.UpdateHandler))
	mux.Handle("DELETE /api/surveys/{id}", authSet.HandlerFunc(surveyHandler.DeleteHandler))

	// -- Survey Operations
	mux.Handle("POST /api/surveys/{id}/publish", authSet.HandlerFunc(surveyHandler.PublishHandler))
	mux.Handle("POST /api/surveys/{slug}/password", basicSet.HandlerFunc(surveyHandler.VerifyPasswordHandler))

	// Question Management
	// ----------------------
	mux.Handle("GET /api/surveys/{survey_id}/questions", optionalAuthSet.HandlerFunc(questionHandler.ListBySurveyHandler))
	mux.Handle("POST /api/surveys/{survey_id}/questions", authSet.HandlerFunc(questionHandler.CreateHandler))
	mux.Handle("PUT /api/surveys/{survey_id}/questions/{question_id}", authSet.HandlerFunc(questionHandler.UpdateHandler))
	mux.Handle("DELETE /api/surveys/{survey_id}/questions/{question_id}", authSet.HandlerFunc(questionHandler.DeleteHandler))

	// Response Management
	// ----------------------
	mux.Handle("POST /api/surveys/{survey_id}/responses", optionalAuthSet.HandlerFunc(responseHandler.SubmitHandler))
	mux.Handle("GET /api/surveys/{survey_id}/responses", authSet.HandlerFunc(responseHandler.ListHandler))
	mux.Handle("DELETE /api/responses/{response_id}", authSet.HandlerFunc(responseHandler.DeleteHandler))

	// Analysis
	// ----------------------
	mux.Handle("GET /api/surveys/{survey_id}/analysis", authSet.HandlerFunc(analysisHandler.AnalyzeHandler))
	mux.Handle("GET /api/surveys/{survey_id}/analysis/export", authSet.HandlerFunc(analysisHandler.ExportHandler))

	// handle interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// CORS and Entry Point
	entrypoint := corsMiddleware.HandlerFunc(mux.ServeHTTP)

	srv := &http.Server{
		Addr:    cfg.Host + ":" + cfg.Port,
		Handler: entrypoint,
	}

	go func() {
		logger.Info("Starting listening request", zap.String("host", cfg.Host), zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Fail to start server with error", zap.Error(err))
		}
	}()

	// wait for context close
	<-ctx.Done()
	logger.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	otelCtx, otelCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer otelCancel()
	if err := shutdown(otelCtx); err != nil {
		logger.Error("Forced to shutdown OpenTelemetry", zap.Error(err))
	}

	logger.Info("Successfully shutdown")
}

func initLogger(cfg *config.Config, appMetadata []zap.Field) (*zap.Logger, error) {
	var err error
	var logger *zap.Logger
	if cfg.Debug {
		logger, err = logutil.ZapDevelopmentConfig().Build()
		if err != nil {
			return nil, err
		}
		logger.Info("Running in debug mode", appMetadata...)
	} else {
		logger, err = logutil.ZapProductionConfig().Build()
		if err != nil {
			return nil, err
		}

		logger = logger.With(appMetadata...)
	}
	defer func() {
		err := logger.Sync()
		if err != nil {
			zap.S().Errorw("Failed to sync logger", zap.Error(err))
		}
	}()

	return logger, nil
}

func initDatabasePool(databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	dbPool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, err
	}
	return dbPool, nil
}

func initOpenTelemetry(appName, version, buildTime, commitHash, environment, otelCollectorUrl string) (func(context.Context) error, error) {
	ctx := context.Background()

	serviceName := semconv.ServiceNameKey.String(appName)
	serviceVersion := semconv.ServiceVersionKey.String(version)
	serviceNamespace := semconv.ServiceNamespaceKey.String("surveyhub")
	serviceCommitHash := attribute.String("service.commit_hash", commitHash)
	serviceEnvironment := semconv.DeploymentEnvironmentKey.String(environment)

	res, err := resource.New(ctx,
		resource.WithAttributes(
			serviceName,
			serviceVersion,
			serviceNamespace,
			serviceCommitHash,
			serviceEnvironment,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	options := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}

	if otelCollectorUrl != "" {
		conn, err := initGrpcConn(otelCollectorUrl)
		if err != nil {
			return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
		}

		traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}

		bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
		options = append(options, sdktrace.WithSpanProcessor(bsp))
	}

	tracerProvider := sdktrace.NewTracerProvider(options...)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tracerProvider.Shutdown, nil
}

func initGrpcConn(target string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	return conn, nil
}

func EarlyApplicationFailed(title, action string) string {
	result := `
-----------------------------------------
Application Failed to Start
-----------------------------------------

# What's wrong?
%s

# How to fix it?
%s

`

	result = fmt.Sprintf(result, title, action)
	return result
}
