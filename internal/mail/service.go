package mail

import (
	"context"
	"fmt"
	"strings"

	"surveyhub/survey-backend/internal/survey"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Message struct {
	To      string
	From    string
	Subject string
	Body    string
}

// Sender delivers a single message. Actual delivery (SMTP, provider API)
// lives behind this interface.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of delivering them. It is
// the default in development setups.
type LogSender struct {
	Logger *zap.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	s.Logger.Info("Mail delivery skipped, logging instead",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}

type Service struct {
	logger  *zap.Logger
	tracer  trace.Tracer
	sender  Sender
	baseURL string
	from    string
}

func NewService(logger *zap.Logger, sender Sender, baseURL, from string) *Service {
	return &Service{
		logger:  logger,
		tracer:  otel.Tracer("mail/service"),
		sender:  sender,
		baseURL: strings.TrimRight(baseURL, "/"),
		from:    from,
	}
}

// SendInvitations mails every allow-listed recipient a link to the survey.
// One bad address does not stop the rest; the first failure is reported
// after all sends were attempted.
func (s *Service) SendInvitations(ctx context.Context, sv survey.Survey) error {
	ctx, span := s.tracer.Start(ctx, "SendInvitations")
	defer span.End()

	link := fmt.Sprintf("%s/surveys/%s", s.baseURL, sv.Slug)

	var firstErr error
	for _, recipient := range sv.RecipientEmails {
		recipient = strings.TrimSpace(recipient)
		if recipient == "" {
			continue
		}

		msg := Message{
			To:      recipient,
			From:    s.from,
			Subject: fmt.Sprintf("You are invited to take the survey %q", sv.Name),
			Body:    fmt.Sprintf("Hello,\n\nYou have been invited to take the survey %q.\n\n%s\n\nOpen it here: %s\n", sv.Name, sv.Description, link),
		}

		if err := s.sender.Send(ctx, msg); err != nil {
			span.RecordError(err)
			s.logger.Warn("Failed to send survey invitation",
				zap.Error(err),
				zap.String("to", recipient),
				zap.String("survey_id", sv.ID.String()),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
