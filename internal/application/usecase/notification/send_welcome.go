package notification

import (
	"context"
	"fmt"
	"html"
	"strings"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/khoahotran/user-directory/adapters/event"
	"github.com/khoahotran/user-directory/internal/application/service"
	"github.com/khoahotran/user-directory/pkg/apperror"
	"github.com/khoahotran/user-directory/pkg/logger"
)

var tracer = otel.Tracer("notification_usecase")

const welcomeSubject = "Welcome to the directory"

type SendWelcomeEmailUseCase struct {
	mailer service.Mailer
	logger logger.Logger
}

func NewSendWelcomeEmailUseCase(m service.Mailer, log logger.Logger) *SendWelcomeEmailUseCase {
	return &SendWelcomeEmailUseCase{mailer: m, logger: log}
}

// Execute ignores event types other than user.registered.
func (uc *SendWelcomeEmailUseCase) Execute(ctx context.Context, payload event.UserEventPayload) error {
	ctx, span := tracer.Start(ctx, "SendWelcomeEmail")
	defer span.End()

	l := uc.logger.With(zap.String("user_id", payload.UserID.String()), zap.String("event_type", string(payload.EventType)))

	if payload.EventType != event.UserEventTypeRegistered {
		l.Info("Skipping event, not a registration")
		return nil
	}
	if payload.Email == "" {
		l.Warn("Registration event without email, skipping")
		return nil
	}

	name := strings.TrimSpace(payload.FirstName)
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("Hi %s,\n\nYour account has been created.\n", name)
	body := fmt.Sprintf("<p>Hi %s,</p><p>Your account has been created.</p>", html.EscapeString(name))

	if err := uc.mailer.Send(ctx, payload.Email, welcomeSubject, text, body); err != nil {
		span.RecordError(err)
		return apperror.NewInternal("failed to send welcome email", err)
	}

	l.Info("Welcome email sent")
	return nil
}
