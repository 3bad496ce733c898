package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/khoahotran/user-directory/adapters/event"
	"github.com/khoahotran/user-directory/adapters/mailer"
	notificationUC "github.com/khoahotran/user-directory/internal/application/usecase/notification"
	"github.com/khoahotran/user-directory/internal/config"
	"github.com/khoahotran/user-directory/pkg/logger"
	"github.com/khoahotran/user-directory/pkg/tracing"
)

func main() {
	// Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewZapLogger("development").Fatal("cannot load config", err)
	}
	appLogger := logger.NewZapLogger(cfg.App.Env)
	appLogger.Info("Starting User Directory Worker...")

	tp, err := tracing.NewTracerProvider(cfg, appLogger, "user-directory-worker")
	if err != nil {
		appLogger.Fatal("cannot init tracer", err)
	}
	if tp != nil {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	// Mailgun
	mg, err := mailer.NewMailgunMailer(cfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize mailer", err)
	}

	// Worker Use Case
	sendWelcomeUC := notificationUC.NewSendWelcomeEmailUseCase(mg, appLogger)

	// Kafka Consumer
	userConsumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    event.TopicUserEvents,
		GroupID:  "welcome-email-group",
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	defer userConsumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	appLogger.Info("Worker listening", zap.String("topic", event.TopicUserEvents))

	for {
		msg, err := userConsumer.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				appLogger.Info("Worker stopped")
				return
			}
			appLogger.Error("Failed to read message from Kafka", err)
			continue
		}

		l := appLogger.With(zap.String("topic", msg.Topic), zap.String("key", string(msg.Key)), zap.Int64("offset", msg.Offset))

		var payload event.UserEventPayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			l.Error("Failed to unmarshal event, skipping", err)
			commitMessage(ctx, userConsumer, msg, l)
			continue
		}

		if err := sendWelcomeUC.Execute(ctx, payload); err != nil {
			l.Error("Failed to process user event", err, zap.String("user_id", payload.UserID.String()))
			continue
		}

		commitMessage(ctx, userConsumer, msg, l)
	}
}

func commitMessage(ctx context.Context, consumer *kafka.Reader, msg kafka.Message, l logger.Logger) {
	if err := consumer.CommitMessages(ctx, msg); err != nil {
		l.Error("Failed to commit message", err)
	}
}
