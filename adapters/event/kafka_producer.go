package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/khoahotran/user-directory/internal/config"
	"github.com/khoahotran/user-directory/internal/domain/user"
	"github.com/khoahotran/user-directory/pkg/logger"
)

const (
	TopicUserEvents = "user.events"
)

type UserEventType string

const (
	UserEventTypeRegistered UserEventType = "user.registered"
)

// UserEventPayload carries no credentials.
type UserEventPayload struct {
	EventType  UserEventType `json:"event_type"`
	UserID     uuid.UUID     `json:"user_id"`
	Email      string        `json:"email"`
	FirstName  string        `json:"first_name"`
	OccurredAt time.Time     `json:"occurred_at"`
}

func NewUserRegisteredPayload(u *user.User) UserEventPayload {
	return UserEventPayload{
		EventType:  UserEventTypeRegistered,
		UserID:     u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		OccurredAt: time.Now().UTC(),
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaProducerClient struct {
	UserEventsWriter messageWriter
	logger           logger.Logger
}

func NewKafkaProducerClient(cfg config.Config, log logger.Logger) (*KafkaProducerClient, error) {
	brokers := cfg.Kafka.Brokers
	if len(brokers) == 0 {
		return nil, fmt.Errorf("config Kafka brokers not found")
	}

	// writer 'user.events'
	userWriter := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  TopicUserEvents,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}

	log.Info("Initialize Kafka Producers successfully.")

	return &KafkaProducerClient{UserEventsWriter: userWriter, logger: log}, nil
}

func (c *KafkaProducerClient) PublishUserRegistered(ctx context.Context, u *user.User) error {
	return c.PublishUserEvent(ctx, NewUserRegisteredPayload(u))
}

// PublishUserEvent keys messages by user id so one user's events stay ordered.
func (c *KafkaProducerClient) PublishUserEvent(ctx context.Context, payload UserEventPayload) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal user event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(payload.UserID.String()),
		Value: value,
	}
	if err := c.UserEventsWriter.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write user event to kafka: %w", err)
	}
	return nil
}

func (c *KafkaProducerClient) Close() {
	if c.UserEventsWriter != nil {
		if err := c.UserEventsWriter.Close(); err != nil {
			c.logger.Warn("Failed to close Kafka writer", zap.Error(err))
		}
	}
	c.logger.Info("Closed Kafka Producers")
}
