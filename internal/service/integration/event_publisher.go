package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/edujury/internal/models"
	"github.com/RubachokBoss/edujury/pkg/rabbitmq"
)

const (
	RoutingSessionStatusChanged = "session.status_changed"
	RoutingEvaluationCompleted  = "evaluation.completed"
)

// EventPublisher announces domain changes to other systems. Delivery is best
// effort: callers log failures and carry on.
type EventPublisher interface {
	PublishSessionStatusChanged(ctx context.Context, event *models.SessionStatusChangedEvent) error
	PublishEvaluationCompleted(ctx context.Context, event *models.EvaluationCompletedEvent) error
	Close() error
}

type rabbitMQPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   zerolog.Logger

	mu sync.Mutex
}

func NewRabbitMQPublisher(url, exchange string, logger zerolog.Logger) (EventPublisher, error) {
	conn, err := rabbitmq.NewConnection(url)
	if err != nil {
		return nil, err
	}

	channel, err := rabbitmq.NewChannel(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := rabbitmq.DeclareExchange(channel, exchange); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	logger.Info().
		Str("exchange", exchange).
		Msg("Connected to RabbitMQ")

	return &rabbitMQPublisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		logger:   logger,
	}, nil
}

func (p *rabbitMQPublisher) PublishSessionStatusChanged(ctx context.Context, event *models.SessionStatusChangedEvent) error {
	if err := p.publish(ctx, RoutingSessionStatusChanged, event); err != nil {
		return err
	}

	p.logger.Info().
		Str("session_id", event.SessionID).
		Str("from", event.From).
		Str("to", event.To).
		Msg("Session status event published")
	return nil
}

func (p *rabbitMQPublisher) PublishEvaluationCompleted(ctx context.Context, event *models.EvaluationCompletedEvent) error {
	if err := p.publish(ctx, RoutingEvaluationCompleted, event); err != nil {
		return err
	}

	p.logger.Info().
		Str("evaluation_id", event.EvaluationID).
		Int("total_score", event.TotalScore).
		Msg("Evaluation completed event published")
	return nil
}

func (p *rabbitMQPublisher) publish(ctx context.Context, routingKey string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(
		publishCtx,
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return models.NewCollaboratorError("publish "+routingKey, err)
	}
	return nil
}

func (p *rabbitMQPublisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Error().Err(err).Msg("Failed to close RabbitMQ channel")
		}
	}

	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			p.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}

	return nil
}

// NopPublisher drops events. It is used when the broker is disabled or
// unreachable at startup.
type NopPublisher struct {
	Logger zerolog.Logger
}

func (n NopPublisher) PublishSessionStatusChanged(_ context.Context, event *models.SessionStatusChangedEvent) error {
	n.Logger.Debug().Str("session_id", event.SessionID).Str("to", event.To).Msg("Event publishing disabled")
	return nil
}

func (n NopPublisher) PublishEvaluationCompleted(_ context.Context, event *models.EvaluationCompletedEvent) error {
	n.Logger.Debug().Str("evaluation_id", event.EvaluationID).Msg("Event publishing disabled")
	return nil
}

func (n NopPublisher) Close() error { return nil }
