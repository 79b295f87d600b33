package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jjjimenez100/backend-coding-test/config"
	"github.com/jjjimenez100/backend-coding-test/internal/models"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	EventRideCreated = "ride.created"
	eventTypeKey     = "event_type"
	sourceKey        = "source"
	sourceName       = "rides-api"
	receiveBatchSize = 10
)

var ErrMessagingDisabled = errors.New("messaging is disabled")

// RidePublisher announces ride lifecycle events
type RidePublisher interface {
	PublishRideCreated(ctx context.Context, ride models.Ride) error
	Close() error
}

// RideEventHandler processes one decoded ride-created event
type RideEventHandler func(ctx context.Context, event models.RideCreatedEvent) error

// receiver is the subset of *azservicebus.Receiver the consumer loop needs
type receiver interface {
	ReceiveMessages(ctx context.Context, maxMessages int, options *azservicebus.ReceiveMessagesOptions) ([]*azservicebus.ReceivedMessage, error)
	CompleteMessage(ctx context.Context, message *azservicebus.ReceivedMessage, options *azservicebus.CompleteMessageOptions) error
	AbandonMessage(ctx context.Context, message *azservicebus.ReceivedMessage, options *azservicebus.AbandonMessageOptions) error
	Close(ctx context.Context) error
}

// AzureServiceBus publishes and consumes ride events on one queue
type AzureServiceBus struct {
	client    *azservicebus.Client
	sender    *azservicebus.Sender
	queueName string
}

var _ RidePublisher = (*AzureServiceBus)(nil)

// NewAzureServiceBus connects to the configured queue. An empty connection
// string returns ErrMessagingDisabled.
func NewAzureServiceBus(cfg config.AzureConfig) (*AzureServiceBus, error) {
	if cfg.QueueConnStr == "" {
		return nil, ErrMessagingDisabled
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.QueueConnStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}

	sender, err := client.NewSender(cfg.QueueName, nil)
	if err != nil {
		_ = client.Close(context.Background())
		return nil, errors.Wrap(err, "failed to create Service Bus sender")
	}

	return &AzureServiceBus{
		client:    client,
		sender:    sender,
		queueName: cfg.QueueName,
	}, nil
}

// PublishRideCreated sends a ride.created event for a persisted ride
func (a *AzureServiceBus) PublishRideCreated(ctx context.Context, ride models.Ride) error {
	msg, err := newRideCreatedMessage(models.NewRideCreatedEvent(ride))
	if err != nil {
		return err
	}

	if err := a.sender.SendMessage(ctx, msg, nil); err != nil {
		return errors.Wrap(err, "failed to send ride created event")
	}
	return nil
}

// ProcessMessages receives events until ctx is canceled. Messages the handler
// fails on are abandoned so the broker redelivers them.
func (a *AzureServiceBus) ProcessMessages(ctx context.Context, handler RideEventHandler) error {
	r, err := a.client.NewReceiverForQueue(a.queueName, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create Service Bus receiver")
	}
	return consume(ctx, r, handler)
}

// Close closes the sender then the client
func (a *AzureServiceBus) Close() error {
	ctx := context.Background()
	if a.sender != nil {
		if err := a.sender.Close(ctx); err != nil {
			return errors.Wrap(err, "failed to close Service Bus sender")
		}
	}
	if a.client != nil {
		return a.client.Close(ctx)
	}
	return nil
}

func consume(ctx context.Context, r receiver, handler RideEventHandler) error {
	defer func() {
		if err := r.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("Error closing Service Bus receiver")
		}
	}()

	for {
		messages, err := r.ReceiveMessages(ctx, receiveBatchSize, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "failed to receive messages")
		}

		for _, msg := range messages {
			handleMessage(ctx, r, msg, handler)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func handleMessage(ctx context.Context, r receiver, msg *azservicebus.ReceivedMessage, handler RideEventHandler) {
	event, err := decodeRideCreated(msg)
	if err != nil {
		// Undecodable messages would be redelivered forever
		log.Error().Err(err).Str("message_id", msg.MessageID).Msg("Dropping malformed ride event")
		if err := r.CompleteMessage(ctx, msg, nil); err != nil {
			log.Error().Err(err).Str("message_id", msg.MessageID).Msg("Failed to complete message")
		}
		return
	}

	if err := handler(ctx, event); err != nil {
		log.Error().Err(err).Int64("ride_id", event.RideID).Msg("Error processing ride event")
		if err := r.AbandonMessage(ctx, msg, nil); err != nil {
			log.Error().Err(err).Str("message_id", msg.MessageID).Msg("Failed to abandon message")
		}
		return
	}

	if err := r.CompleteMessage(ctx, msg, nil); err != nil {
		log.Error().Err(err).Str("message_id", msg.MessageID).Msg("Failed to complete message")
	}
}

func newRideCreatedMessage(event models.RideCreatedEvent) (*azservicebus.Message, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal ride created event")
	}

	messageID := event.EventID.String()
	contentType := "application/json"
	return &azservicebus.Message{
		MessageID:   &messageID,
		ContentType: &contentType,
		Body:        body,
		ApplicationProperties: map[string]interface{}{
			eventTypeKey: EventRideCreated,
			sourceKey:    sourceName,
			"time":       event.OccurredAt.Format(time.RFC3339),
		},
	}, nil
}

func decodeRideCreated(msg *azservicebus.ReceivedMessage) (models.RideCreatedEvent, error) {
	var event models.RideCreatedEvent
	if eventType, ok := msg.ApplicationProperties[eventTypeKey]; ok && eventType != EventRideCreated {
		return event, errors.Errorf("unexpected event type %v", eventType)
	}
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return event, errors.Wrap(err, "failed to unmarshal ride created event")
	}
	if event.RideID <= 0 {
		return event, errors.New("ride created event without ride id")
	}
	return event, nil
}
