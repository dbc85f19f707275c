package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"carpool/internal/trip"
)

// Store persists notification rows.
type Store interface {
	InsertNotification(ctx context.Context, n trip.Notification) error
}

// Broker fans notifications out to delivery workers (push, email, SMS).
type Broker interface {
	Publish(ctx context.Context, n trip.Notification) error
	Close() error
}

// Notifier writes a notification row and, when a broker is configured,
// publishes it for asynchronous delivery. Broker errors are logged, not
// returned: the row is the source of truth.
type Notifier struct {
	store  Store
	broker Broker
}

func New(store Store, broker Broker) *Notifier {
	return &Notifier{store: store, broker: broker}
}

// Send builds and records one notification.
func (n *Notifier) Send(ctx context.Context, recipientID, senderID string, typ trip.NotificationType, title, message string, data map[string]any, priority trip.NotificationPriority) (trip.Notification, error) {
	if priority == "" {
		priority = trip.PriorityMedium
	}
	note := trip.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		SenderID:    senderID,
		Type:        typ,
		Title:       title,
		Message:     message,
		Data:        data,
		Priority:    priority,
		CreatedAt:   time.Now().UTC(),
	}
	if n.store != nil {
		if err := n.store.InsertNotification(ctx, note); err != nil {
			return trip.Notification{}, err
		}
	}
	if n.broker != nil {
		if err := n.broker.Publish(ctx, note); err != nil {
			log.Printf(`{"event":"notify_publish_failed","type":%q,"error":%q}`, typ, err.Error())
		}
	}
	return note, nil
}

// Broadcast sends the same announcement to every recipient.
func (n *Notifier) Broadcast(ctx context.Context, recipientIDs []string, senderID, title, message string) (int, error) {
	sent := 0
	for _, id := range recipientIDs {
		if _, err := n.Send(ctx, id, senderID, trip.NotifySystemAnnouncement, title, message, nil, trip.PriorityHigh); err != nil {
			return sent, fmt.Errorf("broadcast to %s: %w", id, err)
		}
		sent++
	}
	return sent, nil
}

const (
	exchangeName = "carpool.notifications"
)

// AMQPBroker publishes notifications to a durable topic exchange. Routing
// keys take the form notify.<type> so delivery workers can bind per channel.
type AMQPBroker struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func DialAMQP(url string) (*AMQPBroker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := channel.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPBroker{conn: conn, channel: channel}, nil
}

func (b *AMQPBroker) Publish(ctx context.Context, n trip.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return b.channel.PublishWithContext(ctx,
		exchangeName,
		"notify."+string(n.Type),
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    n.CreatedAt,
			MessageId:    n.ID,
		})
}

func (b *AMQPBroker) Close() error {
	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
