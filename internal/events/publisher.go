// Package events publishes committed orders to RabbitMQ for downstream
// consumers (kitchen displays, customer notifications). The exchange is
// a topic exchange keyed orders.created.<origin>, so a kitchen worker
// can bind only the origins it cooks for.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"comanda/internal/model"
)

const ordersExchange = "orders_topic"

type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func Dial(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(ordersExchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch}, nil
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

type orderCreatedEvent struct {
	EventType    string     `json:"event_type"`
	OrderID      uuid.UUID  `json:"order_id"`
	Number       int64      `json:"number"`
	Origin       string     `json:"origin"`
	TableNumber  *int       `json:"table_number,omitempty"`
	CustomerName string     `json:"customer_name"`
	TotalCents   int64      `json:"total_cents"`
	PendingID    *uuid.UUID `json:"pending_id,omitempty"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

// OrderCreated publishes a persistent message for an admitted order.
// PendingID is set when the order came through the queue.
func (p *Publisher) OrderCreated(ctx context.Context, order *model.Order, pendingID *uuid.UUID) error {
	ev := orderCreatedEvent{
		EventType:    "order.created",
		OrderID:      order.ID,
		Number:       order.Number,
		Origin:       string(order.Origin),
		TableNumber:  order.TableNumber,
		CustomerName: order.CustomerName,
		TotalCents:   order.TotalCents,
		PendingID:    pendingID,
		OccurredAt:   time.Now().UTC(),
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	key := "orders.created." + strings.ToLower(string(order.Origin))
	return p.ch.PublishWithContext(ctx, ordersExchange, key, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}
