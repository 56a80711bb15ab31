package worker

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/flicky/storefront-api/internal/model"
)

// Publisher sends checkout events to the checkouts queue through the default
// exchange.
type Publisher struct {
	channel *amqp.Channel
}

func NewPublisher(ch *amqp.Channel) *Publisher {
	return &Publisher{channel: ch}
}

func (p *Publisher) PublishCheckout(ctx context.Context, msg model.CheckoutMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal checkout message: %w", err)
	}
	err = p.channel.PublishWithContext(ctx, "", checkoutQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Timestamp:    msg.PurchasedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish checkout message: %w", err)
	}
	return nil
}
