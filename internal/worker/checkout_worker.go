package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flicky/storefront-api/internal/model"
)

const (
	checkoutQueueName = "checkouts"
	dlxExchange       = "checkouts.dlx"
	dlqQueueName      = "checkouts.dlq"
	idempotencyTTL    = 24 * time.Hour
	idempotencyPrefix = "checkout_processed:"
)

var errMalformed = errors.New("malformed checkout message")

// CacheInvalidator drops cached product details.
type CacheInvalidator interface {
	InvalidateCache(ctx context.Context, ids ...int64) error
}

// processedStore is the subset of *redis.Client used for idempotency keys.
type processedStore interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CheckoutWorker consumes committed checkouts: it refreshes the product cache
// for purchased products (their stock changed) and records a receipt.
// Deliveries are at-least-once, so each message id is processed once per TTL.
type CheckoutWorker struct {
	channel *amqp.Channel
	store   processedStore
	cache   CacheInvalidator
	log     *zap.Logger
	done    chan struct{}
}

func NewCheckoutWorker(
	ch *amqp.Channel,
	redisClient *redis.Client,
	cache CacheInvalidator,
	log *zap.Logger,
) *CheckoutWorker {
	return &CheckoutWorker{
		channel: ch,
		store:   redisClient,
		cache:   cache,
		log:     log,
		done:    make(chan struct{}),
	}
}

// SetupRabbitMQ declares exchanges, queues, and bindings (DLX/DLQ).
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueueName, checkoutQueueName, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(checkoutQueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": checkoutQueueName,
	}); err != nil {
		return fmt.Errorf("declare checkout queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}

func (w *CheckoutWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(checkoutQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("checkout worker started", zap.String("queue", checkoutQueueName))
	return nil
}

func (w *CheckoutWorker) Stop() { close(w.done) }

func decodeCheckout(body []byte) (model.CheckoutMessage, error) {
	var msg model.CheckoutMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if msg.ID == "" || msg.UserID <= 0 || len(msg.ProductIDs) == 0 {
		return msg, errMalformed
	}
	return msg, nil
}

func (w *CheckoutWorker) processMessage(ctx context.Context, d amqp.Delivery) {
	msg, err := decodeCheckout(d.Body)
	if err != nil {
		w.log.Error("decode checkout message", zap.Error(err))
		_ = d.Nack(false, false) // → DLQ
		return
	}

	log := w.log.With(
		zap.String("message_id", msg.ID),
		zap.Int64("user_id", msg.UserID),
		zap.Int64("cart_id", msg.CartID),
	)

	// Idempotency check via Redis
	key := idempotencyPrefix + msg.ID
	exists, err := w.store.Exists(ctx, key).Result()
	if err != nil {
		log.Error("check idempotency key", zap.Error(err))
		_ = d.Nack(false, true)
		return
	}
	if exists > 0 {
		log.Info("checkout already processed, skipping")
		_ = d.Ack(false)
		return
	}

	if err := w.cache.InvalidateCache(ctx, msg.ProductIDs...); err != nil {
		log.Error("invalidate product cache", zap.Error(err), zap.Bool("redelivered", d.Redelivered))
		// one retry, then the DLQ
		_ = d.Nack(false, !d.Redelivered)
		return
	}

	if err := w.store.Set(ctx, key, "1", idempotencyTTL).Err(); err != nil {
		log.Error("set idempotency key", zap.Error(err))
	}

	_ = d.Ack(false)
	log.Info("checkout processed",
		zap.Int64s("product_ids", msg.ProductIDs),
		zap.Time("purchased_at", msg.PurchasedAt),
	)
}
