package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/deployra/docsync/internal/config"
	"github.com/redis/go-redis/v9"
)

// Redis channels
const (
	ChannelWebhookReceived = "webhook:received"
)

var (
	client *redis.Client
	once   sync.Once
)

// Initialize sets up the Redis client and tests the connection
func Initialize(cfg *config.Config) error {
	var initErr error
	once.Do(func() {
		client = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			DB:       0,
		})

		// Test connection
		ctx := context.Background()
		if err := client.Ping(ctx).Err(); err != nil {
			initErr = fmt.Errorf("failed to connect to Redis: %w", err)
		}
	})
	return initErr
}

// GetClient returns the Redis client
func GetClient() *redis.Client {
	return client
}

// WebhookEvent is published once an inbound delivery passes validation
type WebhookEvent struct {
	ProjectID       string          `json:"projectId"`
	ProjectSlug     string          `json:"projectSlug"`
	IntegrationID   string          `json:"integrationId"`
	IntegrationType string          `json:"integrationType"`
	Event           string          `json:"event,omitempty"`
	DeliveryID      string          `json:"deliveryId,omitempty"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	ReceivedAt      time.Time       `json:"receivedAt"`
}

// PublishWebhookReceived publishes an accepted webhook delivery
func PublishWebhookReceived(ctx context.Context, event WebhookEvent) error {
	message, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook message: %w", err)
	}

	return client.Publish(ctx, ChannelWebhookReceived, message).Err()
}

// ErrLockNotHeld is returned by Release when the lock expired or was taken
// over by another holder
var ErrLockNotHeld = errors.New("lock not held")

// releaseScript deletes KEYS[1] only while it still holds ARGV[1]
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a SETNX based distributed lock. Each holder stores its own token
// so a holder whose TTL ran out cannot release the next holder's lock.
type Locker struct {
	client *redis.Client
}

// NewLocker returns a lock backed by c
func NewLocker(c *redis.Client) *Locker {
	return &Locker{client: c}
}

// Acquire tries to take key for ttl on behalf of token, 30 seconds when ttl
// is not positive
func (l *Locker) Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	result, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}

	return result, nil
}

// Release deletes key if token still holds it
func (l *Locker) Release(ctx context.Context, key, token string) error {
	deleted, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if deleted == 0 {
		return ErrLockNotHeld
	}
	return nil
}
