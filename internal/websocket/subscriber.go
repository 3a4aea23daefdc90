package websocket

import (
	"context"
	"encoding/json"
	"errors"

	appredis "github.com/deployra/docsync/internal/redis"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// EventWebhookReceived is the frame clients get for every accepted delivery
const EventWebhookReceived = "webhook_received"

// StartRedisSubscriber relays accepted webhook deliveries to the project
// rooms of h until ctx is done.
func StartRedisSubscriber(ctx context.Context, client *redis.Client, h *Hub) {
	pubsub := client.Subscribe(ctx, appredis.ChannelWebhookReceived)
	defer pubsub.Close()

	log.Info().Str("channel", appredis.ChannelWebhookReceived).Msg("Subscribed to Redis channel")

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, redis.ErrClosed) {
				return
			}
			log.Warn().Err(err).Msg("Error receiving Redis message")
			continue
		}
		Dispatch(h, msg.Payload)
	}
}

// Dispatch decodes one published webhook event and broadcasts it to the
// room of its project. The delivery body is not forwarded.
func Dispatch(h *Hub, message string) {
	var event appredis.WebhookEvent
	if err := json.Unmarshal([]byte(message), &event); err != nil {
		log.Warn().Err(err).Msg("Error parsing Redis message")
		return
	}
	if event.ProjectID == "" {
		log.Warn().Msg("Webhook event without project")
		return
	}

	h.BroadcastToRoom(ProjectRoom(event.ProjectID), EventWebhookReceived, map[string]any{
		"projectId":       event.ProjectID,
		"projectSlug":     event.ProjectSlug,
		"integrationId":   event.IntegrationID,
		"integrationType": event.IntegrationType,
		"event":           event.Event,
		"deliveryId":      event.DeliveryID,
		"receivedAt":      event.ReceivedAt,
	})
}
