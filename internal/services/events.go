package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"brewfeed/internal/config"
	"brewfeed/internal/kafka"
	"brewfeed/internal/metrics"
	"brewfeed/internal/models"
)

// publishTimeout bounds one delivery attempt.
const publishTimeout = 5 * time.Second

// Event types.
const (
	EventFriendshipRequested = "friendship.requested"
	EventFriendshipAccepted  = "friendship.accepted"
	EventFriendshipRemoved   = "friendship.removed"
	EventPostCreated         = "post.created"
	EventPostUpdated         = "post.updated"
	EventPostDeleted         = "post.deleted"
)

// FriendshipEvent is published after every friendship transition.
type FriendshipEvent struct {
	Type         string                  `json:"type"`
	FriendshipID uuid.UUID               `json:"friendshipId"`
	SenderID     uuid.UUID               `json:"senderId"`
	ReceiverID   uuid.UUID               `json:"receiverId"`
	Status       models.FriendshipStatus `json:"status"`
	ActorID      uuid.UUID               `json:"actorId"`
	OccurredAt   time.Time               `json:"occurredAt"`
}

// PostEvent is published after every post write.
type PostEvent struct {
	Type       string    `json:"type"`
	PostID     uuid.UUID `json:"postId"`
	AuthorID   uuid.UUID `json:"authorId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// EventPublisher sends domain events to Kafka and counts transitions.
// Delivery is best effort: failures are logged and never returned.
type EventPublisher struct {
	producer kafka.MessageProducer
	cfg      config.KafkaConfig
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewEventPublisher builds a publisher. m may be nil.
func NewEventPublisher(producer kafka.MessageProducer, cfg config.KafkaConfig, m *metrics.Metrics, logger *slog.Logger) *EventPublisher {
	if producer == nil {
		producer = kafka.NewNoopProducer()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventPublisher{producer: producer, cfg: cfg, metrics: m, logger: logger}
}

// FriendshipKey is the partition key of a pair: the canonical ids joined by ':'.
func FriendshipKey(f *models.Friendship) string {
	low, high := models.CanonicalPair(f.SenderID, f.ReceiverID)
	return low.String() + ":" + high.String()
}

// PublishFriendship reports a transition of f performed by actor.
func (p *EventPublisher) PublishFriendship(ctx context.Context, eventType string, f *models.Friendship, actor uuid.UUID) {
	p.metrics.FriendshipTransition(eventType)
	p.send(ctx, p.cfg.FriendshipTopic, FriendshipKey(f), FriendshipEvent{
		Type:         eventType,
		FriendshipID: f.ID,
		SenderID:     f.SenderID,
		ReceiverID:   f.ReceiverID,
		Status:       f.Status,
		ActorID:      actor,
		OccurredAt:   time.Now().UTC(),
	})
}

// PublishPost reports a write to post.
func (p *EventPublisher) PublishPost(ctx context.Context, eventType string, post *models.Post) {
	p.metrics.PostMutation(eventType)
	p.send(ctx, p.cfg.PostTopic, post.UserID.String(), PostEvent{
		Type:       eventType,
		PostID:     post.ID,
		AuthorID:   post.UserID,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *EventPublisher) send(ctx context.Context, topic, key string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("marshal event", "topic", topic, "error", err)
		return
	}

	// The request may already be finished; delivery gets its own deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.producer.SendMessage(ctx, topic, []byte(key), payload); err != nil {
		p.metrics.EventPublishFailed(topic)
		p.logger.Warn("publish event", "topic", topic, "key", key, "error", err)
	}
}
