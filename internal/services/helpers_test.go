package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"brewfeed/internal/auth"
	"brewfeed/internal/config"
	"brewfeed/internal/kafka"
	"brewfeed/internal/models"
	"brewfeed/internal/storage"
)

type testEnv struct {
	store       *storage.MockStore
	users       *storage.MockUserRepository
	friendships *storage.MockFriendshipRepository
	posts       *storage.MockPostRepository
	tokens      *storage.MockTokenRepository
	producer    *kafka.RecordingProducer
	blacklist   *auth.MemoryBlacklist

	authCfg    config.AuthConfig
	friendship FriendshipService
	feed       FeedService
	auth       AuthService
	user       UserService
}

var testKafkaConfig = config.KafkaConfig{FriendshipTopic: "friendships", PostTopic: "posts"}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMock()
	env := &testEnv{
		store:       store,
		users:       storage.NewMockUserRepository(store),
		friendships: storage.NewMockFriendshipRepository(store),
		posts:       storage.NewMockPostRepository(store),
		tokens:      storage.NewMockTokenRepository(store),
		producer:    &kafka.RecordingProducer{},
		blacklist:   auth.NewMemoryBlacklist(),
		authCfg:     config.AuthConfig{JWTSecretKey: "test-secret", JWTExpiry: time.Hour, Issuer: "brewfeed-test"},
	}
	events := NewEventPublisher(env.producer, testKafkaConfig, nil, logger)
	env.friendship = NewFriendshipService(env.users, env.friendships, events, logger)
	env.feed = NewFeedService(env.users, env.friendships, env.posts, events, logger)
	env.auth = NewAuthService(env.users, env.tokens, env.blacklist, env.authCfg, logger)
	env.user = NewUserService(env.users)
	return env
}

func (e *testEnv) addUser(t *testing.T, name, email string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: email, PasswordHash: "unused"}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

// befriend makes a and b accepted friends, with a as sender.
func (e *testEnv) befriend(t *testing.T, a, b *models.User) *models.FriendshipDetail {
	t.Helper()
	ctx := context.Background()
	req, err := e.friendship.RequestFriendship(ctx, a.ID, b.ID)
	require.NoError(t, err)
	accepted, err := e.friendship.AcceptFriendship(ctx, b.ID, req.ID)
	require.NoError(t, err)
	return accepted
}

func (e *testEnv) eventTypes(t *testing.T, topic string) []string {
	t.Helper()
	var types []string
	for _, m := range e.producer.Sent() {
		if m.Topic != topic {
			continue
		}
		var ev struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(m.Payload, &ev))
		types = append(types, ev.Type)
	}
	return types
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }
