package apiserver

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brewfeed/internal/auth"
	"brewfeed/internal/config"
	"brewfeed/internal/kafka"
	"brewfeed/internal/metrics"
	"brewfeed/internal/models"
	"brewfeed/internal/services"
	"brewfeed/internal/storage"
)

type testServer struct {
	router *mux.Router
	store  *storage.MockStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMock()
	users := storage.NewMockUserRepository(store)
	friendships := storage.NewMockFriendshipRepository(store)
	posts := storage.NewMockPostRepository(store)
	tokens := storage.NewMockTokenRepository(store)

	authCfg := config.AuthConfig{JWTSecretKey: "handler-secret", JWTExpiry: time.Hour, Issuer: "brewfeed-test"}
	storageCfg := config.StorageConfig{Type: "local", LocalPath: t.TempDir(), BaseURL: "/uploads", MaxFileSizeMB: 1}
	localStorage, err := storage.NewLocalStorageService(storageCfg)
	require.NoError(t, err)

	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	events := services.NewEventPublisher(&kafka.RecordingProducer{}, config.KafkaConfig{}, m, logger)

	router := NewRouter(RouterDeps{
		AuthService:       services.NewAuthService(users, tokens, auth.NewMemoryBlacklist(), authCfg, logger),
		UserService:       services.NewUserService(users),
		FriendshipService: services.NewFriendshipService(users, friendships, events, logger),
		FeedService:       services.NewFeedService(users, friendships, posts, events, logger),
		Storage:           localStorage,
		StorageConfig:     storageCfg,
		Metrics:           m,
		MetricsPath:       "/metrics",
		Logger:            logger,
	})
	return &testServer{router: router, store: store}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

type session struct {
	ID    uuid.UUID
	Token string
}

func (s *testServer) register(t *testing.T, name, email string) session {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{"name": name, "email": email, "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res services.AuthResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return session{ID: res.User.ID, Token: res.Token}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","message":"Server is running"}`, rec.Body.String())
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	ann := s.register(t, "Ann", "ann@example.com")

	rec := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{"name": "Ann", "email": "ann@example.com", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Email already registered"}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "nobody@example.com", "password": "secret"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ann@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid password"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/auth/me", ann.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "Ann", me["name"])
	assert.NotContains(t, me, "passwordHash")

	rec = s.do(t, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/logout", ann.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/auth/me", ann.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFriendshipEndpoints(t *testing.T) {
	s := newTestServer(t)
	ann := s.register(t, "Ann", "ann@example.com")
	bob := s.register(t, "Bob", "bob@example.com")

	rec := s.do(t, http.MethodPost, "/friends/request", ann.Token, map[string]string{"receiverId": ann.ID.String()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/friends/request", ann.Token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Receiver ID is required"}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/friends/request", ann.Token, map[string]string{"receiverId": uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/friends/request", ann.Token, map[string]string{"receiverId": bob.ID.String()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	detail := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "pending", detail["status"])
	assert.Equal(t, ann.ID.String(), detail["senderId"])
	sender := detail["sender"].(map[string]interface{})
	assert.Equal(t, "Ann", sender["name"])
	assert.NotContains(t, sender, "passwordHash")
	friendshipID := detail["id"].(string)

	rec = s.do(t, http.MethodPost, "/friends/request", bob.Token, map[string]string{"receiverId": ann.ID.String()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/friends/requests/pending", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pending := decode[[]models.IncomingRequest](t, rec)
	require.Len(t, pending, 1)
	assert.Equal(t, ann.ID, pending[0].Sender.ID)

	rec = s.do(t, http.MethodGet, "/friends/requests/sent", ann.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.OutgoingRequest](t, rec), 1)

	rec = s.do(t, http.MethodPut, "/friends/accept/"+friendshipID, ann.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPut, "/friends/accept/"+friendshipID, bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "accepted", decode[map[string]interface{}](t, rec)["status"])

	rec = s.do(t, http.MethodPut, "/friends/accept/"+friendshipID, bob.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/friends", ann.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	friends := decode[[]models.FriendEntry](t, rec)
	require.Len(t, friends, 1)
	assert.Equal(t, bob.ID, friends[0].Friend.ID)

	rec = s.do(t, http.MethodGet, "/friends/search?query=bo", ann.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	results := decode[[]map[string]interface{}](t, rec)
	require.Len(t, results, 1)
	assert.Equal(t, "friends", results[0]["friendshipStatus"])
	assert.Equal(t, friendshipID, results[0]["friendshipId"])

	rec = s.do(t, http.MethodGet, "/friends/search", ann.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/friends/not-a-uuid", ann.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, "/friends/"+friendshipID, bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"Friendship removed"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/friends", ann.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestPostEndpoints(t *testing.T) {
	s := newTestServer(t)
	ann := s.register(t, "Ann", "ann@example.com")
	bob := s.register(t, "Bob", "bob@example.com")

	rec := s.do(t, http.MethodPost, "/posts", ann.Token, map[string]interface{}{
		"beerName": "Pils", "place": "Pub", "rating": 4, "notes": "crisp", "imageUri": "/uploads/a.png",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	post := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "Ann", post["userName"])
	assert.Equal(t, "/uploads/a.png", post["imageUrl"])
	for _, key := range []string{"id", "userId", "userName", "userAvatar", "beerName", "place", "rating", "notes", "imageUrl", "createdAt", "updatedAt"} {
		assert.Contains(t, post, key)
	}
	postID := post["id"].(string)

	// Bob is not Ann's friend: empty feed, but direct fetch works.
	rec = s.do(t, http.MethodGet, "/posts", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/posts/"+postID, bob.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPut, "/posts/"+postID, bob.Token, map[string]interface{}{"beerName": "Nope"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Not authorized to update this post"}`, rec.Body.String())

	rec = s.do(t, http.MethodPut, "/posts/"+postID, ann.Token, map[string]interface{}{"beerName": "", "rating": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "Pils", updated["beerName"])
	assert.Equal(t, 5.0, updated["rating"])

	rec = s.do(t, http.MethodGet, "/posts", ann.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.FeedPost](t, rec), 1)

	rec = s.do(t, http.MethodDelete, "/posts/"+postID, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodDelete, "/posts/"+postID, ann.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/posts/"+postID, ann.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Post not found"}`, rec.Body.String())
}

func TestUpdateProfile(t *testing.T) {
	s := newTestServer(t)
	ann := s.register(t, "Ann", "ann@example.com")

	rec := s.do(t, http.MethodPut, "/profile", ann.Token, map[string]string{"name": "", "avatar": "/uploads/me.png"})
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[models.PublicUser](t, rec)
	assert.Equal(t, "Ann", profile.Name)
	require.NotNil(t, profile.Avatar)
	assert.Equal(t, "/uploads/me.png", *profile.Avatar)
}

func TestUploadAndServe(t *testing.T) {
	s := newTestServer(t)
	ann := s.register(t, "Ann", "ann@example.com")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="beer.png"`)
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("fake png bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+ann.Token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	info := decode[map[string]interface{}](t, rec)
	url := info["url"].(string)
	assert.Regexp(t, `^/uploads/[0-9a-f-]+\.png$`, url)

	rec = s.do(t, http.MethodGet, url, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fake png bytes", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/health", "", nil)

	rec := s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `brewfeed_http_requests_total{code="200",method="GET",route="/health"} 1`)
}
