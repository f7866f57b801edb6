package apiserver

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"brewfeed/internal/config"
	"brewfeed/internal/media"
	"brewfeed/internal/metrics"
	"brewfeed/internal/middleware"
	"brewfeed/internal/services"
)

// RouterDeps are the collaborators the HTTP surface needs.
type RouterDeps struct {
	AuthService       services.AuthService
	UserService       services.UserService
	FriendshipService services.FriendshipService
	FeedService       services.FeedService

	// Storage may be nil, which disables uploads.
	Storage       media.StorageService
	StorageConfig config.StorageConfig

	// Metrics may be nil, which disables /metrics and request metrics.
	Metrics     *metrics.Metrics
	MetricsPath string

	Logger *slog.Logger
}

// NewRouter 设置所有路由。
func NewRouter(deps RouterDeps) *mux.Router {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, "Not found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
	if deps.Metrics != nil {
		r.Use(middleware.MetricsMiddleware(deps.Metrics))
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, deps.Metrics.Handler()).Methods(http.MethodGet)
	}

	authHandler := NewAuthHandler(deps.AuthService, logger)
	profileHandler := NewProfileHandler(deps.UserService, logger)
	friendshipHandler := NewFriendshipHandler(deps.FriendshipService, logger)
	postHandler := NewPostHandler(deps.FeedService, logger)
	requireAuth := middleware.AuthMiddleware(deps.AuthService, logger)

	r.HandleFunc("/health", Health).Methods(http.MethodGet)

	// 公开路由
	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost)
	authRouter.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)
	authRouter.Handle("/me", requireAuth(http.HandlerFunc(authHandler.Me))).Methods(http.MethodGet)
	authRouter.Handle("/logout", requireAuth(http.HandlerFunc(authHandler.Logout))).Methods(http.MethodPost)

	// 受保护的路由
	r.Handle("/profile", requireAuth(http.HandlerFunc(profileHandler.UpdateProfile))).Methods(http.MethodPut)

	friends := r.PathPrefix("/friends").Subrouter()
	friends.Use(requireAuth)
	friends.HandleFunc("", friendshipHandler.ListFriends).Methods(http.MethodGet)
	friends.HandleFunc("/requests/pending", friendshipHandler.ListPending).Methods(http.MethodGet)
	friends.HandleFunc("/requests/sent", friendshipHandler.ListSent).Methods(http.MethodGet)
	friends.HandleFunc("/search", friendshipHandler.Search).Methods(http.MethodGet)
	friends.HandleFunc("/request", friendshipHandler.SendRequest).Methods(http.MethodPost)
	friends.HandleFunc("/accept/{friendshipId}", friendshipHandler.AcceptRequest).Methods(http.MethodPut)
	friends.HandleFunc("/{friendshipId}", friendshipHandler.Remove).Methods(http.MethodDelete)

	posts := r.PathPrefix("/posts").Subrouter()
	posts.Use(requireAuth)
	posts.HandleFunc("", postHandler.List).Methods(http.MethodGet)
	posts.HandleFunc("", postHandler.Create).Methods(http.MethodPost)
	posts.HandleFunc("/{id}", postHandler.Get).Methods(http.MethodGet)
	posts.HandleFunc("/{id}", postHandler.Update).Methods(http.MethodPut)
	posts.HandleFunc("/{id}", postHandler.Delete).Methods(http.MethodDelete)

	if deps.Storage != nil {
		uploadHandler := NewUploadHandler(deps.Storage, deps.StorageConfig, logger)
		r.Handle("/uploads", requireAuth(http.HandlerFunc(uploadHandler.UploadFile))).Methods(http.MethodPost)

		if deps.StorageConfig.Type == "local" && deps.StorageConfig.LocalPath != "" {
			prefix := strings.TrimSuffix(deps.StorageConfig.BaseURL, "/") + "/"
			fs := http.StripPrefix(prefix, http.FileServer(http.Dir(deps.StorageConfig.LocalPath)))
			r.PathPrefix(prefix).Handler(fs).Methods(http.MethodGet, http.MethodHead)
		}
	}

	return r
}
