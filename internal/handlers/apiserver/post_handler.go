package apiserver

import (
	"log/slog"
	"net/http"

	"brewfeed/internal/middleware"
	"brewfeed/internal/services"
)

// PostHandler 封装了帖子相关的 HTTP 处理器方法。
type PostHandler struct {
	feedService services.FeedService
	logger      *slog.Logger
}

// NewPostHandler 创建一个新的 PostHandler 实例。
func NewPostHandler(feedService services.FeedService, logger *slog.Logger) *PostHandler {
	return &PostHandler{feedService: feedService, logger: logger}
}

// List returns the caller's feed.
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	posts, err := h.feedService.ListVisiblePosts(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, posts)
}

func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(r, "id")
	if !ok {
		writeServiceError(w, h.logger, r, services.ErrPostNotFound)
		return
	}
	post, err := h.feedService.GetPost(r.Context(), postID)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, post)
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req services.CreatePostInput
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	post, err := h.feedService.CreatePost(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, post)
}

func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	postID, ok := pathID(r, "id")
	if !ok {
		writeServiceError(w, h.logger, r, services.ErrPostNotFound)
		return
	}
	var req services.UpdatePostInput
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	post, err := h.feedService.UpdatePost(r.Context(), userID, postID, req)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, post)
}

func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	postID, ok := pathID(r, "id")
	if !ok {
		writeServiceError(w, h.logger, r, services.ErrPostNotFound)
		return
	}
	if err := h.feedService.DeletePost(r.Context(), userID, postID); err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, SuccessResponse{Success: true})
}
