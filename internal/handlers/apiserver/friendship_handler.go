package apiserver

import (
	"log/slog"
	"net/http"

	"brewfeed/internal/middleware"
	"brewfeed/internal/services"
)

// FriendshipHandler 封装了好友关系相关的 HTTP 处理器方法。
type FriendshipHandler struct {
	friendshipService services.FriendshipService
	logger            *slog.Logger
}

// NewFriendshipHandler 创建一个新的 FriendshipHandler 实例。
func NewFriendshipHandler(friendshipService services.FriendshipService, logger *slog.Logger) *FriendshipHandler {
	return &FriendshipHandler{friendshipService: friendshipService, logger: logger}
}

// SendRequest 发送好友请求。
func (h *FriendshipHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req services.FriendRequestInput
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	receiverID, err := req.ReceiverUUID()
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}

	detail, err := h.friendshipService.RequestFriendship(r.Context(), userID, receiverID)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, detail)
}

// AcceptRequest 接受好友请求，只有接收者可以接受。
func (h *FriendshipHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	friendshipID, ok := pathID(r, "friendshipId")
	if !ok {
		writeServiceError(w, h.logger, r, services.ErrFriendRequestNotFound)
		return
	}

	detail, err := h.friendshipService.AcceptFriendship(r.Context(), userID, friendshipID)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, detail)
}

// Remove 删除好友关系或取消/拒绝待处理的请求。
func (h *FriendshipHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	friendshipID, ok := pathID(r, "friendshipId")
	if !ok {
		writeServiceError(w, h.logger, r, services.ErrFriendshipNotFound)
		return
	}

	if err := h.friendshipService.RemoveFriendship(r.Context(), userID, friendshipID); err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, SuccessResponse{Success: true, Message: "Friendship removed"})
}

// ListFriends 获取好友列表。
func (h *FriendshipHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	friends, err := h.friendshipService.ListFriends(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, friends)
}

// ListPending 获取收到的待处理请求。
func (h *FriendshipHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	requests, err := h.friendshipService.ListPendingIncoming(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, requests)
}

// ListSent 获取发出的待处理请求。
func (h *FriendshipHandler) ListSent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	requests, err := h.friendshipService.ListPendingOutgoing(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, requests)
}

// Search 按名称或邮箱搜索用户，并附带与当前用户的关系状态。
func (h *FriendshipHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	results, err := h.friendshipService.SearchUsers(r.Context(), userID, r.URL.Query().Get("query"))
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, results)
}
