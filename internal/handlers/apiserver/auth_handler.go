package apiserver

import (
	"log/slog"
	"net/http"

	"brewfeed/internal/middleware"
	"brewfeed/internal/services"
)

// AuthHandler 封装了认证相关的 HTTP 处理器方法。
type AuthHandler struct {
	authService services.AuthService
	logger      *slog.Logger
}

// NewAuthHandler 创建一个新的 AuthHandler 实例。
func NewAuthHandler(authService services.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

// Register 处理用户注册请求。
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.authService.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, result)
}

// Login 处理用户登录请求。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginInput
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.authService.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, result)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSONResponse(w, http.StatusOK, user.Public())
}

// Logout 处理用户登出请求，将当前 Token 加入黑名单。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.authService.Logout(r.Context(), claims); err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, SuccessResponse{Success: true, Message: "Logged out"})
}
