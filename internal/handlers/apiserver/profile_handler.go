package apiserver

import (
	"log/slog"
	"net/http"

	"brewfeed/internal/middleware"
	"brewfeed/internal/services"
)

// ProfileHandler serves the caller's own profile.
type ProfileHandler struct {
	userService services.UserService
	logger      *slog.Logger
}

// NewProfileHandler 创建一个新的 ProfileHandler 实例。
func NewProfileHandler(userService services.UserService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{userService: userService, logger: logger}
}

// UpdateProfile applies the non-empty fields of {name, avatar}.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req services.UpdateProfileInput
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, user)
}
