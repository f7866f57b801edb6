package apiserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"brewfeed/internal/services"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// ErrorResponse 是 API 错误响应的通用结构体。
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse acknowledges a deletion.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// writeJSONResponse 是一个辅助函数，用于发送 JSON 响应。
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		// 头部已发送，编码失败时无法再改写状态码
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeJSONError 是一个辅助函数，用于发送 JSON 格式的错误响应。
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONResponse(w, statusCode, ErrorResponse{Error: message})
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrAlreadyInState):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError reports err to the client. Unexpected errors are logged
// and hidden behind a generic message.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	status := statusFor(err)
	if status != http.StatusInternalServerError {
		writeJSONError(w, err.Error(), status)
		return
	}
	logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	if errors.Is(err, services.ErrDataIntegrity) {
		writeJSONError(w, err.Error(), status)
		return
	}
	writeJSONError(w, "Internal server error", status)
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst unchanged.
func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// pathID parses the named mux variable. ok is false when it is not a UUID.
func pathID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	return id, err == nil
}
