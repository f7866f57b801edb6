package apiserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"brewfeed/internal/config"
	"brewfeed/internal/media"
)

const (
	defaultMaxMemory = 32 << 20 // multipart 表单在内存中保存的最大字节数
)

// UploadHandler 封装了文件上传相关的 HTTP 处理器方法。
type UploadHandler struct {
	storageService media.StorageService
	cfg            config.StorageConfig
	logger         *slog.Logger
}

// NewUploadHandler 创建一个新的 UploadHandler 实例。
func NewUploadHandler(storageService media.StorageService, cfg config.StorageConfig, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		storageService: storageService,
		cfg:            cfg,
		logger:         logger,
	}
}

// UploadFile 处理帖子图片上传，返回的 URL 可作为 imageUri 使用。
func (h *UploadHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	maxUploadSize := h.cfg.MaxFileSizeMB << 20
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxMemory
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(defaultMaxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, fmt.Sprintf("File too large, limit is %d MB", maxUploadSize>>20), http.StatusRequestEntityTooLarge)
			return
		}
		writeJSONError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			writeJSONError(w, "Missing 'file' field", http.StatusBadRequest)
		} else {
			writeJSONError(w, "Invalid file", http.StatusBadRequest)
		}
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if !media.IsImage(mimeType) {
		writeJSONError(w, fmt.Sprintf("Unsupported file type: %s", mimeType), http.StatusUnsupportedMediaType)
		return
	}

	fileInfo, err := h.storageService.UploadFile(r.Context(), file, header.Size, header.Filename, mimeType)
	if err != nil {
		h.logger.Error("storing upload", "fileName", header.Filename, "error", err)
		writeJSONError(w, "Failed to store file", http.StatusInternalServerError)
		return
	}

	h.logger.Info("file uploaded", "fileName", header.Filename, "size", fileInfo.Size, "url", fileInfo.URL)
	writeJSONResponse(w, http.StatusOK, fileInfo)
}
