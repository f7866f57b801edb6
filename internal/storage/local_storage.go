package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"brewfeed/internal/config"
	"brewfeed/internal/media"
)

// LocalStorageService 实现了 media.StorageService 接口，把文件写到本地目录。
type LocalStorageService struct {
	basePath string // 本地存储的基础路径，例如 "./uploads"
	baseURL  string // 用于构建文件访问 URL 的基础 URL，例如 "/uploads"
}

// NewLocalStorageService 创建一个新的 LocalStorageService 实例，并确保目录存在。
func NewLocalStorageService(cfg config.StorageConfig) (*LocalStorageService, error) {
	if err := os.MkdirAll(cfg.LocalPath, 0755); err != nil {
		return nil, fmt.Errorf("创建本地存储目录失败 '%s': %w", cfg.LocalPath, err)
	}
	return &LocalStorageService{
		basePath: cfg.LocalPath,
		baseURL:  cfg.BaseURL,
	}, nil
}

// UploadFile 将文件保存到本地文件系统。
func (s *LocalStorageService) UploadFile(ctx context.Context, reader io.Reader, fileSize int64, fileName string, mimeType string) (*media.FileInfo, error) {
	if !media.IsImage(mimeType) {
		return nil, fmt.Errorf("%w: %s", media.ErrUnsupportedType, mimeType)
	}

	// 生成唯一文件名，保留原始扩展名
	ext := filepath.Ext(fileName)
	if ext == "" {
		extensions, _ := mime.ExtensionsByType(mimeType)
		if len(extensions) > 0 {
			ext = extensions[0]
		}
	}
	uniqueFileName := uuid.New().String() + ext
	dstPath := filepath.Join(s.basePath, uniqueFileName)

	dst, err := os.Create(dstPath)
	if err != nil {
		return nil, fmt.Errorf("创建目标文件失败 '%s': %w", dstPath, err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, reader)
	if err != nil {
		os.Remove(dstPath)
		return nil, fmt.Errorf("写入文件失败: %w", err)
	}
	if fileSize >= 0 && written != fileSize {
		os.Remove(dstPath)
		return nil, fmt.Errorf("文件大小不匹配: 预期 %d, 实际写入 %d", fileSize, written)
	}

	fileURL := strings.TrimSuffix(s.baseURL, "/") + "/" + url.PathEscape(uniqueFileName)

	return &media.FileInfo{
		URL:      fileURL,
		Path:     dstPath,
		Size:     written,
		MimeType: mimeType,
		FileName: fileName,
	}, nil
}

// DeleteFile removes a stored file. Paths outside basePath are refused.
func (s *LocalStorageService) DeleteFile(ctx context.Context, path string) error {
	rel, err := filepath.Rel(s.basePath, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("refusing to delete %q outside storage root", path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
