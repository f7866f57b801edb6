// Package media defines where uploaded post images go. The interface lives
// here so that storage and handlers do not depend on each other.
package media

import (
	"context"
	"errors"
	"io"
)

// ErrUnsupportedType is returned for uploads that are not images.
var ErrUnsupportedType = errors.New("unsupported file type")

// FileInfo 包含上传文件的基本信息和访问路径。
type FileInfo struct {
	URL      string `json:"url"`      // 可公开访问的文件 URL，可直接作为 imageUri 使用
	Path     string `json:"path"`     // 文件在存储系统中的路径或标识符
	Size     int64  `json:"size"`     // 文件大小 (字节)
	MimeType string `json:"mimeType"` // 文件的 MIME 类型
	FileName string `json:"fileName"` // 原始文件名
}

// StorageService 定义了文件存储操作的接口。
type StorageService interface {
	// UploadFile stores the content of reader and returns where it can be fetched.
	UploadFile(ctx context.Context, reader io.Reader, fileSize int64, fileName string, mimeType string) (*FileInfo, error)
	// DeleteFile removes a file previously returned by UploadFile.
	DeleteFile(ctx context.Context, path string) error
}

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// IsImage reports whether mimeType is an accepted post image type.
func IsImage(mimeType string) bool {
	return imageTypes[mimeType]
}
