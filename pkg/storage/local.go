package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/edmundobop/plataforma-bravo-web-sub000/config"
)

var (
	ErrFileTooLarge    = errors.New("文件超过大小限制")
	ErrUnsupportedType = errors.New("仅支持 JPEG/PNG/WEBP/HEIC 图片")
	ErrInvalidFilename = errors.New("文件名无效")
)

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
}

// StoredFile 已保存文件的元数据
type StoredFile struct {
	URL          string
	OriginalName string
	Size         int64
	Filename     string // 相对存储根目录的路径
}

// LocalStorage 本地磁盘照片存储，按 年/月 分目录
type LocalStorage struct {
	dir      string
	baseURL  string
	maxBytes int64
	now      func() time.Time
}

// NewLocalStorage 创建本地存储并确保根目录存在
func NewLocalStorage(cfg *config.UploadConfig) (*LocalStorage, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败: %w", err)
	}
	return &LocalStorage{
		dir:      cfg.Dir,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		maxBytes: cfg.MaxBytes,
		now:      time.Now,
	}, nil
}

// Dir 存储根目录（供静态文件路由挂载）
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Save 嗅探内容类型后写入磁盘，文件名使用 UUID 避免冲突
func (s *LocalStorage) Save(ctx context.Context, r io.Reader, originalName string) (*StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("读取上传内容失败: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	mt := mimetype.Detect(data)
	if !allowedMIME[mt.String()] {
		return nil, ErrUnsupportedType
	}

	now := s.now()
	rel := path.Join(now.Format("2006"), now.Format("01"), uuid.NewString()+mt.Extension())
	full := filepath.Join(s.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("创建上传子目录失败: %w", err)
	}
	if err := writeFile(full, data); err != nil {
		return nil, err
	}

	return &StoredFile{
		URL:          s.baseURL + "/" + rel,
		OriginalName: path.Base(strings.ReplaceAll(originalName, "\\", "/")),
		Size:         int64(len(data)),
		Filename:     rel,
	}, nil
}

// Delete 删除已保存的文件；文件不存在视为成功
func (s *LocalStorage) Delete(_ context.Context, filename string) error {
	clean := path.Clean("/" + filename)
	if clean == "/" || strings.Contains(filename, "..") {
		return ErrInvalidFilename
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("删除文件失败: %w", err)
	}
	return nil
}

// 先写临时文件再重命名，避免读到半截文件
func writeFile(full string, data []byte) error {
	tmp := full + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("创建文件失败: %w", err)
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("写入文件失败: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("写入文件失败: %w", err)
	}
	return os.Rename(tmp, full)
}
