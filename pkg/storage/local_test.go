package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/edmundobop/plataforma-bravo-web-sub000/config"
)

// 最小 PNG 文件头 + IHDR，足以被识别为 image/png
var pngBytes = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4, 0x89,
}

func newTestStorage(t *testing.T, maxBytes int64) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(&config.UploadConfig{
		Dir:      t.TempDir(),
		BaseURL:  "/uploads/",
		MaxBytes: maxBytes,
	})
	if err != nil {
		t.Fatalf("NewLocalStorage 失败: %v", err)
	}
	s.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	return s
}

func TestSave_PNG(t *testing.T) {
	s := newTestStorage(t, 1<<20)

	f, err := s.Save(context.Background(), bytes.NewReader(pngBytes), "C:\\fotos\\pneu.png")
	if err != nil {
		t.Fatalf("Save 失败: %v", err)
	}
	if !strings.HasPrefix(f.Filename, "2026/03/") || !strings.HasSuffix(f.Filename, ".png") {
		t.Errorf("文件名格式不符: %s", f.Filename)
	}
	if f.URL != "/uploads/"+f.Filename {
		t.Errorf("URL 期望 /uploads/%s，实际 %s", f.Filename, f.URL)
	}
	if f.OriginalName != "pneu.png" {
		t.Errorf("期望 OriginalName=pneu.png，实际=%s", f.OriginalName)
	}
	if f.Size != int64(len(pngBytes)) {
		t.Errorf("期望 Size=%d，实际=%d", len(pngBytes), f.Size)
	}
	if _, err := os.Stat(filepath.Join(s.Dir(), filepath.FromSlash(f.Filename))); err != nil {
		t.Errorf("文件应已写入磁盘: %v", err)
	}
}

func TestSave_RejectsNonImage(t *testing.T) {
	s := newTestStorage(t, 1<<20)

	_, err := s.Save(context.Background(), strings.NewReader("just some text"), "notes.png")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("期望 ErrUnsupportedType，实际: %v", err)
	}
}

func TestSave_TooLarge(t *testing.T) {
	s := newTestStorage(t, 10)

	_, err := s.Save(context.Background(), bytes.NewReader(pngBytes), "big.png")
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("期望 ErrFileTooLarge，实际: %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStorage(t, 1<<20)
	f, _ := s.Save(context.Background(), bytes.NewReader(pngBytes), "a.png")

	if err := s.Delete(context.Background(), f.Filename); err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}
	if err := s.Delete(context.Background(), f.Filename); err != nil {
		t.Errorf("重复删除应视为成功: %v", err)
	}
	if err := s.Delete(context.Background(), "../etc/passwd"); !errors.Is(err, ErrInvalidFilename) {
		t.Errorf("路径穿越期望 ErrInvalidFilename，实际: %v", err)
	}
}
