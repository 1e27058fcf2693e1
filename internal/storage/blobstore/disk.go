package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// DiskStore — content-addressed хранилище на локальном диске.
type DiskStore struct {
	// root — корневая директория хранилища (ODIE_DOCUMENT_DIR)
	root string
}

// NewDiskStore создаёт DiskStore. Создаёт корневую директорию,
// если она не существует.
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию хранилища %s: %w", root, err)
	}
	return &DiskStore{root: root}, nil
}

// Root возвращает корневую директорию хранилища.
func (s *DiskStore) Root() string {
	return s.root
}

// FullPath возвращает абсолютный путь файла с указанным хэшем.
func (s *DiskStore) FullPath(digest string) (string, error) {
	rel, err := PathFor(digest)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(rel)), nil
}

// Put записывает данные из r с подсчётом SHA-256 на лету.
//
// Паттерн: temp файл → запись + SHA-256 → fsync → atomic rename в <xx>/<digest>.
// Если файл с таким хэшем уже существует, temp файл удаляется.
// Параллельные записи одинакового содержимого безопасны: rename атомарен,
// а содержимое по одному хэшу всегда одинаково.
func (s *DiskStore) Put(ctx context.Context, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// Уникальное имя temp файла в корне, чтобы rename не пересекал файловые системы
	tmpPath := filepath.Join(s.root, "."+uuid.NewString()+".tmp")

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		blobWritesTotal.WithLabelValues("disk", "error").Inc()
		return "", fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	hasher := sha256.New()
	size, err := io.Copy(f, io.TeeReader(r, hasher))
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		blobWritesTotal.WithLabelValues("disk", "error").Inc()
		return "", fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		blobWritesTotal.WithLabelValues("disk", "error").Inc()
		return "", fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		blobWritesTotal.WithLabelValues("disk", "error").Inc()
		return "", fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	digest := hex.EncodeToString(hasher.Sum(nil))
	fullPath, _ := s.FullPath(digest)

	if _, err := os.Stat(fullPath); err == nil {
		os.Remove(tmpPath)
		blobWritesTotal.WithLabelValues("disk", "deduplicated").Inc()
		return digest, nil
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		os.Remove(tmpPath)
		blobWritesTotal.WithLabelValues("disk", "error").Inc()
		return "", fmt.Errorf("ошибка создания директории %s: %w", filepath.Dir(fullPath), err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		blobWritesTotal.WithLabelValues("disk", "error").Inc()
		return "", fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	blobWritesTotal.WithLabelValues("disk", "stored").Inc()
	blobBytesTotal.WithLabelValues("disk").Add(float64(size))
	return digest, nil
}

// Open открывает файл с указанным хэшем для чтения.
func (s *DiskStore) Open(_ context.Context, digest string) (io.ReadCloser, error) {
	fullPath, err := s.FullPath(digest)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, digest)
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", digest, err)
	}
	return f, nil
}

// Exists проверяет наличие файла с указанным хэшем.
func (s *DiskStore) Exists(_ context.Context, digest string) (bool, error) {
	fullPath, err := s.FullPath(digest)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(fullPath)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("ошибка получения информации о файле %s: %w", digest, err)
	}
}
