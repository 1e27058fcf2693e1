package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GCSStore — content-addressed хранилище в bucket Google Cloud Storage.
// Ключ объекта: <prefix>/<xx>/<digest>, prefix играет роль корня хранилища.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore создаёт клиент GCS. Учётные данные берутся из окружения
// (Application Default Credentials) или из opts.
func NewGCSStore(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCSStore, error) {
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания клиента GCS: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}, nil
}

// Close закрывает клиент GCS.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// objectKey возвращает ключ объекта для хэша.
func (s *GCSStore) objectKey(digest string) (string, error) {
	rel, err := PathFor(digest)
	if err != nil {
		return "", err
	}
	if s.prefix == "" {
		return rel, nil
	}
	return path.Join(s.prefix, rel), nil
}

// Put сохраняет содержимое r в bucket.
//
// Хэш нужен до выбора ключа, поэтому данные сначала пишутся во временный
// локальный файл с подсчётом SHA-256, затем загружаются с precondition
// DoesNotExist. Ответ 412 означает, что объект уже есть: это не ошибка.
func (s *GCSStore) Put(ctx context.Context, r io.Reader) (string, error) {
	tmp, err := os.CreateTemp("", "odie-blob-*")
	if err != nil {
		blobWritesTotal.WithLabelValues("gcs", "error").Inc()
		return "", fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	hasher := sha256.New()
	size, err := io.Copy(tmp, io.TeeReader(r, hasher))
	if err != nil {
		blobWritesTotal.WithLabelValues("gcs", "error").Inc()
		return "", fmt.Errorf("ошибка записи данных: %w", err)
	}
	digest := hex.EncodeToString(hasher.Sum(nil))

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		blobWritesTotal.WithLabelValues("gcs", "error").Inc()
		return "", fmt.Errorf("ошибка чтения временного файла: %w", err)
	}

	key, _ := s.objectKey(digest)
	wctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	obj := s.client.Bucket(s.bucket).Object(key).If(storage.Conditions{DoesNotExist: true})
	w := obj.NewWriter(wctx)
	w.ContentType = "application/octet-stream"
	if _, err := io.Copy(w, tmp); err != nil {
		_ = w.Close()
		blobWritesTotal.WithLabelValues("gcs", "error").Inc()
		return "", fmt.Errorf("ошибка записи объекта %s в GCS: %w", key, err)
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			blobWritesTotal.WithLabelValues("gcs", "deduplicated").Inc()
			return digest, nil
		}
		blobWritesTotal.WithLabelValues("gcs", "error").Inc()
		return "", fmt.Errorf("ошибка завершения записи объекта %s в GCS: %w", key, err)
	}

	blobWritesTotal.WithLabelValues("gcs", "stored").Inc()
	blobBytesTotal.WithLabelValues("gcs").Add(float64(size))
	return digest, nil
}

// Open открывает объект с указанным хэшем для чтения.
func (s *GCSStore) Open(ctx context.Context, digest string) (io.ReadCloser, error) {
	key, err := s.objectKey(digest)
	if err != nil {
		return nil, err
	}

	rc, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, digest)
		}
		return nil, fmt.Errorf("ошибка открытия объекта %s: %w", key, err)
	}
	return rc, nil
}

// Exists проверяет наличие объекта с указанным хэшем.
func (s *GCSStore) Exists(ctx context.Context, digest string) (bool, error) {
	key, err := s.objectKey(digest)
	if err != nil {
		return false, err
	}

	_, err = s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrObjectNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("ошибка получения атрибутов объекта %s: %w", key, err)
	}
}

// CheckReady проверяет доступность bucket.
func (s *GCSStore) CheckReady() (string, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := s.client.Bucket(s.bucket).Attrs(ctx); err != nil {
		return "fail", fmt.Sprintf("bucket %s недоступен: %v", s.bucket, err)
	}
	return "ok", ""
}

// isPreconditionFailed проверяет, что GCS отклонил запись по precondition (HTTP 412).
func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
