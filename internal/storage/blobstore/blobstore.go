// Пакет blobstore — content-addressed хранилище файлов документов.
// Файл идентифицируется SHA-256 хэшем содержимого (hex, 64 символа)
// и хранится по пути <root>/<первые 2 символа хэша>/<полный хэш>.
// Повторная запись тех же байт не создаёт копию и возвращает тот же хэш.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// DigestLength — длина hex-представления SHA-256.
const DigestLength = 64

var (
	// ErrNotFound — по указанному хэшу нет сохранённого файла.
	ErrNotFound = errors.New("файл не найден в хранилище")
	// ErrInvalidDigest — строка не является hex-представлением SHA-256.
	ErrInvalidDigest = errors.New("некорректный хэш содержимого")
)

// Store — content-addressed хранилище.
type Store interface {
	// Put сохраняет содержимое reader и возвращает его SHA-256 хэш.
	// Если файл с таким хэшем уже есть, повторная запись не выполняется.
	Put(ctx context.Context, r io.Reader) (string, error)
	// Open открывает сохранённый файл. Вызывающий код обязан закрыть ReadCloser.
	Open(ctx context.Context, digest string) (io.ReadCloser, error)
	// Exists проверяет наличие файла с указанным хэшем.
	Exists(ctx context.Context, digest string) (bool, error)
}

// PathFor возвращает относительный путь файла в хранилище: "3f/3f9a...".
// Чистая функция хэша, не обращается к хранилищу.
func PathFor(digest string) (string, error) {
	if err := ValidateDigest(digest); err != nil {
		return "", err
	}
	return path.Join(digest[:2], digest), nil
}

// ValidateDigest проверяет, что digest — 64 hex-символа в нижнем регистре.
func ValidateDigest(digest string) error {
	if len(digest) != DigestLength {
		return fmt.Errorf("%w: длина %d, ожидается %d", ErrInvalidDigest, len(digest), DigestLength)
	}
	if strings.IndexFunc(digest, func(r rune) bool {
		return (r < '0' || r > '9') && (r < 'a' || r > 'f')
	}) >= 0 {
		return fmt.Errorf("%w: допустимы только символы 0-9a-f", ErrInvalidDigest)
	}
	return nil
}

// Resolve читает сохранённый файл целиком.
// Возвращает ErrNotFound, если файла с таким хэшем нет.
func Resolve(ctx context.Context, s Store, digest string) ([]byte, error) {
	rc, err := s.Open(ctx, digest)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла %s: %w", digest, err)
	}
	return data, nil
}
