// catalog.go — публичные списки лекций, экзаменаторов, документов
// и выдача файлов документов.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/bigkaa/odie/internal/domain/model"
	"github.com/bigkaa/odie/internal/repository"
	"github.com/bigkaa/odie/internal/storage/blobstore"
)

// CatalogService — чтение каталога документов.
type CatalogService struct {
	repos  *repository.Repositories
	store  blobstore.Store
	cache  *DocumentCache
	logger *slog.Logger
}

// NewCatalogService создаёт сервис каталога.
func NewCatalogService(repos *repository.Repositories, store blobstore.Store, cache *DocumentCache, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		repos:  repos,
		store:  store,
		cache:  cache,
		logger: logger.With(slog.String("component", "catalog_service")),
	}
}

// Lectures возвращает все лекции.
func (s *CatalogService) Lectures(ctx context.Context) ([]*model.Lecture, error) {
	items, err := s.repos.Lectures.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение лекций: %w", err)
	}
	return items, nil
}

// Examinants возвращает всех экзаменаторов.
func (s *CatalogService) Examinants(ctx context.Context) ([]*model.Examinant, error) {
	items, err := s.repos.Examinants.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение экзаменаторов: %w", err)
	}
	return items, nil
}

// Documents возвращает страницу документов и их общее количество.
func (s *CatalogService) Documents(ctx context.Context, limit, offset int) ([]*model.Document, int, error) {
	return s.listDocuments(ctx, repository.DocumentFilter{}, limit, offset)
}

// LectureDocuments возвращает документы лекции.
func (s *CatalogService) LectureDocuments(ctx context.Context, lectureID int64, limit, offset int) ([]*model.Document, int, error) {
	if _, err := s.repos.Lectures.GetByID(ctx, lectureID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, 0, fmt.Errorf("%w: лекция %d", ErrNotFound, lectureID)
		}
		return nil, 0, fmt.Errorf("получение лекции: %w", err)
	}
	return s.listDocuments(ctx, repository.DocumentFilter{LectureID: &lectureID}, limit, offset)
}

// ExaminantDocuments возвращает документы экзаменатора.
func (s *CatalogService) ExaminantDocuments(ctx context.Context, examinantID int64, limit, offset int) ([]*model.Document, int, error) {
	if _, err := s.repos.Examinants.GetByID(ctx, examinantID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, 0, fmt.Errorf("%w: экзаменатор %d", ErrNotFound, examinantID)
		}
		return nil, 0, fmt.Errorf("получение экзаменатора: %w", err)
	}
	return s.listDocuments(ctx, repository.DocumentFilter{ExaminantID: &examinantID}, limit, offset)
}

// Deposits возвращает страницу залогов и их общее количество.
func (s *CatalogService) Deposits(ctx context.Context, limit, offset int) ([]*model.Deposit, int, error) {
	items, err := s.repos.Deposits.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("получение залогов: %w", err)
	}
	total, err := s.repos.Deposits.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("подсчёт залогов: %w", err)
	}
	return items, total, nil
}

// OpenDocumentFile открывает файл документа.
// ErrNotFound, если документа нет, у него нет файла или файл отсутствует в хранилище.
func (s *CatalogService) OpenDocumentFile(ctx context.Context, documentID int64) (io.ReadCloser, string, error) {
	digest, ok := s.cache.Get(documentID)
	if !ok {
		doc, err := s.repos.Documents.GetByID(ctx, documentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, "", fmt.Errorf("%w: документ %d", ErrNotFound, documentID)
			}
			return nil, "", fmt.Errorf("получение документа: %w", err)
		}
		if doc.FileID == nil {
			return nil, "", fmt.Errorf("%w: у документа %d нет файла", ErrNotFound, documentID)
		}
		digest = *doc.FileID
		s.cache.Set(documentID, digest)
	}

	rc, err := s.store.Open(ctx, digest)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			s.logger.Warn("Файл документа отсутствует в хранилище",
				slog.Int64("document_id", documentID),
				slog.String("file_id", digest),
			)
			return nil, "", fmt.Errorf("%w: файл документа %d", ErrNotFound, documentID)
		}
		return nil, "", fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return rc, digest, nil
}

func (s *CatalogService) listDocuments(ctx context.Context, filter repository.DocumentFilter, limit, offset int) ([]*model.Document, int, error) {
	items, err := s.repos.Documents.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("получение документов: %w", err)
	}
	total, err := s.repos.Documents.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("подсчёт документов: %w", err)
	}
	return items, total, nil
}
