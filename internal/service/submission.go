// submission.go — подача студентом протокола экзамена.
// Сопоставление лекций и экзаменаторов, запись файла и создание документа
// выполняются в одной транзакции.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bigkaa/odie/internal/domain/model"
	"github.com/bigkaa/odie/internal/repository"
	"github.com/bigkaa/odie/internal/storage/blobstore"
)

// Submission — данные подачи документа.
type Submission struct {
	Lectures      []model.LectureDescriptor
	Examinants    []string
	Date          time.Time
	NumberOfPages int
	DocumentType  string
	StudentName   string
	// Filename — исходное имя файла, по нему проверяется расширение
	Filename string
	File     io.Reader
}

// SubmissionService — приём подач документов.
type SubmissionService struct {
	tx         TxManager
	store      blobstore.Store
	extensions []string
	now        func() time.Time
	logger     *slog.Logger
}

// NewSubmissionService создаёт сервис подачи документов.
// extensions — допустимые расширения файлов в нижнем регистре с точкой.
func NewSubmissionService(tx TxManager, store blobstore.Store, extensions []string, logger *slog.Logger) *SubmissionService {
	return &SubmissionService{
		tx:         tx,
		store:      store,
		extensions: extensions,
		now:        time.Now,
		logger:     logger.With(slog.String("component", "submission_service")),
	}
}

// Validate проверяет подачу до обращения к базе и хранилищу.
func (s *SubmissionService) Validate(sub *Submission) error {
	ext := strings.ToLower(filepath.Ext(sub.Filename))
	if !slices.Contains(s.extensions, ext) {
		return fmt.Errorf("%w: %q", ErrFileTypeNotAllowed, ext)
	}
	if sub.File == nil {
		return fmt.Errorf("%w: файл не передан", ErrValidation)
	}
	// Одностраничные документы не принимаются
	if sub.NumberOfPages <= 1 {
		return fmt.Errorf("%w: количество страниц должно быть больше 1, получено %d", ErrValidation, sub.NumberOfPages)
	}
	if !model.IsDocumentType(sub.DocumentType) {
		return fmt.Errorf("%w: недопустимый тип документа %q", ErrValidation, sub.DocumentType)
	}
	if strings.TrimSpace(sub.StudentName) == "" {
		return fmt.Errorf("%w: не указано имя студента", ErrValidation)
	}
	if sub.Date.IsZero() {
		return fmt.Errorf("%w: не указана дата экзамена", ErrValidation)
	}
	today := truncateDay(s.now())
	if truncateDay(sub.Date).After(today) {
		return fmt.Errorf("%w: дата экзамена %s в будущем", ErrValidation, sub.Date.Format(time.DateOnly))
	}
	return nil
}

// Submit принимает документ: непроверенный, с прикреплённым файлом.
func (s *SubmissionService) Submit(ctx context.Context, sub Submission) (*model.Document, error) {
	if err := s.Validate(&sub); err != nil {
		return nil, err
	}

	var doc *model.Document
	err := s.tx.InTx(ctx, func(repos *repository.Repositories) error {
		lectures, err := ReconcileLectures(ctx, repos.Lectures, sub.Lectures)
		if err != nil {
			return err
		}
		examinants, err := ReconcileExaminants(ctx, repos.Examinants, sub.Examinants)
		if err != nil {
			return err
		}

		// Файл пишется внутри транзакции: при ошибке записи документ не создаётся.
		// При откате после записи файл остаётся без ссылок, это допустимо.
		digest, err := s.store.Put(ctx, sub.File)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrStorage, err)
		}

		doc = &model.Document{
			Lectures:      lectures,
			Examinants:    examinants,
			Date:          truncateDay(sub.Date),
			NumberOfPages: sub.NumberOfPages,
			DocumentType:  sub.DocumentType,
			Validated:     false,
			SubmittedBy:   sub.StudentName,
			FileID:        &digest,
		}
		return repos.Documents.Create(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Документ принят",
		slog.Int64("document_id", doc.ID),
		slog.String("file_id", *doc.FileID),
		slog.Int("lectures", len(doc.Lectures)),
		slog.Int("examinants", len(doc.Examinants)),
	)
	return doc, nil
}

// truncateDay отбрасывает время, оставляя календарную дату в UTC.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
