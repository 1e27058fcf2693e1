package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/odie/internal/domain/model"
)

// LectureRepository — доступ к таблице lectures.
type LectureRepository interface {
	// FindByNameSubject возвращает все лекции с точным совпадением (name, subject).
	FindByNameSubject(ctx context.Context, name, subject string) ([]*model.Lecture, error)
	// Create создаёт лекцию и заполняет ID.
	Create(ctx context.Context, l *model.Lecture) error
	// GetByID возвращает лекцию по ID.
	GetByID(ctx context.Context, id int64) (*model.Lecture, error)
	// List возвращает все лекции, упорядоченные по имени.
	List(ctx context.Context) ([]*model.Lecture, error)
	// ListByDocumentIDs возвращает лекции, связанные хотя бы с одним из документов.
	ListByDocumentIDs(ctx context.Context, documentIDs []int64) ([]model.Lecture, error)
}

type lectureRepo struct {
	db DBTX
}

// NewLectureRepository создаёт репозиторий лекций.
func NewLectureRepository(db DBTX) LectureRepository {
	return &lectureRepo{db: db}
}

const lectureColumns = `id, name, subject, aliases, comment, validated`

func scanLecture(s scanner, l *model.Lecture) error {
	return s.Scan(&l.ID, &l.Name, &l.Subject, &l.Aliases, &l.Comment, &l.Validated)
}

func (r *lectureRepo) FindByNameSubject(ctx context.Context, name, subject string) ([]*model.Lecture, error) {
	query := `SELECT ` + lectureColumns + ` FROM lectures WHERE name = $1 AND subject = $2 ORDER BY id`
	return r.queryLectures(ctx, query, name, subject)
}

func (r *lectureRepo) Create(ctx context.Context, l *model.Lecture) error {
	if l.Aliases == nil {
		l.Aliases = []string{}
	}
	query := `
		INSERT INTO lectures (name, subject, aliases, comment, validated)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	if err := r.db.QueryRow(ctx, query, l.Name, l.Subject, l.Aliases, l.Comment, l.Validated).Scan(&l.ID); err != nil {
		return fmt.Errorf("ошибка создания лекции: %w", err)
	}
	return nil
}

func (r *lectureRepo) GetByID(ctx context.Context, id int64) (*model.Lecture, error) {
	l := &model.Lecture{}
	err := scanLecture(r.db.QueryRow(ctx, `SELECT `+lectureColumns+` FROM lectures WHERE id = $1`, id), l)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения лекции: %w", err)
	}
	return l, nil
}

func (r *lectureRepo) List(ctx context.Context) ([]*model.Lecture, error) {
	return r.queryLectures(ctx, `SELECT `+lectureColumns+` FROM lectures ORDER BY name, subject, id`)
}

func (r *lectureRepo) ListByDocumentIDs(ctx context.Context, documentIDs []int64) ([]model.Lecture, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT ` + lectureColumns + ` FROM lectures
		WHERE id IN (SELECT lecture_id FROM document_lectures WHERE document_id = ANY($1))
		ORDER BY name, id`

	items, err := r.queryLectures(ctx, query, documentIDs)
	if err != nil {
		return nil, err
	}
	result := make([]model.Lecture, len(items))
	for i, l := range items {
		result[i] = *l
	}
	return result, nil
}

func (r *lectureRepo) queryLectures(ctx context.Context, query string, args ...any) ([]*model.Lecture, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения лекций: %w", err)
	}
	defer rows.Close()

	var result []*model.Lecture
	for rows.Next() {
		l := &model.Lecture{}
		if err := scanLecture(rows, l); err != nil {
			return nil, fmt.Errorf("ошибка сканирования лекции: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
