package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/odie/internal/domain/model"
)

// DocumentRepository — доступ к таблице documents и её связям.
type DocumentRepository interface {
	// Create создаёт документ и связи с лекциями и экзаменаторами.
	// Лекции и экзаменаторы уже должны иметь ID.
	Create(ctx context.Context, d *model.Document) error
	// GetByID возвращает документ со связанными лекциями и экзаменаторами.
	GetByID(ctx context.Context, id int64) (*model.Document, error)
	// GetByIDs возвращает найденные документы по множеству ID.
	// Отсутствующие ID в результат не попадают.
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.Document, error)
	// List возвращает документы с фильтрацией, упорядоченные по дате (новые первыми).
	List(ctx context.Context, filter DocumentFilter, limit, offset int) ([]*model.Document, error)
	// Count возвращает количество документов с фильтрацией.
	Count(ctx context.Context, filter DocumentFilter) (int, error)
}

// DocumentFilter — фильтры списка документов.
type DocumentFilter struct {
	LectureID   *int64
	ExaminantID *int64
}

type documentRepo struct {
	db DBTX
}

// NewDocumentRepository создаёт репозиторий документов.
func NewDocumentRepository(db DBTX) DocumentRepository {
	return &documentRepo{db: db}
}

const documentColumns = `d.id, d.date, d.number_of_pages, d.solution, d.comment, d.document_type,
	d.validated, d.validation_time, d.submitted_by, d.file_id`

func scanDocument(s scanner, d *model.Document) error {
	return s.Scan(&d.ID, &d.Date, &d.NumberOfPages, &d.Solution, &d.Comment, &d.DocumentType,
		&d.Validated, &d.ValidationTime, &d.SubmittedBy, &d.FileID)
}

func (r *documentRepo) Create(ctx context.Context, d *model.Document) error {
	query := `
		INSERT INTO documents (date, number_of_pages, solution, comment, document_type,
			validated, validation_time, submitted_by, file_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		d.Date, d.NumberOfPages, d.Solution, d.Comment, d.DocumentType,
		d.Validated, d.ValidationTime, d.SubmittedBy, d.FileID,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("ошибка создания документа: %w", err)
	}

	// Одна лекция может встретиться в подаче дважды — связь создаётся один раз
	for _, l := range d.Lectures {
		if _, err := r.db.Exec(ctx,
			`INSERT INTO document_lectures (document_id, lecture_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			d.ID, l.ID,
		); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: лекция %d не существует", ErrConflict, l.ID)
			}
			return fmt.Errorf("ошибка связывания документа с лекцией: %w", err)
		}
	}
	for _, e := range d.Examinants {
		if _, err := r.db.Exec(ctx,
			`INSERT INTO document_examinants (document_id, examinant_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			d.ID, e.ID,
		); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: экзаменатор %d не существует", ErrConflict, e.ID)
			}
			return fmt.Errorf("ошибка связывания документа с экзаменатором: %w", err)
		}
	}
	return nil
}

func (r *documentRepo) GetByID(ctx context.Context, id int64) (*model.Document, error) {
	d := &model.Document{}
	err := scanDocument(r.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents d WHERE d.id = $1`, id), d)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения документа: %w", err)
	}
	if err := r.attachAssociations(ctx, []*model.Document{d}); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *documentRepo) GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.Document, error) {
	result := make(map[int64]*model.Document, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	docs, err := r.queryDocuments(ctx, `SELECT `+documentColumns+` FROM documents d WHERE d.id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		result[d.ID] = d
	}
	return result, nil
}

// buildDocumentWhere строит WHERE-условие и аргументы для фильтрации документов.
func buildDocumentWhere(filter DocumentFilter, startArg int) (string, []any) {
	var conditions []string
	var args []any
	argNum := startArg

	if filter.LectureID != nil {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM document_lectures dl WHERE dl.document_id = d.id AND dl.lecture_id = $%d)", argNum))
		args = append(args, *filter.LectureID)
		argNum++
	}
	if filter.ExaminantID != nil {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM document_examinants de WHERE de.document_id = d.id AND de.examinant_id = $%d)", argNum))
		args = append(args, *filter.ExaminantID)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args
}

func (r *documentRepo) List(ctx context.Context, filter DocumentFilter, limit, offset int) ([]*model.Document, error) {
	where, args := buildDocumentWhere(filter, 1)
	argNum := len(args) + 1

	query := fmt.Sprintf(`
		SELECT %s FROM documents d
		%s
		ORDER BY d.date DESC, d.id DESC
		LIMIT $%d OFFSET $%d`, documentColumns, where, argNum, argNum+1)
	args = append(args, limit, offset)

	return r.queryDocuments(ctx, query, args...)
}

func (r *documentRepo) Count(ctx context.Context, filter DocumentFilter) (int, error) {
	where, args := buildDocumentWhere(filter, 1)

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM documents d `+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта документов: %w", err)
	}
	return count, nil
}

// queryDocuments выполняет запрос документов и подгружает их связи.
func (r *documentRepo) queryDocuments(ctx context.Context, query string, args ...any) ([]*model.Document, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения документов: %w", err)
	}

	var result []*model.Document
	for rows.Next() {
		d := &model.Document{}
		if err := scanDocument(rows, d); err != nil {
			rows.Close()
			return nil, fmt.Errorf("ошибка сканирования документа: %w", err)
		}
		result = append(result, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка получения документов: %w", err)
	}

	// Курсор закрыт до следующих запросов: внутри транзакции соединение одно
	if err := r.attachAssociations(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// attachAssociations подгружает лекции и экзаменаторов для набора документов
// двумя запросами вместо запроса на каждый документ.
func (r *documentRepo) attachAssociations(ctx context.Context, docs []*model.Document) error {
	if len(docs) == 0 {
		return nil
	}
	byID := make(map[int64]*model.Document, len(docs))
	ids := make([]int64, 0, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
		ids = append(ids, d.ID)
	}

	rows, err := r.db.Query(ctx, `
		SELECT dl.document_id, `+lectureColumnsPrefixed+`
		FROM document_lectures dl
		JOIN lectures l ON l.id = dl.lecture_id
		WHERE dl.document_id = ANY($1)
		ORDER BY l.name, l.id`, ids)
	if err != nil {
		return fmt.Errorf("ошибка получения лекций документов: %w", err)
	}
	for rows.Next() {
		var docID int64
		var l model.Lecture
		if err := rows.Scan(&docID, &l.ID, &l.Name, &l.Subject, &l.Aliases, &l.Comment, &l.Validated); err != nil {
			rows.Close()
			return fmt.Errorf("ошибка сканирования лекции документа: %w", err)
		}
		byID[docID].Lectures = append(byID[docID].Lectures, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("ошибка получения лекций документов: %w", err)
	}

	rows, err = r.db.Query(ctx, `
		SELECT de.document_id, e.id, e.name, e.validated
		FROM document_examinants de
		JOIN examinants e ON e.id = de.examinant_id
		WHERE de.document_id = ANY($1)
		ORDER BY e.name, e.id`, ids)
	if err != nil {
		return fmt.Errorf("ошибка получения экзаменаторов документов: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var docID int64
		var e model.Examinant
		if err := rows.Scan(&docID, &e.ID, &e.Name, &e.Validated); err != nil {
			return fmt.Errorf("ошибка сканирования экзаменатора документа: %w", err)
		}
		byID[docID].Examinants = append(byID[docID].Examinants, e)
	}
	return rows.Err()
}

const lectureColumnsPrefixed = `l.id, l.name, l.subject, l.aliases, l.comment, l.validated`
