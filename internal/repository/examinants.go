package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/odie/internal/domain/model"
)

// ExaminantRepository — доступ к таблице examinants.
type ExaminantRepository interface {
	// FindByName возвращает всех экзаменаторов с точным совпадением имени.
	FindByName(ctx context.Context, name string) ([]*model.Examinant, error)
	// Create создаёт экзаменатора и заполняет ID.
	Create(ctx context.Context, e *model.Examinant) error
	// GetByID возвращает экзаменатора по ID.
	GetByID(ctx context.Context, id int64) (*model.Examinant, error)
	// List возвращает всех экзаменаторов, упорядоченных по имени.
	List(ctx context.Context) ([]*model.Examinant, error)
}

type examinantRepo struct {
	db DBTX
}

// NewExaminantRepository создаёт репозиторий экзаменаторов.
func NewExaminantRepository(db DBTX) ExaminantRepository {
	return &examinantRepo{db: db}
}

func (r *examinantRepo) FindByName(ctx context.Context, name string) ([]*model.Examinant, error) {
	return r.queryExaminants(ctx, `SELECT id, name, validated FROM examinants WHERE name = $1 ORDER BY id`, name)
}

func (r *examinantRepo) Create(ctx context.Context, e *model.Examinant) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO examinants (name, validated) VALUES ($1, $2) RETURNING id`,
		e.Name, e.Validated,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("ошибка создания экзаменатора: %w", err)
	}
	return nil
}

func (r *examinantRepo) GetByID(ctx context.Context, id int64) (*model.Examinant, error) {
	e := &model.Examinant{}
	err := r.db.QueryRow(ctx, `SELECT id, name, validated FROM examinants WHERE id = $1`, id).
		Scan(&e.ID, &e.Name, &e.Validated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения экзаменатора: %w", err)
	}
	return e, nil
}

func (r *examinantRepo) List(ctx context.Context) ([]*model.Examinant, error) {
	return r.queryExaminants(ctx, `SELECT id, name, validated FROM examinants ORDER BY name, id`)
}

func (r *examinantRepo) queryExaminants(ctx context.Context, query string, args ...any) ([]*model.Examinant, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения экзаменаторов: %w", err)
	}
	defer rows.Close()

	var result []*model.Examinant
	for rows.Next() {
		e := &model.Examinant{}
		if err := rows.Scan(&e.ID, &e.Name, &e.Validated); err != nil {
			return nil, fmt.Errorf("ошибка сканирования экзаменатора: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
