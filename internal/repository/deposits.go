package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/odie/internal/domain/model"
)

// DepositRepository — доступ к таблицам deposits и deposit_lectures.
type DepositRepository interface {
	// Create создаёт залог и связи с лекциями, заполняет ID и Date.
	Create(ctx context.Context, d *model.Deposit) error
	// GetByID возвращает залог с лекциями.
	GetByID(ctx context.Context, id int64) (*model.Deposit, error)
	// List возвращает залоги, новые первыми.
	List(ctx context.Context, limit, offset int) ([]*model.Deposit, error)
	// Count возвращает количество залогов.
	Count(ctx context.Context) (int, error)
	// Delete удаляет залог (возврат).
	Delete(ctx context.Context, id int64) error
}

type depositRepo struct {
	db DBTX
}

// NewDepositRepository создаёт репозиторий залогов.
func NewDepositRepository(db DBTX) DepositRepository {
	return &depositRepo{db: db}
}

func (r *depositRepo) Create(ctx context.Context, d *model.Deposit) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO deposits (price, name, by_user) VALUES ($1, $2, $3) RETURNING id, date`,
		d.Price, d.Name, d.ByUser,
	).Scan(&d.ID, &d.Date)
	if err != nil {
		return fmt.Errorf("ошибка создания залога: %w", err)
	}

	for _, l := range d.Lectures {
		if _, err := r.db.Exec(ctx,
			`INSERT INTO deposit_lectures (deposit_id, lecture_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			d.ID, l.ID,
		); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: лекция %d не существует", ErrConflict, l.ID)
			}
			return fmt.Errorf("ошибка связывания залога с лекцией: %w", err)
		}
	}
	return nil
}

func (r *depositRepo) GetByID(ctx context.Context, id int64) (*model.Deposit, error) {
	d := &model.Deposit{}
	err := r.db.QueryRow(ctx, `SELECT id, price, name, by_user, date FROM deposits WHERE id = $1`, id).
		Scan(&d.ID, &d.Price, &d.Name, &d.ByUser, &d.Date)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения залога: %w", err)
	}
	if err := r.attachLectures(ctx, []*model.Deposit{d}); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *depositRepo) List(ctx context.Context, limit, offset int) ([]*model.Deposit, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, price, name, by_user, date FROM deposits
		ORDER BY date DESC, id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка залогов: %w", err)
	}

	var result []*model.Deposit
	for rows.Next() {
		d := &model.Deposit{}
		if err := rows.Scan(&d.ID, &d.Price, &d.Name, &d.ByUser, &d.Date); err != nil {
			rows.Close()
			return nil, fmt.Errorf("ошибка сканирования залога: %w", err)
		}
		result = append(result, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка получения списка залогов: %w", err)
	}

	if err := r.attachLectures(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *depositRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM deposits`).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта залогов: %w", err)
	}
	return count, nil
}

func (r *depositRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM deposits WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления залога: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *depositRepo) attachLectures(ctx context.Context, deposits []*model.Deposit) error {
	if len(deposits) == 0 {
		return nil
	}
	byID := make(map[int64]*model.Deposit, len(deposits))
	ids := make([]int64, 0, len(deposits))
	for _, d := range deposits {
		byID[d.ID] = d
		ids = append(ids, d.ID)
	}

	rows, err := r.db.Query(ctx, `
		SELECT dl.deposit_id, `+lectureColumnsPrefixed+`
		FROM deposit_lectures dl
		JOIN lectures l ON l.id = dl.lecture_id
		WHERE dl.deposit_id = ANY($1)
		ORDER BY l.name, l.id`, ids)
	if err != nil {
		return fmt.Errorf("ошибка получения лекций залогов: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var depositID int64
		var l model.Lecture
		if err := rows.Scan(&depositID, &l.ID, &l.Name, &l.Subject, &l.Aliases, &l.Comment, &l.Validated); err != nil {
			return fmt.Errorf("ошибка сканирования лекции залога: %w", err)
		}
		byID[depositID].Lectures = append(byID[depositID].Lectures, l)
	}
	return rows.Err()
}
