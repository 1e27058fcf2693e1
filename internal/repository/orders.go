package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/odie/internal/domain/model"
)

// OrderRepository — доступ к таблицам orders и order_documents.
type OrderRepository interface {
	// Create создаёт заказ и его позиции, заполняет ID и CreationTime.
	Create(ctx context.Context, o *model.Order) error
	// GetByID возвращает заказ с позициями в порядке position.
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	// List возвращает заказы, новые первыми.
	List(ctx context.Context, limit, offset int) ([]*model.Order, error)
	// Count возвращает общее количество заказов.
	Count(ctx context.Context) (int, error)
	// Delete удаляет заказ; позиции удаляются каскадно, документы остаются.
	Delete(ctx context.Context, id int64) error
}

type orderRepo struct {
	db DBTX
}

// NewOrderRepository создаёт репозиторий заказов.
func NewOrderRepository(db DBTX) OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) Create(ctx context.Context, o *model.Order) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO orders (name) VALUES ($1) RETURNING id, creation_time`,
		o.Name,
	).Scan(&o.ID, &o.CreationTime)
	if err != nil {
		return fmt.Errorf("ошибка создания заказа: %w", err)
	}

	for _, it := range o.Items {
		if _, err := r.db.Exec(ctx,
			`INSERT INTO order_documents (order_id, position, document_id) VALUES ($1, $2, $3)`,
			o.ID, it.Position, it.DocumentID,
		); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: документ %d не существует", ErrConflict, it.DocumentID)
			}
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: позиция %d занята", ErrConflict, it.Position)
			}
			return fmt.Errorf("ошибка добавления документа в заказ: %w", err)
		}
	}
	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	o := &model.Order{}
	err := r.db.QueryRow(ctx, `SELECT id, name, creation_time FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.Name, &o.CreationTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения заказа: %w", err)
	}

	if err := r.attachItems(ctx, []*model.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *orderRepo) List(ctx context.Context, limit, offset int) ([]*model.Order, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, creation_time FROM orders
		ORDER BY creation_time DESC, id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка заказов: %w", err)
	}

	var result []*model.Order
	for rows.Next() {
		o := &model.Order{}
		if err := rows.Scan(&o.ID, &o.Name, &o.CreationTime); err != nil {
			rows.Close()
			return nil, fmt.Errorf("ошибка сканирования заказа: %w", err)
		}
		result = append(result, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка получения списка заказов: %w", err)
	}

	if err := r.attachItems(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *orderRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта заказов: %w", err)
	}
	return count, nil
}

func (r *orderRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления заказа: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// attachItems подгружает позиции заказов одним запросом.
func (r *orderRepo) attachItems(ctx context.Context, orders []*model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[int64]*model.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := r.db.Query(ctx, `
		SELECT order_id, position, document_id FROM order_documents
		WHERE order_id = ANY($1)
		ORDER BY order_id, position`, ids)
	if err != nil {
		return fmt.Errorf("ошибка получения позиций заказа: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID int64
		var it model.OrderItem
		if err := rows.Scan(&orderID, &it.Position, &it.DocumentID); err != nil {
			return fmt.Errorf("ошибка сканирования позиции заказа: %w", err)
		}
		byID[orderID].Items = append(byID[orderID].Items, it)
	}
	return rows.Err()
}
