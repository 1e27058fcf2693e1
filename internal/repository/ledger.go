package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/odie/internal/domain/model"
)

// LedgerRepository — append-only доступ к таблице accounting_entries.
// Обновления и удаления записей журнала не предусмотрены.
type LedgerRepository interface {
	// Append добавляет запись, заполняет ID и CreatedAt.
	Append(ctx context.Context, e *model.LedgerEntry) error
	// ListByCashBox возвращает записи кассы в порядке добавления.
	ListByCashBox(ctx context.Context, cashBox string, limit, offset int) ([]*model.LedgerEntry, error)
}

type ledgerRepo struct {
	db DBTX
}

// NewLedgerRepository создаёт репозиторий учётного журнала.
func NewLedgerRepository(db DBTX) LedgerRepository {
	return &ledgerRepo{db: db}
}

func (r *ledgerRepo) Append(ctx context.Context, e *model.LedgerEntry) error {
	query := `
		INSERT INTO accounting_entries (kind, amount, pages, deposit_id, deposit_name, operator, cash_box)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		string(e.Kind), e.Amount, e.Pages, e.DepositID, e.DepositName, e.Operator, e.CashBox,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи в учётный журнал: %w", err)
	}
	return nil
}

func (r *ledgerRepo) ListByCashBox(ctx context.Context, cashBox string, limit, offset int) ([]*model.LedgerEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, kind, amount, pages, deposit_id, deposit_name, operator, cash_box, created_at
		FROM accounting_entries
		WHERE cash_box = $1
		ORDER BY id
		LIMIT $2 OFFSET $3`, cashBox, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения учётного журнала: %w", err)
	}
	defer rows.Close()

	var result []*model.LedgerEntry
	for rows.Next() {
		e := &model.LedgerEntry{}
		var kind string
		if err := rows.Scan(&e.ID, &kind, &e.Amount, &e.Pages, &e.DepositID, &e.DepositName,
			&e.Operator, &e.CashBox, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи журнала: %w", err)
		}
		e.Kind = model.EntryKind(kind)
		result = append(result, e)
	}
	return result, rows.Err()
}
