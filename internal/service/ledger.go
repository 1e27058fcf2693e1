// ledger.go — запись событий кассы в учётный журнал.
package service

import (
	"context"
	"fmt"

	"github.com/bigkaa/odie/internal/domain/model"
	"github.com/bigkaa/odie/internal/repository"
)

// Ledger — append-only запись событий кассы.
// Каждый вызов добавляет одну запись; предыдущие записи не читаются и не изменяются.
// Суммы знаковые: поступления в кассу положительны, выплаты отрицательны.
type Ledger struct {
	repo repository.LedgerRepository
}

// NewLedger создаёт Ledger поверх репозитория журнала.
// Внутри транзакции передаётся репозиторий этой транзакции.
func NewLedger(repo repository.LedgerRepository) *Ledger {
	return &Ledger{repo: repo}
}

// LogExamSale фиксирует продажу распечатки: страницы и итоговая цена.
func (l *Ledger) LogExamSale(ctx context.Context, pages, price int, op model.Operator, cashBox string) error {
	return l.append(ctx, &model.LedgerEntry{
		Kind:   model.EntryExamSale,
		Amount: price,
		Pages:  &pages,
	}, op, cashBox)
}

// LogDeposit фиксирует выдачу залога.
func (l *Ledger) LogDeposit(ctx context.Context, d *model.Deposit, op model.Operator, cashBox string) error {
	return l.append(ctx, &model.LedgerEntry{
		Kind:        model.EntryDeposit,
		Amount:      d.Price,
		DepositID:   &d.ID,
		DepositName: &d.Name,
	}, op, cashBox)
}

// LogDepositReturn фиксирует возврат залога. Исходная запись о выдаче не меняется.
func (l *Ledger) LogDepositReturn(ctx context.Context, d *model.Deposit, op model.Operator, cashBox string) error {
	return l.append(ctx, &model.LedgerEntry{
		Kind:        model.EntryDepositReturn,
		Amount:      -d.Price,
		DepositID:   &d.ID,
		DepositName: &d.Name,
	}, op, cashBox)
}

// LogDonation фиксирует пожертвование. Отрицательная сумма означает изъятие из кассы.
func (l *Ledger) LogDonation(ctx context.Context, amount int, op model.Operator, cashBox string) error {
	return l.append(ctx, &model.LedgerEntry{
		Kind:   model.EntryDonation,
		Amount: amount,
	}, op, cashBox)
}

// LogErroneousSale фиксирует корректировку ошибочной продажи на сумму amount.
func (l *Ledger) LogErroneousSale(ctx context.Context, amount int, op model.Operator, cashBox string) error {
	return l.append(ctx, &model.LedgerEntry{
		Kind:   model.EntryErroneousSale,
		Amount: -amount,
	}, op, cashBox)
}

func (l *Ledger) append(ctx context.Context, e *model.LedgerEntry, op model.Operator, cashBox string) error {
	e.Operator = op.FullName()
	e.CashBox = cashBox
	if err := l.repo.Append(ctx, e); err != nil {
		return fmt.Errorf("запись %s в журнал: %w", e.Kind, err)
	}
	return nil
}
