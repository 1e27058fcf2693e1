// accounting.go — кассовые операции вне печати: возврат залога,
// пожертвование, корректировка ошибочной продажи.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bigkaa/odie/internal/domain/model"
	"github.com/bigkaa/odie/internal/repository"
)

// AccountingService — кассовые операции.
type AccountingService struct {
	repos  *repository.Repositories
	tx     TxManager
	logger *slog.Logger
}

// NewAccountingService создаёт сервис кассовых операций.
func NewAccountingService(repos *repository.Repositories, tx TxManager, logger *slog.Logger) *AccountingService {
	return &AccountingService{
		repos:  repos,
		tx:     tx,
		logger: logger.With(slog.String("component", "accounting_service")),
	}
}

// ReturnDeposit удаляет залог и фиксирует возврат в журнале одной транзакцией.
func (s *AccountingService) ReturnDeposit(ctx context.Context, id int64, op model.Operator, cashBox string) (*model.Deposit, error) {
	var dep *model.Deposit
	err := s.tx.InTx(ctx, func(repos *repository.Repositories) error {
		var err error
		dep, err = repos.Deposits.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: залог %d", ErrNotFound, id)
			}
			return fmt.Errorf("получение залога: %w", err)
		}
		if err := repos.Deposits.Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: залог %d", ErrNotFound, id)
			}
			return fmt.Errorf("удаление залога: %w", err)
		}
		return NewLedger(repos.Ledger).LogDepositReturn(ctx, dep, op, cashBox)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Залог возвращён",
		slog.Int64("deposit_id", id),
		slog.Int("price", dep.Price),
		slog.String("cash_box", cashBox),
		slog.String("operator", op.Username),
	)
	return dep, nil
}

// Donation фиксирует пожертвование. Нулевая сумма недопустима.
func (s *AccountingService) Donation(ctx context.Context, amount int, op model.Operator, cashBox string) error {
	if amount == 0 {
		return fmt.Errorf("%w: сумма пожертвования не может быть нулевой", ErrValidation)
	}
	err := s.tx.InTx(ctx, func(repos *repository.Repositories) error {
		return NewLedger(repos.Ledger).LogDonation(ctx, amount, op, cashBox)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Пожертвование записано",
		slog.Int("amount", amount),
		slog.String("cash_box", cashBox),
		slog.String("operator", op.Username),
	)
	return nil
}

// ErroneousSale фиксирует корректировку ошибочной продажи. Сумма положительна.
func (s *AccountingService) ErroneousSale(ctx context.Context, amount int, op model.Operator, cashBox string) error {
	if amount <= 0 {
		return fmt.Errorf("%w: сумма корректировки должна быть положительной, получено %d", ErrValidation, amount)
	}
	err := s.tx.InTx(ctx, func(repos *repository.Repositories) error {
		return NewLedger(repos.Ledger).LogErroneousSale(ctx, amount, op, cashBox)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Ошибочная продажа скорректирована",
		slog.Int("amount", amount),
		slog.String("cash_box", cashBox),
		slog.String("operator", op.Username),
	)
	return nil
}

// Entries возвращает записи журнала кассы в порядке добавления.
func (s *AccountingService) Entries(ctx context.Context, cashBox string, limit, offset int) ([]*model.LedgerEntry, error) {
	entries, err := s.repos.Ledger.ListByCashBox(ctx, cashBox, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("получение журнала кассы: %w", err)
	}
	return entries, nil
}
