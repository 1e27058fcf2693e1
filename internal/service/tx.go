package service

import (
	"context"

	"github.com/bigkaa/odie/internal/repository"
)

// TxManager выполняет fn в одной транзакции.
// Ошибка fn откатывает все изменения, сделанные через переданные репозитории.
// Реализуется repository.TxRunner.
type TxManager interface {
	InTx(ctx context.Context, fn func(repos *repository.Repositories) error) error
}
