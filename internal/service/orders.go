// orders.go — заказы: упорядоченные наборы документов для последующей печати.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bigkaa/odie/internal/domain/model"
	"github.com/bigkaa/odie/internal/repository"
)

// OrderView — заказ с документами в порядке позиций.
type OrderView struct {
	Order     *model.Order
	Documents []*model.Document
}

// OrderService — создание, просмотр и удаление заказов.
type OrderService struct {
	repos  *repository.Repositories
	tx     TxManager
	logger *slog.Logger
}

// NewOrderService создаёт сервис заказов.
func NewOrderService(repos *repository.Repositories, tx TxManager, logger *slog.Logger) *OrderService {
	return &OrderService{
		repos:  repos,
		tx:     tx,
		logger: logger.With(slog.String("component", "order_service")),
	}
}

// Create создаёт заказ. Имя не пустое, список документов не пустой,
// все документы существуют. Порядок документов сохраняется.
func (s *OrderService) Create(ctx context.Context, name string, documentIDs []int64) (*OrderView, error) {
	order, err := model.NewOrder(name, documentIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	var docs []*model.Document
	err = s.tx.InTx(ctx, func(repos *repository.Repositories) error {
		var err error
		if docs, err = resolveDocuments(ctx, repos.Documents, documentIDs); err != nil {
			return err
		}
		if err := repos.Orders.Create(ctx, order); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%w: %w", ErrValidation, err)
			}
			return fmt.Errorf("создание заказа: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Заказ создан",
		slog.Int64("order_id", order.ID),
		slog.String("name", order.Name),
		slog.Int("documents", len(order.Items)),
	)
	return &OrderView{Order: order, Documents: docs}, nil
}

// Get возвращает заказ с документами.
func (s *OrderService) Get(ctx context.Context, id int64) (*OrderView, error) {
	order, err := s.repos.Orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: заказ %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("получение заказа: %w", err)
	}

	views, err := s.withDocuments(ctx, []*model.Order{order})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// List возвращает страницу заказов и их общее количество.
func (s *OrderService) List(ctx context.Context, limit, offset int) ([]*OrderView, int, error) {
	orders, err := s.repos.Orders.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("получение заказов: %w", err)
	}
	total, err := s.repos.Orders.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("подсчёт заказов: %w", err)
	}

	views, err := s.withDocuments(ctx, orders)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// Delete удаляет заказ. Документы не затрагиваются.
func (s *OrderService) Delete(ctx context.Context, id int64) error {
	if err := s.repos.Orders.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: заказ %d", ErrNotFound, id)
		}
		return fmt.Errorf("удаление заказа: %w", err)
	}
	s.logger.Info("Заказ удалён", slog.Int64("order_id", id))
	return nil
}

// withDocuments подгружает документы всех заказов одним запросом.
func (s *OrderService) withDocuments(ctx context.Context, orders []*model.Order) ([]*OrderView, error) {
	var ids []int64
	for _, o := range orders {
		ids = append(ids, o.DocumentIDs()...)
	}
	byID, err := s.repos.Documents.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("получение документов заказа: %w", err)
	}

	views := make([]*OrderView, len(orders))
	for i, o := range orders {
		docs := make([]*model.Document, 0, len(o.Items))
		for _, it := range o.Items {
			if d, ok := byID[it.DocumentID]; ok {
				docs = append(docs, d)
			}
		}
		views[i] = &OrderView{Order: o, Documents: docs}
	}
	return views, nil
}
