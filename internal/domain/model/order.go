package model

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrEmptyOrderName — пустое имя заказа.
	ErrEmptyOrderName = errors.New("имя заказа не может быть пустым")
	// ErrEmptyOrder — заказ без документов.
	ErrEmptyOrder = errors.New("заказ должен содержать хотя бы один документ")
)

// Order — заказ на печать набора документов.
// Документы упорядочены: позиция 0..n-1 без пропусков.
type Order struct {
	ID           int64
	Name         string
	CreationTime time.Time
	Items        []OrderItem
}

// OrderItem — позиция заказа (таблица order_documents).
type OrderItem struct {
	Position   int
	DocumentID int64
}

// NewOrder создаёт заказ с позициями в порядке document_ids.
// Повторяющиеся идентификаторы допустимы и занимают разные позиции.
// Существование документов проверяет сервисный слой.
func NewOrder(name string, documentIDs []int64) (*Order, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyOrderName
	}
	if len(documentIDs) == 0 {
		return nil, ErrEmptyOrder
	}

	items := make([]OrderItem, len(documentIDs))
	for i, id := range documentIDs {
		items[i] = OrderItem{Position: i, DocumentID: id}
	}
	return &Order{Name: name, Items: items}, nil
}

// DocumentIDs возвращает идентификаторы документов в порядке позиций.
func (o *Order) DocumentIDs() []int64 {
	ids := make([]int64, len(o.Items))
	for i, it := range o.Items {
		ids[i] = it.DocumentID
	}
	return ids
}
