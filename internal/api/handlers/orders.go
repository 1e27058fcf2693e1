// orders.go — обработчики /api/orders.
// Создание заказа публично, просмотр и удаление доступны операторам.
package handlers

import (
	"net/http"

	apierrors "github.com/bigkaa/odie/internal/api/errors"
)

// CreateOrder — POST /api/orders.
func (h *APIHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	view, err := h.svc.Orders.Create(r.Context(), req.Name, req.DocumentIDs)
	if err != nil {
		h.writeServiceError(w, err, "создание заказа")
		return
	}
	writeJSON(w, http.StatusCreated, mapOrder(view))
}

// ListOrders — GET /api/orders.
func (h *APIHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	views, total, err := h.svc.Orders.List(r.Context(), limit, offset)
	if err != nil {
		h.writeServiceError(w, err, "список заказов")
		return
	}

	items := make([]orderResponse, len(views))
	for i, v := range views {
		items[i] = mapOrder(v)
	}
	writeJSON(w, http.StatusOK, newListResponse(items, total, limit, offset))
}

// GetOrder — GET /api/orders/{id}.
func (h *APIHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	view, err := h.svc.Orders.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "получение заказа")
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(view))
}

// DeleteOrder — DELETE /api/orders/{id}.
func (h *APIHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	if err := h.svc.Orders.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "удаление заказа")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
