// accounting.go — кассовые операции: возврат залога, пожертвование,
// корректировка ошибочной продажи, журнал кассы.
package handlers

import (
	"net/http"

	apierrors "github.com/bigkaa/odie/internal/api/errors"
	"github.com/bigkaa/odie/internal/api/middleware"
)

// LogErroneousSale — POST /api/log_erroneous_sale.
// Доступ: оператор.
func (h *APIHandler) LogErroneousSale(w http.ResponseWriter, r *http.Request) {
	op, ok := middleware.OperatorFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
		return
	}

	var req amountRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	if err := req.validate(h.cfg); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	if err := h.svc.Accounting.ErroneousSale(r.Context(), *req.Amount, op, req.CashBox); err != nil {
		h.writeServiceError(w, err, "корректировка продажи")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LogDepositReturn — POST /api/log_deposit_return.
// Удаляет залог и записывает возврат. Доступ: оператор.
func (h *APIHandler) LogDepositReturn(w http.ResponseWriter, r *http.Request) {
	op, ok := middleware.OperatorFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
		return
	}

	var req depositReturnRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	if err := req.validate(h.cfg); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	dep, err := h.svc.Accounting.ReturnDeposit(r.Context(), req.ID, op, req.CashBox)
	if err != nil {
		h.writeServiceError(w, err, "возврат залога")
		return
	}
	writeJSON(w, http.StatusOK, mapDeposit(dep))
}

// Donation — POST /api/donation.
// Доступ: оператор.
func (h *APIHandler) Donation(w http.ResponseWriter, r *http.Request) {
	op, ok := middleware.OperatorFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
		return
	}

	var req amountRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	if err := req.validate(h.cfg); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	if err := h.svc.Accounting.Donation(r.Context(), *req.Amount, op, req.CashBox); err != nil {
		h.writeServiceError(w, err, "пожертвование")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAccounting — GET /api/accounting?cash_box=...
// Журнал кассы в порядке записи. Доступ: оператор.
func (h *APIHandler) ListAccounting(w http.ResponseWriter, r *http.Request) {
	cashBox := r.URL.Query().Get("cash_box")
	if err := validateCashBox(h.cfg, cashBox); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	limit, offset, err := pagination(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	entries, err := h.svc.Accounting.Entries(r.Context(), cashBox, limit, offset)
	if err != nil {
		h.writeServiceError(w, err, "журнал кассы")
		return
	}

	items := make([]ledgerEntryResponse, len(entries))
	for i, e := range entries {
		items[i] = mapLedgerEntry(e)
	}
	writeJSON(w, http.StatusOK, items)
}
