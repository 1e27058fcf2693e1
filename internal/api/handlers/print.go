// print.go — обработчик POST /api/print.
package handlers

import (
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/odie/internal/api/errors"
	"github.com/bigkaa/odie/internal/api/middleware"
	"github.com/bigkaa/odie/internal/service"
)

// Print — POST /api/print.
// Продаёт распечатку документов и выдаёт залоги одной транзакцией.
// Доступ: оператор.
func (h *APIHandler) Print(w http.ResponseWriter, r *http.Request) {
	op, ok := middleware.OperatorFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
		return
	}

	var req printRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	if err := req.validate(h.cfg); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	res, err := h.svc.Print.Execute(r.Context(), service.PrintJob{
		DocumentIDs:  req.DocumentIDs,
		DepositCount: *req.DepositCount,
		CoverText:    req.CoverText,
		CashBox:      req.CashBox,
		Printer:      req.Printer,
	}, op)
	if err != nil {
		h.writeServiceError(w, err, "печать")
		return
	}

	if !res.Printed && len(req.DocumentIDs) > 0 {
		h.logger.Warn("Оплата проведена, печать не выполнена",
			slog.String("job_id", res.JobID),
			slog.String("printer", req.Printer),
		)
	}

	depositIDs := res.DepositIDs
	if depositIDs == nil {
		depositIDs = []int64{}
	}
	writeJSON(w, http.StatusOK, printResponse{
		JobID:      res.JobID,
		Price:      res.Price,
		Pages:      res.Pages,
		DepositIDs: depositIDs,
		Printed:    res.Printed,
	})
}
