// config.go — обработчики /api/config и /api/user_info.
package handlers

import (
	"net/http"

	apierrors "github.com/bigkaa/odie/internal/api/errors"
	"github.com/bigkaa/odie/internal/api/middleware"
)

// GetConfig — GET /api/config.
// Публичная конфигурация фронтенда: кассы, принтеры, цены, расширения файлов.
func (h *APIHandler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.cfg.Frontend())
}

// GetUserInfo — GET /api/user_info.
// Текущий оператор и его офис. Доступ: оператор.
func (h *APIHandler) GetUserInfo(w http.ResponseWriter, r *http.Request) {
	op, ok := middleware.OperatorFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
		return
	}

	writeJSON(w, http.StatusOK, userInfoResponse{
		Username:  op.Username,
		FirstName: op.FirstName,
		LastName:  op.LastName,
		Office:    h.cfg.Offices[op.Username],
	})
}
