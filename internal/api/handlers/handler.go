// handler.go — основной обработчик API Odie.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/odie/internal/api/errors"
	"github.com/bigkaa/odie/internal/config"
	"github.com/bigkaa/odie/internal/domain/model"
	"github.com/bigkaa/odie/internal/service"
)

// CatalogService — чтение каталога (реализуется service.CatalogService).
type CatalogService interface {
	Lectures(ctx context.Context) ([]*model.Lecture, error)
	Examinants(ctx context.Context) ([]*model.Examinant, error)
	Documents(ctx context.Context, limit, offset int) ([]*model.Document, int, error)
	LectureDocuments(ctx context.Context, lectureID int64, limit, offset int) ([]*model.Document, int, error)
	ExaminantDocuments(ctx context.Context, examinantID int64, limit, offset int) ([]*model.Document, int, error)
	Deposits(ctx context.Context, limit, offset int) ([]*model.Deposit, int, error)
	OpenDocumentFile(ctx context.Context, documentID int64) (io.ReadCloser, string, error)
}

// OrderService — заказы (реализуется service.OrderService).
type OrderService interface {
	Create(ctx context.Context, name string, documentIDs []int64) (*service.OrderView, error)
	Get(ctx context.Context, id int64) (*service.OrderView, error)
	List(ctx context.Context, limit, offset int) ([]*service.OrderView, int, error)
	Delete(ctx context.Context, id int64) error
}

// PrintService — печать и продажа (реализуется service.PrintService).
type PrintService interface {
	Execute(ctx context.Context, job service.PrintJob, op model.Operator) (*service.PrintResult, error)
}

// AccountingService — кассовые операции (реализуется service.AccountingService).
type AccountingService interface {
	ReturnDeposit(ctx context.Context, id int64, op model.Operator, cashBox string) (*model.Deposit, error)
	Donation(ctx context.Context, amount int, op model.Operator, cashBox string) error
	ErroneousSale(ctx context.Context, amount int, op model.Operator, cashBox string) error
	Entries(ctx context.Context, cashBox string, limit, offset int) ([]*model.LedgerEntry, error)
}

// SubmissionService — приём документов (реализуется service.SubmissionService).
type SubmissionService interface {
	Submit(ctx context.Context, sub service.Submission) (*model.Document, error)
}

// Services — зависимости APIHandler.
type Services struct {
	Catalog     CatalogService
	Orders      OrderService
	Print       PrintService
	Accounting  AccountingService
	Submissions SubmissionService
}

// APIHandler — основной обработчик API Odie.
type APIHandler struct {
	health *HealthHandler
	svc    Services
	cfg    *config.Config
	logger *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(health *HealthHandler, svc Services, cfg *config.Config, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		health: health,
		svc:    svc,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// paginationDefaults нормализует параметры пагинации.
// Возвращает корректные limit и offset.
func paginationDefaults(limit *int, offset *int) (int, int) {
	l := 100
	o := 0

	if limit != nil {
		l = *limit
		if l < 1 {
			l = 1
		}
		if l > 1000 {
			l = 1000
		}
	}

	if offset != nil {
		o = *offset
		if o < 0 {
			o = 0
		}
	}

	return l, o
}

// pagination читает limit и offset из query string.
func pagination(r *http.Request) (int, int, error) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		return 0, 0, err
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		return 0, 0, err
	}
	l, o := paginationDefaults(limit, offset)
	return l, o, nil
}

// queryInt читает необязательный целочисленный параметр query string.
func queryInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errors.New("параметр " + name + " должен быть целым числом")
	}
	return &v, nil
}

// pathID читает числовой идентификатор из URL-параметра id.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("идентификатор должен быть положительным целым числом")
	}
	return id, nil
}

// decodeJSON декодирует тело запроса. Неизвестные поля недопустимы.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.New("некорректный JSON: " + err.Error())
	}
	return nil
}

// writeServiceError отображает ошибку сервисного слоя в HTTP-ответ.
// Неожиданные ошибки логируются с контекстом action.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, service.ErrFileTypeNotAllowed):
		apierrors.NotAcceptable(w, err.Error())
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrIntegrity):
		h.logger.Error("Нарушение целостности данных", slog.String("action", action), slog.String("error", err.Error()))
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrStorage):
		h.logger.Error("Ошибка хранилища файлов", slog.String("action", action), slog.String("error", err.Error()))
		apierrors.StorageUnavailable(w, "Хранилище файлов недоступно")
	default:
		h.logger.Error("Внутренняя ошибка", slog.String("action", action), slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка: "+action)
	}
}
