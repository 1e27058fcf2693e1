// requests.go — тела запросов и их проверка до вызова сервисного слоя.
package handlers

import (
	"errors"
	"fmt"
	"strings"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/bigkaa/odie/internal/config"
	"github.com/bigkaa/odie/internal/domain/model"
)

// printRequest — POST /api/print.
type printRequest struct {
	CoverText    string  `json:"cover_text"`
	CashBox      string  `json:"cash_box"`
	DocumentIDs  []int64 `json:"document_ids"`
	DepositCount *int    `json:"deposit_count"`
	Printer      string  `json:"printer"`
}

func (req *printRequest) validate(cfg *config.Config) error {
	if err := validateCashBox(cfg, req.CashBox); err != nil {
		return err
	}
	if req.DepositCount == nil {
		return errors.New("не указано deposit_count")
	}
	if *req.DepositCount < 0 {
		return fmt.Errorf("deposit_count не может быть отрицательным: %d", *req.DepositCount)
	}
	if len(req.DocumentIDs) > 0 && !cfg.IsPrinter(req.Printer) {
		return fmt.Errorf("неизвестный принтер %q", req.Printer)
	}
	if *req.DepositCount > 0 && strings.TrimSpace(req.CoverText) == "" {
		return errors.New("для залога нужен cover_text")
	}
	return nil
}

// amountRequest — POST /api/donation и /api/log_erroneous_sale.
type amountRequest struct {
	Amount  *int   `json:"amount"`
	CashBox string `json:"cash_box"`
}

func (req *amountRequest) validate(cfg *config.Config) error {
	if err := validateCashBox(cfg, req.CashBox); err != nil {
		return err
	}
	if req.Amount == nil {
		return errors.New("не указана сумма amount")
	}
	return nil
}

// depositReturnRequest — POST /api/log_deposit_return.
type depositReturnRequest struct {
	ID      int64  `json:"id"`
	CashBox string `json:"cash_box"`
}

func (req *depositReturnRequest) validate(cfg *config.Config) error {
	if err := validateCashBox(cfg, req.CashBox); err != nil {
		return err
	}
	if req.ID < 1 {
		return errors.New("не указан id залога")
	}
	return nil
}

// orderRequest — POST /api/orders.
type orderRequest struct {
	Name        string  `json:"name"`
	DocumentIDs []int64 `json:"document_ids"`
}

// submissionRequest — JSON-часть POST /api/documents.
type submissionRequest struct {
	Lectures      []lectureDescriptor `json:"lectures"`
	Examinants    []string            `json:"examinants"`
	Date          *openapi_types.Date `json:"date"`
	NumberOfPages int                 `json:"number_of_pages"`
	DocumentType  string              `json:"document_type"`
	StudentName   string              `json:"student_name"`
}

type lectureDescriptor struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
}

// descriptors возвращает описания лекций для сопоставления.
func (req *submissionRequest) descriptors() []model.LectureDescriptor {
	out := make([]model.LectureDescriptor, len(req.Lectures))
	for i, l := range req.Lectures {
		out[i] = model.LectureDescriptor{Name: l.Name, Subject: l.Subject}
	}
	return out
}

func (req *submissionRequest) validate() error {
	if len(req.Lectures) == 0 {
		return errors.New("нужна хотя бы одна лекция")
	}
	if len(req.Examinants) == 0 {
		return errors.New("нужен хотя бы один экзаменатор")
	}
	if req.Date == nil {
		return errors.New("не указана дата экзамена")
	}
	return nil
}

// validateCashBox проверяет кассу по списку из конфигурации.
func validateCashBox(cfg *config.Config, cashBox string) error {
	if !cfg.IsCashBox(cashBox) {
		return fmt.Errorf("неизвестная касса %q", cashBox)
	}
	return nil
}
