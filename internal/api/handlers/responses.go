// responses.go — JSON-представления доменных сущностей.
package handlers

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/bigkaa/odie/internal/domain/model"
	"github.com/bigkaa/odie/internal/service"
)

type lectureResponse struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Subject   string   `json:"subject"`
	Aliases   []string `json:"aliases"`
	Comment   *string  `json:"comment,omitempty"`
	Validated bool     `json:"validated"`
}

type examinantResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Validated bool   `json:"validated"`
}

type documentResponse struct {
	ID             int64               `json:"id"`
	Lectures       []lectureResponse   `json:"lectures"`
	Examinants     []examinantResponse `json:"examinants"`
	Date           openapi_types.Date  `json:"date"`
	NumberOfPages  int                 `json:"number_of_pages"`
	Solution       *string             `json:"solution,omitempty"`
	Comment        *string             `json:"comment,omitempty"`
	DocumentType   string              `json:"document_type"`
	Available      bool                `json:"available"`
	Validated      bool                `json:"validated"`
	ValidationTime *time.Time          `json:"validation_time,omitempty"`
	SubmittedBy    string              `json:"submitted_by,omitempty"`
}

type orderResponse struct {
	ID           int64              `json:"id"`
	Name         string             `json:"name"`
	CreationTime time.Time          `json:"creation_time"`
	Documents    []documentResponse `json:"documents"`
}

type depositResponse struct {
	ID       int64     `json:"id"`
	Price    int       `json:"price"`
	Name     string    `json:"name"`
	ByUser   string    `json:"by_user"`
	Lectures []string  `json:"lectures"`
	Date     time.Time `json:"date"`
}

type ledgerEntryResponse struct {
	ID          int64     `json:"id"`
	Kind        string    `json:"kind"`
	Amount      int       `json:"amount"`
	Pages       *int      `json:"pages,omitempty"`
	DepositID   *int64    `json:"deposit_id,omitempty"`
	DepositName *string   `json:"deposit_name,omitempty"`
	Operator    string    `json:"operator"`
	CashBox     string    `json:"cash_box"`
	CreatedAt   time.Time `json:"created_at"`
}

type printResponse struct {
	JobID      string  `json:"job_id"`
	Price      int     `json:"price"`
	Pages      int     `json:"pages"`
	DepositIDs []int64 `json:"deposit_ids"`
	Printed    bool    `json:"printed"`
}

type userInfoResponse struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Office    string `json:"office,omitempty"`
}

// listResponse — страница списка с общим количеством.
type listResponse[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

func newListResponse[T any](items []T, total, limit, offset int) listResponse[T] {
	return listResponse[T]{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}

// --- Маппинг ---

func mapLecture(l *model.Lecture) lectureResponse {
	aliases := l.Aliases
	if aliases == nil {
		aliases = []string{}
	}
	return lectureResponse{
		ID:        l.ID,
		Name:      l.Name,
		Subject:   l.Subject,
		Aliases:   aliases,
		Comment:   l.Comment,
		Validated: l.Validated,
	}
}

func mapExaminant(e *model.Examinant) examinantResponse {
	return examinantResponse{ID: e.ID, Name: e.Name, Validated: e.Validated}
}

func mapDocument(d *model.Document) documentResponse {
	resp := documentResponse{
		ID:             d.ID,
		Lectures:       make([]lectureResponse, len(d.Lectures)),
		Examinants:     make([]examinantResponse, len(d.Examinants)),
		Date:           openapi_types.Date{Time: d.Date},
		NumberOfPages:  d.NumberOfPages,
		Solution:       d.Solution,
		Comment:        d.Comment,
		DocumentType:   d.DocumentType,
		Available:      d.Available(),
		Validated:      d.Validated,
		ValidationTime: d.ValidationTime,
		SubmittedBy:    d.SubmittedBy,
	}
	for i := range d.Lectures {
		resp.Lectures[i] = mapLecture(&d.Lectures[i])
	}
	for i := range d.Examinants {
		resp.Examinants[i] = mapExaminant(&d.Examinants[i])
	}
	return resp
}

func mapDocuments(docs []*model.Document) []documentResponse {
	out := make([]documentResponse, len(docs))
	for i, d := range docs {
		out[i] = mapDocument(d)
	}
	return out
}

func mapOrder(v *service.OrderView) orderResponse {
	return orderResponse{
		ID:           v.Order.ID,
		Name:         v.Order.Name,
		CreationTime: v.Order.CreationTime,
		Documents:    mapDocuments(v.Documents),
	}
}

func mapDeposit(d *model.Deposit) depositResponse {
	return depositResponse{
		ID:       d.ID,
		Price:    d.Price,
		Name:     d.Name,
		ByUser:   d.ByUser,
		Lectures: d.LectureNames(),
		Date:     d.Date,
	}
}

func mapLedgerEntry(e *model.LedgerEntry) ledgerEntryResponse {
	return ledgerEntryResponse{
		ID:          e.ID,
		Kind:        string(e.Kind),
		Amount:      e.Amount,
		Pages:       e.Pages,
		DepositID:   e.DepositID,
		DepositName: e.DepositName,
		Operator:    e.Operator,
		CashBox:     e.CashBox,
		CreatedAt:   e.CreatedAt,
	}
}
