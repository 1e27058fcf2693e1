package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/odie/internal/api/middleware"
	"github.com/bigkaa/odie/internal/config"
	"github.com/bigkaa/odie/internal/domain/model"
	"github.com/bigkaa/odie/internal/service"
)

type mockCatalog struct {
	lecturesFn           func(ctx context.Context) ([]*model.Lecture, error)
	examinantsFn         func(ctx context.Context) ([]*model.Examinant, error)
	documentsFn          func(ctx context.Context, limit, offset int) ([]*model.Document, int, error)
	lectureDocumentsFn   func(ctx context.Context, id int64, limit, offset int) ([]*model.Document, int, error)
	examinantDocumentsFn func(ctx context.Context, id int64, limit, offset int) ([]*model.Document, int, error)
	depositsFn           func(ctx context.Context, limit, offset int) ([]*model.Deposit, int, error)
	openFn               func(ctx context.Context, id int64) (io.ReadCloser, string, error)
}

func (m *mockCatalog) Lectures(ctx context.Context) ([]*model.Lecture, error) {
	return m.lecturesFn(ctx)
}

func (m *mockCatalog) Examinants(ctx context.Context) ([]*model.Examinant, error) {
	return m.examinantsFn(ctx)
}

func (m *mockCatalog) Documents(ctx context.Context, limit, offset int) ([]*model.Document, int, error) {
	return m.documentsFn(ctx, limit, offset)
}

func (m *mockCatalog) LectureDocuments(ctx context.Context, id int64, limit, offset int) ([]*model.Document, int, error) {
	return m.lectureDocumentsFn(ctx, id, limit, offset)
}

func (m *mockCatalog) ExaminantDocuments(ctx context.Context, id int64, limit, offset int) ([]*model.Document, int, error) {
	return m.examinantDocumentsFn(ctx, id, limit, offset)
}

func (m *mockCatalog) Deposits(ctx context.Context, limit, offset int) ([]*model.Deposit, int, error) {
	return m.depositsFn(ctx, limit, offset)
}

func (m *mockCatalog) OpenDocumentFile(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	return m.openFn(ctx, id)
}

type mockOrders struct {
	createFn func(ctx context.Context, name string, ids []int64) (*service.OrderView, error)
	getFn    func(ctx context.Context, id int64) (*service.OrderView, error)
	listFn   func(ctx context.Context, limit, offset int) ([]*service.OrderView, int, error)
	deleteFn func(ctx context.Context, id int64) error
}

func (m *mockOrders) Create(ctx context.Context, name string, ids []int64) (*service.OrderView, error) {
	return m.createFn(ctx, name, ids)
}

func (m *mockOrders) Get(ctx context.Context, id int64) (*service.OrderView, error) {
	return m.getFn(ctx, id)
}

func (m *mockOrders) List(ctx context.Context, limit, offset int) ([]*service.OrderView, int, error) {
	return m.listFn(ctx, limit, offset)
}

func (m *mockOrders) Delete(ctx context.Context, id int64) error {
	return m.deleteFn(ctx, id)
}

type mockPrint struct {
	executeFn func(ctx context.Context, job service.PrintJob, op model.Operator) (*service.PrintResult, error)
}

func (m *mockPrint) Execute(ctx context.Context, job service.PrintJob, op model.Operator) (*service.PrintResult, error) {
	return m.executeFn(ctx, job, op)
}

type mockAccounting struct {
	returnFn    func(ctx context.Context, id int64, op model.Operator, cashBox string) (*model.Deposit, error)
	donationFn  func(ctx context.Context, amount int, op model.Operator, cashBox string) error
	erroneousFn func(ctx context.Context, amount int, op model.Operator, cashBox string) error
	entriesFn   func(ctx context.Context, cashBox string, limit, offset int) ([]*model.LedgerEntry, error)
}

func (m *mockAccounting) ReturnDeposit(ctx context.Context, id int64, op model.Operator, cashBox string) (*model.Deposit, error) {
	return m.returnFn(ctx, id, op, cashBox)
}

func (m *mockAccounting) Donation(ctx context.Context, amount int, op model.Operator, cashBox string) error {
	return m.donationFn(ctx, amount, op, cashBox)
}

func (m *mockAccounting) ErroneousSale(ctx context.Context, amount int, op model.Operator, cashBox string) error {
	return m.erroneousFn(ctx, amount, op, cashBox)
}

func (m *mockAccounting) Entries(ctx context.Context, cashBox string, limit, offset int) ([]*model.LedgerEntry, error) {
	return m.entriesFn(ctx, cashBox, limit, offset)
}

type mockSubmissions struct {
	submitFn func(ctx context.Context, sub service.Submission) (*model.Document, error)
}

func (m *mockSubmissions) Submit(ctx context.Context, sub service.Submission) (*model.Document, error) {
	return m.submitFn(ctx, sub)
}

// --- Общие помощники ---

var testOperator = model.Operator{Username: "jdoe", FirstName: "Jane", LastName: "Doe"}

func testConfig() *config.Config {
	return &config.Config{
		CashBoxes:         []string{"Sitzung", "Buero"},
		Printers:          []string{"FSI-Drucker"},
		DepositPrice:      500,
		PricePerPage:      3,
		AllowedExtensions: []string{".pdf"},
		MaxUploadSize:     1 << 20,
		Offices:           map[string]string{"jdoe": "FSI"},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(svc Services) *APIHandler {
	return NewAPIHandler(NewHealthHandler(nil, nil, nil), svc, testConfig(), testLogger())
}

// withOperator помещает claims оператора в контекст запроса.
func withOperator(r *http.Request) *http.Request {
	claims := &middleware.AuthClaims{Subject: "user-1", Operator: testOperator}
	return r.WithContext(context.WithValue(r.Context(), middleware.ContextKeyClaims, claims))
}

// withID добавляет chi URL-параметр id.
func withID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonRequest(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}
