package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/bigkaa/odie/internal/domain/model"
	"github.com/bigkaa/odie/internal/repository"
)

// memState — состояние in-memory базы. Клонируется перед транзакцией.
type memState struct {
	nextID     int64
	lectures   []model.Lecture
	examinants []model.Examinant
	documents  map[int64]model.Document
	orders     map[int64]model.Order
	deposits   map[int64]model.Deposit
	ledger     []model.LedgerEntry
}

func (s memState) clone() memState {
	return memState{
		nextID:     s.nextID,
		lectures:   slices.Clone(s.lectures),
		examinants: slices.Clone(s.examinants),
		documents:  maps.Clone(s.documents),
		orders:     maps.Clone(s.orders),
		deposits:   maps.Clone(s.deposits),
		ledger:     slices.Clone(s.ledger),
	}
}

// memDB — in-memory реализация репозиториев и TxManager.
// Ошибка внутри InTx восстанавливает состояние на момент начала транзакции.
type memDB struct {
	st memState
	// failLedger — принудительная ошибка Append для записи указанного вида
	failLedger map[model.EntryKind]error
	// txCount — количество вызовов InTx
	txCount int
}

func newMemDB() *memDB {
	return &memDB{
		st: memState{
			nextID:    100,
			documents: make(map[int64]model.Document),
			orders:    make(map[int64]model.Order),
			deposits:  make(map[int64]model.Deposit),
		},
		failLedger: make(map[model.EntryKind]error),
	}
}

func (db *memDB) id() int64 {
	db.st.nextID++
	return db.st.nextID
}

func (db *memDB) repos() *repository.Repositories {
	return &repository.Repositories{
		Documents:  memDocuments{db},
		Lectures:   memLectures{db},
		Examinants: memExaminants{db},
		Orders:     memOrders{db},
		Deposits:   memDeposits{db},
		Ledger:     memLedger{db},
	}
}

func (db *memDB) InTx(_ context.Context, fn func(repos *repository.Repositories) error) error {
	db.txCount++
	snapshot := db.st.clone()
	if err := fn(db.repos()); err != nil {
		db.st = snapshot
		return err
	}
	return nil
}

// addDocument добавляет документ с явным ID.
func (db *memDB) addDocument(d model.Document) {
	db.st.documents[d.ID] = d
}

// --- Лекции ---

type memLectures struct{ db *memDB }

func (r memLectures) FindByNameSubject(_ context.Context, name, subject string) ([]*model.Lecture, error) {
	var out []*model.Lecture
	for _, l := range r.db.st.lectures {
		if l.Name == name && l.Subject == subject {
			l := l
			out = append(out, &l)
		}
	}
	return out, nil
}

func (r memLectures) Create(_ context.Context, l *model.Lecture) error {
	l.ID = r.db.id()
	r.db.st.lectures = append(r.db.st.lectures, *l)
	return nil
}

func (r memLectures) GetByID(_ context.Context, id int64) (*model.Lecture, error) {
	for _, l := range r.db.st.lectures {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memLectures) List(_ context.Context) ([]*model.Lecture, error) {
	out := make([]*model.Lecture, 0, len(r.db.st.lectures))
	for _, l := range r.db.st.lectures {
		l := l
		out = append(out, &l)
	}
	return out, nil
}

func (r memLectures) ListByDocumentIDs(_ context.Context, ids []int64) ([]model.Lecture, error) {
	seen := make(map[int64]bool)
	var out []model.Lecture
	for _, id := range ids {
		d, ok := r.db.st.documents[id]
		if !ok {
			continue
		}
		for _, l := range d.Lectures {
			if !seen[l.ID] {
				seen[l.ID] = true
				out = append(out, l)
			}
		}
	}
	return out, nil
}

// --- Экзаменаторы ---

type memExaminants struct{ db *memDB }

func (r memExaminants) FindByName(_ context.Context, name string) ([]*model.Examinant, error) {
	var out []*model.Examinant
	for _, e := range r.db.st.examinants {
		if e.Name == name {
			e := e
			out = append(out, &e)
		}
	}
	return out, nil
}

func (r memExaminants) Create(_ context.Context, e *model.Examinant) error {
	e.ID = r.db.id()
	r.db.st.examinants = append(r.db.st.examinants, *e)
	return nil
}

func (r memExaminants) GetByID(_ context.Context, id int64) (*model.Examinant, error) {
	for _, e := range r.db.st.examinants {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memExaminants) List(_ context.Context) ([]*model.Examinant, error) {
	out := make([]*model.Examinant, 0, len(r.db.st.examinants))
	for _, e := range r.db.st.examinants {
		e := e
		out = append(out, &e)
	}
	return out, nil
}

// --- Документы ---

type memDocuments struct{ db *memDB }

func (r memDocuments) Create(_ context.Context, d *model.Document) error {
	d.ID = r.db.id()
	r.db.st.documents[d.ID] = *d
	return nil
}

func (r memDocuments) GetByID(_ context.Context, id int64) (*model.Document, error) {
	d, ok := r.db.st.documents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r memDocuments) GetByIDs(_ context.Context, ids []int64) (map[int64]*model.Document, error) {
	out := make(map[int64]*model.Document)
	for _, id := range ids {
		if d, ok := r.db.st.documents[id]; ok {
			out[id] = &d
		}
	}
	return out, nil
}

func (r memDocuments) filtered(filter repository.DocumentFilter) []*model.Document {
	var out []*model.Document
	for _, id := range slices.Sorted(maps.Keys(r.db.st.documents)) {
		d := r.db.st.documents[id]
		if filter.LectureID != nil && !slices.Contains(d.LectureIDs(), *filter.LectureID) {
			continue
		}
		if filter.ExaminantID != nil && !slices.Contains(d.ExaminantIDs(), *filter.ExaminantID) {
			continue
		}
		out = append(out, &d)
	}
	return out
}

func (r memDocuments) List(_ context.Context, filter repository.DocumentFilter, limit, offset int) ([]*model.Document, error) {
	return page(r.filtered(filter), limit, offset), nil
}

func (r memDocuments) Count(_ context.Context, filter repository.DocumentFilter) (int, error) {
	return len(r.filtered(filter)), nil
}

// --- Заказы ---

type memOrders struct{ db *memDB }

func (r memOrders) Create(_ context.Context, o *model.Order) error {
	for _, it := range o.Items {
		if _, ok := r.db.st.documents[it.DocumentID]; !ok {
			return repository.ErrConflict
		}
	}
	o.ID = r.db.id()
	o.CreationTime = time.Now()
	stored := *o
	stored.Items = slices.Clone(o.Items)
	r.db.st.orders[o.ID] = stored
	return nil
}

func (r memOrders) GetByID(_ context.Context, id int64) (*model.Order, error) {
	o, ok := r.db.st.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (r memOrders) List(_ context.Context, limit, offset int) ([]*model.Order, error) {
	var out []*model.Order
	for _, id := range slices.Sorted(maps.Keys(r.db.st.orders)) {
		o := r.db.st.orders[id]
		out = append(out, &o)
	}
	return page(out, limit, offset), nil
}

func (r memOrders) Count(_ context.Context) (int, error) {
	return len(r.db.st.orders), nil
}

func (r memOrders) Delete(_ context.Context, id int64) error {
	if _, ok := r.db.st.orders[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.st.orders, id)
	return nil
}

// --- Залоги ---

type memDeposits struct{ db *memDB }

func (r memDeposits) Create(_ context.Context, d *model.Deposit) error {
	d.ID = r.db.id()
	d.Date = time.Now()
	r.db.st.deposits[d.ID] = *d
	return nil
}

func (r memDeposits) GetByID(_ context.Context, id int64) (*model.Deposit, error) {
	d, ok := r.db.st.deposits[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r memDeposits) List(_ context.Context, limit, offset int) ([]*model.Deposit, error) {
	var out []*model.Deposit
	for _, id := range slices.Sorted(maps.Keys(r.db.st.deposits)) {
		d := r.db.st.deposits[id]
		out = append(out, &d)
	}
	return page(out, limit, offset), nil
}

func (r memDeposits) Count(_ context.Context) (int, error) {
	return len(r.db.st.deposits), nil
}

func (r memDeposits) Delete(_ context.Context, id int64) error {
	if _, ok := r.db.st.deposits[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.st.deposits, id)
	return nil
}

// --- Журнал ---

type memLedger struct{ db *memDB }

func (r memLedger) Append(_ context.Context, e *model.LedgerEntry) error {
	if err := r.db.failLedger[e.Kind]; err != nil {
		return err
	}
	e.ID = r.db.id()
	e.CreatedAt = time.Now()
	r.db.st.ledger = append(r.db.st.ledger, *e)
	return nil
}

func (r memLedger) ListByCashBox(_ context.Context, cashBox string, limit, offset int) ([]*model.LedgerEntry, error) {
	var out []*model.LedgerEntry
	for _, e := range r.db.st.ledger {
		if e.CashBox == cashBox {
			e := e
			out = append(out, &e)
		}
	}
	return page(out, limit, offset), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}

// --- Прочие заглушки ---

// failingStore — хранилище, запись в которое всегда завершается ошибкой.
type failingStore struct{}

var errDiskFull = errors.New("no space left on device")

func (failingStore) Put(context.Context, io.Reader) (string, error) { return "", errDiskFull }
func (failingStore) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errDiskFull
}
func (failingStore) Exists(context.Context, string) (bool, error) { return false, errDiskFull }

// recordingPrinter запоминает переданные задания.
type recordingPrinter struct {
	jobs [][]int64
	err  error
}

func (p *recordingPrinter) Print(_ context.Context, _ PrintJob, docs []*model.Document) error {
	ids := make([]int64, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	p.jobs = append(p.jobs, ids)
	return p.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testOperator = model.Operator{Username: "jdoe", FirstName: "Jane", LastName: "Doe"}
