package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/odie/internal/config"
	"github.com/bigkaa/odie/internal/database"
	"github.com/bigkaa/odie/internal/domain/model"
)

// setupTestDB запускает PostgreSQL контейнер и применяет миграции.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("odie_test"),
		postgres.WithUsername("odie"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	t.Setenv("ODIE_DB_HOST", host)
	t.Setenv("ODIE_DB_PORT", port.Port())
	t.Setenv("ODIE_DB_NAME", "odie_test")
	t.Setenv("ODIE_DB_USER", "odie")
	t.Setenv("ODIE_DB_PASSWORD", "test-password")
	t.Setenv("ODIE_DB_SSL_MODE", "disable")
	t.Setenv("ODIE_DOCUMENT_DIR", t.TempDir())
	t.Setenv("ODIE_CASH_BOXES", "Sitzung")
	t.Setenv("ODIE_PRINTERS", "external")
	t.Setenv("ODIE_KEYCLOAK_URL", "http://localhost:8080")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

// createDocument создаёт документ с указанным количеством страниц и лекциями.
func createDocument(t *testing.T, repos *Repositories, pages int, lectures ...model.Lecture) *model.Document {
	t.Helper()
	digest := "3f9a000000000000000000000000000000000000000000000000000000000000"
	d := &model.Document{
		Date:          time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		NumberOfPages: pages,
		DocumentType:  model.DocumentTypeOral,
		SubmittedBy:   "student",
		Lectures:      lectures,
		FileID:        &digest,
	}
	if err := repos.Documents.Create(context.Background(), d); err != nil {
		t.Fatalf("Documents.Create() ошибка: %v", err)
	}
	return d
}

func TestLectureAndExaminantLookup(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repos := New(pool)

	found, err := repos.Lectures.FindByNameSubject(ctx, "Algebra", "Math")
	if err != nil {
		t.Fatalf("FindByNameSubject() ошибка: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("FindByNameSubject() вернул %d записей в пустой базе", len(found))
	}

	l := &model.Lecture{Name: "Algebra", Subject: "Math"}
	if err := repos.Lectures.Create(ctx, l); err != nil {
		t.Fatalf("Lectures.Create() ошибка: %v", err)
	}
	if l.ID == 0 {
		t.Error("ID лекции не установлен")
	}

	found, err = repos.Lectures.FindByNameSubject(ctx, "Algebra", "Math")
	if err != nil {
		t.Fatalf("FindByNameSubject() ошибка: %v", err)
	}
	if len(found) != 1 || found[0].ID != l.ID || found[0].Validated {
		t.Errorf("FindByNameSubject() = %+v, ожидается непроверенная лекция %d", found, l.ID)
	}

	// Другой предмет — другая лекция
	other, _ := repos.Lectures.FindByNameSubject(ctx, "Algebra", "Physics")
	if len(other) != 0 {
		t.Errorf("совпадение по имени без предмета: %+v", other)
	}

	e := &model.Examinant{Name: "Prof. Noether"}
	if err := repos.Examinants.Create(ctx, e); err != nil {
		t.Fatalf("Examinants.Create() ошибка: %v", err)
	}
	exs, err := repos.Examinants.FindByName(ctx, "Prof. Noether")
	if err != nil {
		t.Fatalf("FindByName() ошибка: %v", err)
	}
	if len(exs) != 1 || exs[0].ID != e.ID {
		t.Errorf("FindByName() = %+v", exs)
	}

	if _, err := repos.Lectures.GetByID(ctx, 999999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() несуществующей лекции: ожидалась ErrNotFound, получено %v", err)
	}
}

func TestDocumentCRUD(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repos := New(pool)

	l := model.Lecture{Name: "Analysis I", Subject: "Math"}
	if err := repos.Lectures.Create(ctx, &l); err != nil {
		t.Fatalf("Lectures.Create() ошибка: %v", err)
	}
	e := model.Examinant{Name: "Prof. Hilbert"}
	if err := repos.Examinants.Create(ctx, &e); err != nil {
		t.Fatalf("Examinants.Create() ошибка: %v", err)
	}

	d := &model.Document{
		Date:          time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		NumberOfPages: 4,
		DocumentType:  model.DocumentTypeOralReexam,
		SubmittedBy:   "student",
		// Лекция дважды — связь создаётся один раз
		Lectures:   []model.Lecture{l, l},
		Examinants: []model.Examinant{e},
	}
	if err := repos.Documents.Create(ctx, d); err != nil {
		t.Fatalf("Documents.Create() ошибка: %v", err)
	}

	got, err := repos.Documents.GetByID(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.NumberOfPages != 4 || got.DocumentType != model.DocumentTypeOralReexam {
		t.Errorf("GetByID() = %+v", got)
	}
	if len(got.Lectures) != 1 || got.Lectures[0].ID != l.ID {
		t.Errorf("Lectures = %+v, ожидается одна лекция %d", got.Lectures, l.ID)
	}
	if len(got.Examinants) != 1 || got.Examinants[0].ID != e.ID {
		t.Errorf("Examinants = %+v", got.Examinants)
	}
	if got.Available() {
		t.Error("документ без файла не должен быть доступен")
	}

	byIDs, err := repos.Documents.GetByIDs(ctx, []int64{d.ID, 999999})
	if err != nil {
		t.Fatalf("GetByIDs() ошибка: %v", err)
	}
	if len(byIDs) != 1 || byIDs[d.ID] == nil {
		t.Errorf("GetByIDs() = %v, ожидается один документ", byIDs)
	}

	list, err := repos.Documents.List(ctx, DocumentFilter{LectureID: &l.ID}, 10, 0)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("List() по лекции вернул %d документов, ожидается 1", len(list))
	}
	count, err := repos.Documents.Count(ctx, DocumentFilter{ExaminantID: &e.ID})
	if err != nil {
		t.Fatalf("Count() ошибка: %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, ожидается 1", count)
	}

	lectures, err := repos.Lectures.ListByDocumentIDs(ctx, []int64{d.ID})
	if err != nil {
		t.Fatalf("ListByDocumentIDs() ошибка: %v", err)
	}
	if len(lectures) != 1 || lectures[0].Name != "Analysis I" {
		t.Errorf("ListByDocumentIDs() = %+v", lectures)
	}
}

// TestOrderPreservesPositions проверяет, что позиции читаются в порядке создания.
func TestOrderPreservesPositions(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repos := New(pool)

	a := createDocument(t, repos, 2)
	b := createDocument(t, repos, 3)
	c := createDocument(t, repos, 4)

	ids := []int64{c.ID, a.ID, b.ID}
	o, err := model.NewOrder("X", ids)
	if err != nil {
		t.Fatalf("NewOrder() ошибка: %v", err)
	}
	if err := repos.Orders.Create(ctx, o); err != nil {
		t.Fatalf("Orders.Create() ошибка: %v", err)
	}

	got, err := repos.Orders.GetByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	gotIDs := got.DocumentIDs()
	for i := range ids {
		if gotIDs[i] != ids[i] {
			t.Fatalf("порядок документов %v, ожидается %v", gotIDs, ids)
		}
	}

	// Удаление заказа не удаляет документы
	if err := repos.Orders.Delete(ctx, o.ID); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	if _, err := repos.Orders.GetByID(ctx, o.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("заказ не удалён: %v", err)
	}
	if _, err := repos.Documents.GetByID(ctx, a.ID); err != nil {
		t.Errorf("документ удалён вместе с заказом: %v", err)
	}
	if err := repos.Orders.Delete(ctx, o.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторный Delete(): ожидалась ErrNotFound, получено %v", err)
	}
}

func TestOrderUnknownDocument(t *testing.T) {
	pool := setupTestDB(t)
	repos := New(pool)

	o, _ := model.NewOrder("X", []int64{424242})
	if err := repos.Orders.Create(context.Background(), o); !errors.Is(err, ErrConflict) {
		t.Errorf("ожидалась ErrConflict, получено %v", err)
	}
}

func TestDepositLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repos := New(pool)

	l := model.Lecture{Name: "Logik", Subject: "Informatik"}
	if err := repos.Lectures.Create(ctx, &l); err != nil {
		t.Fatalf("Lectures.Create() ошибка: %v", err)
	}

	d := &model.Deposit{Price: 500, Name: "Mustermann", ByUser: "Jane Doe", Lectures: []model.Lecture{l}}
	if err := repos.Deposits.Create(ctx, d); err != nil {
		t.Fatalf("Deposits.Create() ошибка: %v", err)
	}
	if d.Date.IsZero() {
		t.Error("Date не установлена")
	}

	list, err := repos.Deposits.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(list) != 1 || len(list[0].Lectures) != 1 || list[0].LectureNames()[0] != "Logik" {
		t.Errorf("List() = %+v", list)
	}

	if err := repos.Deposits.Delete(ctx, d.ID); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	if _, err := repos.Deposits.GetByID(ctx, d.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("залог не удалён: %v", err)
	}
}

func TestLedgerAppend(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repos := New(pool)

	pages := 12
	entries := []*model.LedgerEntry{
		{Kind: model.EntryExamSale, Amount: 40, Pages: &pages, Operator: "Jane Doe", CashBox: "Sitzung"},
		{Kind: model.EntryDonation, Amount: -200, Operator: "Jane Doe", CashBox: "Sitzung"},
	}
	for _, e := range entries {
		if err := repos.Ledger.Append(ctx, e); err != nil {
			t.Fatalf("Append() ошибка: %v", err)
		}
		if e.ID == 0 || e.CreatedAt.IsZero() {
			t.Errorf("ID/CreatedAt не установлены: %+v", e)
		}
	}

	got, err := repos.Ledger.ListByCashBox(ctx, "Sitzung", 10, 0)
	if err != nil {
		t.Fatalf("ListByCashBox() ошибка: %v", err)
	}
	if len(got) != 2 || got[0].Kind != model.EntryExamSale || *got[0].Pages != 12 || got[1].Amount != -200 {
		t.Errorf("ListByCashBox() = %+v", got)
	}
}

// TestTxRunnerRollback проверяет, что ошибка внутри InTx откатывает все записи.
func TestTxRunnerRollback(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	runner := NewTxRunner(pool)

	errForced := errors.New("принудительная ошибка")
	err := runner.InTx(ctx, func(repos *Repositories) error {
		d := &model.Deposit{Price: 500, Name: "rollback", ByUser: "Jane Doe"}
		if err := repos.Deposits.Create(ctx, d); err != nil {
			return err
		}
		if err := repos.Ledger.Append(ctx, &model.LedgerEntry{
			Kind: model.EntryDeposit, Amount: 500, DepositID: &d.ID, Operator: "Jane Doe", CashBox: "Sitzung",
		}); err != nil {
			return err
		}
		return errForced
	})
	if !errors.Is(err, errForced) {
		t.Fatalf("InTx() вернул %v, ожидалась принудительная ошибка", err)
	}

	repos := New(pool)
	if n, _ := repos.Deposits.Count(ctx); n != 0 {
		t.Errorf("после отката осталось %d залогов", n)
	}
	if entries, _ := repos.Ledger.ListByCashBox(ctx, "Sitzung", 10, 0); len(entries) != 0 {
		t.Errorf("после отката осталось %d записей журнала", len(entries))
	}
}
