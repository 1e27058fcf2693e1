// print.go — печать и продажа документов за кассой.
// Проверка входных данных, расчёт цены, выдача залогов и записи журнала
// выполняются в одной транзакции. Печать запускается только после коммита.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/odie/internal/domain/model"
	"github.com/bigkaa/odie/internal/domain/pricing"
	"github.com/bigkaa/odie/internal/repository"
)

// Prometheus-метрики печати.
var (
	printJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odie_print_jobs_total",
		Help: "Количество заданий печати по результату",
	}, []string{"result"})
	saleCentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odie_sale_cents_total",
		Help: "Сумма продаж распечаток в центах",
	}, []string{"cash_box"})
	depositsIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odie_deposits_issued_total",
		Help: "Количество выданных залогов",
	}, []string{"cash_box"})
)

// PrintJob — задание печати.
type PrintJob struct {
	// ID — идентификатор задания для корреляции логов, задаётся сервисом
	ID           string
	DocumentIDs  []int64
	DepositCount int
	CoverText    string
	CashBox      string
	Printer      string
}

// PrintResult — результат выполненного задания.
type PrintResult struct {
	JobID      string
	Price      int
	Pages      int
	DepositIDs []int64
	// Printed — принтер принял задание. false при ошибке принтера после коммита.
	Printed bool
}

// Printer — внешнее устройство печати.
// Вызывается после коммита транзакции, документы идут в порядке задания.
type Printer interface {
	Print(ctx context.Context, job PrintJob, docs []*model.Document) error
}

// PrintService — оркестратор задания печати.
type PrintService struct {
	tx           TxManager
	printer      Printer
	price        pricing.PriceFunc
	depositPrice int
	logger       *slog.Logger
}

// NewPrintService создаёт оркестратор печати.
// depositPrice — стоимость одного залога в центах.
func NewPrintService(tx TxManager, printer Printer, price pricing.PriceFunc, depositPrice int, logger *slog.Logger) *PrintService {
	return &PrintService{
		tx:           tx,
		printer:      printer,
		price:        price,
		depositPrice: depositPrice,
		logger:       logger.With(slog.String("component", "print_service")),
	}
}

// Execute выполняет задание печати от имени оператора.
//
// Все записи (залоги, журнал) фиксируются одной транзакцией: при любой ошибке
// не сохраняется ничего и принтер не вызывается. Пустой список документов
// без залогов — успешная операция без записей.
func (s *PrintService) Execute(ctx context.Context, job PrintJob, op model.Operator) (*PrintResult, error) {
	if job.DepositCount < 0 {
		printJobsTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: количество залогов не может быть отрицательным: %d", ErrValidation, job.DepositCount)
	}

	job.ID = uuid.NewString()
	logger := s.logger.With(slog.String("job_id", job.ID))
	result := &PrintResult{JobID: job.ID}
	var docs []*model.Document

	err := s.tx.InTx(ctx, func(repos *repository.Repositories) error {
		var err error
		docs, err = resolveDocuments(ctx, repos.Documents, job.DocumentIDs)
		if err != nil {
			return err
		}

		result.Price = pricing.Price(docs, s.price)
		result.Pages = pricing.Pages(docs)
		ledger := NewLedger(repos.Ledger)

		if job.DepositCount > 0 {
			lectures, err := repos.Lectures.ListByDocumentIDs(ctx, job.DocumentIDs)
			if err != nil {
				return fmt.Errorf("получение лекций для залога: %w", err)
			}
			for i := 0; i < job.DepositCount; i++ {
				dep := &model.Deposit{
					Price:    s.depositPrice,
					Name:     job.CoverText,
					ByUser:   op.FullName(),
					Lectures: lectures,
				}
				if err := repos.Deposits.Create(ctx, dep); err != nil {
					return fmt.Errorf("создание залога: %w", err)
				}
				if err := ledger.LogDeposit(ctx, dep, op, job.CashBox); err != nil {
					return err
				}
				result.DepositIDs = append(result.DepositIDs, dep.ID)
			}
		}

		if len(docs) > 0 {
			if err := ledger.LogExamSale(ctx, result.Pages, result.Price, op, job.CashBox); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		printJobsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	printJobsTotal.WithLabelValues("committed").Inc()
	saleCentsTotal.WithLabelValues(job.CashBox).Add(float64(result.Price))
	depositsIssuedTotal.WithLabelValues(job.CashBox).Add(float64(job.DepositCount))

	logger.Info("Задание печати проведено",
		slog.Int("documents", len(docs)),
		slog.Int("pages", result.Pages),
		slog.Int("price", result.Price),
		slog.Int("deposits", job.DepositCount),
		slog.String("cash_box", job.CashBox),
		slog.String("operator", op.Username),
	)

	if len(docs) == 0 {
		return result, nil
	}

	// Оплата уже проведена: ошибка принтера не откатывает её,
	// оператор видит Printed = false и печатает повторно
	if err := s.printer.Print(ctx, job, docs); err != nil {
		printJobsTotal.WithLabelValues("printer_failed").Inc()
		logger.Error("Ошибка принтера", slog.String("printer", job.Printer), slog.String("error", err.Error()))
		return result, nil
	}
	result.Printed = true
	return result, nil
}

// resolveDocuments загружает документы в порядке ids.
// Повторяющиеся id допустимы. Отсутствующий id — ErrValidation.
func resolveDocuments(ctx context.Context, repo repository.DocumentRepository, ids []int64) ([]*model.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	byID, err := repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("получение документов: %w", err)
	}

	docs := make([]*model.Document, len(ids))
	for i, id := range ids {
		d, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: документ %d не существует", ErrValidation, id)
		}
		docs[i] = d
	}
	return docs, nil
}

// LogPrinter — принтер, который только пишет задание в лог.
// Физическая печать подключается реализацией Printer.
type LogPrinter struct {
	logger *slog.Logger
}

// NewLogPrinter создаёт LogPrinter.
func NewLogPrinter(logger *slog.Logger) *LogPrinter {
	return &LogPrinter{logger: logger.With(slog.String("component", "printer"))}
}

// Print пишет в лог задание и хэши файлов документов.
func (p *LogPrinter) Print(_ context.Context, job PrintJob, docs []*model.Document) error {
	files := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.FileID != nil {
			files = append(files, *d.FileID)
		}
	}
	p.logger.Info("Печать документов",
		slog.String("job_id", job.ID),
		slog.String("printer", job.Printer),
		slog.String("cover_text", job.CoverText),
		slog.Any("document_ids", job.DocumentIDs),
		slog.Any("files", files),
	)
	return nil
}
