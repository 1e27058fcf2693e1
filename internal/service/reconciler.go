// reconciler.go — сопоставление описаний лекций и экзаменаторов из подачи
// документа с существующими записями (find-or-create).
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/odie/internal/domain/model"
	"github.com/bigkaa/odie/internal/repository"
)

var reconciledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "odie_reconciled_entities_total",
	Help: "Количество сопоставленных при подаче сущностей",
}, []string{"entity", "result"})

// ReconcileLectures находит или создаёт лекцию для каждого описания.
//
// Точное совпадение (name, subject):
//   - одно — лекция переиспользуется;
//   - нет — создаётся новая с validated = false;
//   - больше одного — ErrIntegrity, подача отклоняется.
//
// Каждое описание обрабатывается независимо. Новые записи создаются через
// repo, переданный из транзакции подачи, и откатываются вместе с ней.
func ReconcileLectures(ctx context.Context, repo repository.LectureRepository, descs []model.LectureDescriptor) ([]model.Lecture, error) {
	result := make([]model.Lecture, 0, len(descs))
	for _, d := range descs {
		if strings.TrimSpace(d.Name) == "" {
			return nil, fmt.Errorf("%w: пустое название лекции", ErrValidation)
		}

		found, err := repo.FindByNameSubject(ctx, d.Name, d.Subject)
		if err != nil {
			return nil, fmt.Errorf("поиск лекции %q: %w", d.Name, err)
		}

		switch len(found) {
		case 0:
			l := &model.Lecture{Name: d.Name, Subject: d.Subject, Validated: false}
			if err := repo.Create(ctx, l); err != nil {
				return nil, fmt.Errorf("создание лекции %q: %w", d.Name, err)
			}
			reconciledTotal.WithLabelValues("lecture", "created").Inc()
			result = append(result, *l)
		case 1:
			reconciledTotal.WithLabelValues("lecture", "reused").Inc()
			result = append(result, *found[0])
		default:
			reconciledTotal.WithLabelValues("lecture", "ambiguous").Inc()
			return nil, fmt.Errorf("%w: найдено %d лекций %q (%s)", ErrIntegrity, len(found), d.Name, d.Subject)
		}
	}
	return result, nil
}

// ReconcileExaminants находит или создаёт экзаменатора для каждого имени.
// Правила те же, что у ReconcileLectures, ключ — имя.
func ReconcileExaminants(ctx context.Context, repo repository.ExaminantRepository, names []string) ([]model.Examinant, error) {
	result := make([]model.Examinant, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: пустое имя экзаменатора", ErrValidation)
		}

		found, err := repo.FindByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("поиск экзаменатора %q: %w", name, err)
		}

		switch len(found) {
		case 0:
			e := &model.Examinant{Name: name, Validated: false}
			if err := repo.Create(ctx, e); err != nil {
				return nil, fmt.Errorf("создание экзаменатора %q: %w", name, err)
			}
			reconciledTotal.WithLabelValues("examinant", "created").Inc()
			result = append(result, *e)
		case 1:
			reconciledTotal.WithLabelValues("examinant", "reused").Inc()
			result = append(result, *found[0])
		default:
			reconciledTotal.WithLabelValues("examinant", "ambiguous").Inc()
			return nil, fmt.Errorf("%w: найдено %d экзаменаторов %q", ErrIntegrity, len(found), name)
		}
	}
	return result, nil
}
