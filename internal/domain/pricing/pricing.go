// Пакет pricing — расчёт стоимости печати документов.
package pricing

import "github.com/bigkaa/odie/internal/domain/model"

// PriceFunc — цена одного документа в центах.
type PriceFunc func(doc *model.Document) int

// PerPage возвращает PriceFunc с фиксированной ценой страницы.
func PerPage(centsPerPage int) PriceFunc {
	return func(doc *model.Document) int {
		return doc.NumberOfPages * centsPerPage
	}
}

// RoundUpToTen округляет сумму в центах вверх до ближайших 10 центов.
// 95 → 100, 100 → 100, 101 → 110.
func RoundUpToTen(raw int) int {
	if raw%10 == 0 {
		return raw
	}
	return 10 * (raw/10 + 1)
}

// Total возвращает сумму цен документов без округления.
func Total(docs []*model.Document, price PriceFunc) int {
	total := 0
	for _, d := range docs {
		total += price(d)
	}
	return total
}

// Price возвращает итоговую цену набора документов с округлением.
func Price(docs []*model.Document, price PriceFunc) int {
	return RoundUpToTen(Total(docs, price))
}

// Pages возвращает суммарное количество страниц.
func Pages(docs []*model.Document) int {
	pages := 0
	for _, d := range docs {
		pages += d.NumberOfPages
	}
	return pages
}
