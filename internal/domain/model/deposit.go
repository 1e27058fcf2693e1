package model

import "time"

// Deposit — залог, выданный при печати.
// При возврате удаляется, возврат фиксируется в журнале.
type Deposit struct {
	ID int64
	// Price — сумма залога в центах
	Price int
	// Name — текст обложки
	Name string
	// ByUser — полное имя выдавшего оператора
	ByUser string
	// Lectures — лекции документов, под которые выдан залог
	Lectures []Lecture
	// Date — время выдачи
	Date time.Time
}

// LectureNames возвращает названия связанных лекций.
func (d *Deposit) LectureNames() []string {
	names := make([]string, len(d.Lectures))
	for i, l := range d.Lectures {
		names[i] = l.Name
	}
	return names
}
