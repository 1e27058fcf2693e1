// Пакет model — доменные сущности Odie: документы, лекции, экзаменаторы,
// заказы, залоги и записи учётного журнала.
package model

import "time"

// Типы документов.
const (
	DocumentTypeOral       = "oral"
	DocumentTypeOralReexam = "oral reexam"
)

// DocumentTypes — допустимые типы документов при подаче.
var DocumentTypes = []string{DocumentTypeOral, DocumentTypeOralReexam}

// IsDocumentType проверяет, что t — допустимый тип документа.
func IsDocumentType(t string) bool {
	for _, dt := range DocumentTypes {
		if dt == t {
			return true
		}
	}
	return false
}

// Document — протокол экзамена.
// Хранится в таблице documents, связи — в document_lectures и document_examinants.
type Document struct {
	ID int64
	// Lectures — связанные лекции
	Lectures []Lecture
	// Examinants — связанные экзаменаторы
	Examinants []Examinant
	// Date — дата экзамена
	Date time.Time
	// NumberOfPages — количество страниц, больше 1
	NumberOfPages int
	// Solution — решение (опционально)
	Solution *string
	// Comment — комментарий (опционально)
	Comment *string
	// DocumentType — oral или oral reexam
	DocumentType string
	// Validated — документ проверен куратором
	Validated bool
	// ValidationTime — время проверки (опционально)
	ValidationTime *time.Time
	// SubmittedBy — имя подавшего студента
	SubmittedBy string
	// FileID — SHA-256 хэш файла, nil пока файл не прикреплён.
	// Однажды заданный, не изменяется.
	FileID *string
}

// Available — документ доступен для печати (есть файл).
func (d *Document) Available() bool {
	return d.FileID != nil
}

// LectureIDs возвращает идентификаторы связанных лекций.
func (d *Document) LectureIDs() []int64 {
	ids := make([]int64, len(d.Lectures))
	for i, l := range d.Lectures {
		ids[i] = l.ID
	}
	return ids
}

// ExaminantIDs возвращает идентификаторы связанных экзаменаторов.
func (d *Document) ExaminantIDs() []int64 {
	ids := make([]int64, len(d.Examinants))
	for i, e := range d.Examinants {
		ids[i] = e.ID
	}
	return ids
}
