package model

// Lecture — лекция. Естественный ключ (Name, Subject) не уникален:
// непроверенные дубликаты допустимы до ручного слияния.
type Lecture struct {
	ID        int64
	Name      string
	Subject   string
	Aliases   []string
	Comment   *string
	Validated bool
}

// Examinant — экзаменатор. Ключ дедупликации — Name.
type Examinant struct {
	ID        int64
	Name      string
	Validated bool
}

// LectureDescriptor — описание лекции из подачи документа.
type LectureDescriptor struct {
	Name    string
	Subject string
}
