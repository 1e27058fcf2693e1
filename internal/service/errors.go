// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrValidation — некорректные входные данные (исправимо клиентом).
	ErrValidation = errors.New("ошибка валидации")
	// ErrFileTypeNotAllowed — расширение файла не входит в список допустимых.
	ErrFileTypeNotAllowed = errors.New("расширение файла не допускается")
	// ErrNotFound — документ, заказ, залог или файл не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrIntegrity — неоднозначные данные, требующие ручного разбора.
	ErrIntegrity = errors.New("нарушение целостности данных")
	// ErrStorage — ошибка записи или чтения файла в хранилище.
	ErrStorage = errors.New("ошибка хранилища файлов")
)
