// documents.go — обработчик POST /api/documents: подача протокола студентом.
// multipart/form-data: часть json с метаданными и часть file с файлом.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/odie/internal/api/errors"
	"github.com/bigkaa/odie/internal/service"
)

// multipartMemory — объём multipart в памяти, остаток уходит во временные файлы.
const multipartMemory = 8 << 20

// SubmitDocument — POST /api/documents.
func (h *APIHandler) SubmitDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.PayloadTooLarge(w, "Размер файла превышает допустимый")
			return
		}
		apierrors.ValidationError(w, "Некорректный multipart: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	raw, err := multipartJSON(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	var req submissionRequest
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}
	if err := req.validate(); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Отсутствует часть file")
		return
	}
	defer file.Close()

	doc, err := h.svc.Submissions.Submit(r.Context(), service.Submission{
		Lectures:      req.descriptors(),
		Examinants:    req.Examinants,
		Date:          req.Date.Time,
		NumberOfPages: req.NumberOfPages,
		DocumentType:  req.DocumentType,
		StudentName:   req.StudentName,
		Filename:      header.Filename,
		File:          file,
	})
	if err != nil {
		h.writeServiceError(w, err, "подача документа")
		return
	}
	writeJSON(w, http.StatusCreated, mapDocument(doc))
}

// multipartJSON возвращает часть json: как поле формы или как файл.
func multipartJSON(r *http.Request) (string, error) {
	if v := r.MultipartForm.Value["json"]; len(v) > 0 {
		return v[0], nil
	}
	f, _, err := r.FormFile("json")
	if err != nil {
		return "", errors.New("отсутствует часть json")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", errors.New("ошибка чтения части json: " + err.Error())
	}
	return string(data), nil
}
