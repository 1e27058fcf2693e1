// catalog.go — публичные списки каталога, залоги и выдача файлов документов.
package handlers

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	apierrors "github.com/bigkaa/odie/internal/api/errors"
	"github.com/bigkaa/odie/internal/domain/model"
)

// ListLectures — GET /api/lectures.
func (h *APIHandler) ListLectures(w http.ResponseWriter, r *http.Request) {
	lectures, err := h.svc.Catalog.Lectures(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "список лекций")
		return
	}
	items := make([]lectureResponse, len(lectures))
	for i, l := range lectures {
		items[i] = mapLecture(l)
	}
	writeJSON(w, http.StatusOK, items)
}

// ListExaminants — GET /api/examinants.
func (h *APIHandler) ListExaminants(w http.ResponseWriter, r *http.Request) {
	examinants, err := h.svc.Catalog.Examinants(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "список экзаменаторов")
		return
	}
	items := make([]examinantResponse, len(examinants))
	for i, e := range examinants {
		items[i] = mapExaminant(e)
	}
	writeJSON(w, http.StatusOK, items)
}

// ListDocuments — GET /api/documents.
func (h *APIHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	h.listDocuments(w, r, "список документов", h.svc.Catalog.Documents)
}

// ListLectureDocuments — GET /api/lectures/{id}/documents.
func (h *APIHandler) ListLectureDocuments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	h.listDocuments(w, r, "документы лекции", func(ctx context.Context, limit, offset int) ([]*model.Document, int, error) {
		return h.svc.Catalog.LectureDocuments(ctx, id, limit, offset)
	})
}

// ListExaminantDocuments — GET /api/examinants/{id}/documents.
func (h *APIHandler) ListExaminantDocuments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	h.listDocuments(w, r, "документы экзаменатора", func(ctx context.Context, limit, offset int) ([]*model.Document, int, error) {
		return h.svc.Catalog.ExaminantDocuments(ctx, id, limit, offset)
	})
}

func (h *APIHandler) listDocuments(
	w http.ResponseWriter,
	r *http.Request,
	action string,
	list func(ctx context.Context, limit, offset int) ([]*model.Document, int, error),
) {
	limit, offset, err := pagination(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	docs, total, err := list(r.Context(), limit, offset)
	if err != nil {
		h.writeServiceError(w, err, action)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(mapDocuments(docs), total, limit, offset))
}

// ListDeposits — GET /api/deposits.
// Доступ: оператор.
func (h *APIHandler) ListDeposits(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	deposits, total, err := h.svc.Catalog.Deposits(r.Context(), limit, offset)
	if err != nil {
		h.writeServiceError(w, err, "список залогов")
		return
	}
	items := make([]depositResponse, len(deposits))
	for i, d := range deposits {
		items[i] = mapDeposit(d)
	}
	writeJSON(w, http.StatusOK, newListResponse(items, total, limit, offset))
}

// ViewDocument — GET /api/view/{id}.
// Отдаёт файл документа. ETag — SHA-256 файла, содержимое по нему неизменно.
// Доступ: оператор.
func (h *APIHandler) ViewDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	rc, digest, err := h.svc.Catalog.OpenDocumentFile(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "выдача файла документа")
		return
	}
	defer rc.Close()

	etag := strconv.Quote(digest)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	br := bufio.NewReader(rc)
	head, _ := br.Peek(512)
	w.Header().Set("Content-Type", http.DetectContentType(head))
	w.Header().Set("Content-Disposition", "inline; filename=\"document-"+strconv.FormatInt(id, 10)+"\"")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, br); err != nil {
		h.logger.Warn("Передача файла прервана",
			slog.Int64("document_id", id),
			slog.String("error", err.Error()),
		)
	}
}
