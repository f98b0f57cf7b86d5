package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"jostrid/internal/storage"
)

// maxImageBytes caps receipt uploads at 10 MiB.
const maxImageBytes = 10 << 20

// handleListImages returns image metadata for one expense
// (?expense_id=...).
func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	expenseID, err := strconv.ParseInt(r.URL.Query().Get("expense_id"), 10, 64)
	if err != nil || expenseID <= 0 {
		respondError(w, http.StatusBadRequest, errors.New("invalid expense_id"))
		return
	}

	images, err := s.store.ListImagesForExpense(r.Context(), expenseID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if images == nil {
		images = []storage.Image{}
	}
	respondJSON(w, http.StatusOK, images)
}

// handleGetImage streams one image with its stored content type.
func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	img, err := s.store.GetImage(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	_, _ = w.Write(img.Data)
}

// handleImportImage accepts a multipart upload ("file" field, expense_id
// form value) and attaches it to an expense.
func (s *Server) handleImportImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		respondError(w, http.StatusBadRequest, errors.New("invalid multipart body"))
		return
	}

	expenseID, err := strconv.ParseInt(r.FormValue("expense_id"), 10, 64)
	if err != nil || expenseID <= 0 {
		respondError(w, http.StatusBadRequest, errors.New("invalid expense_id"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("missing file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if len(data) > maxImageBytes {
		respondError(w, http.StatusRequestEntityTooLarge, errors.New("image too large"))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	img, err := s.store.SaveImage(r.Context(), storage.Image{
		ExpenseID:   expenseID,
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	img.Data = nil
	respondJSON(w, http.StatusCreated, img)
}
