package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/catalog"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/listing"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/media"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/notify"
)

const maxUploadMemory = 32 << 20

func (h *AdminHandler) productsList(r *http.Request) *listing.Controller[models.Product] {
	return h.Lists.Products.Get(adminFrom(r).lists)
}

// ListProducts serves the products table: q, category, status, sort, page, refresh.
func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctrl := h.productsList(r)
	resp, err := listPage(r, ctrl, "category", "status")
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"list":       resp,
		"categories": catalog.Categories(ctrl.Snapshot()),
	})
}

func (h *AdminHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, ok := h.productsList(r).Find(id)
	if !ok {
		var err error
		if p, err = h.Catalog.Get(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": p, "stockLabel": p.StockLabel()})
}

// productForm reads a product save. Multipart bodies carry the fields as JSON
// in "product" and the images in "images"; JSON bodies carry fields only.
func productForm(w http.ResponseWriter, r *http.Request) (catalog.ProductInput, []media.File, error) {
	var in catalog.ProductInput
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return in, nil, decodeJSON(w, r, &in)
	}

	r.Body = http.MaxBytesReader(w, r.Body, (media.MaxFiles+1)*media.MaxFileSize+maxJSONBody)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return in, nil, errors.Join(errBadRequest, err)
	}
	if err := json.Unmarshal([]byte(r.FormValue("product")), &in); err != nil {
		return in, nil, errors.Join(errBadRequest, err)
	}

	var files []media.File
	for _, fh := range r.MultipartForm.File["images"] {
		f, err := fh.Open()
		if err != nil {
			return in, nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		// One byte past the limit is enough for media.Check to reject it.
		data, err := io.ReadAll(io.LimitReader(f, media.MaxFileSize+1))
		f.Close()
		if err != nil {
			return in, nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		files = append(files, media.File{Name: fh.Filename, Data: data})
	}
	return in, files, nil
}

func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	h.saveProduct(w, r, "")
}

func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	h.saveProduct(w, r, r.PathValue("id"))
}

func (h *AdminHandler) saveProduct(w http.ResponseWriter, r *http.Request, id string) {
	in, files, err := productForm(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	progress := func(done, total int) {
		slog.Debug("Uploading product images", "done", done, "total", total)
	}
	p, err := h.Catalog.Save(r.Context(), id, in, files, progress)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctrl := h.productsList(r)
	status, msg := http.StatusOK, "Product updated successfully"
	if id == "" {
		ctrl.Upsert(p)
		status, msg = http.StatusCreated, "Product added successfully"
	} else {
		ctrl.Replace(p)
	}
	h.notify(w, r, msg, notify.LevelSuccess)
	writeJSON(w, status, map[string]any{"product": p, "redirect": "/admin/products"})
}

func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Catalog.Delete(r.Context(), h.productsList(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	h.notify(w, r, "Product deleted", notify.LevelSuccess)
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (h *AdminHandler) SelectProducts(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"selected": applySelection(h.productsList(r), req)})
}

func (h *AdminHandler) BulkDeleteProducts(w http.ResponseWriter, r *http.Request) {
	n, err := h.Catalog.BulkDelete(r.Context(), h.productsList(r))
	h.bulkResult(w, r, n, err, "%d products deleted", "No products selected")
}

func (h *AdminHandler) BulkPublishProducts(w http.ResponseWriter, r *http.Request) {
	n, err := h.Catalog.BulkPublish(r.Context(), h.productsList(r))
	h.bulkResult(w, r, n, err, "%d products published", "No products selected")
}

// bulkResult reports a batch action. Zero affected is a warning, not an error.
func (h *AdminHandler) bulkResult(w http.ResponseWriter, r *http.Request, n int, err error, format, none string) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	if n == 0 {
		h.notify(w, r, none, notify.LevelWarning)
	} else {
		h.notify(w, r, fmt.Sprintf(format, n), notify.LevelSuccess)
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}
