package api

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/erazemk/ecopickup/internal/imaging"
	"github.com/erazemk/ecopickup/internal/lifecycle"
	"github.com/erazemk/ecopickup/internal/model"
	"github.com/erazemk/ecopickup/internal/store"
)

// maxItemUpload bounds a whole item form: every image at its limit plus
// the text fields.
const maxItemUpload = model.MaxItemImages*imaging.MaxInputBytes + 1<<20

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	DB        *sql.DB
	Lifecycle *lifecycle.Authority
}

// Create handles POST /api/items. The form carries title, description,
// category_id, action, and up to five "images" files. Creating an item
// opens its pending pickup.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxItemUpload)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	title := strings.TrimSpace(r.FormValue("title"))
	action := r.FormValue("action")
	if title == "" {
		jsonError(w, http.StatusBadRequest, "title required")
		return
	}
	if !model.ValidAction(action) {
		jsonError(w, http.StatusBadRequest, "action must be sell, donate, or scrap")
		return
	}

	categoryID, err := strconv.ParseInt(r.FormValue("category_id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid category_id")
		return
	}
	category, err := store.GetCategory(r.Context(), h.DB, categoryID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get category")
		return
	}
	if category == nil {
		jsonError(w, http.StatusBadRequest, "unknown category")
		return
	}

	images, err := processImages(r.MultipartForm.File["images"])
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, pickup, err := store.CreateItem(r.Context(), h.DB, model.Item{
		UserID:      claims.UserID,
		CategoryID:  categoryID,
		Title:       title,
		Description: r.FormValue("description"),
		Action:      action,
	}, images)
	if err != nil {
		slog.Error("failed to create item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	slog.Info("item created", "user", claims.Username, "item", item.ID, "images", len(images))
	h.Lifecycle.Created(pickup)

	jsonResponse(w, http.StatusCreated, map[string]any{"item": item, "pickup": pickup})
}

func processImages(headers []*multipart.FileHeader) ([]store.ItemImage, error) {
	readers := make([]io.Reader, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		readers = append(readers, f)
	}

	processed, err := imaging.ProcessAll(readers)
	if err != nil {
		return nil, err
	}

	images := make([]store.ItemImage, len(processed))
	for i, img := range processed {
		images[i] = store.ItemImage{Data: img.Data, MIME: img.MIME}
	}
	return images, nil
}

// List handles GET /api/items, returning the caller's own items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	items, err := store.ListItemsByUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// GetImage handles GET /api/items/{id}/images/{n}.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 0 || n >= model.MaxItemImages {
		jsonError(w, http.StatusBadRequest, "invalid image index")
		return
	}

	data, mime, err := store.GetItemImage(r.Context(), h.DB, id, n)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}

// CatalogHandler serves the category catalog.
type CatalogHandler struct {
	DB *sql.DB
}

type createCategoryRequest struct {
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// List handles GET /api/categories.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := store.ListCategories(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	if categories == nil {
		categories = []model.Category{}
	}
	jsonResponse(w, http.StatusOK, categories)
}

// Create handles POST /api/admin/categories.
func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	category, err := store.CreateCategory(r.Context(), h.DB, req.Name, req.Icon, req.Description)
	if errors.Is(err, store.ErrDuplicate) {
		jsonError(w, http.StatusConflict, "category already exists")
		return
	}
	if err != nil {
		slog.Error("failed to create category", "category", req.Name, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create category")
		return
	}

	slog.Info("category created", "user", GetClaims(r.Context()).Username, "category", category.Name)
	jsonResponse(w, http.StatusCreated, category)
}
