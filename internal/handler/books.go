package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/anibalssilva/tech-challenge-books-api/internal/books"
)

// BooksHandler serves the read-only catalog endpoints. The dataset is loaded
// once at startup; every endpoint works off that in-memory copy.
type BooksHandler struct {
	dataset *books.Dataset
}

// NewBooksHandler creates a new BooksHandler.
func NewBooksHandler(dataset *books.Dataset) *BooksHandler {
	return &BooksHandler{dataset: dataset}
}

// List returns every book in the catalog.
// GET /api/v1/books
func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dataset.All())
}

// Search filters by exact title and/or category. An omitted parameter acts
// as a wildcard; no matches is an empty list, not an error.
// GET /api/v1/books/search?title=...&category=...
func (h *BooksHandler) Search(w http.ResponseWriter, r *http.Request) {
	title := queryString(r, "title")
	category := queryString(r, "category")
	writeJSON(w, http.StatusOK, h.dataset.Search(title, category))
}

// TopRated returns the catalog ordered by rating, best first.
// GET /api/v1/books/top-rated
func (h *BooksHandler) TopRated(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dataset.TopRated())
}

// PriceRange returns the books whose tax-inclusive price falls inside the
// inclusive [min, max] interval.
// GET /api/v1/books/price-range?min=...&max=...
func (h *BooksHandler) PriceRange(w http.ResponseWriter, r *http.Request) {
	min, okMin := queryFloat(r, "min")
	max, okMax := queryFloat(r, "max")
	if !okMin || !okMax {
		writeDetail(w, http.StatusBadRequest, "min and max query parameters are required and must be numeric")
		return
	}
	writeJSON(w, http.StatusOK, h.dataset.PriceRange(min, max))
}

// Get returns a single book by its positional id in the dataset.
// GET /api/v1/books/{id}
func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Book not found")
		return
	}
	book, ok := h.dataset.Get(id)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Book not found")
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// Categories returns the distinct categories, sorted.
// GET /api/v1/categories
func (h *BooksHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dataset.Categories())
}

// Stats returns describe-style statistics per numeric column.
// GET /api/v1/stats/categories
func (h *BooksHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dataset.Stats())
}

// Health reports whether the catalog loaded. It is deliberately outside the
// auth chain so orchestrators can probe it without credentials.
// GET /api/v1/health
func (h *BooksHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.dataset == nil || h.dataset.Len() == 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unhealthy",
			"detail": "book catalog is not loaded",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"books":  h.dataset.Len(),
	})
}
