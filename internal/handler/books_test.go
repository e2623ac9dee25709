package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/anibalssilva/tech-challenge-books-api/internal/books"
	"github.com/anibalssilva/tech-challenge-books-api/internal/model"
)

const catalogCSV = `title,category,product_type,price_excl_tax,price_incl_tax,tax,availability,number_of_reviews,rating
A Light in the Attic,Poetry,books,51.77,51.77,0.0,22,0,3
Soumission,Fiction,books,50.10,50.10,0.0,20,0,1
Sharp Objects,Mystery,books,47.82,47.82,0.0,20,0,4
Sapiens,History,books,54.23,54.23,0.0,20,0,5
`

func newBooksHandler(t *testing.T) *BooksHandler {
	t.Helper()
	path := filepath.Join(t.TempDir(), "books.csv")
	if err := os.WriteFile(path, []byte(catalogCSV), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	ds, err := books.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return NewBooksHandler(ds)
}

func getBooks(t *testing.T, h http.HandlerFunc, target string) ([]model.Book, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusOK {
		return nil, rec
	}
	var got []model.Book
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return got, rec
}

func TestBooksList(t *testing.T) {
	h := newBooksHandler(t)
	got, _ := getBooks(t, h.List, "/api/v1/books")
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
}

func TestBooksSearch(t *testing.T) {
	h := newBooksHandler(t)

	got, _ := getBooks(t, h.Search, "/api/v1/books/search?category=Poetry")
	if len(got) != 1 || got[0].Title != "A Light in the Attic" {
		t.Fatalf("search by category = %+v", got)
	}

	got, _ = getBooks(t, h.Search, "/api/v1/books/search?title=Nothing")
	if len(got) != 0 {
		t.Fatalf("search miss should be an empty list, got %+v", got)
	}
}

func TestBooksPriceRange(t *testing.T) {
	h := newBooksHandler(t)

	got, _ := getBooks(t, h.PriceRange, "/api/v1/books/price-range?min=50&max=52")
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}

	_, rec := getBooks(t, h.PriceRange, "/api/v1/books/price-range?min=abc&max=52")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	_, rec = getBooks(t, h.PriceRange, "/api/v1/books/price-range?min=50")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing max: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestBooksTopRated(t *testing.T) {
	h := newBooksHandler(t)
	got, _ := getBooks(t, h.TopRated, "/api/v1/books/top-rated")
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if got[0].Title != "Sapiens" || got[0].Rating != 5 {
		t.Errorf("best-rated first, got %+v", got[0])
	}
}

func TestBooksGet(t *testing.T) {
	h := newBooksHandler(t)
	r := chi.NewRouter()
	r.Get("/api/v1/books/{id}", h.Get)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/books/2", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var book model.Book
	if err := json.NewDecoder(rec.Body).Decode(&book); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if book.Title != "Sharp Objects" {
		t.Errorf("title = %q", book.Title)
	}

	for _, id := range []string{"99", "-1", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/books/"+id, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("id %s: status = %d, want %d", id, rec.Code, http.StatusNotFound)
		}
	}
}

func TestBooksCategories(t *testing.T) {
	h := newBooksHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil)
	rec := httptest.NewRecorder()
	h.Categories(rec, req)

	var got []string
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []string{"Fiction", "History", "Mystery", "Poetry"}
	if len(got) != len(want) {
		t.Fatalf("categories = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("categories = %v, want %v", got, want)
		}
	}
}

func TestBooksStats(t *testing.T) {
	h := newBooksHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats/categories", nil)
	rec := httptest.NewRecorder()
	h.Stats(rec, req)

	var got map[string]books.ColumnStats
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	rating, ok := got["rating"]
	if !ok {
		t.Fatalf("stats missing rating column: %v", got)
	}
	if rating.Count != 4 || rating.Min != 1 || rating.Max != 5 {
		t.Errorf("rating stats = %+v", rating)
	}
}

func TestHealth(t *testing.T) {
	h := newBooksHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	empty := NewBooksHandler(&books.Dataset{})
	rec = httptest.NewRecorder()
	empty.Health(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("empty dataset: status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
