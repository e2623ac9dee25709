// Package books holds the read-only catalog snapshot. The dataset is loaded
// once from the scraper-produced CSV at process start and never mutated
// afterwards, so handlers may share it by reference without locking.
package books

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/anibalssilva/tech-challenge-books-api/internal/model"
)

// Dataset is an immutable in-memory table of book rows.
type Dataset struct {
	rows []model.Book
}

// Load reads the CSV snapshot at path. The file must carry a header row;
// columns are resolved by name, so column order and extra columns (image
// URL, description, UPC) don't matter. Rows with unparseable numeric fields
// are skipped rather than failing the load.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open books csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read books csv: %w", err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("books csv %s has no header row", path)
	}

	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, required := range []string{"title", "category"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("books csv missing %q column", required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	rows := make([]model.Book, 0, len(records)-1)
	for _, rec := range records[1:] {
		book := model.Book{
			Title:       field(rec, "title"),
			Category:    field(rec, "category"),
			ProductType: field(rec, "product_type"),
		}
		var bad bool
		book.PriceExclTax, bad = parseFloat(field(rec, "price_excl_tax"), bad)
		book.PriceInclTax, bad = parseFloat(field(rec, "price_incl_tax"), bad)
		book.Tax, bad = parseFloat(field(rec, "tax"), bad)
		book.Availability, bad = parseInt(field(rec, "availability"), bad)
		book.NumberOfReviews, bad = parseInt(field(rec, "number_of_reviews"), bad)
		book.Rating, bad = parseInt(field(rec, "rating"), bad)
		if bad || book.Title == "" {
			continue
		}
		rows = append(rows, book)
	}

	return &Dataset{rows: rows}, nil
}

func parseFloat(s string, bad bool) (float64, bool) {
	if s == "" {
		return 0, bad
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, true
	}
	return v, bad
}

func parseInt(s string, bad bool) (int, bool) {
	if s == "" {
		return 0, bad
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, true
	}
	return v, bad
}

// Len returns the number of rows in the snapshot.
func (d *Dataset) Len() int {
	return len(d.rows)
}

// All returns every book in load order.
func (d *Dataset) All() []model.Book {
	out := make([]model.Book, len(d.rows))
	copy(out, d.rows)
	return out
}

// Get returns the book at positional index id, matching the original
// catalog's row addressing. The second return is false when id is out of
// range.
func (d *Dataset) Get(id int) (model.Book, bool) {
	if id < 0 || id >= len(d.rows) {
		return model.Book{}, false
	}
	return d.rows[id], true
}

// Search returns books matching the given title and/or category, both exact
// matches. Empty arguments are wildcards.
func (d *Dataset) Search(title, category string) []model.Book {
	out := []model.Book{}
	for _, b := range d.rows {
		if title != "" && b.Title != title {
			continue
		}
		if category != "" && b.Category != category {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Categories returns the distinct category names, sorted.
func (d *Dataset) Categories() []string {
	seen := map[string]bool{}
	for _, b := range d.rows {
		seen[b.Category] = true
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// PriceRange returns books whose tax-inclusive price falls within
// [min, max], bounds inclusive.
func (d *Dataset) PriceRange(min, max float64) []model.Book {
	out := []model.Book{}
	for _, b := range d.rows {
		if b.PriceInclTax >= min && b.PriceInclTax <= max {
			out = append(out, b)
		}
	}
	return out
}

// TopRated returns all books ordered by rating, highest first. Ties keep
// load order.
func (d *Dataset) TopRated() []model.Book {
	out := d.All()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Rating > out[j].Rating
	})
	return out
}
