package model

// Book is one row of the catalog snapshot. The snapshot is loaded once at
// startup from the scraper-produced CSV and never mutated afterwards.
type Book struct {
	Title           string  `json:"title"`
	Category        string  `json:"category"`
	ProductType     string  `json:"product_type"`
	PriceExclTax    float64 `json:"price_excl_tax"`
	PriceInclTax    float64 `json:"price_incl_tax"`
	Tax             float64 `json:"tax"`
	Availability    int     `json:"availability"`
	NumberOfReviews int     `json:"number_of_reviews"`
	Rating          int     `json:"rating"`
}
