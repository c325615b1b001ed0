package model

// Product is the catalog item as the backend serializes it.
// Price is in COP cents to avoid float drift in cart totals.
type Product struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       int64    `json:"price"`
	Stock       int64    `json:"stock"`
	Images      []string `json:"images,omitempty"`
	CategoryID  int64    `json:"category,omitempty"`
}

type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
