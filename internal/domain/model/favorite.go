package model

// FavoriteEntry keys a favorited product by the backend-side favorite
// row ID, which the delete endpoint wants instead of the product ID.
type FavoriteEntry struct {
	FavoriteID int64   `json:"id"`
	Product    Product `json:"product"`
}
