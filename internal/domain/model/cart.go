package model

// CartItem is one cart line. Product is a snapshot taken when the
// item was added; the backend copy stays authoritative.
type CartItem struct {
	ProductID int64   `json:"product_id"`
	Quantity  int64   `json:"quantity"`
	Product   Product `json:"product"`
}

// Subtotal is price × quantity for this line.
func (it CartItem) Subtotal() int64 {
	return it.Product.Price * it.Quantity
}
