package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/Donatto293/agroconexion-client/internal/domain/model"
)

// MyInfo fetches the full profile of the token's owner.
func (c *Client) MyInfo(ctx context.Context) (*model.UserProfile, error) {
	var p model.UserProfile
	if err := c.doJSON(ctx, http.MethodGet, "/users/my-info/", nil, true, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfile sends changed fields as multipart form data (the
// endpoint also takes an avatar file, which the CLI does not send).
// The backend may answer with a partial field set; callers re-fetch
// the profile afterwards instead of trusting the echo.
func (c *Client) UpdateProfile(ctx context.Context, fields map[string]string) (*model.UserProfile, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("api: build form: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/users/update/", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	raw, err := c.send(req, true)
	if err != nil {
		return nil, err
	}

	var p model.UserProfile
	if err := decodeInto(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

type cartWire struct {
	Items []cartItemWire `json:"items"`
}

type cartItemWire struct {
	ProductID int64         `json:"product_id"`
	Quantity  int64         `json:"quantity"`
	Product   model.Product `json:"product"`
}

// GetCart fetches the authoritative cart.
func (c *Client) GetCart(ctx context.Context) ([]model.CartItem, error) {
	var w cartWire
	if err := c.doJSON(ctx, http.MethodGet, "/users/cart/user/cart/", nil, true, &w); err != nil {
		return nil, err
	}

	items := make([]model.CartItem, 0, len(w.Items))
	for _, it := range w.Items {
		productID := it.ProductID
		if productID == 0 {
			productID = it.Product.ID
		}
		items = append(items, model.CartItem{
			ProductID: productID,
			Quantity:  it.Quantity,
			Product:   it.Product,
		})
	}
	return items, nil
}

type addCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// AddCartItem adds quantity units of a product to the remote cart.
func (c *Client) AddCartItem(ctx context.Context, productID int64, quantity int64) error {
	return c.doJSON(ctx, http.MethodPost, "/users/cart/user/cart/", addCartRequest{
		ProductID: productID,
		Quantity:  quantity,
	}, true, nil)
}

// RemoveCartItem deletes a product line from the remote cart.
func (c *Client) RemoveCartItem(ctx context.Context, productID int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/users/cart/cart/%d/", productID), nil, true, nil)
}

type favoriteWire struct {
	ID       int64         `json:"id"`
	Products model.Product `json:"products"`
}

// GetFavorites fetches the favorites list, flattening the nested
// product detail the endpoint nests under "products".
func (c *Client) GetFavorites(ctx context.Context) ([]model.FavoriteEntry, error) {
	var wire []favoriteWire
	if err := c.doJSON(ctx, http.MethodGet, "/cart/new-favorites/", nil, true, &wire); err != nil {
		return nil, err
	}

	entries := make([]model.FavoriteEntry, 0, len(wire))
	for _, w := range wire {
		entries = append(entries, model.FavoriteEntry{
			FavoriteID: w.ID,
			Product:    w.Products,
		})
	}
	return entries, nil
}

type addFavoriteRequest struct {
	Product int64 `json:"product"`
}

// AddFavorite marks a product as favorite.
func (c *Client) AddFavorite(ctx context.Context, productID int64) error {
	return c.doJSON(ctx, http.MethodPost, "/cart/new-favorites/", addFavoriteRequest{Product: productID}, true, nil)
}

// RemoveFavorite deletes a favorite by its favorite row ID (not the
// product ID).
func (c *Client) RemoveFavorite(ctx context.Context, favoriteID int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/cart/favorites/%d/", favoriteID), nil, true, nil)
}

// GetProducts lists the public catalog.
func (c *Client) GetProducts(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := c.doJSON(ctx, http.MethodGet, "/products/", nil, false, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct fetches one product's detail.
func (c *Client) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	var p model.Product
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/products/%d/", id), nil, false, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetCategories lists the public categories.
func (c *Client) GetCategories(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if err := c.doJSON(ctx, http.MethodGet, "/categories/", nil, false, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// Invoice is the checkout result.
type Invoice struct {
	ID    int64  `json:"id"`
	Total int64  `json:"total"`
	Date  string `json:"date_created"`
}

// Checkout turns the remote cart into an invoice.
func (c *Client) Checkout(ctx context.Context) (*Invoice, error) {
	var inv Invoice
	if err := c.doJSON(ctx, http.MethodPost, "/invoices/create/", nil, true, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}
