// Package apitest provides a stub AgroConexion backend for package
// tests. It speaks just enough of the real API for the session, cart
// and favorites layers to run against it.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/Donatto293/agroconexion-client/internal/domain/model"
)

// Response is a canned status+body pair.
type Response struct {
	Code int
	Body any
}

type favoriteRow struct {
	ID       int64         `json:"id"`
	Products model.Product `json:"products"`
}

// Backend is an in-process stub server. Mutate its fields between
// requests to steer behavior; all access is mutex-guarded.
type Backend struct {
	HTTP *httptest.Server

	mu sync.Mutex

	// AccessToken is the only bearer token the stub accepts.
	AccessToken string
	// RefreshToken is the only refresh token /token/refresh/ accepts,
	// answered with NewAccessToken.
	RefreshToken   string
	NewAccessToken string

	// Login is returned verbatim from POST /users/login/.
	Login Response
	// LoginStep2 is returned verbatim from POST /users/login/step2/.
	LoginStep2 Response

	Profile model.UserProfile
	// MyInfoCode forces a status on GET /users/my-info/ (0 = 200).
	MyInfoCode int

	Products  []model.Product
	Cart      []model.CartItem
	Favorites []favoriteRow
	nextFavID int64

	// Calls counts requests per "METHOD path" route.
	Calls map[string]int
}

// New starts the stub and registers cleanup.
func New() *Backend {
	b := &Backend{
		Calls:     map[string]int{},
		nextFavID: 1,
	}

	e := echo.New()
	e.Use(b.count)

	e.POST("/users/login/", b.login)
	e.POST("/users/login/step2/", b.loginStep2)
	e.POST("/token/refresh/", b.refresh)
	e.GET("/users/my-info/", b.auth(b.myInfo))
	e.PUT("/users/update/", b.auth(b.updateProfile))

	e.GET("/users/cart/user/cart/", b.auth(b.getCart))
	e.POST("/users/cart/user/cart/", b.auth(b.addCartItem))
	e.DELETE("/users/cart/cart/:id/", b.auth(b.removeCartItem))

	e.GET("/cart/new-favorites/", b.auth(b.getFavorites))
	e.POST("/cart/new-favorites/", b.auth(b.addFavorite))
	e.DELETE("/cart/favorites/:id/", b.auth(b.removeFavorite))

	e.GET("/products/", b.listProducts)
	e.GET("/products/:id/", b.getProduct)
	e.POST("/invoices/create/", b.auth(b.checkout))

	b.HTTP = httptest.NewServer(e)
	return b
}

func (b *Backend) Close() { b.HTTP.Close() }

// URL is the stub's base URL.
func (b *Backend) URL() string { return b.HTTP.URL }

// CallCount returns how often "METHOD path" was hit.
func (b *Backend) CallCount(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Calls[route]
}

// AddFavoriteRow seeds a favorite server-side.
func (b *Backend) AddFavoriteRow(p model.Product) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Favorites = append(b.Favorites, favoriteRow{ID: b.nextFavID, Products: p})
	b.nextFavID++
}

func (b *Backend) count(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		b.mu.Lock()
		b.Calls[c.Request().Method+" "+c.Path()]++
		b.mu.Unlock()
		return next(c)
	}
}

func (b *Backend) auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		b.mu.Lock()
		want := "Bearer " + b.AccessToken
		ok := b.AccessToken != "" && c.Request().Header.Get("Authorization") == want
		b.mu.Unlock()
		if !ok {
			return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "invalid token"})
		}
		return next(c)
	}
}

func (b *Backend) login(c echo.Context) error {
	b.mu.Lock()
	resp := b.Login
	b.mu.Unlock()
	if resp.Code == 0 {
		resp.Code = http.StatusOK
	}
	return c.JSON(resp.Code, resp.Body)
}

func (b *Backend) loginStep2(c echo.Context) error {
	b.mu.Lock()
	resp := b.LoginStep2
	b.mu.Unlock()
	if resp.Code == 0 {
		resp.Code = http.StatusOK
	}
	return c.JSON(resp.Code, resp.Body)
}

func (b *Backend) refresh(c echo.Context) error {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "bad request"})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.RefreshToken == "" || req.Refresh != b.RefreshToken {
		return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "token invalid or expired"})
	}
	b.AccessToken = b.NewAccessToken
	return c.JSON(http.StatusOK, echo.Map{"access": b.NewAccessToken})
}

func (b *Backend) myInfo(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.MyInfoCode != 0 {
		return c.JSON(b.MyInfoCode, echo.Map{"detail": "forced failure"})
	}
	return c.JSON(http.StatusOK, b.Profile)
}

func (b *Backend) updateProfile(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "expected multipart"})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for k, vs := range form.Value {
		if len(vs) == 0 {
			continue
		}
		switch k {
		case "username":
			b.Profile.Username = vs[0]
		case "email":
			b.Profile.Email = vs[0]
		case "phone_number":
			b.Profile.PhoneNumber = vs[0]
		case "address":
			b.Profile.Address = vs[0]
		}
	}
	return c.JSON(http.StatusOK, b.Profile)
}

func (b *Backend) getCart(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return c.JSON(http.StatusOK, echo.Map{"items": b.Cart})
}

func (b *Backend) addCartItem(c echo.Context) error {
	var req struct {
		ProductID int64 `json:"product_id"`
		Quantity  int64 `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "bad request"})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Cart {
		if b.Cart[i].ProductID == req.ProductID {
			b.Cart[i].Quantity += req.Quantity
			return c.JSON(http.StatusOK, echo.Map{"items": b.Cart})
		}
	}
	product := model.Product{ID: req.ProductID}
	for _, p := range b.Products {
		if p.ID == req.ProductID {
			product = p
			break
		}
	}
	b.Cart = append(b.Cart, model.CartItem{ProductID: req.ProductID, Quantity: req.Quantity, Product: product})
	return c.JSON(http.StatusOK, echo.Map{"items": b.Cart})
}

func (b *Backend) removeCartItem(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "bad id"})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.Cart[:0]
	for _, it := range b.Cart {
		if it.ProductID != id {
			kept = append(kept, it)
		}
	}
	b.Cart = kept
	return c.NoContent(http.StatusNoContent)
}

func (b *Backend) getFavorites(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Favorites == nil {
		return c.JSON(http.StatusOK, []favoriteRow{})
	}
	return c.JSON(http.StatusOK, b.Favorites)
}

func (b *Backend) addFavorite(c echo.Context) error {
	var req struct {
		Product int64 `json:"product"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "bad request"})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	product := model.Product{ID: req.Product}
	for _, p := range b.Products {
		if p.ID == req.Product {
			product = p
			break
		}
	}
	b.Favorites = append(b.Favorites, favoriteRow{ID: b.nextFavID, Products: product})
	b.nextFavID++
	return c.JSON(http.StatusCreated, b.Favorites[len(b.Favorites)-1])
}

func (b *Backend) removeFavorite(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "bad id"})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.Favorites[:0]
	for _, f := range b.Favorites {
		if f.ID != id {
			kept = append(kept, f)
		}
	}
	b.Favorites = kept
	return c.NoContent(http.StatusNoContent)
}

func (b *Backend) listProducts(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Products == nil {
		return c.JSON(http.StatusOK, []model.Product{})
	}
	return c.JSON(http.StatusOK, b.Products)
}

func (b *Backend) getProduct(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "bad id"})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.Products {
		if p.ID == id {
			return c.JSON(http.StatusOK, p)
		}
	}
	return c.JSON(http.StatusNotFound, echo.Map{"detail": "not found"})
}

func (b *Backend) checkout(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var total int64
	for _, it := range b.Cart {
		total += it.Product.Price * it.Quantity
	}
	b.Cart = nil
	return c.JSON(http.StatusCreated, echo.Map{"id": 1, "total": total, "date_created": "2025-01-01"})
}
