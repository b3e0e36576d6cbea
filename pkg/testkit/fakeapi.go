// Package testkit provides in-process fakes of the marketplace's external
// collaborators: the REST API server and the chat transport.
//
//	fake := testkit.NewFakeAPI()
//	defer fake.Close()
//	fake.AddProduct(models.Product{ID: "p1", Name: "Tomatoes", Price: 20, Stock: 5})
//	client := api.New(api.WithBaseURL(fake.URL))
package testkit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/shashiranjanraj/kisanbazaar/app/models"
	"github.com/shashiranjanraj/kisanbazaar/pkg/auth"
)

// FakeAPI emulates the marketplace API server, including server-side stock
// re-validation and Idempotency-Key handling on order submission.
type FakeAPI struct {
	*httptest.Server

	mu        sync.Mutex
	products  []*models.Product
	users     []models.User
	passwords map[string][]byte // bcrypt hashes by email
	orders    []*models.Order
	idem      map[string]string // idempotency key → order id
	calls     map[string]int    // "METHOD /pattern" → count
	seq       int

	// PaymentIntentStatus, when non-zero, makes create-order fail with it.
	PaymentIntentStatus int
	// OrderStatus, when non-zero, makes order submission fail with it.
	OrderStatus int
	// OrderDelay stalls order submission, for cancellation tests.
	OrderDelay time.Duration
}

// NewFakeAPI starts the fake on a loopback listener.
func NewFakeAPI() *FakeAPI {
	f := &FakeAPI{
		passwords: map[string][]byte{},
		idem:      map[string]string{},
		calls:     map[string]int{},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(f.count)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", f.login)
		r.Post("/auth/register", f.register)

		r.Get("/products", f.listProducts)
		r.Get("/products/{id}", f.getProduct)
		r.Post("/payment/create-order", f.createPaymentOrder)

		r.Group(func(r chi.Router) {
			r.Use(f.authenticate)

			r.Get("/products/my", f.myProducts)
			r.Post("/products/{id}/review", f.addReview)
			r.With(requireRole(models.RoleFarmer, models.RoleAdmin)).Post("/products", f.createProduct)
			r.With(requireRole(models.RoleFarmer, models.RoleAdmin)).Put("/products/{id}", f.updateProduct)
			r.With(requireRole(models.RoleFarmer, models.RoleAdmin)).Delete("/products/{id}", f.deleteProduct)

			r.Post("/orders", f.createOrder)
			r.Get("/orders/my", f.myOrders)
			r.With(requireRole(models.RoleFarmer)).Get("/orders/farmer", f.farmerOrders)
			r.Get("/orders/{id}", f.getOrder)
			r.Get("/orders/{id}/invoice", f.invoice)
			r.With(requireRole(models.RoleFarmer, models.RoleAdmin)).Patch("/orders/{id}/track", f.track)

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireRole(models.RoleAdmin))
				r.Get("/users", f.adminUsers)
				r.Get("/products", f.listProducts)
				r.Get("/orders", f.adminOrders)
				r.Delete("/users/{id}", f.adminDeleteUser)
				r.Delete("/products/{id}", f.deleteProduct)
			})
		})
	})

	f.Server = httptest.NewServer(r)
	return f
}

// ─── Seeding and inspection ───────────────────────────────────────────────────

// AddProduct seeds a product. Stock is decremented by successful orders.
func (f *FakeAPI) AddProduct(p models.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := p
	f.products = append(f.products, &cp)
}

// AddUser seeds an account and returns a valid token for it.
func (f *FakeAPI) AddUser(u models.User, password string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, u)
	f.passwords[u.Email] = hashPassword(password)
	return Token(u, time.Hour)
}

// Product returns the current state of a seeded product.
func (f *FakeAPI) Product(id string) (models.Product, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p := f.findProduct(id); p != nil {
		return *p, true
	}
	return models.Product{}, false
}

// Orders returns every recorded order.
func (f *FakeAPI) Orders() []models.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Order, 0, len(f.orders))
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out
}

// Calls returns how often a route was hit, keyed as "POST /api/orders".
func (f *FakeAPI) Calls(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

// SetOrderStatus changes the injected order-submission failure.
func (f *FakeAPI) SetOrderStatus(status int) {
	f.mu.Lock()
	f.OrderStatus = status
	f.mu.Unlock()
}

// ─── Middleware ───────────────────────────────────────────────────────────────

type claimsKey struct{}

func (f *FakeAPI) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[r.Method+" "+r.URL.Path]++
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeMessage(w, http.StatusUnauthorized, "Not authorized, no token")
			return
		}
		claims, err := verify(token)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}
		next.ServeHTTP(w, r.WithContext(withClaims(r, claims)))
	})
}

func requireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := claimsFrom(r)
			for _, role := range roles {
				if c != nil && c.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeMessage(w, http.StatusForbidden, "Access denied")
		})
	}
}

// ─── Auth ─────────────────────────────────────────────────────────────────────

func (f *FakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var in models.Credentials
	if !decode(w, r, &in) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == in.Email && bcrypt.CompareHashAndPassword(f.passwords[u.Email], []byte(in.Password)) == nil {
			writeJSON(w, http.StatusOK, map[string]string{"token": Token(u, time.Hour)})
			return
		}
	}
	writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
}

func (f *FakeAPI) register(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterInput
	if !decode(w, r, &in) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.passwords[in.Email]; exists {
		writeMessage(w, http.StatusBadRequest, "User already exists")
		return
	}
	f.seq++
	f.users = append(f.users, models.User{ID: fmt.Sprintf("u%d", f.seq), Name: in.Name, Email: in.Email, Role: in.Role})
	f.passwords[in.Email] = hashPassword(in.Password)
	writeMessage(w, http.StatusCreated, "User registered successfully")
}

// MinCost keeps test logins fast.
func hashPassword(plain string) []byte {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("testkit: hash password: %v", err))
	}
	return h
}

// ─── Products ─────────────────────────────────────────────────────────────────

func (f *FakeAPI) findProduct(id string) *models.Product {
	for _, p := range f.products {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (f *FakeAPI) listProducts(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, *p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) myProducts(w http.ResponseWriter, r *http.Request) {
	c := claimsFrom(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Product{}
	for _, p := range f.products {
		if p.CreatedBy != nil && p.CreatedBy.ID == c.UserID {
			out = append(out, *p)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) getProduct(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.findProduct(chi.URLParam(r, "id"))
	if p == nil {
		writeMessage(w, http.StatusNotFound, "Product not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (f *FakeAPI) createProduct(w http.ResponseWriter, r *http.Request) {
	var in models.ProductInput
	if !decode(w, r, &in) {
		return
	}
	c := claimsFrom(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	p := &models.Product{
		ID:          fmt.Sprintf("p%d", f.seq),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Quantity:    in.Quantity,
		Stock:       int(in.Quantity),
		ImageURL:    in.ImageURL,
		CreatedBy:   &models.Owner{ID: c.UserID, Name: c.Name},
	}
	f.products = append(f.products, p)
	writeJSON(w, http.StatusCreated, p)
}

func (f *FakeAPI) updateProduct(w http.ResponseWriter, r *http.Request) {
	var in models.ProductInput
	if !decode(w, r, &in) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.findProduct(chi.URLParam(r, "id"))
	if p == nil {
		writeMessage(w, http.StatusNotFound, "Product not found")
		return
	}
	p.Name, p.Description, p.Price, p.Quantity, p.ImageURL = in.Name, in.Description, in.Price, in.Quantity, in.ImageURL
	p.Stock = int(in.Quantity)
	writeJSON(w, http.StatusOK, p)
}

func (f *FakeAPI) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.products {
		if p.ID == id {
			f.products = append(f.products[:i], f.products[i+1:]...)
			writeMessage(w, http.StatusOK, "Product deleted")
			return
		}
	}
	writeMessage(w, http.StatusNotFound, "Product not found")
}

func (f *FakeAPI) addReview(w http.ResponseWriter, r *http.Request) {
	var in models.ReviewInput
	if !decode(w, r, &in) {
		return
	}
	c := claimsFrom(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.findProduct(chi.URLParam(r, "id"))
	if p == nil {
		writeMessage(w, http.StatusNotFound, "Product not found")
		return
	}
	p.Reviews = append(p.Reviews, models.Review{User: c.Name, Rating: in.Rating, Comment: in.Comment, CreatedAt: time.Now().UTC()})
	writeMessage(w, http.StatusCreated, "Review added")
}

// ─── Payments and orders ──────────────────────────────────────────────────────

func (f *FakeAPI) createPaymentOrder(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Amount float64 `json:"amount"`
	}
	if !decode(w, r, &in) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PaymentIntentStatus != 0 {
		writeMessage(w, f.PaymentIntentStatus, "Payment gateway unavailable")
		return
	}
	if in.Amount <= 0 {
		writeMessage(w, http.StatusBadRequest, "Invalid amount")
		return
	}
	f.seq++
	writeJSON(w, http.StatusOK, models.PaymentOrder{
		ID:       fmt.Sprintf("order_%d", f.seq),
		Amount:   in.Amount * 100,
		Currency: "INR",
	})
}

func (f *FakeAPI) createOrder(w http.ResponseWriter, r *http.Request) {
	var in models.OrderRequest
	if !decode(w, r, &in) {
		return
	}

	f.mu.Lock()
	delay := f.OrderDelay
	f.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	c := claimsFrom(r)
	key := r.Header.Get("Idempotency-Key")

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.OrderStatus != 0 {
		writeMessage(w, f.OrderStatus, "Order could not be saved")
		return
	}
	if id, ok := f.idem[key]; ok && key != "" {
		for _, o := range f.orders {
			if o.ID == id {
				writeJSON(w, http.StatusOK, o)
				return
			}
		}
	}
	if len(in.Cart) == 0 || in.PaymentID == "" {
		writeMessage(w, http.StatusBadRequest, "Cart and payment id are required")
		return
	}

	// Prices and stock are re-validated against the catalogue, never trusted
	// from the client.
	var total float64
	items := make([]models.OrderItem, 0, len(in.Cart))
	for _, it := range in.Cart {
		p := f.findProduct(it.ProductID)
		if p == nil {
			writeMessage(w, http.StatusUnprocessableEntity, fmt.Sprintf("Product %s no longer exists", it.ProductID))
			return
		}
		if it.Quantity > p.Stock {
			writeMessage(w, http.StatusConflict, fmt.Sprintf("Insufficient stock for %s", p.Name))
			return
		}
		total += p.Price * float64(it.Quantity)
		items = append(items, models.OrderItem{ProductID: p.ID, Name: p.Name, Price: p.Price, Quantity: it.Quantity})
	}
	if total != in.Total {
		writeMessage(w, http.StatusUnprocessableEntity, "Order total does not match current prices")
		return
	}
	for _, it := range in.Cart {
		f.findProduct(it.ProductID).Stock -= it.Quantity
	}

	f.seq++
	now := time.Now().UTC()
	o := &models.Order{
		ID:              fmt.Sprintf("o%d", f.seq),
		Buyer:           &models.Owner{ID: c.UserID, Name: c.Name, Email: c.Email},
		Products:        items,
		TotalAmount:     total,
		PaymentID:       in.PaymentID,
		Status:          models.StatusPending,
		TrackingHistory: []models.TrackingEntry{{Status: models.StatusPending, Date: now}},
		CreatedAt:       now,
	}
	f.orders = append(f.orders, o)
	if key != "" {
		f.idem[key] = o.ID
	}
	writeJSON(w, http.StatusCreated, o)
}

func (f *FakeAPI) ordersWhere(keep func(*models.Order) bool) []models.Order {
	out := []models.Order{}
	for _, o := range f.orders {
		if keep(o) {
			out = append(out, *o)
		}
	}
	return out
}

func (f *FakeAPI) myOrders(w http.ResponseWriter, r *http.Request) {
	c := claimsFrom(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, f.ordersWhere(func(o *models.Order) bool {
		return o.Buyer != nil && o.Buyer.ID == c.UserID
	}))
}

func (f *FakeAPI) farmerOrders(w http.ResponseWriter, r *http.Request) {
	c := claimsFrom(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, f.ordersWhere(func(o *models.Order) bool {
		for _, it := range o.Products {
			if p := f.findProduct(it.ProductID); p != nil && p.CreatedBy != nil && p.CreatedBy.ID == c.UserID {
				return true
			}
		}
		return false
	}))
}

func (f *FakeAPI) adminOrders(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, f.ordersWhere(func(*models.Order) bool { return true }))
}

func (f *FakeAPI) findOrder(id string) *models.Order {
	for _, o := range f.orders {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (f *FakeAPI) getOrder(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.findOrder(chi.URLParam(r, "id"))
	if o == nil {
		writeMessage(w, http.StatusNotFound, "Order not found")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (f *FakeAPI) track(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Status string `json:"status"`
	}
	if !decode(w, r, &in) {
		return
	}
	status, err := models.ParseTrackingStatus(in.Status)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.findOrder(chi.URLParam(r, "id"))
	if o == nil {
		writeMessage(w, http.StatusNotFound, "Order not found")
		return
	}
	o.Status = status
	o.TrackingHistory = append(o.TrackingHistory, models.TrackingEntry{Status: status, Date: time.Now().UTC()})
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Tracking updated", "order": o})
}

func (f *FakeAPI) invoice(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.findOrder(chi.URLParam(r, "id"))
	if o == nil {
		writeMessage(w, http.StatusNotFound, "Order not found")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	fmt.Fprintf(w, "%%PDF-1.4\n%% invoice %s total %.2f\n", o.ID, o.TotalAmount)
}

// ─── Admin ────────────────────────────────────────────────────────────────────

func (f *FakeAPI) adminUsers(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.User, len(f.users))
	copy(out, f.users)
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) adminDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, u := range f.users {
		if u.ID == id {
			f.users = append(f.users[:i], f.users[i+1:]...)
			delete(f.passwords, u.Email)
			writeMessage(w, http.StatusOK, "User deleted")
			return
		}
	}
	writeMessage(w, http.StatusNotFound, "User not found")
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func withClaims(r *http.Request, c *auth.Claims) context.Context {
	return context.WithValue(r.Context(), claimsKey{}, c)
}

func claimsFrom(r *http.Request) *auth.Claims {
	c, _ := r.Context().Value(claimsKey{}).(*auth.Claims)
	return c
}
