package api_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/kisanbazaar/app/models"
	"github.com/shashiranjanraj/kisanbazaar/pkg/api"
	"github.com/shashiranjanraj/kisanbazaar/pkg/auth"
	"github.com/shashiranjanraj/kisanbazaar/pkg/testkit"
	"github.com/shashiranjanraj/kisanbazaar/pkg/validate"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

var (
	buyer  = models.User{ID: "u-buyer", Name: "Asha", Email: "asha@example.com", Role: models.RoleBuyer}
	farmer = models.User{ID: "u-farmer", Name: "Ravi", Email: "ravi@example.com", Role: models.RoleFarmer}
	admin  = models.User{ID: "u-admin", Name: "Root", Email: "root@example.com", Role: models.RoleAdmin}
)

func setup(t *testing.T) *testkit.FakeAPI {
	t.Helper()
	fake := testkit.NewFakeAPI()
	t.Cleanup(fake.Close)
	fake.AddProduct(models.Product{ID: "p1", Name: "Tomatoes", Price: 20, Stock: 5, CreatedBy: &models.Owner{ID: farmer.ID, Name: farmer.Name}})
	fake.AddProduct(models.Product{ID: "p2", Name: "Onions", Price: 30, Stock: 2})
	return fake
}

func clientAs(fake *testkit.FakeAPI, u *models.User) *api.Client {
	opts := []api.Option{api.WithBaseURL(fake.URL), api.WithTimeout(5 * time.Second)}
	if u != nil {
		opts = append(opts, api.WithTokenSource(staticToken(fake.AddUser(*u, "secret1"))))
	}
	return api.New(opts...)
}

func TestListAndGetProducts(t *testing.T) {
	fake := setup(t)
	client := clientAs(fake, nil)
	ctx := context.Background()

	products, err := client.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 2)

	p, err := client.GetProduct(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, "Onions", p.Name)
	assert.Equal(t, 30.0, p.Price)
}

func TestNotFoundSurfacesServerMessage(t *testing.T) {
	fake := setup(t)
	_, err := clientAs(fake, nil).GetProduct(context.Background(), "missing")

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Product not found", apiErr.Message)
	assert.Equal(t, http.StatusNotFound, api.StatusOf(err))
}

func TestLogin(t *testing.T) {
	fake := setup(t)
	fake.AddUser(buyer, "secret1")
	client := clientAs(fake, nil)
	ctx := context.Background()

	token, err := client.Login(ctx, buyer.Email, "secret1")
	require.NoError(t, err)
	claims, err := auth.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, buyer.ID, claims.UserID)
	assert.Equal(t, models.RoleBuyer, claims.Role)

	_, err = client.Login(ctx, buyer.Email, "wrong")
	assert.Equal(t, http.StatusUnauthorized, api.StatusOf(err))
}

func TestRegisterValidatesBeforeCalling(t *testing.T) {
	fake := setup(t)
	client := clientAs(fake, nil)

	_, err := client.Register(context.Background(), models.RegisterInput{Name: "X", Email: "bad", Password: "123", Role: models.RoleAdmin})
	var verrs validate.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "email")
	assert.Contains(t, verrs, "password")
	assert.Contains(t, verrs, "role")
	assert.Equal(t, 0, fake.Calls("POST /api/auth/register"))

	msg, err := client.Register(context.Background(), models.RegisterInput{Name: "Meena", Email: "meena@example.com", Password: "123456", Role: models.RoleFarmer})
	require.NoError(t, err)
	assert.Equal(t, "User registered successfully", msg)
}

func TestCreatePaymentOrder(t *testing.T) {
	fake := setup(t)
	client := clientAs(fake, nil)

	po, err := client.CreatePaymentOrder(context.Background(), 70)
	require.NoError(t, err)
	assert.NotEmpty(t, po.ID)
	assert.Equal(t, 7000.0, po.Amount)

	_, err = client.CreatePaymentOrder(context.Background(), 0)
	assert.Error(t, err)
	assert.Equal(t, 1, fake.Calls("POST /api/payment/create-order"))
}

func orderFor(items ...models.CartItem) models.OrderRequest {
	return models.OrderRequest{Cart: items, Total: models.CartTotal(items), PaymentID: "pay_1"}
}

func TestCreateOrderNeedsCredential(t *testing.T) {
	fake := setup(t)
	_, err := clientAs(fake, nil).CreateOrder(context.Background(), orderFor(models.CartItem{ProductID: "p1", Price: 20, Quantity: 1}), "k")
	assert.ErrorIs(t, err, api.ErrUnauthenticated)
	assert.Equal(t, 0, fake.Calls("POST /api/orders"))
}

func TestCreateOrderIsIdempotent(t *testing.T) {
	fake := setup(t)
	client := clientAs(fake, &buyer)
	ctx := context.Background()
	req := orderFor(models.CartItem{ProductID: "p1", Name: "Tomatoes", Price: 20, Quantity: 2})

	first, err := client.CreateOrder(ctx, req, "key-1")
	require.NoError(t, err)
	second, err := client.CreateOrder(ctx, req, "key-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, fake.Orders(), 1)
	p, _ := fake.Product("p1")
	assert.Equal(t, 3, p.Stock)

	mine, err := client.MyOrders(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, 40.0, mine[0].TotalAmount)
}

func TestCreateOrderStockConflict(t *testing.T) {
	fake := setup(t)
	client := clientAs(fake, &buyer)

	_, err := client.CreateOrder(context.Background(), orderFor(models.CartItem{ProductID: "p2", Price: 30, Quantity: 3}), "key-2")

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Contains(t, apiErr.Message, "Insufficient stock")
	assert.Empty(t, fake.Orders())
}

func TestUpdateTracking(t *testing.T) {
	fake := setup(t)
	ctx := context.Background()
	order, err := clientAs(fake, &buyer).CreateOrder(ctx, orderFor(models.CartItem{ProductID: "p1", Price: 20, Quantity: 1}), "")
	require.NoError(t, err)

	seller := clientAs(fake, &farmer)

	_, err = seller.UpdateTracking(ctx, order.ID, "Teleported")
	assert.Error(t, err)
	assert.Equal(t, 0, fake.Calls("PATCH /api/orders/"+order.ID+"/track"))

	updated, err := seller.UpdateTracking(ctx, order.ID, "Shipped")
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipped, updated.Status)
	assert.Len(t, updated.TrackingHistory, 2)

	farmerOrders, err := seller.FarmerOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, farmerOrders, 1)

	_, err = clientAs(fake, &buyer).UpdateTracking(ctx, order.ID, "Delivered")
	assert.Equal(t, http.StatusForbidden, api.StatusOf(err))
}

func TestInvoice(t *testing.T) {
	fake := setup(t)
	client := clientAs(fake, &buyer)
	ctx := context.Background()
	order, err := client.CreateOrder(ctx, orderFor(models.CartItem{ProductID: "p1", Price: 20, Quantity: 1}), "")
	require.NoError(t, err)

	pdf, err := client.Invoice(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

func TestAdminEndpoints(t *testing.T) {
	fake := setup(t)
	ctx := context.Background()

	_, err := clientAs(fake, &buyer).AdminUsers(ctx)
	assert.Equal(t, http.StatusForbidden, api.StatusOf(err))

	root := clientAs(fake, &admin)
	users, err := root.AdminUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	require.NoError(t, root.DeleteUser(ctx, buyer.ID))
	require.NoError(t, root.AdminDeleteProduct(ctx, "p2"))

	products, err := root.AdminProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 1)

	err = root.DeleteUser(ctx, "nobody")
	assert.Equal(t, http.StatusNotFound, api.StatusOf(err))
}

func TestFarmerProductLifecycle(t *testing.T) {
	fake := setup(t)
	client := clientAs(fake, &farmer)
	ctx := context.Background()

	_, err := client.CreateProduct(ctx, models.ProductInput{Name: "Rice"})
	require.Error(t, err)
	assert.Equal(t, 0, fake.Calls("POST /api/products"))

	p, err := client.CreateProduct(ctx, models.ProductInput{Name: "Rice", Description: "Basmati", Price: 90, Quantity: 50})
	require.NoError(t, err)
	assert.Equal(t, 50, p.Stock)

	mine, err := client.MyProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = client.UpdateProduct(ctx, p.ID, models.ProductInput{Name: "Rice", Description: "Sona masoori", Price: 80, Quantity: 40})
	require.NoError(t, err)
	require.NoError(t, client.AddReview(ctx, p.ID, models.ReviewInput{Rating: 5, Comment: "Fresh"}))

	got, err := client.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 80.0, got.Price)
	require.Len(t, got.Reviews, 1)
	assert.Equal(t, farmer.Name, got.Reviews[0].User)

	require.NoError(t, client.DeleteProduct(ctx, p.ID))
}

func TestTimeoutAbortsRequest(t *testing.T) {
	fake := setup(t)
	fake.OrderDelay = time.Second
	token := fake.AddUser(buyer, "secret1")
	client := api.New(api.WithBaseURL(fake.URL), api.WithTimeout(50*time.Millisecond), api.WithTokenSource(staticToken(token)))

	_, err := client.CreateOrder(context.Background(), orderFor(models.CartItem{ProductID: "p1", Price: 20, Quantity: 1}), "slow")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
