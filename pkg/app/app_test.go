package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/kisanbazaar/app/models"
	"github.com/shashiranjanraj/kisanbazaar/pkg/api"
	"github.com/shashiranjanraj/kisanbazaar/pkg/app"
	"github.com/shashiranjanraj/kisanbazaar/pkg/chat"
	"github.com/shashiranjanraj/kisanbazaar/pkg/checkout"
	"github.com/shashiranjanraj/kisanbazaar/pkg/localstore"
	"github.com/shashiranjanraj/kisanbazaar/pkg/testkit"
)

var asha = models.User{ID: "u1", Name: "Asha", Email: "asha@example.com", Role: models.RoleBuyer}

func TestStateSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	st := localstore.NewMemoryStore()

	first := app.NewWithStore(ctx, st)
	_, err := first.Auth.Login(ctx, testkit.Token(asha, time.Hour))
	require.NoError(t, err)
	first.Cart.Add(models.Product{ID: "p1", Name: "Tomatoes", Price: 20, Stock: 4})
	first.Cart.Add(models.Product{ID: "p1", Name: "Tomatoes", Price: 20, Stock: 4})

	second := app.NewWithStore(ctx, st)
	assert.Equal(t, "Asha", second.Auth.Identity().Name)
	assert.Equal(t, 2, second.Cart.Count())
	assert.Equal(t, 40.0, second.Cart.Total())
	require.NoError(t, second.Close())
}

func TestConsumersShareOneCart(t *testing.T) {
	ctx := context.Background()
	a := app.NewWithStore(ctx, localstore.NewMemoryStore())

	badge := 0
	a.Cart.Subscribe(func(items []models.CartItem) { badge = len(items) })

	a.Cart.Add(models.Product{ID: "p1", Price: 1, Stock: 1})
	a.Cart.Add(models.Product{ID: "p2", Price: 1, Stock: 1})
	assert.Equal(t, 2, badge)
}

func TestCheckoutThroughApplication(t *testing.T) {
	ctx := context.Background()
	fake := testkit.NewFakeAPI()
	defer fake.Close()
	fake.AddProduct(models.Product{ID: "p1", Name: "Tomatoes", Price: 20, Stock: 4})
	fake.AddUser(asha, "secret1")

	a := app.NewWithStore(ctx, localstore.NewMemoryStore(), app.WithAPI(api.WithBaseURL(fake.URL)))
	token, err := a.API.Login(ctx, asha.Email, "secret1")
	require.NoError(t, err)
	_, err = a.Auth.Login(ctx, token)
	require.NoError(t, err)

	a.Cart.Add(models.Product{ID: "p1", Name: "Tomatoes", Price: 20, Stock: 4})

	var prefill checkout.Prefill
	sess := a.Checkout(checkout.WidgetFunc(func(_ context.Context, o checkout.WidgetOptions) (checkout.Outcome, error) {
		prefill = o.Prefill
		return checkout.Success("pay_app"), nil
	}))
	order, err := sess.Pay(ctx)
	require.NoError(t, err)

	assert.Equal(t, 20.0, order.TotalAmount)
	assert.Equal(t, "Asha", prefill.Name)
	assert.Equal(t, 0, a.Cart.Len())
}

func TestDialChatAsLoggedInUser(t *testing.T) {
	ctx := context.Background()
	srv := testkit.NewChatServer()
	defer srv.Close()

	a := app.NewWithStore(ctx, localstore.NewMemoryStore(), app.WithChatURL(srv.WSURL()))
	_, err := a.DialChat(ctx)
	assert.ErrorIs(t, err, chat.ErrAnonymous)

	_, err = a.Auth.Login(ctx, testkit.Token(asha, time.Hour))
	require.NoError(t, err)
	c, err := a.DialChat(ctx)
	require.NoError(t, err)
	defer c.Close()

	assert.Eventually(t, func() bool {
		users := c.OnlineUsers()
		return len(users) == 1 && users[0].Name == "Asha"
	}, 3*time.Second, 10*time.Millisecond)
}
