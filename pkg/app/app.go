// Package app is the application root. It owns the process-wide client
// state and hands each consumer its collaborators by reference.
//
//	a, err := app.New(ctx)
//	defer a.Close()
//	a.Cart.Add(product)
//	sess := a.Checkout(widget)
//	order, err := sess.Pay(ctx)
//
// Tests build one on an in-memory store:
//
//	a := app.NewWithStore(ctx, localstore.NewMemoryStore(), app.WithAPI(api.WithBaseURL(fake.URL)))
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/shashiranjanraj/kisanbazaar/config"
	"github.com/shashiranjanraj/kisanbazaar/pkg/api"
	"github.com/shashiranjanraj/kisanbazaar/pkg/auth"
	"github.com/shashiranjanraj/kisanbazaar/pkg/cart"
	"github.com/shashiranjanraj/kisanbazaar/pkg/chat"
	"github.com/shashiranjanraj/kisanbazaar/pkg/checkout"
	"github.com/shashiranjanraj/kisanbazaar/pkg/event"
	"github.com/shashiranjanraj/kisanbazaar/pkg/localstore"
	"github.com/shashiranjanraj/kisanbazaar/pkg/logger"
)

// Application holds the shared stores. Every field is safe for concurrent
// use.
type Application struct {
	Storage localstore.Store
	Bus     *event.Bus
	Cart    *cart.Store
	Auth    *auth.Session
	API     *api.Client

	chatURL string
}

// Option configures an Application.
type Option func(*settings)

type settings struct {
	apiOpts  []api.Option
	cartOpts []cart.Option
	chatURL  string
}

// WithAPI passes options through to the API client.
func WithAPI(opts ...api.Option) Option {
	return func(s *settings) { s.apiOpts = append(s.apiOpts, opts...) }
}

// WithCart passes options through to the cart store.
func WithCart(opts ...cart.Option) Option {
	return func(s *settings) { s.cartOpts = append(s.cartOpts, opts...) }
}

// WithChatURL overrides CHAT_URL.
func WithChatURL(u string) Option {
	return func(s *settings) { s.chatURL = u }
}

// New loads configuration, opens the configured LOCAL_STORE driver and
// builds the application on it.
func New(ctx context.Context, opts ...Option) (*Application, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("app: load config: %w", err)
	}
	st, err := localstore.Open(ctx, config.LocalStoreDriver())
	if err != nil {
		return nil, fmt.Errorf("app: open local store: %w", err)
	}
	return NewWithStore(ctx, st, opts...), nil
}

// NewWithStore builds the application on st, hydrating the cart and the
// credential from it.
func NewWithStore(ctx context.Context, st localstore.Store, opts ...Option) *Application {
	s := settings{chatURL: config.ChatURL()}
	for _, o := range opts {
		o(&s)
	}

	bus := event.New()
	session := auth.NewSession(st, bus)
	id := session.Restore(ctx)

	a := &Application{
		Storage: st,
		Bus:     bus,
		Cart:    cart.New(ctx, st, append([]cart.Option{cart.WithBus(bus)}, s.cartOpts...)...),
		Auth:    session,
		API:     api.New(append([]api.Option{api.WithTokenSource(session)}, s.apiOpts...)...),
		chatURL: s.chatURL,
	}
	logger.Debug("app: ready", "user", id.Name, "cart_items", a.Cart.Len(), "api", a.API.BaseURL())
	return a
}

// Checkout starts a checkout session over the shared cart.
func (a *Application) Checkout(w checkout.Widget, opts ...checkout.Option) *checkout.Session {
	base := []checkout.Option{checkout.WithBus(a.Bus), checkout.WithIdentity(a.Auth)}
	return checkout.New(a.Cart, a.API, w, append(base, opts...)...)
}

// DialChat connects to the chat server as the logged-in user.
func (a *Application) DialChat(ctx context.Context) (*chat.Client, error) {
	return chat.Dial(ctx, a.chatURL, a.Auth.Identity(), chat.WithBus(a.Bus))
}

// Close releases the storage driver.
func (a *Application) Close() error {
	if c, ok := a.Storage.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
