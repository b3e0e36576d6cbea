package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/kisanbazaar/app/models"
	"github.com/shashiranjanraj/kisanbazaar/pkg/auth"
	"github.com/shashiranjanraj/kisanbazaar/pkg/event"
	"github.com/shashiranjanraj/kisanbazaar/pkg/localstore"
	"github.com/shashiranjanraj/kisanbazaar/pkg/testkit"
)

var farmer = models.User{ID: "u7", Name: "Ravi", Email: "ravi@example.com", Role: models.RoleFarmer}

func TestDecode(t *testing.T) {
	c, err := auth.Decode(testkit.Token(farmer, time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "u7", c.UserID)
	assert.Equal(t, models.RoleFarmer, c.Role)

	_, err = auth.Decode("not-a-jwt")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = auth.Decode(testkit.Token(models.User{ID: "u1", Role: "pirate"}, time.Hour))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = auth.Decode(testkit.Token(farmer, -time.Minute))
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestLoginPersistsAndPublishes(t *testing.T) {
	ctx := context.Background()
	st := localstore.NewMemoryStore()
	bus := event.New()
	s := auth.NewSession(st, bus)

	var seen []auth.Identity
	s.Subscribe(func(id auth.Identity) { seen = append(seen, id) })

	token := testkit.Token(farmer, time.Hour)
	id, err := s.Login(ctx, token)
	require.NoError(t, err)

	assert.Equal(t, "Ravi", id.Name)
	assert.Equal(t, token, s.Token())
	assert.True(t, s.HasRole(models.RoleFarmer, models.RoleAdmin))
	assert.False(t, s.HasRole(models.RoleBuyer))

	raw, err := st.Get(ctx, auth.TokenKey)
	require.NoError(t, err)
	assert.Equal(t, token, string(raw))
	require.Len(t, seen, 1)
	assert.Equal(t, id, seen[0])
}

func TestLoginRejectsMalformedToken(t *testing.T) {
	ctx := context.Background()
	st := localstore.NewMemoryStore()
	s := auth.NewSession(st, nil)

	_, err := s.Login(ctx, "garbage")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
	assert.True(t, s.Identity().Anonymous())

	_, err = st.Get(ctx, auth.TokenKey)
	assert.ErrorIs(t, err, localstore.ErrNotFound)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	st := localstore.NewMemoryStore()
	require.NoError(t, st.Set(ctx, auth.TokenKey, []byte(testkit.Token(farmer, time.Hour))))

	id := auth.NewSession(st, nil).Restore(ctx)
	assert.Equal(t, "u7", id.ID)
	assert.Equal(t, "ravi@example.com", id.Email)
}

func TestRestoreDiscardsBadTokens(t *testing.T) {
	cases := map[string]string{
		"malformed": "abc.def",
		"expired":   testkit.Token(farmer, -time.Hour),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := localstore.NewMemoryStore()
			require.NoError(t, st.Set(ctx, auth.TokenKey, []byte(token)))

			s := auth.NewSession(st, nil)
			assert.True(t, s.Restore(ctx).Anonymous())
			assert.Empty(t, s.Token())

			_, err := st.Get(ctx, auth.TokenKey)
			assert.ErrorIs(t, err, localstore.ErrNotFound)
		})
	}
}

func TestRestoreWithNothingStored(t *testing.T) {
	s := auth.NewSession(localstore.NewMemoryStore(), nil)
	assert.True(t, s.Restore(context.Background()).Anonymous())
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	st := localstore.NewMemoryStore()
	s := auth.NewSession(st, nil)
	_, err := s.Login(ctx, testkit.Token(farmer, time.Hour))
	require.NoError(t, err)

	var last *auth.Identity
	s.Subscribe(func(id auth.Identity) { last = &id })
	s.Logout(ctx)

	assert.True(t, s.Identity().Anonymous())
	assert.Empty(t, s.Token())
	require.NotNil(t, last)
	assert.True(t, last.Anonymous())

	_, err = st.Get(ctx, auth.TokenKey)
	assert.ErrorIs(t, err, localstore.ErrNotFound)
}
