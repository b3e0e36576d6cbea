package localstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shashiranjanraj/kisanbazaar/pkg/localstore"
)

// exerciseStore runs the contract every driver must satisfy.
func exerciseStore(t *testing.T, st localstore.Store) {
	t.Helper()
	ctx := context.Background()

	_, err := st.Get(ctx, "cart")
	assert.ErrorIs(t, err, localstore.ErrNotFound)

	require.NoError(t, st.Set(ctx, "cart", []byte(`[{"_id":"p1"}]`)))
	got, err := st.Get(ctx, "cart")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"_id":"p1"}]`, string(got))

	require.NoError(t, st.Set(ctx, "cart", []byte(`[]`)))
	got, err = st.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))

	require.NoError(t, st.Delete(ctx, "cart"))
	require.NoError(t, st.Delete(ctx, "cart"), "deleting an absent key is not an error")
	_, err = st.Get(ctx, "cart")
	assert.ErrorIs(t, err, localstore.ErrNotFound)

	assert.Error(t, st.Set(ctx, "", []byte("x")))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, localstore.NewMemoryStore())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	st := localstore.NewMemoryStore()
	v := []byte("abc")
	require.NoError(t, st.Set(context.Background(), "k", v))
	v[0] = 'z'

	got, err := st.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
	assert.True(t, st.Has("k"))
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	st := localstore.NewFileStore(dir)
	exerciseStore(t, st)
	assert.Equal(t, dir, st.Root())
}

func TestFileStoreWritesOneFilePerKey(t *testing.T) {
	dir := t.TempDir()
	st := localstore.NewFileStore(dir)
	require.NoError(t, st.Set(context.Background(), "token", []byte("abc")))

	data, err := os.ReadFile(filepath.Join(dir, "token.json"))
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	st := localstore.NewFileStore(t.TempDir())
	assert.Error(t, st.Set(context.Background(), "../escape", []byte("x")))
	_, err := st.Get(context.Background(), "a/b")
	assert.Error(t, err)
}

func TestSQLStoreSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "kisan.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	st, err := localstore.NewSQLStoreFromDB(db)
	require.NoError(t, err)
	exerciseStore(t, st)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("KISAN_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("KISAN_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	st := localstore.NewRedisStoreFromClient(rdb)
	defer st.Close()

	exerciseStore(t, st)
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("KISAN_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("KISAN_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer client.Disconnect(ctx)

	col := client.Database("kisan_test").Collection(t.Name())
	defer col.Drop(ctx)
	exerciseStore(t, localstore.NewMongoStoreFromCollection(col))
}

func TestOpen(t *testing.T) {
	st, err := localstore.Open(context.Background(), "memory")
	require.NoError(t, err)
	assert.IsType(t, &localstore.MemoryStore{}, st)

	_, err = localstore.Open(context.Background(), "floppy")
	assert.Error(t, err)
}
