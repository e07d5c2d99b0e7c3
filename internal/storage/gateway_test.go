package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meddispense/m/domain"
	"meddispense/m/internal/database"
	"meddispense/m/internal/migrations"
)

func sampleCatalog() []domain.Medicine {
	return []domain.Medicine{
		{ID: "paracetamol", Name: "Paracetamol 500mg", Category: "Pain Relief", Price: 1.2, Stock: 40, Image: "https://img/p.png"},
		{ID: "amox", Name: "Amoxicillin", Category: "Antibiotics", Price: 7.5, Stock: 0, Image: "https://img/a.png"},
		{ID: "cetirizine", Name: "Cetirizine", Category: "Allergy", Price: 3, Stock: 12, Image: "https://img/c.png"},
	}
}

// exerciseGateway checks the behavior every backend shares: ErrNotExist
// before the first save, order-preserving round trips, full rewrites, and a
// saved empty catalog that stays distinguishable from no catalog at all.
func exerciseGateway(t *testing.T, gw Gateway) {
	t.Helper()
	ctx := context.Background()

	missing, err := gw.Load(ctx)
	assert.ErrorIs(t, err, ErrNotExist)
	assert.Nil(t, missing)

	catalog := sampleCatalog()
	require.NoError(t, gw.Save(ctx, catalog))
	loaded, err := gw.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, catalog, loaded)

	shrunk := []domain.Medicine{catalog[2], catalog[0]}
	shrunk[1].Stock = 39
	require.NoError(t, gw.Save(ctx, shrunk))
	loaded, err = gw.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, shrunk, loaded)

	require.NoError(t, gw.Save(ctx, nil))
	loaded, err = gw.Load(ctx)
	require.NoError(t, err)
	assert.NotNil(t, loaded)
	assert.Empty(t, loaded)
}

func TestFileGateway(t *testing.T) {
	exerciseGateway(t, NewFileGateway(filepath.Join(t.TempDir(), "data", "medicines.json")))
}

func TestFileGateway_WritesIndentedArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medicines.json")
	gw := NewFileGateway(path)

	require.NoError(t, gw.Save(context.Background(), sampleCatalog()[:1]))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `[
  {
    "id": "paracetamol",
    "name": "Paracetamol 500mg",
    "category": "Pain Relief",
    "price": 1.2,
    "stock": 40,
    "image": "https://img/p.png"
  }
]`, string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileGateway_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medicines.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileGateway(path).Load(context.Background())

	assert.Error(t, err)
}

func TestFileGateway_SaveFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	// The parent "directory" is a regular file, so the write cannot succeed.
	err := NewFileGateway(filepath.Join(blocker, "medicines.json")).Save(context.Background(), sampleCatalog())

	assert.Error(t, err)
}

func TestSQLGateway(t *testing.T) {
	db, err := database.Connect(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(context.Background(), db))

	exerciseGateway(t, NewSQLGateway(db))
}

func TestSQLGateway_RejectsNegativeStock(t *testing.T) {
	db, err := database.Connect(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(context.Background(), db))
	gw := NewSQLGateway(db)
	require.NoError(t, gw.Save(context.Background(), sampleCatalog()))

	bad := sampleCatalog()
	bad[1].Stock = -1
	require.Error(t, gw.Save(context.Background(), bad))

	// The failed transaction leaves the previous catalog in place.
	loaded, err := gw.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sampleCatalog(), loaded)
}

func TestRedisGateway(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	key := "meddispense:test:" + t.Name()
	require.NoError(t, client.Del(context.Background(), key).Err())
	t.Cleanup(func() { client.Del(context.Background(), key) })

	exerciseGateway(t, NewRedisGateway(client, key))
}
