package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"meddispense/m/domain"
	"meddispense/m/internal/config"
	"meddispense/m/internal/events"
	"meddispense/m/internal/inventory"
	"meddispense/m/internal/storage"
)

const seedCSV = "id,name,category,price,stock,image\nA,Aspirin,Pain Relief,1.5,3,https://img/a.png\n"

func TestLoadCatalog_SeedsEmptyStore(t *testing.T) {
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seed.csv")
	require.NoError(t, os.WriteFile(seedPath, []byte(seedCSV), 0o644))
	gw := storage.NewFileGateway(filepath.Join(dir, "medicines.json"))

	catalog, err := loadCatalog(context.Background(), gw, seedPath, zap.NewNop())

	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.Equal(t, "A", catalog[0].ID)

	persisted, err := gw.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, catalog, persisted)
}

func TestLoadCatalog_ExistingCatalogWins(t *testing.T) {
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seed.csv")
	require.NoError(t, os.WriteFile(seedPath, []byte(seedCSV), 0o644))
	gw := storage.NewFileGateway(filepath.Join(dir, "medicines.json"))
	existing := []domain.Medicine{{ID: "Z", Name: "Zinc", Category: "Supplements", Price: 1, Stock: 2, Image: "i"}}
	require.NoError(t, gw.Save(context.Background(), existing))

	catalog, err := loadCatalog(context.Background(), gw, seedPath, zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, existing, catalog)
}

func TestLoadCatalog_DeletedRecordsStayDeleted(t *testing.T) {
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seed.csv")
	require.NoError(t, os.WriteFile(seedPath, []byte(seedCSV), 0o644))
	gw := storage.NewFileGateway(filepath.Join(dir, "medicines.json"))

	catalog, err := loadCatalog(context.Background(), gw, seedPath, zap.NewNop())
	require.NoError(t, err)
	store, err := inventory.New(catalog, gw, nil, zap.NewNop())
	require.NoError(t, err)
	res, err := store.Upsert(context.Background(), inventory.UpsertRequest{ID: "A", Quantity: 0})
	require.NoError(t, err)
	require.Equal(t, inventory.Deleted, res.Status)

	reloaded, err := loadCatalog(context.Background(), gw, seedPath, zap.NewNop())

	require.NoError(t, err)
	assert.Empty(t, reloaded)
}

func TestLoadCatalog_NoSeedFile(t *testing.T) {
	dir := t.TempDir()
	gw := storage.NewFileGateway(filepath.Join(dir, "medicines.json"))

	catalog, err := loadCatalog(context.Background(), gw, filepath.Join(dir, "missing.csv"), zap.NewNop())

	require.NoError(t, err)
	assert.Empty(t, catalog)
}

func TestOpenGateway_SQLite(t *testing.T) {
	cfg := config.Config{StorageDriver: config.DriverSQLite, DatabaseDSN: filepath.Join(t.TempDir(), "catalog.db")}

	gw, closeFn, err := openGateway(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer closeFn()

	_, ok := gw.(*storage.SQLGateway)
	assert.True(t, ok)
	_, err = gw.Load(context.Background())
	assert.ErrorIs(t, err, storage.ErrNotExist)
}

func TestOpenPublisher_DisabledWithoutBrokers(t *testing.T) {
	pub := openPublisher(config.Config{}, zap.NewNop())

	assert.IsType(t, events.NopPublisher{}, pub)
}
