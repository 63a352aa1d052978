package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"itemcatalog/internal/config"
	"itemcatalog/internal/database"
	"itemcatalog/internal/models"
	"itemcatalog/internal/session"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := openDatabase(context.Background(), &config.Config{
		DatabaseDriver: database.DriverSQLite,
		DatabaseURL:    ":memory:",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	books, err := database.CreateCategory(context.Background(), db, "Books", "Paper")
	require.NoError(t, err)
	_, err = database.CreateItem(context.Background(), db, "Dune", books.ID, "Herbert")
	require.NoError(t, err)
	return db
}

func TestExportToStdout(t *testing.T) {
	db := setupTestDB(t)

	var out bytes.Buffer
	err := runExport(context.Background(), &config.Config{}, db, &exportOptions{format: "yaml", output: "-"}, &out)
	require.NoError(t, err)

	var catalog models.Catalog
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &catalog))
	require.Len(t, catalog.Categories, 1)
	assert.Equal(t, "Books", catalog.Categories[0].Name)
	require.Len(t, catalog.Categories[0].Items, 1)
	assert.Equal(t, "Herbert", catalog.Categories[0].Items[0].Description)
}

func TestExportToFile(t *testing.T) {
	db := setupTestDB(t)
	path := filepath.Join(t.TempDir(), "catalog.json")

	var out bytes.Buffer
	err := runExport(context.Background(), &config.Config{}, db, &exportOptions{format: "json", output: path}, &out)
	require.NoError(t, err)
	assert.Empty(t, out.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var catalog models.Catalog
	require.NoError(t, json.Unmarshal(data, &catalog))
	assert.Equal(t, "Dune", catalog.Categories[0].Items[0].Name)
}

func TestExportFailures(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := runExport(ctx, &config.Config{}, db, &exportOptions{format: "xml", output: "-"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "unknown export format")

	err = runExport(ctx, &config.Config{}, db, &exportOptions{format: "json", output: "-", mailTo: "bob@example.com"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "mailgun is not configured")

	err = runExport(ctx, &config.Config{}, db, &exportOptions{format: "json", output: "-", upload: true}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestMigrateAndExportCommands(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("database_url: "+filepath.Join(dir, "catalog.db")+"\n"), 0o600))

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"--config", configFile, "migrate"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Database is up to date")

	out.Reset()
	root = NewRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"--config", configFile, "export", "--format", "json"})
	require.NoError(t, root.Execute())

	var catalog models.Catalog
	require.NoError(t, json.Unmarshal(out.Bytes(), &catalog))
	assert.Empty(t, catalog.Categories)
}

func TestBadConfigFileFailsEveryCommand(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "migrate"})
	assert.Error(t, root.Execute())
}

func TestNewProvider(t *testing.T) {
	p, err := newProvider(&config.Config{GoogleClientID: "explicit", GoogleClientSecret: "s"})
	require.NoError(t, err)
	assert.Equal(t, "explicit", p.ClientID())

	secrets := filepath.Join(t.TempDir(), "client_secrets.json")
	require.NoError(t, os.WriteFile(secrets, []byte(`{"web":{"client_id":"from-file","client_secret":"s"}}`), 0o600))

	p, err = newProvider(&config.Config{GoogleClientSecretsFile: secrets})
	require.NoError(t, err)
	assert.Equal(t, "from-file", p.ClientID())

	_, err = newProvider(&config.Config{GoogleClientSecretsFile: filepath.Join(t.TempDir(), "nope.json")})
	assert.ErrorContains(t, err, "google sign-in is not configured")
}

func TestNewSessionStoreDefaultsToCookies(t *testing.T) {
	store, closeStore, err := newSessionStore(context.Background(), &config.Config{
		SessionBackend:  "cookie",
		SecretKey:       "secret",
		SessionDuration: time.Hour,
	})
	require.NoError(t, err)
	assert.IsType(t, &session.CookieStore{}, store)
	assert.NoError(t, closeStore())
}

func TestNewSessionStoreClosesRedisClient(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	store, closeStore, err := newSessionStore(context.Background(), &config.Config{
		SessionBackend:  "redis",
		RedisAddr:       addr,
		SessionDuration: time.Hour,
	})
	require.NoError(t, err)
	assert.IsType(t, &session.RedisStore{}, store)
	require.NoError(t, closeStore())
	assert.Error(t, closeStore(), "client is already closed")
}

type fakeArchive struct {
	objects map[string][]byte
}

func (f *fakeArchive) Download(_ context.Context, key string) ([]byte, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func (f *fakeArchive) Remove(_ context.Context, key string) error {
	if _, ok := f.objects[key]; !ok {
		return errors.New("no such key")
	}
	delete(f.objects, key)
	return nil
}

func TestArchiveGetAndRemove(t *testing.T) {
	ctx := context.Background()
	store := &fakeArchive{objects: map[string][]byte{"catalog-1.json": []byte(`{"Category":[]}`)}}

	var out bytes.Buffer
	require.NoError(t, runArchiveGet(ctx, store, "catalog-1.json", "-", &out))
	assert.Equal(t, `{"Category":[]}`, out.String())

	path := filepath.Join(t.TempDir(), "copy.json")
	require.NoError(t, runArchiveGet(ctx, store, "catalog-1.json", path, &bytes.Buffer{}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"Category":[]}`, string(data))

	out.Reset()
	require.NoError(t, runArchiveRemove(ctx, store, "catalog-1.json", &out))
	assert.Contains(t, out.String(), "Removed catalog-1.json")
	assert.Empty(t, store.objects)

	assert.Error(t, runArchiveGet(ctx, store, "catalog-1.json", "-", &bytes.Buffer{}))
	assert.ErrorContains(t, runArchiveRemove(ctx, store, "catalog-1.json", &bytes.Buffer{}), "failed to remove catalog-1.json")
}

func TestArchiveCommandNeedsObjectStorage(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"--config", "", "archive", "get", "catalog-1.json"})
	assert.ErrorContains(t, root.Execute(), "object storage is not configured")
}
