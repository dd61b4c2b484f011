package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/furniro/storefront/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add wishlist index", "add_wishlist_index"},
		{"Add-Wishlist-Index", "add_wishlist_index"},
		{"ADD_WISHLIST_INDEX", "add_wishlist_index"},
		{"add__wishlist__index", "add_wishlist_index"},
		{"Blobs v2", "blobs_v2"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	mf, err := CreateMigration(dir, "add wishlist index", "Index wishlist keys by device")
	require.NoError(t, err)
	assert.Equal(t, "000001", mf.Version)
	assert.Equal(t, filepath.Join(dir, "000001_add_wishlist_index.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "000001_add_wishlist_index.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "add wishlist index")
	assert.Contains(t, string(up), "Index wishlist keys by device")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback")

	next, err := CreateMigration(dir, "second", "")
	require.NoError(t, err)
	assert.Equal(t, "000002", next.Version)
}

func TestCreateMigration_ContinuesAfterHighestVersion(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"000007_old.up.sql", "000007_old.down.sql", "000003_older.up.sql"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("--"), 0644))
	}

	mf, err := CreateMigration(dir, "newer", "")
	require.NoError(t, err)
	assert.Equal(t, "000008", mf.Version)
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "migrations")

	_, err := CreateMigration(nested, "test", "test migration")
	require.NoError(t, err)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_add_index.up.sql":               {Data: []byte("--")},
		"000002_add_index.down.sql":             {Data: []byte("--")},
		"000001_create_collection_blobs.up.sql": {Data: []byte("--")},
		"000003_no_rollback.up.sql":             {Data: []byte("--")},
		"README.md":                             {Data: []byte("docs")},
		"config.yaml":                           {Data: []byte("x: 1")},
		"subdir.up.sql/keep":                    {Data: []byte("")},
	}

	got, err := ListMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "000001_create_collection_blobs", got[0].String())
	assert.False(t, got[0].HasDown)
	assert.Equal(t, uint(2), got[1].Version)
	assert.True(t, got[1].HasDown)
	assert.Equal(t, "no_rollback", got[2].Name)
}

func TestListMigrations_EmptyAndMissing(t *testing.T) {
	got, err := ListMigrations(fstest.MapFS{})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = ListMigrations(os.DirFS("/nonexistent/path/to/migrations"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, got)

	assert.Equal(t, "000001_create_collection_blobs", got[0].String())
	for _, m := range got {
		assert.True(t, m.HasDown, "%s has no rollback", m)
	}
}

func TestSourceString(t *testing.T) {
	assert.Equal(t, "file:///srv/migrations", FromDir("/srv/migrations").String())
	assert.Equal(t, "embedded:.", FromFS(migrations.FS, "").String())
}

func TestMigrateLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	l := migrateLogger{zap.New(core).Sugar()}

	assert.True(t, l.Verbose())
	l.Printf("Start buffering %d/u %s\n", 1, "create_collection_blobs")
	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "Start buffering 1/u create_collection_blobs", recorded.All()[0].Message)

	quiet, _ := observer.New(zapcore.InfoLevel)
	assert.False(t, migrateLogger{zap.New(quiet).Sugar()}.Verbose())
}
