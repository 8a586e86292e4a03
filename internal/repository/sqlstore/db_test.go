package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/repository"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/repository/repotest"
)

func TestSQLiteStore(t *testing.T) {
	repotest.Run(t, func(t *testing.T) *repository.Store {
		db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "cards.db"), nil)
		require.NoError(t, err)
		return db.Store()
	})
}

// Runs only when a database is provided, e.g.
// PAICARD_TEST_POSTGRES=postgres://localhost/paicard_test?sslmode=disable
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("PAICARD_TEST_POSTGRES")
	if dsn == "" {
		t.Skip("PAICARD_TEST_POSTGRES not set")
	}
	repotest.Run(t, func(t *testing.T) *repository.Store {
		db, err := OpenPostgres(context.Background(), dsn, DefaultPoolConfig(), nil)
		require.NoError(t, err)
		for _, table := range []string{"cards", "packs", "settings"} {
			_, err := db.SQL().Exec("DELETE FROM " + table)
			require.NoError(t, err)
		}
		return db.Store()
	})
}

func TestRebind(t *testing.T) {
	pg := &DB{dialect: DialectPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))
	lite := &DB{dialect: DialectSQLite}
	assert.Equal(t, "x = ?", lite.rebind("x = ?"))
}

func TestSQLiteStore_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.db")
	first, err := OpenSQLite(context.Background(), path, nil)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := OpenSQLite(context.Background(), path, nil)
	require.NoError(t, err)
	defer second.Close()
	assert.Equal(t, DialectSQLite, second.Dialect())
}
