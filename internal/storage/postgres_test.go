package storage

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// flexibleSQLMatcher builds a whitespace-insensitive regex for mock SQL
// expectations.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

func newTestStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	mockPool.ExpectPing().WillReturnError(nil)
	mockPool.ExpectExec(flexibleSQLMatcher(sqlEnsureBlobs)).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	store, err := NewPostgresStore(context.Background(), mockPool, zap.NewNop())
	require.NoError(t, err)
	return store, mockPool
}

func TestNewPostgresStore(t *testing.T) {
	t.Run("propagates ping failure", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockPool.Close()

		pingErr := errors.New("database unavailable")
		mockPool.ExpectPing().WillReturnError(pingErr)

		_, err = NewPostgresStore(context.Background(), mockPool, zap.NewNop())
		require.ErrorIs(t, err, pingErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("creates the blobs table", func(t *testing.T) {
		_, mockPool := newTestStore(t)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresStorePut(t *testing.T) {
	ctx := context.Background()
	store, mockPool := newTestStore(t)

	mockPool.ExpectExec(flexibleSQLMatcher(`INSERT INTO blobs`)).
		WithArgs("session/abc", []byte("payload")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Put(ctx, "session/abc", []byte("payload")))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresStoreGet(t *testing.T) {
	ctx := context.Background()

	t.Run("returns stored bytes", func(t *testing.T) {
		store, mockPool := newTestStore(t)

		mockPool.ExpectQuery(flexibleSQLMatcher(`SELECT data FROM blobs WHERE key = $1`)).
			WithArgs("profile/p1").
			WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow([]byte("blob")))

		data, err := store.Get(ctx, "profile/p1")
		require.NoError(t, err)
		assert.Equal(t, []byte("blob"), data)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("maps no rows to ErrNotFound", func(t *testing.T) {
		store, mockPool := newTestStore(t)

		mockPool.ExpectQuery(flexibleSQLMatcher(`SELECT data FROM blobs WHERE key = $1`)).
			WithArgs("profile/missing").
			WillReturnRows(pgxmock.NewRows([]string{"data"}))

		_, err := store.Get(ctx, "profile/missing")
		require.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresStoreDelete(t *testing.T) {
	ctx := context.Background()
	store, mockPool := newTestStore(t)

	mockPool.ExpectExec(flexibleSQLMatcher(`DELETE FROM blobs WHERE key = $1`)).
		WithArgs("session/gone").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, store.Delete(ctx, "session/gone"))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresStoreList(t *testing.T) {
	ctx := context.Background()
	store, mockPool := newTestStore(t)

	mockPool.ExpectQuery(flexibleSQLMatcher(`SELECT key FROM blobs WHERE key LIKE $1 || '%' ORDER BY key`)).
		WithArgs("session/").
		WillReturnRows(pgxmock.NewRows([]string{"key"}).
			AddRow("session/a").
			AddRow("session/b"))

	keys, err := store.List(ctx, "session/")
	require.NoError(t, err)
	assert.Equal(t, []string{"session/a", "session/b"}, keys)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
