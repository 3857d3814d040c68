package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type downDB struct{}

func (downDB) PingContext(ctx context.Context) error { return errors.New("connection refused") }

func TestHealthHandler(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		db := sqlx.NewDb(mockDB, "sqlmock")
		defer db.Close()
		mock.ExpectPing()

		router := newTestRouter()
		router.GET("/health", NewHealthHandler(db, "1.0.0").Health)

		w := perform(router, http.MethodGet, "/health", nil)

		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "1.0.0", body["version"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database down", func(t *testing.T) {
		router := newTestRouter()
		router.GET("/health", NewHealthHandler(downDB{}, "1.0.0").Health)

		w := perform(router, http.MethodGet, "/health", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "unhealthy", decode(t, w)["status"])
	})
}
