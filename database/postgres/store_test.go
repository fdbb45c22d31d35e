package postgres

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"conference-webapp/database"
	"conference-webapp/database/storetest"
)

// TestStore runs the shared suite against TEST_DATABASE_URL. Every table is truncated between subtests.
func TestStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	storetest.Run(t, func(t *testing.T) database.Store {
		ctx := context.Background()
		store, err := Open(ctx, dsn, logger)
		require.NoError(t, err)
		_, err = store.pool.Exec(ctx, `TRUNCATE feedback, registrations, sessions, proposals, users`)
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = store.Close()
		})
		return store
	})
}
