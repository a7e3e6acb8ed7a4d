//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpulse/lib-core/eventstore"
	"github.com/stockpulse/lib-core/log"
)

// openTestDB connects to the database named by STOCKPULSE_TEST_DSN and
// ensures the stock_events schema exists. Tests are skipped when the variable
// is unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("STOCKPULSE_TEST_DSN")
	if dsn == "" {
		t.Skip("STOCKPULSE_TEST_DSN not set; skipping postgres integration tests")
	}

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	schema, err := os.ReadFile("migrations/000001_create_stock_events.up.sql")
	require.NoError(t, err)

	_, err = db.ExecContext(context.Background(), string(schema))
	require.NoError(t, err)

	_, err = db.ExecContext(context.Background(), "TRUNCATE stock_events")
	require.NoError(t, err)

	return db
}

func TestRepository_AppendLoadRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	repo, err := NewRepository(db, log.NewNop())
	require.NoError(t, err)

	first, err := repo.Append(ctx, "AAPL", "PriceUpdated", []byte(`{"price":150}`), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Version)

	second, err := repo.Append(ctx, "AAPL", "PriceUpdated", []byte(`{"price":151}`), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Version)

	records, err := repo.Load(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(1), records[0].Version)
	assert.Equal(t, int64(2), records[1].Version)
	assert.JSONEq(t, `{"price":151}`, string(records[1].Payload))

	head, err := repo.CurrentVersion(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(2), head)
}

func TestRepository_StaleWriterRejected(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	repo, err := NewRepository(db, log.NewNop())
	require.NoError(t, err)

	_, err = repo.Append(ctx, "TSLA", "PriceUpdated", []byte(`{"price":200}`), 0)
	require.NoError(t, err)

	_, err = repo.Append(ctx, "TSLA", "PriceUpdated", []byte(`{"price":201}`), 0)
	require.Error(t, err)
	assert.True(t, eventstore.IsVersionConflict(err))
}

func TestRepository_ConcurrentAppendsSingleWinner(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	repo, err := NewRepository(db, log.NewNop())
	require.NoError(t, err)

	var wg sync.WaitGroup

	results := make([]error, 10)

	for i := range results {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			payload := fmt.Sprintf(`{"writer":%d}`, n)
			_, err := repo.Append(ctx, "NVDA", "PriceUpdated", []byte(payload), 0)
			results[n] = err
		}(i)
	}

	wg.Wait()

	winners := 0

	for _, err := range results {
		if err == nil {
			winners++
		} else {
			assert.True(t, eventstore.IsVersionConflict(err))
		}
	}

	assert.Equal(t, 1, winners)
}
