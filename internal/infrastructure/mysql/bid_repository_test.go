package mysql

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"bidding-app/internal/domain"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ domain.BidRepository = (*MySQLBidRepository)(nil)

// openTestDB connects to the database named by MYSQL_DSN, skipping the test
// when it is not set. The DSN must include parseTime=true.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		t.Skip("MYSQL_DSN not set")
	}
	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, db.PingContext(ctx))
	return db
}

func TestMySQLBidRepository_Integration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewMySQLBidRepository(db)
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx))

	// A product id no other run uses.
	productID := int(time.Now().UnixNano() % 1_000_000_000)
	t.Cleanup(func() {
		_, _ = db.Exec("DELETE FROM bid_events WHERE product_id = ?", productID)
	})

	base := time.Now().UTC().Truncate(time.Millisecond)
	first := &domain.BidEvent{ID: uuid.NewString(), Type: domain.BidPlaced, ProductID: productID, Title: "Lamp", Amount: 10.5, PlacedAt: base}
	second := &domain.BidEvent{ID: uuid.NewString(), Type: domain.BidPlaced, ProductID: productID, Title: "Lamp", Amount: 12, PlacedAt: base.Add(time.Second)}
	require.NoError(t, repo.SaveBidEvent(ctx, second))
	require.NoError(t, repo.SaveBidEvent(ctx, first))

	history, err := repo.GetBidHistory(ctx, productID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, first.ID, history[0].ID)
	assert.Equal(t, second.ID, history[1].ID)
	assert.InDelta(t, 10.5, history[0].Amount, 1e-9)
	assert.Equal(t, domain.BidPlaced, history[0].Type)

	empty, err := repo.GetBidHistory(ctx, productID+1)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
