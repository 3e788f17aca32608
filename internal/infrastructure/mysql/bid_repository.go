package mysql

import (
	"context"
	"database/sql"
	"time"

	"bidding-app/internal/domain"
)

const createBidEventsTable = `
    CREATE TABLE IF NOT EXISTS bid_events (
        id          CHAR(36)       NOT NULL PRIMARY KEY,
        product_id  INT            NOT NULL,
        title       VARCHAR(255)   NOT NULL,
        amount      DECIMAL(12, 2) NOT NULL,
        event_type  VARCHAR(32)    NOT NULL,
        placed_at   DATETIME(3)    NOT NULL,
        created_at  DATETIME(3)    NOT NULL,
        INDEX idx_bid_events_product (product_id, placed_at)
    )
`

type MySQLBidRepository struct {
	db *sql.DB
}

func NewMySQLBidRepository(db *sql.DB) *MySQLBidRepository {
	return &MySQLBidRepository{db: db}
}

// EnsureSchema creates the bid_events table when it does not exist yet.
func (r *MySQLBidRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, createBidEventsTable)
	return err
}

func (r *MySQLBidRepository) SaveBidEvent(ctx context.Context, event *domain.BidEvent) error {
	query := `
        INSERT INTO bid_events (id, product_id, title, amount, event_type, placed_at, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.ProductID, event.Title, event.Amount,
		string(event.Type), event.PlacedAt, time.Now())
	return err
}

func (r *MySQLBidRepository) GetBidHistory(ctx context.Context, productID int) ([]*domain.BidEvent, error) {
	query := `
        SELECT id, product_id, title, amount, event_type, placed_at
        FROM bid_events
        WHERE product_id = ? AND event_type = ?
        ORDER BY placed_at ASC
    `

	rows, err := r.db.QueryContext(ctx, query, productID, string(domain.BidPlaced))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.BidEvent
	for rows.Next() {
		var event domain.BidEvent
		var eventType string

		err := rows.Scan(&event.ID, &event.ProductID, &event.Title, &event.Amount,
			&eventType, &event.PlacedAt)
		if err != nil {
			return nil, err
		}

		event.Type = domain.EventType(eventType)
		events = append(events, &event)
	}

	return events, rows.Err()
}
