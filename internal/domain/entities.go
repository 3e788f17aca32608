package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Product is one catalog entry as it travels over the product offer API.
type Product struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	CurrentBid string `json:"currentBid"`
}

// PlaceBidRequest is the body of the bid submission endpoint.
type PlaceBidRequest struct {
	ProductID int    `json:"productId"`
	BidAmount string `json:"bidAmount"`
}

type BidEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	ProductID int       `json:"productId"`
	Title     string    `json:"title"`
	Amount    float64   `json:"amount"`
	PlacedAt  time.Time `json:"placedAt"`
}

type EventType string

const (
	BidPlaced EventType = "bid_placed"
)

// Notification renders the text pushed to hub clients for an accepted bid.
func (e *BidEvent) Notification() string {
	return fmt.Sprintf("New bid of %s placed on %s", FormatAmount(e.Amount), e.Title)
}

var (
	ErrNoSelection     = errors.New("no product selected")
	ErrBlankBid        = errors.New("bid amount is blank")
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidAmount   = errors.New("invalid bid amount")
	ErrBidTooLow       = errors.New("bid too low")
	ErrBidConflict     = errors.New("bid conflicted with a concurrent bid")
)

// FormatBid prefixes the raw bid input with the currency sign. The input is
// trimmed but otherwise passed through untouched.
func FormatBid(raw string) string {
	return "$" + strings.TrimSpace(raw)
}

// FormatAmount renders a numeric amount the way the catalog stores it.
func FormatAmount(amount float64) string {
	return "$" + strconv.FormatFloat(amount, 'f', 2, 64)
}

// MaxAmount is the largest bid accepted. It keeps amounts well inside the
// range where whole-cent arithmetic on int64 is exact.
const MaxAmount = 1e12

// ParseAmount accepts "$1,250.50", "1250.5" and similar forms.
func ParseAmount(s string) (float64, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, fmt.Errorf("%w: %q must be positive", ErrInvalidAmount, s)
	}
	if amount > MaxAmount {
		return 0, fmt.Errorf("%w: %q exceeds %s", ErrInvalidAmount, s, FormatAmount(MaxAmount))
	}
	return amount, nil
}
