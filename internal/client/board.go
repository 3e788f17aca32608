// Package client holds the bidding client's view state and the services the
// terminal UI drives.
package client

import (
	"strings"

	"bidding-app/internal/domain"
)

// Board is the client's view state: the catalog, the selected product, the
// pending bid input and the notification log. The selection is kept as a
// product ID so the selected product is always read from the catalog.
//
// A Board is not safe for concurrent use; the UI mutates it from its update
// loop only.
type Board struct {
	products      []domain.Product
	selectedID    int
	hasSelection  bool
	bidInput      string
	notifications []string
}

func NewBoard() *Board {
	return &Board{}
}

// Products returns the catalog in server order.
func (b *Board) Products() []domain.Product {
	return append([]domain.Product(nil), b.products...)
}

// ReplaceCatalog swaps in a freshly fetched catalog. A selection whose
// product is no longer listed is cleared.
func (b *Board) ReplaceCatalog(products []domain.Product) {
	b.products = append([]domain.Product(nil), products...)
	if b.hasSelection && b.indexOf(b.selectedID) < 0 {
		b.ClearSelection()
	}
}

func (b *Board) Select(productID int) error {
	if b.indexOf(productID) < 0 {
		return domain.ErrProductNotFound
	}
	b.selectedID = productID
	b.hasSelection = true
	return nil
}

func (b *Board) ClearSelection() {
	b.selectedID = 0
	b.hasSelection = false
}

func (b *Board) Selected() (domain.Product, bool) {
	if !b.hasSelection {
		return domain.Product{}, false
	}
	idx := b.indexOf(b.selectedID)
	if idx < 0 {
		return domain.Product{}, false
	}
	return b.products[idx], true
}

func (b *Board) IsSelected(productID int) bool {
	return b.hasSelection && b.selectedID == productID
}

func (b *Board) SetBidInput(value string) {
	b.bidInput = value
}

func (b *Board) BidInput() string {
	return b.bidInput
}

// PrepareBid checks that a product is selected and the bid is not blank, and
// builds the request to send.
func (b *Board) PrepareBid() (domain.PlaceBidRequest, error) {
	product, ok := b.Selected()
	if !ok {
		return domain.PlaceBidRequest{}, domain.ErrNoSelection
	}
	if strings.TrimSpace(b.bidInput) == "" {
		return domain.PlaceBidRequest{}, domain.ErrBlankBid
	}
	return domain.PlaceBidRequest{
		ProductID: product.ID,
		BidAmount: domain.FormatBid(b.bidInput),
	}, nil
}

// ApplyBid records an accepted bid on the matching catalog entry and clears
// the input.
func (b *Board) ApplyBid(productID int, bidAmount string) {
	if idx := b.indexOf(productID); idx >= 0 {
		b.products[idx].CurrentBid = bidAmount
	}
	b.bidInput = ""
}

func (b *Board) AppendNotification(message string) {
	b.notifications = append(b.notifications, message)
}

func (b *Board) Notifications() []string {
	return append([]string(nil), b.notifications...)
}

func (b *Board) indexOf(productID int) int {
	for i, p := range b.products {
		if p.ID == productID {
			return i
		}
	}
	return -1
}
