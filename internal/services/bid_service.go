package services

import (
	"bidding-app/internal/domain"
	"bidding-app/pkg/logger"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// maxBidAttempts bounds the compare-and-set loop when bids on the same
// product race each other.
const maxBidAttempts = 3

type BidService struct {
	catalog   domain.CatalogRepository
	bids      domain.BidRepository
	publisher domain.EventPublisher
	validator domain.BidValidator
	now       func() time.Time
	log       logger.Logger
}

func NewBidService(
	catalog domain.CatalogRepository,
	bids domain.BidRepository,
	publisher domain.EventPublisher,
	validator domain.BidValidator,
	log logger.Logger,
) *BidService {
	return &BidService{
		catalog:   catalog,
		bids:      bids,
		publisher: publisher,
		validator: validator,
		now:       time.Now,
		log:       log,
	}
}

func (s *BidService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.catalog.ListProducts(ctx)
}

func (s *BidService) BidHistory(ctx context.Context, productID int) ([]*domain.BidEvent, error) {
	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.bids.GetBidHistory(ctx, productID)
}

// PlaceBid validates and records a bid. Once the catalog has been updated the
// bid counts as accepted; failures to persist history or publish the event
// are logged and do not undo it.
func (s *BidService) PlaceBid(ctx context.Context, req domain.PlaceBidRequest) (*domain.BidEvent, error) {
	s.log.Info("Placing bid", "product_id", req.ProductID, "bid_amount", req.BidAmount)

	amount, err := domain.ParseAmount(req.BidAmount)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxBidAttempts; attempt++ {
		product, err := s.catalog.GetProduct(ctx, req.ProductID)
		if err != nil {
			return nil, err
		}

		current := s.currentAmount(product)
		if !s.validator.ValidateIncrement(current, amount) {
			return nil, fmt.Errorf("%w: bid must be at least %s",
				domain.ErrBidTooLow, domain.FormatAmount(s.validator.GetMinimumBid(current)))
		}

		accepted, err := s.catalog.CompareAndSetBid(ctx, product.ID, product.CurrentBid, domain.FormatAmount(amount))
		if err != nil {
			return nil, err
		}
		if !accepted {
			s.log.Debug("Bid lost a race, retrying", "product_id", product.ID, "attempt", attempt)
			continue
		}

		event := &domain.BidEvent{
			ID:        uuid.NewString(),
			Type:      domain.BidPlaced,
			ProductID: product.ID,
			Title:     product.Title,
			Amount:    amount,
			PlacedAt:  s.now().UTC(),
		}
		s.record(ctx, event)
		return event, nil
	}

	return nil, domain.ErrBidConflict
}

func (s *BidService) record(ctx context.Context, event *domain.BidEvent) {
	if err := s.bids.SaveBidEvent(ctx, event); err != nil {
		s.log.Error("Failed to save bid event", "event_id", event.ID, "error", err)
	}
	if err := s.publisher.PublishBidEvent(ctx, event); err != nil {
		s.log.Error("Failed to publish bid event", "event_id", event.ID, "error", err)
	}
	s.log.Info("Bid accepted", "product_id", event.ProductID, "amount", event.Amount, "event_id", event.ID)
}

// currentAmount treats an unreadable stored bid as zero so a fresh bid can
// repair it.
func (s *BidService) currentAmount(product *domain.Product) float64 {
	if product.CurrentBid == "" {
		return 0
	}
	amount, err := domain.ParseAmount(product.CurrentBid)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidAmount) {
			s.log.Warn("Unexpected error reading current bid", "product_id", product.ID, "error", err)
		}
		return 0
	}
	return amount
}
