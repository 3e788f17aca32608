package client

import (
	"context"

	"bidding-app/internal/domain"
	"bidding-app/pkg/logger"
)

// Bidder performs the client's two API calls.
type Bidder struct {
	api domain.CatalogAPI
	log logger.Logger
}

func NewBidder(api domain.CatalogAPI, log logger.Logger) *Bidder {
	return &Bidder{api: api, log: log}
}

func (b *Bidder) FetchCatalog(ctx context.Context) ([]domain.Product, error) {
	products, err := b.api.GetProducts(ctx)
	if err != nil {
		b.log.Error("Error fetching products", "error", err)
		return nil, err
	}
	b.log.Info("Fetched products", "count", len(products))
	return products, nil
}

func (b *Bidder) PlaceBid(ctx context.Context, req domain.PlaceBidRequest) (string, error) {
	b.log.Info("Placing bid", "product_id", req.ProductID, "bid_amount", req.BidAmount)

	response, err := b.api.PlaceBid(ctx, req)
	if err != nil {
		b.log.Error("Failed to place bid", "product_id", req.ProductID, "error", err)
		return "", err
	}
	return response, nil
}
