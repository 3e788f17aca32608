package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"bidding-app/internal/domain"
	"bidding-app/internal/services"
	"bidding-app/pkg/logger"

	"github.com/labstack/echo/v4"
)

const bidAcceptedMessage = "Bid placed successfully."

type ProductOfferHandler struct {
	bidService *services.BidService
	log        logger.Logger
}

func NewProductOfferHandler(bidService *services.BidService, log logger.Logger) *ProductOfferHandler {
	return &ProductOfferHandler{
		bidService: bidService,
		log:        log,
	}
}

func (h *ProductOfferHandler) GetProducts(c echo.Context) error {
	products, err := h.bidService.ListProducts(c.Request().Context())
	if err != nil {
		h.log.Error("Failed to list products", "error", err)
		return c.String(http.StatusInternalServerError, "Failed to load products.")
	}
	return c.JSON(http.StatusOK, products)
}

func (h *ProductOfferHandler) PlaceBid(c echo.Context) error {
	h.log.Info("PlaceBid endpoint called",
		"remote_addr", c.RealIP(),
		"user_agent", c.Request().UserAgent())

	var req domain.PlaceBidRequest
	if err := c.Bind(&req); err != nil {
		h.log.Error("Failed to bind request", "error", err)
		return c.String(http.StatusBadRequest, "Invalid request body.")
	}

	// Validation
	if req.ProductID <= 0 {
		return c.String(http.StatusBadRequest, "A product must be selected.")
	}
	if strings.TrimSpace(req.BidAmount) == "" {
		return c.String(http.StatusBadRequest, "A bid amount is required.")
	}

	_, err := h.bidService.PlaceBid(c.Request().Context(), req)
	switch {
	case err == nil:
		return c.String(http.StatusOK, bidAcceptedMessage)
	case errors.Is(err, domain.ErrProductNotFound):
		return c.String(http.StatusNotFound, "Product not found.")
	case errors.Is(err, domain.ErrInvalidAmount):
		return c.String(http.StatusBadRequest, "Invalid bid amount.")
	case errors.Is(err, domain.ErrBidTooLow):
		return c.String(http.StatusBadRequest, bidTooLowMessage(err))
	case errors.Is(err, domain.ErrBidConflict):
		return c.String(http.StatusConflict, "Another bid was placed at the same time. Please try again.")
	default:
		h.log.Error("Failed to place bid", "product_id", req.ProductID, "error", err)
		return c.String(http.StatusInternalServerError, "Failed to place bid.")
	}
}

func (h *ProductOfferHandler) GetBidHistory(c echo.Context) error {
	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil || productID <= 0 {
		return c.String(http.StatusBadRequest, "Invalid product id.")
	}

	history, err := h.bidService.BidHistory(c.Request().Context(), productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return c.String(http.StatusNotFound, "Product not found.")
		}
		h.log.Error("Failed to load bid history", "product_id", productID, "error", err)
		return c.String(http.StatusInternalServerError, "Failed to load bid history.")
	}
	return c.JSON(http.StatusOK, history)
}

// bidTooLowMessage turns "bid too low: bid must be at least $X" into
// "Bid must be at least $X."
func bidTooLowMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), domain.ErrBidTooLow.Error()+": ")
	if msg == "" {
		return "Bid is too low."
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}
