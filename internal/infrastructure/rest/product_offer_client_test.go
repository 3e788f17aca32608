package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"bidding-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ domain.CatalogAPI = (*ProductOfferClient)(nil)

func TestGetProducts_PreservesServerOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, getProductsPath, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[
			{"id":3,"title":"Mid-Century Armchair","currentBid":"$75.50"},
			{"id":1,"title":"Vintage Pocket Watch","currentBid":"$120.00"}
		]`)
	}))
	defer srv.Close()

	client := NewProductOfferClient(srv.URL+"/", Options{Timeout: time.Second})
	products, err := client.GetProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Product{
		{ID: 3, Title: "Mid-Century Armchair", CurrentBid: "$75.50"},
		{ID: 1, Title: "Vintage Pocket Watch", CurrentBid: "$120.00"},
	}, products)
}

func TestGetProducts_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database unavailable", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewProductOfferClient(srv.URL, Options{Timeout: time.Second})
	_, err := client.GetProducts(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "database unavailable", apiErr.Message)
}

func TestGetProducts_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"not":"a list"}`)
	}))
	defer srv.Close()

	client := NewProductOfferClient(srv.URL, Options{Timeout: time.Second})
	_, err := client.GetProducts(context.Background())
	assert.Error(t, err)
}

func TestPlaceBid_SendsOneRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, placeBidPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]interface{}{"productId": float64(1), "bidAmount": "$150"}, body)

		_, _ = io.WriteString(w, "Bid placed successfully.")
	}))
	defer srv.Close()

	client := NewProductOfferClient(srv.URL, Options{Timeout: time.Second})
	response, err := client.PlaceBid(context.Background(), domain.PlaceBidRequest{ProductID: 1, BidAmount: "$150"})
	require.NoError(t, err)
	assert.Equal(t, "Bid placed successfully.", response)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPlaceBid_JSONStringResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `"Bid placed successfully."`)
	}))
	defer srv.Close()

	client := NewProductOfferClient(srv.URL, Options{Timeout: time.Second})
	response, err := client.PlaceBid(context.Background(), domain.PlaceBidRequest{ProductID: 1, BidAmount: "$150"})
	require.NoError(t, err)
	assert.Equal(t, "Bid placed successfully.", response)
}

func TestPlaceBid_ServerMessage(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
		hasMsg bool
	}{
		{"plain text", http.StatusBadRequest, "Bid must be at least $120.01.", "Bid must be at least $120.01.", true},
		{"json string", http.StatusBadRequest, `"Bid too low"`, "Bid too low", true},
		{"problem details", http.StatusBadRequest, `{"title":"One or more validation errors occurred."}`, "One or more validation errors occurred.", true},
		{"error field", http.StatusConflict, `{"error":"conflict"}`, "conflict", true},
		{"empty body", http.StatusBadGateway, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			client := NewProductOfferClient(srv.URL, Options{Timeout: time.Second})
			_, err := client.PlaceBid(context.Background(), domain.PlaceBidRequest{ProductID: 1, BidAmount: "$1"})
			require.Error(t, err)

			msg, ok := ServerMessage(err)
			assert.Equal(t, tt.hasMsg, ok)
			assert.Equal(t, tt.want, msg)
		})
	}
}

func TestPlaceBid_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewProductOfferClient(url, Options{Timeout: time.Second})
	_, err := client.PlaceBid(context.Background(), domain.PlaceBidRequest{ProductID: 1, BidAmount: "$1"})
	require.Error(t, err)

	_, ok := ServerMessage(err)
	assert.False(t, ok)
}

func TestPlaceBid_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewProductOfferClient(srv.URL, Options{Timeout: time.Second})
	_, err := client.PlaceBid(ctx, domain.PlaceBidRequest{ProductID: 1, BidAmount: "$1"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAPIErrorMessage(t *testing.T) {
	assert.Equal(t, "api returned status 500", (&APIError{StatusCode: 500}).Error())
	assert.Equal(t, "api returned status 400: nope", (&APIError{StatusCode: 400, Message: "nope"}).Error())
}
