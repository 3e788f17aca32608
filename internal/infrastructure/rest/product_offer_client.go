// Package rest is the HTTP client for the product offer API.
package rest

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bidding-app/internal/domain"
)

const (
	getProductsPath = "/api/ProductOffer/getProducts"
	placeBidPath    = "/api/ProductOffer/placeBid"

	// maxErrorBody caps how much of an error response is kept for display.
	maxErrorBody = 4 << 10
)

// APIError is a non-2xx answer from the API. Message holds the server's
// explanation when it sent one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Message)
}

// ServerMessage returns the message carried by err if it is an APIError.
func ServerMessage(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message, true
	}
	return "", false
}

type Options struct {
	Timeout            time.Duration
	InsecureSkipVerify bool
	HTTPClient         *http.Client
}

type ProductOfferClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewProductOfferClient(baseURL string, opts Options) *ProductOfferClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if opts.InsecureSkipVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		httpClient = &http.Client{Timeout: opts.Timeout, Transport: transport}
	}
	return &ProductOfferClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *ProductOfferClient) GetProducts(ctx context.Context) ([]domain.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+getProductsPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	defer resp.Body.Close()

	if !success(resp.StatusCode) {
		return nil, readAPIError(resp)
	}

	var products []domain.Product
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}

// PlaceBid posts the bid and returns the server's confirmation text.
func (c *ProductOfferClient) PlaceBid(ctx context.Context, bid domain.PlaceBidRequest) (string, error) {
	body, err := json.Marshal(bid)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+placeBidPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain, */*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("place bid: %w", err)
	}
	defer resp.Body.Close()

	if !success(resp.StatusCode) {
		return "", readAPIError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read bid response: %w", err)
	}
	return bodyText(data), nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}

func readAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{StatusCode: resp.StatusCode, Message: errorText(data)}
}

// bodyText renders a response body for display. JSON strings are unquoted;
// anything else is shown as sent.
func bodyText(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	var s string
	if len(trimmed) > 0 && trimmed[0] == '"' && json.Unmarshal(trimmed, &s) == nil {
		return s
	}
	return string(trimmed)
}

// errorText extracts a human message from an error body: plain text, a JSON
// string, or the error/message/title/detail field of a JSON object.
func errorText(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ""
	}
	if trimmed[0] == '{' {
		var payload map[string]interface{}
		if json.Unmarshal(trimmed, &payload) == nil {
			for _, key := range []string{"error", "message", "title", "detail"} {
				if s, ok := payload[key].(string); ok && s != "" {
					return s
				}
			}
		}
		return string(trimmed)
	}
	return bodyText(trimmed)
}
