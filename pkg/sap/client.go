// Package sap is the thin HTTP client for the upstream order backend the
// mobile app used to call directly. It owns no business rules: requests are
// pass-through with the caller's bearer token, responses decode into the
// wire types, and non-2xx statuses surface as APIError for the services to
// classify.
package sap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hondusoft/fieldsales-backend/pkg/config"
)

// Client talks to the upstream order backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client from the upstream configuration.
func NewClient(cfg config.UpstreamConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("upstream base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parsing upstream base url: %w", err)
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// APIError is a non-2xx response from the upstream.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Message)
}

// NotFound reports whether the upstream rejected the request with a
// 404-class status.
func (e *APIError) NotFound() bool {
	return e != nil && e.StatusCode == http.StatusNotFound
}

// Login exchanges rep credentials for an upstream token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetQuotation fetches an order/quotation document by docEntry.
func (c *Client) GetQuotation(ctx context.Context, token string, docEntry int) (*Order, error) {
	var out Order
	path := fmt.Sprintf("/sap/quotations/%d", docEntry)
	if err := c.do(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrder submits a new order.
func (c *Client) CreateOrder(ctx context.Context, token string, input OrderInput) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodPost, "/sap/orders", token, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateQuotation patches an existing quotation with the replacement lines.
func (c *Client) UpdateQuotation(ctx context.Context, token string, docEntry int, input OrderInput) (*Order, error) {
	var out Order
	path := fmt.Sprintf("/sap/quotations/%d", docEntry)
	if err := c.do(ctx, http.MethodPatch, path, token, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateIncomingPayment records an invoice collection.
func (c *Client) CreateIncomingPayment(ctx context.Context, token string, input IncomingPaymentInput) (*IncomingPayment, error) {
	var out IncomingPayment
	if err := c.do(ctx, http.MethodPost, "/sap/payments/incoming", token, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProductDiscounts fetches one page of the catalog with tier data.
func (c *Client) ListProductDiscounts(ctx context.Context, token string, query ProductQuery) (*ProductPage, error) {
	params := url.Values{}
	params.Set("groupCode", strconv.Itoa(query.GroupCode))
	if query.PriceListNum != "" {
		params.Set("priceList", query.PriceListNum)
	}
	if query.Page > 0 {
		params.Set("page", strconv.Itoa(query.Page))
	}
	if query.PageSize > 0 {
		params.Set("pageSize", strconv.Itoa(query.PageSize))
	}

	var out ProductPage
	path := "/sap/products/discounts?" + params.Encode()
	if err := c.do(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling upstream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if dest == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decoding upstream response: %w", err)
	}
	return nil
}

func readErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(raw))
}
