package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"arcpay-merchant/internal/config"
	"arcpay-merchant/internal/dto"
	"arcpay-merchant/internal/model"
)

// ArcPayClient is the outbound side of the integration: order creation
// and order lookup against the ArcPay API. Calls are never retried
// here; creation is not idempotent upstream, so retrying would risk
// duplicate orders. Callers bound each call with ctx.
type ArcPayClient interface {
	CreateOrder(ctx context.Context, req *dto.CreateOrderRequest) (*model.Order, error)
	FetchOrder(ctx context.Context, uuid string) (*model.Order, error)
}

// APIError carries the upstream HTTP status so the boundary can
// propagate it instead of collapsing everything into a 500.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("arcpay error %d: %s", e.StatusCode, e.Message)
}

type arcPayClientImpl struct {
	httpClient *http.Client
	baseAPIURL string
	apiKey     string
}

func NewArcPayClient(cfg *config.ArcPay) ArcPayClient {
	return &arcPayClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseAPIURL: cfg.BaseAPIURL,
		apiKey:     cfg.APIKey,
	}
}

func (c *arcPayClientImpl) CreateOrder(ctx context.Context, createReq *dto.CreateOrderRequest) (*model.Order, error) {
	body, err := json.Marshal(createReq)
	if err != nil {
		return nil, fmt.Errorf("marshal req payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseAPIURL+"/order",
		bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("ArcKey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arcpay create order: %w", err)
	}
	defer resp.Body.Close()

	return decodeOrder(resp)
}

func (c *arcPayClientImpl) FetchOrder(ctx context.Context, uuid string) (*model.Order, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/order/%s", c.baseAPIURL, uuid), nil)
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("ArcKey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arcpay fetch order: %w", err)
	}
	defer resp.Body.Close()

	return decodeOrder(resp)
}

func decodeOrder(resp *http.Response) (*model.Order, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    upstreamMessage(b),
		}
	}

	var order model.Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("decode arcpay response: %w", err)
	}
	return &order, nil
}

// upstreamMessage pulls the message field out of an ArcPay error body,
// falling back to the raw body when it is not the usual JSON shape.
func upstreamMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}
	return string(body)
}
