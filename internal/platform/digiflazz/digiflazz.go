package digiflazz

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/fx"

	cfgpkg "github.com/lumostore/topup/pkg/config"
)

// Config is the immutable provider configuration injected at construction.
type Config struct {
	Username      string
	APIKey        string
	BaseURL       string
	WebhookSecret string
	Timeout       time.Duration
}

// OrderStatus is the normalized provider order state.
type OrderStatus string

const (
	OrderStatusSuccess OrderStatus = "success"
	OrderStatusPending OrderStatus = "pending"
	OrderStatusFailed  OrderStatus = "failed"
)

// OrderRequest identifies a single provider order. RefID is the caller's
// idempotency key: re-posting the same RefID never creates a second order,
// the provider answers with the current state instead.
type OrderRequest struct {
	RefID      string `json:"ref_id"`
	SKU        string `json:"buyer_sku_code"`
	CustomerNo string `json:"customer_no"`
}

// OrderResult is the normalized view of a provider response. Raw preserves
// the exact payload bytes; the provider owns that schema and may evolve it.
type OrderResult struct {
	RefID         string
	ProviderRefID string
	Status        OrderStatus
	RC            string
	SerialNumber  string
	Message       string
	Raw           json.RawMessage
	HTTPStatus    int
	Elapsed       time.Duration
}

type orderPayload struct {
	Username     string `json:"username"`
	BuyerSKUCode string `json:"buyer_sku_code"`
	CustomerNo   string `json:"customer_no"`
	RefID        string `json:"ref_id"`
	Sign         string `json:"sign"`
}

type orderData struct {
	RefID        string `json:"ref_id"`
	CustomerNo   string `json:"customer_no"`
	BuyerSKUCode string `json:"buyer_sku_code"`
	Status       string `json:"status"`
	Message      string `json:"message"`
	RC           string `json:"rc"`
	SN           string `json:"sn"`
}

type responseEnvelope struct {
	Data orderData `json:"data"`
}

// Client talks to the Digiflazz transaction API.
type Client struct {
	cfg  Config
	http *fasthttp.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg: cfg,
		http: &fasthttp.Client{
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
		},
	}
}

func NewFromConfig(cfg *cfgpkg.Config) *Client {
	return NewClient(Config{
		Username:      cfg.Digiflazz.Username,
		APIKey:        cfg.Digiflazz.APIKey,
		BaseURL:       cfg.Digiflazz.BaseURL,
		WebhookSecret: cfg.Digiflazz.WebhookSecret,
		Timeout:       cfg.Digiflazz.Timeout,
	})
}

var Module = fx.Options(
	fx.Provide(NewFromConfig),
)

// CreateOrder submits a top-up order. The provider deduplicates on RefID.
func (c *Client) CreateOrder(ctx context.Context, req *OrderRequest) (*OrderResult, error) {
	return c.post(ctx, req)
}

// CheckStatus resolves the current state of a previously submitted RefID.
// The provider treats a repeated post of the same RefID as a status inquiry,
// so this never creates a new order.
func (c *Client) CheckStatus(ctx context.Context, req *OrderRequest) (*OrderResult, error) {
	return c.post(ctx, req)
}

func (c *Client) post(ctx context.Context, req *OrderRequest) (*OrderResult, error) {
	payload := orderPayload{
		Username:     c.cfg.Username,
		BuyerSKUCode: req.SKU,
		CustomerNo:   req.CustomerNo,
		RefID:        req.RefID,
		Sign:         Sign(c.cfg.Username, c.cfg.APIKey, req.RefID),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order payload: %w", err)
	}

	httpReq := fasthttp.AcquireRequest()
	httpResp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(httpReq)
	defer fasthttp.ReleaseResponse(httpResp)

	httpReq.SetRequestURI(c.cfg.BaseURL + "/transaction")
	httpReq.Header.SetMethod(fasthttp.MethodPost)
	httpReq.Header.SetContentType("application/json")
	httpReq.SetBody(body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.cfg.Timeout)
	}

	start := time.Now()
	if err := c.http.DoDeadline(httpReq, httpResp, deadline); err != nil {
		return nil, &GatewayError{Op: "transaction", RefID: req.RefID, transient: true, Err: err}
	}
	elapsed := time.Since(start)

	statusCode := httpResp.StatusCode()
	raw := make([]byte, len(httpResp.Body()))
	copy(raw, httpResp.Body())

	if statusCode >= 500 {
		return nil, &GatewayError{
			Op: "transaction", RefID: req.RefID, HTTPStatus: statusCode, transient: true,
			Err: fmt.Errorf("provider returned %d", statusCode),
		}
	}
	if statusCode != fasthttp.StatusOK {
		return nil, &GatewayError{
			Op: "transaction", RefID: req.RefID, HTTPStatus: statusCode,
			Err: fmt.Errorf("provider rejected request with %d: %s", statusCode, raw),
		}
	}

	var envelope responseEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &GatewayError{Op: "transaction", RefID: req.RefID, HTTPStatus: statusCode, transient: true,
			Err: fmt.Errorf("failed to decode provider response: %w", err)}
	}

	data := envelope.Data
	result := &OrderResult{
		RefID:         req.RefID,
		ProviderRefID: data.RefID,
		Status:        normalizeStatus(data.Status),
		RC:            data.RC,
		SerialNumber:  data.SN,
		Message:       data.Message,
		Raw:           raw,
		HTTPStatus:    statusCode,
		Elapsed:       elapsed,
	}

	if result.Status == OrderStatusFailed {
		return nil, &GatewayError{
			Op: "transaction", RefID: req.RefID, RC: data.RC, Message: data.Message,
			HTTPStatus: statusCode, Raw: raw, Elapsed: elapsed,
			transient: transientRCs[data.RC],
		}
	}
	return result, nil
}

func normalizeStatus(s string) OrderStatus {
	switch s {
	case "Sukses":
		return OrderStatusSuccess
	case "Pending":
		return OrderStatusPending
	default:
		return OrderStatusFailed
	}
}
