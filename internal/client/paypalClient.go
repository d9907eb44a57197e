package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"marketplace-api/internal/config"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// PaypalOrderCompleted is the order status PayPal reports once funds are captured.
const PaypalOrderCompleted = "COMPLETED"

var ErrPaypalUnavailable = errors.New("paypal request failed")

type PaypalClient interface {
	CreateOrder(ctx context.Context, params CreateOrderParams) (*CreateOrderResponse, error)
	CaptureOrder(ctx context.Context, orderID string) (*CaptureOrderResponse, error)
}

type paypalClientImpl struct {
	httpClient         *http.Client
	baseApiURL         string
	paypalClientID     string
	paypalClientSecret string
	currency           string
}

type PaypalLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type paypalPurchaseUnit struct {
	ReferenceID string `json:"reference_id"`
}

type paypalOrderResult struct {
	ID            string               `json:"id"`
	Status        string               `json:"status"`
	Links         []PaypalLink         `json:"links"`
	PurchaseUnits []paypalPurchaseUnit `json:"purchase_units"`
}

type CreateOrderParams struct {
	Reference   string // payment record reference, echoed back as reference_id
	Description string
	Amount      decimal.Decimal
	ReturnURL   string
	CancelURL   string
}

type CreateOrderResponse struct {
	OrderID    string
	ApproveURL string
}

type CaptureOrderResponse struct {
	OrderID   string
	Status    string
	Reference string
}

func NewPaypalClient(paypalCfg config.Paypal) PaypalClient {
	return &paypalClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL:         paypalCfg.BaseApiURL,
		paypalClientID:     paypalCfg.ClientID,
		paypalClientSecret: paypalCfg.ClientSecret,
		currency:           paypalCfg.Currency,
	}
}

func (c *paypalClientImpl) getAccessToken(ctx context.Context) (string, error) {
	auth := base64.StdEncoding.EncodeToString(
		[]byte(c.paypalClientID + ":" + c.paypalClientSecret),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseApiURL+"/v1/oauth2/token",
		bytes.NewBufferString("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var res struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(req, &res); err != nil {
		return "", err
	}
	if res.AccessToken == "" {
		return "", fmt.Errorf("empty access token: %w", ErrPaypalUnavailable)
	}

	return res.AccessToken, nil
}

func (c *paypalClientImpl) CreateOrder(ctx context.Context, params CreateOrderParams) (*CreateOrderResponse, error) {
	accessToken, err := c.getAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get paypal access token: %w", err)
	}

	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"reference_id": params.Reference,
				"description":  params.Description,
				"amount": map[string]string{
					"currency_code": c.currency,
					"value":         params.Amount.StringFixed(2),
				},
			},
		},
		"application_context": map[string]string{
			"return_url": params.ReturnURL,
			"cancel_url": params.CancelURL,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal req payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseApiURL+"/v2/checkout/orders",
		bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	var result paypalOrderResult
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("create paypal order: %w", err)
	}

	return &CreateOrderResponse{
		OrderID:    result.ID,
		ApproveURL: extractApproveURL(result.Links),
	}, nil
}

func (c *paypalClientImpl) CaptureOrder(ctx context.Context, orderID string) (*CaptureOrderResponse, error) {
	accessToken, err := c.getAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get paypal access token: %w", err)
	}

	url := fmt.Sprintf(
		"%s/v2/checkout/orders/%s/capture",
		c.baseApiURL,
		orderID,
	)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		url,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create capture request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	var result paypalOrderResult
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("capture paypal order: %w", err)
	}

	resp := &CaptureOrderResponse{
		OrderID: result.ID,
		Status:  result.Status,
	}
	if len(result.PurchaseUnits) > 0 {
		resp.Reference = result.PurchaseUnits[0].ReferenceID
	}
	return resp, nil
}

// do sends req and decodes a 2xx JSON body into out.
func (c *paypalClientImpl) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %v: %w", err, ErrPaypalUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("paypal status=%d body=%s: %w", resp.StatusCode, string(b), ErrPaypalUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode paypal response: %w", err)
	}
	return nil
}

func extractApproveURL(links []PaypalLink) string {
	for _, link := range links {
		if link.Rel == "approve" {
			return link.Href
		}
	}
	return ""
}
