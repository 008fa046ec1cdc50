package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"meetix/entity"
)

const (
	fedapaySandboxURL = "https://sandbox-api.fedapay.com"
	fedapayLiveURL    = "https://api.fedapay.com"
)

// FedapayClient talks to the FedaPay REST API. All failures are wrapped in
// entity.PaymentGatewayError, so callers can map them uniformly.
type FedapayClient struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
}

func NewFedapayClient(secretKey, environment string) *FedapayClient {
	baseURL := fedapaySandboxURL
	if environment == "live" {
		baseURL = fedapayLiveURL
	}

	return &FedapayClient{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   15 * time.Second,
		},
		baseURL:   baseURL,
		secretKey: secretKey,
	}
}

type fedapayTransaction struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// responses are wrapped in a "v1/transaction" envelope
type fedapayTransactionEnvelope struct {
	Transaction fedapayTransaction `json:"v1/transaction"`
}

type fedapayTokenResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// CreateTransaction registers a pending transaction with the processor and
// returns its id, which becomes our payment reference.
func (c *FedapayClient) CreateTransaction(ctx context.Context, request entity.CreatePaymentRequest) (entity.PaymentTransaction, error) {
	const op = "create transaction"

	body := map[string]any{
		"description":  request.Description,
		"amount":       request.Amount.IntPart(),
		"currency":     map[string]string{"iso": "XOF"},
		"callback_url": request.CallbackURL,
		"mode":         "mtn_open",
		"customer":     request.Customer,
	}

	var envelope fedapayTransactionEnvelope
	err := c.do(ctx, http.MethodPost, "/v1/transactions", body, &envelope, op)
	if err != nil {
		return entity.PaymentTransaction{}, err
	}

	return entity.PaymentTransaction{
		ID:     envelope.Transaction.ID,
		Status: envelope.Transaction.Status,
	}, nil
}

// CreatePaymentLink generates the hosted checkout URL for a transaction.
func (c *FedapayClient) CreatePaymentLink(ctx context.Context, transactionID int64) (string, error) {
	const op = "create payment link"

	var token fedapayTokenResponse
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/transactions/%d/token", transactionID), struct{}{}, &token, op)
	if err != nil {
		return "", err
	}

	return token.URL, nil
}

// VerifyTransaction re-fetches the processor's view of a transaction. The
// reconciler trusts this, never the webhook payload.
func (c *FedapayClient) VerifyTransaction(ctx context.Context, transactionID int64) (entity.PaymentTransaction, error) {
	const op = "verify transaction"

	var envelope fedapayTransactionEnvelope
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/transactions/%d", transactionID), nil, &envelope, op)
	if err != nil {
		return entity.PaymentTransaction{}, err
	}

	return entity.PaymentTransaction{
		ID:     envelope.Transaction.ID,
		Status: envelope.Transaction.Status,
	}, nil
}

func (c *FedapayClient) do(ctx context.Context, method, path string, body, out any, op string) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return entity.PaymentGatewayError{Op: op, Err: err}
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return entity.PaymentGatewayError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return entity.PaymentGatewayError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return entity.PaymentGatewayError{Op: op, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return entity.PaymentGatewayError{Op: op, Err: fmt.Errorf("could not decode response: %w", err)}
	}

	return nil
}
