package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"arcanum/internal/models"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

// Transaction status values reported by the relay.
const (
	statusPending   = "pending"
	statusConfirmed = "confirmed"
	statusRejected  = "rejected"
)

// pollInterval is how often the relay is asked for a confirmation signal.
// It is a politeness knob, not a correctness one.
const pollInterval = 500 * time.Millisecond

// RelayGateway talks to a payment relay service over HTTP.
type RelayGateway struct {
	baseURL string
	client  *fasthttp.Client
	timeout time.Duration
}

// NewRelayGateway builds a gateway against the given relay base URL.
// requestTimeout bounds a single HTTP exchange, not the whole confirmation wait.
func NewRelayGateway(baseURL string, requestTimeout time.Duration) *RelayGateway {
	return &RelayGateway{
		baseURL: baseURL,
		client: &fasthttp.Client{
			ReadTimeout:  requestTimeout,
			WriteTimeout: requestTimeout,
		},
		timeout: requestTimeout,
	}
}

type submitRequest struct {
	RequestID string  `json:"request_id"`
	Kind      string  `json:"kind"`
	ContentID uint    `json:"content_id"`
	Amount    float64 `json:"amount"`
}

type submitResponse struct {
	ReceiptID string `json:"receipt_id"`
	TxHash    string `json:"tx_hash"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// SubmitUnlock submits an unlock payment for a content item.
func (g *RelayGateway) SubmitUnlock(ctx context.Context, contentID uint, amount float64) (*Receipt, error) {
	return g.submit(ctx, models.GrantUnlock, contentID, amount)
}

// SubmitTip submits a tip for a content item.
func (g *RelayGateway) SubmitTip(ctx context.Context, contentID uint, amount float64) (*Receipt, error) {
	return g.submit(ctx, models.GrantTip, contentID, amount)
}

func (g *RelayGateway) submit(ctx context.Context, kind models.GrantType, contentID uint, amount float64) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(submitRequest{
		RequestID: uuid.NewString(),
		Kind:      string(kind),
		ContentID: contentID,
		Amount:    amount,
	})
	if err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(g.baseURL + "/v1/transactions")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := g.client.DoTimeout(req, resp, g.timeout); err != nil {
		return nil, models.NewPaymentFailedError(fmt.Errorf("relay submit: %w", err))
	}
	if resp.StatusCode() != fasthttp.StatusOK && resp.StatusCode() != fasthttp.StatusAccepted {
		return nil, models.NewPaymentFailedError(fmt.Errorf("relay submit: status %d", resp.StatusCode()))
	}

	var parsed submitResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, models.NewPaymentFailedError(fmt.Errorf("relay submit: %w", err))
	}
	if parsed.Status == statusRejected {
		return nil, models.NewPaymentFailedError(fmt.Errorf("relay rejected transaction: %s", parsed.Error))
	}

	return &Receipt{
		ID:          parsed.ReceiptID,
		TxHash:      parsed.TxHash,
		ContentID:   contentID,
		Kind:        kind,
		Amount:      amount,
		SubmittedAt: time.Now().UTC(),
	}, nil
}

// AwaitConfirmation polls the relay until the receipt is confirmed, the relay
// rejects it, or ctx expires. Expiry is PAYMENT_UNCONFIRMED, never success.
func (g *RelayGateway) AwaitConfirmation(ctx context.Context, receiptID string) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		status, err := g.fetchStatus(receiptID)
		if err == nil {
			switch status.Status {
			case statusConfirmed:
				return nil
			case statusRejected:
				return models.NewPaymentFailedError(fmt.Errorf("relay rejected receipt %s: %s", receiptID, status.Error))
			}
		}
		// Transient fetch errors and pending statuses both mean: keep waiting.

		select {
		case <-ctx.Done():
			return models.NewPaymentUnconfirmedError(ctx.Err())
		case <-ticker.C:
		}
	}
}

func (g *RelayGateway) fetchStatus(receiptID string) (*statusResponse, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(g.baseURL + "/v1/transactions/" + receiptID)
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := g.client.DoTimeout(req, resp, g.timeout); err != nil {
		return nil, err
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("relay status: status %d", resp.StatusCode())
	}

	var parsed statusResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}
