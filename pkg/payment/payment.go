// Package payment talks to the payment collaborator. The service never
// retries a charge; a transport failure is reported as a decline so the held
// slot is released.
package payment

import (
	"context"
	"courtbook/pkg/client"
	"courtbook/pkg/logger"
	"courtbook/pkg/middleware"
	"courtbook/pkg/model"
	"fmt"
	"net/http"
	"time"
)

type ChargeRequest struct {
	SlotID    string `json:"slot_id"`
	UserID    string `json:"user_id"`
	Amount    int64  `json:"amount"`
	HoldToken string `json:"hold_token"`
}

type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (model.PaymentResult, error)
}

type chargeResponse struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Reason    string `json:"reason"`
}

// HTTPGateway posts charges to {base}/v1/charges. The hold token doubles as the
// idempotency key so the gateway can de-duplicate a client retry.
type HTTPGateway struct {
	client *client.JSONClient
	log    *logger.Logger
}

func NewHTTPGateway(baseURL string, timeout time.Duration, log *logger.Logger) *HTTPGateway {
	return &HTTPGateway{
		client: client.NewJSONClient(baseURL, timeout),
		log:    log,
	}
}

func (g *HTTPGateway) Charge(ctx context.Context, req ChargeRequest) (model.PaymentResult, error) {
	resp, err := g.client.Post(ctx, "/v1/charges", req,
		client.WithHeader("Idempotency-Key", req.HoldToken),
		client.WithHeader(middleware.RequestIDHeader, middleware.RequestIDFromContext(ctx)),
	)
	if err != nil {
		g.log.Error("Payment gateway request failed", "slot_id", req.SlotID, "error", err)
		return model.PaymentResult{}, fmt.Errorf("payment gateway unreachable: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var body chargeResponse
		if err := resp.DecodeJSON(&body); err != nil {
			return model.PaymentResult{}, fmt.Errorf("failed to decode payment response: %w", err)
		}
		if body.Status != "succeeded" {
			return model.PaymentResult{Success: false, Reference: body.Reference, Reason: body.Reason}, nil
		}
		return model.PaymentResult{Success: true, Reference: body.Reference}, nil
	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusUnprocessableEntity:
		return model.PaymentResult{Success: false, Reason: resp.ErrorMessage()}, nil
	default:
		return model.PaymentResult{}, fmt.Errorf("payment gateway returned %d: %s", resp.StatusCode, resp.ErrorMessage())
	}
}

// Static approves every charge. It stands in for the gateway in development
// and tests.
type Static struct {
	Decline bool
	Reason  string
}

func (s Static) Charge(_ context.Context, req ChargeRequest) (model.PaymentResult, error) {
	if s.Decline {
		return model.PaymentResult{Success: false, Reason: s.Reason}, nil
	}
	return model.PaymentResult{Success: true, Reference: "static-" + req.HoldToken}, nil
}
