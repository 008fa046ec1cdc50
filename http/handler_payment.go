package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"meetix/entity"
	"meetix/log"
)

type webhookResponse struct {
	Received bool `json:"received"`
}

// PostFedapayWebhook always acknowledges deliveries it will never be able
// to use (orphans, foreign objects) with a 200, so the processor stops
// retrying them. Genuine reconciliation failures return 5xx and are
// retried by the processor.
func (s Server) PostFedapayWebhook(c echo.Context) error {
	var payload entity.WebhookPayload
	if err := c.Bind(&payload); err != nil {
		return err
	}

	received, err := s.paymentService.ProcessWebhook(c.Request().Context(), payload)
	if err != nil {
		if errors.Is(err, entity.ErrOrphanPayment) {
			return c.JSON(http.StatusOK, webhookResponse{Received: false})
		}

		log.FromContext(c.Request().Context()).WithError(err).Error("Webhook reconciliation failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "reconciliation failed")
	}

	return c.JSON(http.StatusOK, webhookResponse{Received: received})
}

type postSubscriptionsRequest struct {
	UserID      string `json:"user_id"`
	PricingID   string `json:"pricing_id"`
	CallbackURL string `json:"callback_url"`
}

type postSubscriptionsResponse struct {
	TransactionID    string `json:"transaction_id"`
	PaymentURL       string `json:"payment_url"`
	PaymentReference string `json:"payment_reference"`
}

func (s Server) PostSubscriptions(c echo.Context) error {
	var request postSubscriptionsRequest
	if err := c.Bind(&request); err != nil {
		return err
	}
	if request.UserID == "" || request.PricingID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id and pricing_id are required")
	}

	result, err := s.paymentService.CreateSubscription(c.Request().Context(), request.UserID, request.PricingID, request.CallbackURL)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user or pricing not found")
		}
		var gatewayErr entity.PaymentGatewayError
		if errors.As(err, &gatewayErr) {
			return echo.NewHTTPError(http.StatusBadGateway, "payment provider is unavailable")
		}
		return fmt.Errorf("could not create subscription: %w", err)
	}

	return c.JSON(http.StatusCreated, postSubscriptionsResponse{
		TransactionID:    result.Transaction.ID,
		PaymentURL:       result.PaymentURL,
		PaymentReference: result.Transaction.Reference,
	})
}
