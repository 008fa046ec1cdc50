package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"meetix/entity"
	"meetix/orders"
)

type postOrdersRequest struct {
	UserID string `json:"user_id"`
	Guest  *struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"guest"`
	Items       []orders.ItemRequest `json:"items"`
	CallbackURL string               `json:"callback_url"`
}

type postOrdersResponse struct {
	OrderID   string `json:"order_id"`
	Reference string `json:"reference"`

	Message          string `json:"message,omitempty"`
	PaymentURL       string `json:"payment_url,omitempty"`
	PaymentReference string `json:"payment_reference,omitempty"`
}

func (s Server) PostOrders(c echo.Context) error {
	var request postOrdersRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	buyer := entity.Buyer{UserID: request.UserID}
	if request.Guest != nil {
		buyer.GuestEmail = request.Guest.Email
		buyer.GuestFirstName = request.Guest.FirstName
		buyer.GuestLastName = request.Guest.LastName
	}

	result, err := s.ordersService.PlaceOrder(c.Request().Context(), orders.PlaceOrderRequest{
		EventID:     c.Param("event_id"),
		Buyer:       buyer,
		Items:       request.Items,
		CallbackURL: request.CallbackURL,
	})
	if err != nil {
		return mapOrderError(err)
	}

	response := postOrdersResponse{
		OrderID:   result.Order.ID,
		Reference: result.Order.Reference,
	}
	if result.Order.Status == entity.OrderStatusConfirmed {
		response.Message = "order confirmed"
	} else {
		response.PaymentURL = result.PaymentURL
		response.PaymentReference = result.PaymentReference
	}

	return c.JSON(http.StatusCreated, response)
}

func (s Server) GetOrder(c echo.Context) error {
	order, err := s.ordersService.GetOrder(c.Request().Context(), c.Param("reference"))
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return fmt.Errorf("could not get order: %w", err)
	}

	return c.JSON(http.StatusOK, order)
}

// mapOrderError turns intake rejections into specific 4xx responses. The
// payment gateway failing is the one 5xx-class case: the caller must know
// no payment link exists.
func mapOrderError(err error) error {
	switch {
	case errors.Is(err, entity.ErrEventNotAvailable):
		return echo.NewHTTPError(http.StatusConflict, "event is not available for orders")
	case errors.Is(err, entity.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "event not found")
	case errors.Is(err, entity.ErrInvalidTier):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid price tier")
	case errors.Is(err, entity.ErrInvalidQuantity):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid quantity")
	case errors.Is(err, entity.ErrCapacityExceeded):
		return echo.NewHTTPError(http.StatusConflict, "not enough seats available")
	case errors.Is(err, entity.ErrGuestInfoRequired):
		return echo.NewHTTPError(http.StatusBadRequest, "guest email and name are required")
	case errors.Is(err, entity.ErrInvalidPaidOrder):
		return echo.NewHTTPError(http.StatusBadRequest, "paid order requires items with a positive total")
	case errors.Is(err, entity.ErrQuantityCapExceeded):
		return echo.NewHTTPError(http.StatusBadRequest, "guest ticket quantity cap exceeded")
	default:
		var gatewayErr entity.PaymentGatewayError
		if errors.As(err, &gatewayErr) {
			return echo.NewHTTPError(http.StatusBadGateway, "payment provider is unavailable")
		}
		return err
	}
}
