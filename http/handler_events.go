package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"meetix/entity"
)

type postEventsRequest struct {
	Name       string             `json:"name"`
	Venue      string             `json:"venue"`
	Capacity   int                `json:"capacity"`
	AccessType entity.EventAccess `json:"access_type"`
	StartsAt   time.Time          `json:"starts_at"`
	EndsAt     time.Time          `json:"ends_at"`
	PostedBy   string             `json:"posted_by"`
	Tiers      []struct {
		Name         string          `json:"name"`
		UnitAmount   decimal.Decimal `json:"unit_amount"`
		SeatsPerUnit int             `json:"seats_per_unit"`
	} `json:"tiers"`
}

type postEventsResponse struct {
	EventID string `json:"event_id"`
}

func (s Server) PostEvents(c echo.Context) error {
	var request postEventsRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	if request.Capacity <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "capacity must be positive")
	}

	event := entity.Event{
		ID:             uuid.NewString(),
		Name:           request.Name,
		Venue:          request.Venue,
		Capacity:       request.Capacity,
		RemainingSeats: request.Capacity,
		AccessType:     request.AccessType,
		Status:         entity.EventStatusPublished,
		StartsAt:       request.StartsAt,
		EndsAt:         request.EndsAt,
		PostedBy:       request.PostedBy,
	}
	if event.AccessType == "" {
		event.AccessType = entity.EventAccessFree
	}

	tiers := make([]entity.PriceTier, 0, len(request.Tiers))
	for _, tier := range request.Tiers {
		seatsPerUnit := tier.SeatsPerUnit
		if seatsPerUnit <= 0 {
			seatsPerUnit = 1
		}
		tiers = append(tiers, entity.PriceTier{
			ID:           uuid.NewString(),
			EventID:      event.ID,
			Name:         tier.Name,
			UnitAmount:   tier.UnitAmount,
			SeatsPerUnit: seatsPerUnit,
		})
	}

	if err := s.eventsRepo.Store(c.Request().Context(), event, tiers); err != nil {
		return fmt.Errorf("could not store event: %w", err)
	}

	return c.JSON(http.StatusCreated, postEventsResponse{EventID: event.ID})
}
