package event

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"meetix/entity"
	"meetix/log"
)

// AllocateSeatsHandler decrements the seat ledger for a confirmed order
// and announces the allocation. Ticket issuance waits for that
// announcement, so seats are always granted before tickets exist.
func (h Handler) AllocateSeatsHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"AllocateSeatsHandler",
		func(ctx context.Context, event *entity.OrderConfirmed) error {
			log.FromContext(ctx).WithField("order_id", event.OrderID).Info("Allocating seats")

			order, err := h.ordersRepo.GetWithItems(ctx, event.OrderID)
			if err != nil {
				return fmt.Errorf("failed to get order %s: %w", event.OrderID, err)
			}

			allocated, err := h.eventsRepo.AllocateSeats(ctx, event.EventID, event.OrderID, order.SeatUnits())
			if err != nil {
				return fmt.Errorf("failed to allocate seats: %w", err)
			}
			if !allocated {
				// the allocation committed on an earlier delivery, but the
				// announcement may never have reached the broker; announce
				// again, downstream handlers skip issued items
				log.FromContext(ctx).WithField("order_id", event.OrderID).Info("Seats already allocated, re-announcing")
			}

			return h.eventBus.Publish(ctx, entity.OrderSeatsAllocated{
				Header:    entity.NewEventHeaderWithIdempotencyKey(event.Header.IdempotencyKey),
				OrderID:   event.OrderID,
				EventID:   event.EventID,
				SeatUnits: order.SeatUnits(),
			})
		},
	)
}
