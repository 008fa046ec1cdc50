package event

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"meetix/entity"
	"meetix/log"
)

// EnrollChatHandler adds the buyer to the event's chat room. The room is
// created lazily with the first enrollment.
func (h Handler) EnrollChatHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"EnrollChatHandler",
		func(ctx context.Context, event *entity.OrderConfirmed) error {
			log.FromContext(ctx).WithField("order_id", event.OrderID).Info("Enrolling buyer to event chat")

			order, err := h.ordersRepo.GetWithItems(ctx, event.OrderID)
			if err != nil {
				return fmt.Errorf("failed to get order %s: %w", event.OrderID, err)
			}

			ev, err := h.eventsRepo.Get(ctx, event.EventID)
			if err != nil {
				return fmt.Errorf("failed to get event %s: %w", event.EventID, err)
			}

			if err := h.chatRepo.Enroll(ctx, ev.ID, ev.Name, order.UserID); err != nil {
				return fmt.Errorf("failed to enroll buyer to chat: %w", err)
			}

			return nil
		},
	)
}
