package event

import (
	"context"
	"fmt"
	"strings"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/samber/lo"

	"meetix/entity"
	"meetix/log"
)

// SendConfirmationHandler mails the buyer once per confirmed order, with
// every ticket artifact attached. It runs after issuance, so the mail can
// bundle the complete set.
func (h Handler) SendConfirmationHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"SendConfirmationHandler",
		func(ctx context.Context, event *entity.TicketsIssued) error {
			log.FromContext(ctx).WithField("order_id", event.OrderID).Info("Sending order confirmation")

			order, err := h.ordersRepo.GetWithItems(ctx, event.OrderID)
			if err != nil {
				return fmt.Errorf("failed to get order %s: %w", event.OrderID, err)
			}

			ev, err := h.eventsRepo.Get(ctx, order.EventID)
			if err != nil {
				return fmt.Errorf("failed to get event %s: %w", order.EventID, err)
			}

			buyer, err := h.usersRepo.Get(ctx, order.UserID)
			if err != nil {
				return fmt.Errorf("failed to get buyer %s: %w", order.UserID, err)
			}

			attachments := make([]entity.MailAttachment, 0, len(event.Artifacts))
			for _, artifact := range event.Artifacts {
				content, err := h.storageService.Download(ctx, artifact.Key)
				if err != nil {
					return fmt.Errorf("failed to download ticket %s: %w", artifact.Code, err)
				}
				attachments = append(attachments, entity.MailAttachment{
					Filename: artifact.Code + ".html",
					Content:  content,
				})
			}

			err = h.mailerService.SendOrderConfirmation(ctx, entity.OrderConfirmationMail{
				To:             buyer.Email,
				BuyerName:      strings.TrimSpace(buyer.FirstName + " " + buyer.LastName),
				EventName:      ev.Name,
				OrderReference: order.Reference,
				TicketURLs: lo.Map(event.Artifacts, func(a entity.TicketArtifact, _ int) string {
					return a.URL
				}),
				Attachments: attachments,
			})
			if err != nil {
				return fmt.Errorf("failed to send confirmation mail: %w", err)
			}

			return nil
		},
	)
}
