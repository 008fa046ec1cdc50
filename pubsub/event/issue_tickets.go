package event

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"meetix/entity"
	"meetix/log"
	"meetix/ticket"
)

// IssueTicketsHandler renders one artifact per purchased unit, uploads
// them to storage, and records the URLs on the order items. Items that
// already carry artifact URLs are skipped, which makes redeliveries cheap
// no-ops that still re-announce the full artifact set.
func (h Handler) IssueTicketsHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"IssueTicketsHandler",
		func(ctx context.Context, event *entity.OrderSeatsAllocated) error {
			log.FromContext(ctx).WithField("order_id", event.OrderID).Info("Issuing tickets")

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

			var artifacts []entity.TicketArtifact
			for _, item := range order.Items {
				if len(item.TicketURLs) > 0 {
					artifacts = append(artifacts, issuedArtifacts(item)...)
					continue
				}

				issued, err := h.issueItem(ctx, order, ev, buyer, item)
				if err != nil {
					return err
				}
				artifacts = append(artifacts, issued...)
			}

			return h.eventBus.Publish(ctx, entity.TicketsIssued{
				Header:    entity.NewEventHeaderWithIdempotencyKey(event.Header.IdempotencyKey),
				OrderID:   order.ID,
				Artifacts: artifacts,
			})
		},
	)
}

func (h Handler) issueItem(
	ctx context.Context,
	order entity.OrderWithItems,
	ev entity.Event,
	buyer entity.User,
	item entity.OrderItemDetail,
) ([]entity.TicketArtifact, error) {
	var (
		artifacts []entity.TicketArtifact
		urls      []string
		keys      []string
	)

	for seq := 1; seq <= item.Quantity; seq++ {
		code := ticket.Code(item.TierName, seq)
		body, err := ticket.Render(ticket.Data{
			Code:            code,
			OrderID:         order.ID,
			EventID:         ev.ID,
			EventName:       ev.Name,
			Venue:           ev.Venue,
			StartsAt:        ev.StartsAt,
			EndsAt:          ev.EndsAt,
			BuyerEmail:      buyer.Email,
			TierName:        item.TierName,
			UnitPrice:       item.UnitPrice,
			Free:            item.UnitPrice.IsZero(),
			VerificationURL: ticket.VerificationURL(h.appBaseURL, ev.ID, order.ID, code),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to render ticket %s: %w", code, err)
		}

		key := ticket.StorageKey(order.ID, code)
		url, err := h.storageService.Upload(ctx, key, body, "text/html")
		if err != nil {
			return nil, fmt.Errorf("failed to upload ticket %s: %w", code, err)
		}

		urls = append(urls, url)
		keys = append(keys, key)
		artifacts = append(artifacts, entity.TicketArtifact{Code: code, Key: key, URL: url})
	}

	if err := h.ordersRepo.SetItemTicketArtifacts(ctx, item.ID, urls, keys); err != nil {
		return nil, fmt.Errorf("failed to record ticket artifacts: %w", err)
	}

	return artifacts, nil
}

// issuedArtifacts rebuilds the artifact list from what a previous delivery
// already persisted on the item.
func issuedArtifacts(item entity.OrderItemDetail) []entity.TicketArtifact {
	artifacts := make([]entity.TicketArtifact, 0, len(item.TicketURLs))
	for i, url := range item.TicketURLs {
		var key string
		if i < len(item.TicketKeys) {
			key = item.TicketKeys[i]
		}
		artifacts = append(artifacts, entity.TicketArtifact{
			Code: strings.TrimSuffix(path.Base(key), ".html"),
			Key:  key,
			URL:  url,
		})
	}
	return artifacts
}
