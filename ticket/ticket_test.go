package ticket_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetix/ticket"
)

func TestCode(t *testing.T) {
	assert.Equal(t, "VIP-1", ticket.Code("VIP", 1))
	assert.Equal(t, "EarlyBird-12", ticket.Code("Early Bird", 12))
}

func TestVerificationURL_RoundTrip(t *testing.T) {
	url := ticket.VerificationURL("https://meetix.io/", "event-1", "order-1", "VIP-2")
	assert.Contains(t, url, "https://meetix.io/events/event-1?")

	orderID, code, err := ticket.ParseVerificationURL(url)
	require.NoError(t, err)
	assert.Equal(t, "order-1", orderID)
	assert.Equal(t, "VIP-2", code)
}

func TestParseVerificationURL_MissingParams(t *testing.T) {
	_, _, err := ticket.ParseVerificationURL("https://meetix.io/events/event-1")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	starts := time.Date(2026, 9, 12, 18, 0, 0, 0, time.UTC)

	data := ticket.Data{
		Code:            "VIP-1",
		OrderID:         "order-1",
		EventID:         "event-1",
		EventName:       "Go Conference",
		Venue:           "Cotonou Convention Center",
		StartsAt:        starts,
		EndsAt:          starts.Add(4 * time.Hour),
		BuyerEmail:      "buyer@example.com",
		TierName:        "VIP",
		UnitPrice:       decimal.NewFromInt(5000),
		VerificationURL: ticket.VerificationURL("https://meetix.io", "event-1", "order-1", "VIP-1"),
	}

	body, err := ticket.Render(data)
	require.NoError(t, err)

	html := string(body)
	assert.Contains(t, html, "Go Conference")
	assert.Contains(t, html, "Cotonou Convention Center")
	assert.Contains(t, html, "VIP-1")
	assert.Contains(t, html, "buyer@example.com")
	assert.Contains(t, html, "5000.00 XOF")
	assert.Contains(t, html, "order-1")
	assert.Contains(t, html, "data:image/png;base64,")
}

func TestRender_FreeTicket(t *testing.T) {
	body, err := ticket.Render(ticket.Data{
		Code:            "Standard-1",
		OrderID:         "order-2",
		EventID:         "event-1",
		EventName:       "Community Meetup",
		TierName:        "Standard",
		UnitPrice:       decimal.Zero,
		Free:            true,
		VerificationURL: ticket.VerificationURL("https://meetix.io", "event-1", "order-2", "Standard-1"),
	})
	require.NoError(t, err)

	assert.Contains(t, string(body), "FREE")
	assert.NotContains(t, string(body), "0.00 XOF")
}

func TestRender_Deterministic(t *testing.T) {
	data := ticket.Data{
		Code:            "VIP-1",
		OrderID:         "order-1",
		EventID:         "event-1",
		EventName:       "Go Conference",
		TierName:        "VIP",
		UnitPrice:       decimal.NewFromInt(1000),
		VerificationURL: "https://meetix.io/events/event-1?code=VIP-1&order=order-1",
	}

	first, err := ticket.Render(data)
	require.NoError(t, err)
	second, err := ticket.Render(data)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestStorageKey(t *testing.T) {
	assert.Equal(t, "tickets/order-1/VIP-1.html", ticket.StorageKey("order-1", "VIP-1"))
}
