package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"meetix/config"
	"meetix/db/chat"
	"meetix/db/events"
	"meetix/entity"
	"meetix/gateway"
	"meetix/pubsub"
	"meetix/service"
)

var (
	httpAddress = ":8080"
	baseURL     = "http://localhost:8080"
)

func TestComponent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("github.com/testcontainers/testcontainers-go.(*Reaper).Connect.func1"))
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dbconn, err := sqlx.Open("postgres", postgresURL)
	require.NoError(t, err)
	defer dbconn.Close()

	redisClient := pubsub.NewRedisClient(redisURL)
	defer redisClient.Close()

	fedapayClient := &gateway.FedapayMock{}
	storageClient := &gateway.StorageMock{}
	mailerClient := &gateway.MailerMock{}

	cfg := config.Config{
		HTTPAddr:              httpAddress,
		PostgresURL:           postgresURL,
		RedisAddr:             redisURL,
		AppBaseURL:            baseURL,
		GuestOrderQuantityCap: 5,
	}
	cfg.Fedapay.CallbackURL = baseURL + "/payment/callback"

	done := make(chan struct{})
	go func() {
		<-done
		e := syscall.Kill(syscall.Getpid(), syscall.SIGTERM)
		require.NoError(t, e)
	}()

	finished := make(chan struct{})
	go func() {
		svc := service.New(
			cfg,
			dbconn,
			redisClient,
			fedapayClient,
			storageClient,
			mailerClient,
		)
		assert.NoError(t, svc.Run(ctx))
		close(finished)
	}()

	defer func() {
		close(done)
		<-finished
	}()

	waitForHttpServer(t)

	eventsRepo := events.NewPostgresRepository(dbconn)
	chatRepo := chat.NewPostgresRepository(dbconn)

	t.Run("free order is confirmed and fulfilled", func(t *testing.T) {
		eventID := createEvent(t, map[string]any{
			"name":        "Community Meetup",
			"venue":       "Cotonou",
			"capacity":    50,
			"access_type": "FREE",
			"starts_at":   time.Now().Add(24 * time.Hour).Format(time.RFC3339),
			"ends_at":     time.Now().Add(30 * time.Hour).Format(time.RFC3339),
			"tiers": []map[string]any{
				{"name": "Standard", "unit_amount": "0", "seats_per_unit": 1},
			},
		})

		tierID := soleTierID(t, eventsRepo, eventID)

		var resp orderResponse
		postJSON(t, "/events/"+eventID+"/orders", map[string]any{
			"guest": map[string]any{
				"email":      "guest@example.com",
				"first_name": "Ada",
				"last_name":  "Lovelace",
			},
			"items": []map[string]any{{"tier_id": tierID, "quantity": 2}},
		}, http.StatusCreated, &resp)

		assert.Equal(t, "order confirmed", resp.Message)
		assert.Empty(t, resp.PaymentURL)

		assertRemainingSeats(t, eventsRepo, eventID, 48)
		assertArtifactCount(t, storageClient, resp.OrderID, 2)

		assert.EventuallyWithT(t, func(t *assert.CollectT) {
			members, err := chatRepo.Members(context.Background(), eventID)
			if !assert.NoError(t, err) {
				return
			}
			assert.Len(t, members, 1)
		}, 10*time.Second, 100*time.Millisecond)

		assert.EventuallyWithT(t, func(t *assert.CollectT) {
			mails := mailerClient.Sent()
			if !assert.Len(t, mails, 1) {
				return
			}
			assert.Equal(t, "guest@example.com", mails[0].To)
			assert.Len(t, mails[0].Attachments, 2)
		}, 10*time.Second, 100*time.Millisecond)
	})

	t.Run("paid order confirms via webhook, duplicates are no-ops", func(t *testing.T) {
		eventID := createEvent(t, map[string]any{
			"name":        "Go Conference",
			"venue":       "Cotonou Convention Center",
			"capacity":    50,
			"access_type": "PAID",
			"starts_at":   time.Now().Add(48 * time.Hour).Format(time.RFC3339),
			"ends_at":     time.Now().Add(54 * time.Hour).Format(time.RFC3339),
			"tiers": []map[string]any{
				{"name": "VIP", "unit_amount": "1000", "seats_per_unit": 1},
			},
		})

		tierID := soleTierID(t, eventsRepo, eventID)

		var resp orderResponse
		postJSON(t, "/events/"+eventID+"/orders", map[string]any{
			"guest": map[string]any{
				"email":      "payer@example.com",
				"first_name": "Alan",
				"last_name":  "Turing",
			},
			"items": []map[string]any{{"tier_id": tierID, "quantity": 1}},
		}, http.StatusCreated, &resp)

		require.NotEmpty(t, resp.PaymentURL)
		require.NotEmpty(t, resp.PaymentReference)

		// the order is pending until the processor reports approval
		assertRemainingSeats(t, eventsRepo, eventID, 50)

		transactionID, err := strconv.ParseInt(resp.PaymentReference, 10, 64)
		require.NoError(t, err)
		fedapayClient.SetStatus(transactionID, "approved")

		var ack webhookAck
		postJSON(t, "/fedapay/webhook", webhookPayload(transactionID), http.StatusOK, &ack)
		assert.True(t, ack.Received)

		assertRemainingSeats(t, eventsRepo, eventID, 49)
		assertArtifactCount(t, storageClient, resp.OrderID, 1)

		assert.EventuallyWithT(t, func(t *assert.CollectT) {
			var got struct {
				Status entity.OrderStatus `json:"status"`
			}
			getJSON(t, "/orders/"+resp.Reference, &got)
			assert.Equal(t, entity.OrderStatusConfirmed, got.Status)
		}, 10*time.Second, 100*time.Millisecond)

		mailsBefore := len(mailerClient.Sent())
		artifactsBefore := len(storageClient.Keys())

		// the processor retries the same delivery
		for i := 0; i < 2; i++ {
			var dup webhookAck
			postJSON(t, "/fedapay/webhook", webhookPayload(transactionID), http.StatusOK, &dup)
			assert.True(t, dup.Received)
		}

		// no double decrement, no duplicate artifacts, no duplicate mail
		time.Sleep(2 * time.Second)
		assertRemainingSeats(t, eventsRepo, eventID, 49)
		assert.Equal(t, artifactsBefore, len(storageClient.Keys()))
		assert.Equal(t, mailsBefore, len(mailerClient.Sent()))
	})

	t.Run("orphan webhook is acknowledged and dropped", func(t *testing.T) {
		fedapayClient.SetStatus(424242, "approved")

		artifactsBefore := len(storageClient.Keys())

		var ack webhookAck
		postJSON(t, "/fedapay/webhook", webhookPayload(424242), http.StatusOK, &ack)
		assert.False(t, ack.Received)

		assert.Equal(t, artifactsBefore, len(storageClient.Keys()))
	})
}

type orderResponse struct {
	OrderID          string `json:"order_id"`
	Reference        string `json:"reference"`
	Message          string `json:"message"`
	PaymentURL       string `json:"payment_url"`
	PaymentReference string `json:"payment_reference"`
}

type webhookAck struct {
	Received bool `json:"received"`
}

func webhookPayload(transactionID int64) map[string]any {
	return map[string]any{
		"object": "transaction",
		"entity": map[string]any{"id": transactionID},
	}
}

func createEvent(t *testing.T, body map[string]any) string {
	t.Helper()

	var resp struct {
		EventID string `json:"event_id"`
	}
	postJSON(t, "/events", body, http.StatusCreated, &resp)
	require.NotEmpty(t, resp.EventID)
	return resp.EventID
}

func soleTierID(t *testing.T, eventsRepo *events.PostgresRepository, eventID string) string {
	t.Helper()

	tiers, err := eventsRepo.Tiers(context.Background(), eventID)
	require.NoError(t, err)
	require.Len(t, tiers, 1)
	return tiers[0].ID
}

func assertRemainingSeats(t *testing.T, eventsRepo *events.PostgresRepository, eventID string, want int) {
	t.Helper()

	assert.EventuallyWithT(t, func(t *assert.CollectT) {
		event, err := eventsRepo.Get(context.Background(), eventID)
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, want, event.RemainingSeats)
	}, 10*time.Second, 100*time.Millisecond)
}

func assertArtifactCount(t *testing.T, storageClient *gateway.StorageMock, orderID string, want int) {
	t.Helper()

	assert.EventuallyWithT(t, func(t *assert.CollectT) {
		keys := lo.Filter(storageClient.Keys(), func(key string, _ int) bool {
			return strings.HasPrefix(key, "tickets/"+orderID+"/")
		})
		assert.Len(t, keys, want)
	}, 10*time.Second, 100*time.Millisecond)
}

func postJSON(t require.TestingT, path string, body map[string]any, wantStatus int, out any) {
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(baseURL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equalf(t, wantStatus, resp.StatusCode, "POST %s", path)

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
}

func getJSON(t require.TestingT, path string, out any) {
	resp, err := http.Get(baseURL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func waitForHttpServer(t *testing.T) {
	t.Helper()

	require.EventuallyWithT(
		t,
		func(t *assert.CollectT) {
			resp, err := http.Get(fmt.Sprintf("%s/health", baseURL))
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			if assert.Less(t, resp.StatusCode, 300, "API not ready, http status: %d", resp.StatusCode) {
				return
			}
		},
		time.Second*10,
		time.Millisecond*50,
	)
}
