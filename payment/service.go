package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"meetix/entity"
	"meetix/log"
	"meetix/metrics"
)

type OrdersRepository interface {
	ConfirmByPaymentReference(ctx context.Context, reference string) (entity.Order, bool, error)
	CancelByPaymentReference(ctx context.Context, reference, processorStatus string) (entity.Order, bool, error)
}

type TransactionsRepository interface {
	Store(ctx context.Context, transaction entity.Transaction) error
	FinishByReference(ctx context.Context, reference string, status entity.TransactionStatus) (entity.Transaction, bool, error)
	GetPricing(ctx context.Context, pricingID string) (entity.Pricing, error)
}

type UsersRepository interface {
	Get(ctx context.Context, userID string) (entity.User, error)
}

type PaymentProvider interface {
	CreateTransaction(ctx context.Context, request entity.CreatePaymentRequest) (entity.PaymentTransaction, error)
	CreatePaymentLink(ctx context.Context, transactionID int64) (string, error)
	VerifyTransaction(ctx context.Context, transactionID int64) (entity.PaymentTransaction, error)
}

type Service struct {
	ordersRepo       OrdersRepository
	transactionsRepo TransactionsRepository
	usersRepo        UsersRepository
	paymentProvider  PaymentProvider

	callbackURL string
}

func NewService(
	ordersRepo OrdersRepository,
	transactionsRepo TransactionsRepository,
	usersRepo UsersRepository,
	paymentProvider PaymentProvider,
	callbackURL string,
) Service {
	return Service{
		ordersRepo:       ordersRepo,
		transactionsRepo: transactionsRepo,
		usersRepo:        usersRepo,
		paymentProvider:  paymentProvider,
		callbackURL:      callbackURL,
	}
}

// ProcessWebhook reconciles one processor delivery against local state.
//
// The payload's own status is never trusted; the status is re-fetched from
// the processor. The returned bool is the acknowledgement body. A delivery
// referencing nothing we know yields ErrOrphanPayment; any other error
// means reconciliation genuinely failed and the processor should retry.
func (s Service) ProcessWebhook(ctx context.Context, payload entity.WebhookPayload) (bool, error) {
	logger := log.FromContext(ctx)

	if payload.Object != "transaction" {
		logger.WithField("object", payload.Object).Info("Ignoring non-transaction webhook")
		return true, nil
	}

	verified, err := s.paymentProvider.VerifyTransaction(ctx, payload.Entity.ID)
	if err != nil {
		return false, fmt.Errorf("could not verify transaction %d: %w", payload.Entity.ID, err)
	}

	reference := strconv.FormatInt(verified.ID, 10)
	logger = logger.WithField("payment_reference", reference)

	switch {
	case verified.Approved():
		return s.settle(ctx, logger, reference, true, verified.Status)
	case verified.TerminalFailure():
		return s.settle(ctx, logger, reference, false, verified.Status)
	default:
		// still pending on the processor side, a later delivery will settle it
		logger.WithField("status", verified.Status).Info("Transaction not terminal yet")
		return true, nil
	}
}

func (s Service) settle(ctx context.Context, logger *logrus.Entry, reference string, approved bool, processorStatus string) (bool, error) {
	var (
		changed bool
		err     error
	)
	if approved {
		_, changed, err = s.ordersRepo.ConfirmByPaymentReference(ctx, reference)
	} else {
		_, changed, err = s.ordersRepo.CancelByPaymentReference(ctx, reference, processorStatus)
	}

	if err == nil {
		if changed && approved {
			metrics.OrdersConfirmed.WithLabelValues(string(entity.EventAccessPaid)).Inc()
		}
		if !changed {
			logger.Info("Order already settled, duplicate delivery ignored")
		}
		return true, nil
	}
	if !errors.Is(err, entity.ErrNotFound) {
		return false, err
	}

	// not an order, try a subscription transaction
	status := entity.TransactionStatusCompleted
	if !approved {
		status = entity.TransactionStatusFailed
	}

	_, _, err = s.transactionsRepo.FinishByReference(ctx, reference, status)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, entity.ErrNotFound) {
		return false, err
	}

	metrics.OrphanPayments.Inc()
	logger.Error("Webhook references no known order or transaction")
	return false, fmt.Errorf("payment reference %s: %w", reference, entity.ErrOrphanPayment)
}

type SubscriptionResult struct {
	Transaction entity.Transaction
	PaymentURL  string
}

// CreateSubscription checks a user out for a pricing plan: a processor
// transaction plus a local pending Transaction row with the plan's expiry.
func (s Service) CreateSubscription(ctx context.Context, userID, pricingID, callbackURL string) (SubscriptionResult, error) {
	pricing, err := s.transactionsRepo.GetPricing(ctx, pricingID)
	if err != nil {
		return SubscriptionResult{}, fmt.Errorf("could not get pricing: %w", err)
	}

	user, err := s.usersRepo.Get(ctx, userID)
	if err != nil {
		return SubscriptionResult{}, fmt.Errorf("could not get user: %w", err)
	}

	if callbackURL == "" {
		callbackURL = s.callbackURL
	}

	created, err := s.paymentProvider.CreateTransaction(ctx, entity.CreatePaymentRequest{
		Amount:      pricing.Amount,
		Description: fmt.Sprintf("Subscription %s", pricing.Title),
		CallbackURL: callbackURL,
		Customer: entity.PaymentCustomer{
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Email:     user.Email,
		},
	})
	if err != nil {
		return SubscriptionResult{}, fmt.Errorf("could not create payment transaction: %w", err)
	}

	now := time.Now().UTC()
	transaction := entity.Transaction{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		PricingID: pricing.ID,
		Amount:    pricing.Amount,
		Status:    entity.TransactionStatusPending,
		Reference: strconv.FormatInt(created.ID, 10),
		ExpiresAt: pricing.Duration.ExpiresAt(now),
		CreatedAt: now,
	}
	if err := s.transactionsRepo.Store(ctx, transaction); err != nil {
		return SubscriptionResult{}, fmt.Errorf("could not store transaction: %w", err)
	}

	paymentURL, err := s.paymentProvider.CreatePaymentLink(ctx, created.ID)
	if err != nil {
		return SubscriptionResult{}, fmt.Errorf("could not create payment link: %w", err)
	}

	return SubscriptionResult{
		Transaction: transaction,
		PaymentURL:  paymentURL,
	}, nil
}
