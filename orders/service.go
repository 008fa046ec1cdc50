package orders

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"meetix/entity"
	"meetix/log"
	"meetix/metrics"
)

type EventsRepository interface {
	Get(ctx context.Context, eventID string) (entity.Event, error)
	Tiers(ctx context.Context, eventID string) ([]entity.PriceTier, error)
	EnsureDefaultTier(ctx context.Context, eventID string) (entity.PriceTier, error)
}

type OrdersRepository interface {
	Store(ctx context.Context, order entity.Order, items []entity.OrderItem) error
	GetByReference(ctx context.Context, reference string) (entity.OrderWithItems, error)
	SetPaymentReference(ctx context.Context, orderID, reference string) error
}

type UsersRepository interface {
	Get(ctx context.Context, userID string) (entity.User, error)
	ResolveGuest(ctx context.Context, user entity.User) (entity.User, error)
}

type PaymentProvider interface {
	CreateTransaction(ctx context.Context, request entity.CreatePaymentRequest) (entity.PaymentTransaction, error)
	CreatePaymentLink(ctx context.Context, transactionID int64) (string, error)
}

type Config struct {
	// CallbackURL is where the processor redirects the buyer after checkout,
	// unless the caller supplies its own.
	CallbackURL string
	// GuestQuantityCap bounds the ticket quantity an unauthenticated buyer
	// may request for a free event in one order.
	GuestQuantityCap int
}

type Service struct {
	eventsRepo      EventsRepository
	ordersRepo      OrdersRepository
	usersRepo       UsersRepository
	paymentProvider PaymentProvider
	config          Config
}

func NewService(
	eventsRepo EventsRepository,
	ordersRepo OrdersRepository,
	usersRepo UsersRepository,
	paymentProvider PaymentProvider,
	config Config,
) Service {
	return Service{
		eventsRepo:      eventsRepo,
		ordersRepo:      ordersRepo,
		usersRepo:       usersRepo,
		paymentProvider: paymentProvider,
		config:          config,
	}
}

type ItemRequest struct {
	TierID   string `json:"tier_id"`
	Quantity int    `json:"quantity"`
}

type PlaceOrderRequest struct {
	EventID     string
	Buyer       entity.Buyer
	Items       []ItemRequest
	CallbackURL string
}

type PlaceOrderResult struct {
	Order entity.Order

	// PaymentURL and PaymentReference are set only on the paid path.
	PaymentURL       string
	PaymentReference string
}

// PlaceOrder validates and persists a purchase request. A zero-amount
// order is confirmed on the spot; a paid one is left pending and handed a
// hosted checkout link.
//
// The capacity check here is advisory: the binding decrement happens in
// the seat ledger at confirmation time, so intake never holds capacity
// hostage for orders that are never paid.
func (s Service) PlaceOrder(ctx context.Context, request PlaceOrderRequest) (PlaceOrderResult, error) {
	event, err := s.eventsRepo.Get(ctx, request.EventID)
	if err != nil {
		return PlaceOrderResult{}, fmt.Errorf("could not get event: %w", err)
	}
	if !event.Available(time.Now()) {
		return PlaceOrderResult{}, entity.ErrEventNotAvailable
	}

	items, totalAmount, seatUnits, err := s.buildItems(ctx, event, request.Items)
	if err != nil {
		return PlaceOrderResult{}, err
	}

	if seatUnits > event.RemainingSeats {
		return PlaceOrderResult{}, entity.ErrCapacityExceeded
	}

	if event.AccessType == entity.EventAccessPaid {
		if len(items) == 0 || !totalAmount.IsPositive() {
			return PlaceOrderResult{}, entity.ErrInvalidPaidOrder
		}
	}

	if !request.Buyer.Authenticated() && event.AccessType == entity.EventAccessFree {
		quantity := 0
		for _, item := range items {
			quantity += item.Quantity
		}
		if quantity > s.config.GuestQuantityCap {
			return PlaceOrderResult{}, entity.ErrQuantityCapExceeded
		}
	}

	// guest resolution writes a user row, so it runs only after the whole
	// validation ladder
	buyer, err := s.resolveBuyer(ctx, request.Buyer)
	if err != nil {
		return PlaceOrderResult{}, err
	}

	order := entity.Order{
		ID:            uuid.NewString(),
		Reference:     entity.NewOrderReference(),
		EventID:       event.ID,
		UserID:        buyer.ID,
		TotalAmount:   totalAmount,
		Status:        entity.OrderStatusPending,
		PaymentStatus: entity.PaymentStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	if totalAmount.IsZero() {
		order.Status = entity.OrderStatusConfirmed
		order.PaymentStatus = entity.PaymentStatusCompleted
	}

	for i := range items {
		items[i].OrderID = order.ID
	}

	if err := s.ordersRepo.Store(ctx, order, items); err != nil {
		return PlaceOrderResult{}, fmt.Errorf("could not store order: %w", err)
	}

	if order.Status == entity.OrderStatusConfirmed {
		metrics.OrdersConfirmed.WithLabelValues(string(event.AccessType)).Inc()
		log.FromContext(ctx).WithField("order_id", order.ID).Info("Free order confirmed")
		return PlaceOrderResult{Order: order}, nil
	}

	return s.startPayment(ctx, order, event, buyer, request.CallbackURL)
}

// GetOrder fetches an order by id, short reference, or payment reference.
func (s Service) GetOrder(ctx context.Context, reference string) (entity.OrderWithItems, error) {
	return s.ordersRepo.GetByReference(ctx, reference)
}

func (s Service) buildItems(ctx context.Context, event entity.Event, requested []ItemRequest) ([]entity.OrderItem, decimal.Decimal, int, error) {
	tiers, err := s.eventsRepo.Tiers(ctx, event.ID)
	if err != nil {
		return nil, decimal.Zero, 0, fmt.Errorf("could not get price tiers: %w", err)
	}

	if len(requested) == 0 {
		if event.AccessType != entity.EventAccessFree {
			return nil, decimal.Zero, 0, entity.ErrInvalidPaidOrder
		}
		// a free event without configured prices sells single units of a
		// synthesized zero-amount tier
		tier, err := s.eventsRepo.EnsureDefaultTier(ctx, event.ID)
		if err != nil {
			return nil, decimal.Zero, 0, err
		}
		tiers = append(tiers, tier)
		requested = []ItemRequest{{TierID: tier.ID, Quantity: 1}}
	}

	tiersByID := make(map[string]entity.PriceTier, len(tiers))
	for _, tier := range tiers {
		tiersByID[tier.ID] = tier
	}

	var (
		items       []entity.OrderItem
		totalAmount = decimal.Zero
		seatUnits   int
	)
	for _, item := range requested {
		tier, ok := tiersByID[item.TierID]
		if !ok {
			return nil, decimal.Zero, 0, entity.ErrInvalidTier
		}
		if item.Quantity <= 0 {
			return nil, decimal.Zero, 0, entity.ErrInvalidQuantity
		}

		items = append(items, entity.OrderItem{
			ID:          uuid.NewString(),
			PriceTierID: tier.ID,
			Quantity:    item.Quantity,
			UnitPrice:   tier.UnitAmount,
		})
		totalAmount = totalAmount.Add(tier.UnitAmount.Mul(decimal.NewFromInt(int64(item.Quantity))))
		seatUnits += item.Quantity * tier.SeatsPerUnit
	}

	return items, totalAmount, seatUnits, nil
}

func (s Service) resolveBuyer(ctx context.Context, buyer entity.Buyer) (entity.User, error) {
	if buyer.Authenticated() {
		return s.usersRepo.Get(ctx, buyer.UserID)
	}

	if !buyer.HasGuestInfo() {
		return entity.User{}, entity.ErrGuestInfoRequired
	}

	return s.usersRepo.ResolveGuest(ctx, entity.User{
		ID:        uuid.NewString(),
		Email:     buyer.GuestEmail,
		FirstName: buyer.GuestFirstName,
		LastName:  buyer.GuestLastName,
		Guest:     true,
	})
}

func (s Service) startPayment(
	ctx context.Context,
	order entity.Order,
	event entity.Event,
	buyer entity.User,
	callbackURL string,
) (PlaceOrderResult, error) {
	if callbackURL == "" {
		callbackURL = s.config.CallbackURL
	}

	transaction, err := s.paymentProvider.CreateTransaction(ctx, entity.CreatePaymentRequest{
		Amount:      order.TotalAmount,
		Description: fmt.Sprintf("Order %s for %s", order.Reference, event.Name),
		CallbackURL: callbackURL,
		Customer: entity.PaymentCustomer{
			FirstName: buyer.FirstName,
			LastName:  buyer.LastName,
			Email:     buyer.Email,
		},
	})
	if err != nil {
		return PlaceOrderResult{}, fmt.Errorf("could not create payment transaction: %w", err)
	}

	paymentReference := strconv.FormatInt(transaction.ID, 10)
	if err := s.ordersRepo.SetPaymentReference(ctx, order.ID, paymentReference); err != nil {
		return PlaceOrderResult{}, err
	}
	order.PaymentReference = &paymentReference

	paymentURL, err := s.paymentProvider.CreatePaymentLink(ctx, transaction.ID)
	if err != nil {
		return PlaceOrderResult{}, fmt.Errorf("could not create payment link: %w", err)
	}

	return PlaceOrderResult{
		Order:            order,
		PaymentURL:       paymentURL,
		PaymentReference: paymentReference,
	}, nil
}
