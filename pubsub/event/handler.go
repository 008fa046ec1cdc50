package event

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"meetix/entity"
)

type OrdersRepository interface {
	GetWithItems(ctx context.Context, orderID string) (entity.OrderWithItems, error)
	SetItemTicketArtifacts(ctx context.Context, orderItemID string, urls, keys []string) error
}

type EventsRepository interface {
	Get(ctx context.Context, eventID string) (entity.Event, error)
	AllocateSeats(ctx context.Context, eventID, orderID string, seatUnits int) (bool, error)
}

type UsersRepository interface {
	Get(ctx context.Context, userID string) (entity.User, error)
}

type ChatRepository interface {
	Enroll(ctx context.Context, eventID, eventName, userID string) error
}

type StorageService interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
}

type MailerService interface {
	SendOrderConfirmation(ctx context.Context, mail entity.OrderConfirmationMail) error
}

type Handler struct {
	eventBus *cqrs.EventBus

	ordersRepo OrdersRepository
	eventsRepo EventsRepository
	usersRepo  UsersRepository
	chatRepo   ChatRepository

	storageService StorageService
	mailerService  MailerService

	appBaseURL string
}

func NewHandler(
	eventBus *cqrs.EventBus,
	ordersRepo OrdersRepository,
	eventsRepo EventsRepository,
	usersRepo UsersRepository,
	chatRepo ChatRepository,
	storageService StorageService,
	mailerService MailerService,
	appBaseURL string,
) Handler {
	if eventBus == nil {
		panic("missing eventBus")
	}
	if ordersRepo == nil {
		panic("missing ordersRepo")
	}
	if eventsRepo == nil {
		panic("missing eventsRepo")
	}
	if usersRepo == nil {
		panic("missing usersRepo")
	}
	if chatRepo == nil {
		panic("missing chatRepo")
	}
	if storageService == nil {
		panic("missing storageService")
	}
	if mailerService == nil {
		panic("missing mailerService")
	}

	return Handler{
		eventBus:       eventBus,
		ordersRepo:     ordersRepo,
		eventsRepo:     eventsRepo,
		usersRepo:      usersRepo,
		chatRepo:       chatRepo,
		storageService: storageService,
		mailerService:  mailerService,
		appBaseURL:     appBaseURL,
	}
}
