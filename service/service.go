package service

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"meetix/config"
	"meetix/db"
	"meetix/db/chat"
	"meetix/db/events"
	ordersdb "meetix/db/orders"
	"meetix/db/transactions"
	"meetix/db/users"
	"meetix/http"
	"meetix/log"
	"meetix/orders"
	"meetix/payment"
	"meetix/pubsub"
	"meetix/pubsub/bus"
	"meetix/pubsub/event"
	"meetix/pubsub/outbox"
)

func init() {
	log.Init(logrus.InfoLevel)
}

type Service struct {
	db              *sqlx.DB
	watermillRouter *message.Router
	httpServer      *http.Server
}

// PaymentProvider is the full payment processor surface the service needs:
// intake creates transactions and links, reconciliation re-verifies them.
type PaymentProvider interface {
	orders.PaymentProvider
	payment.PaymentProvider
}

func New(
	cfg config.Config,
	db *sqlx.DB,
	redisClient *redis.Client,
	paymentProvider PaymentProvider,
	storageService event.StorageService,
	mailerService event.MailerService,
) Service {
	eventsRepo := events.NewPostgresRepository(db)
	ordersRepo := ordersdb.NewPostgresRepository(db)
	usersRepo := users.NewPostgresRepository(db)
	chatRepo := chat.NewPostgresRepository(db)
	transactionsRepo := transactions.NewPostgresRepository(db)

	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))

	redisPublisher := pubsub.NewRedisPublisher(redisClient, watermillLogger)

	eventBus, err := bus.NewEventBus(redisPublisher)
	if err != nil {
		panic(fmt.Errorf("failed to create event bus: %w", err))
	}

	eventsHandler := event.NewHandler(
		eventBus,
		ordersRepo,
		eventsRepo,
		usersRepo,
		chatRepo,
		storageService,
		mailerService,
		cfg.AppBaseURL,
	)

	postgresSubscriber := outbox.NewPostgresSubscriber(db, watermillLogger)
	eventProcessorConfig := event.NewProcessorConfig(redisClient, watermillLogger)

	watermillRouter, err := pubsub.NewWatermillRouter(
		postgresSubscriber,
		redisPublisher,
		eventProcessorConfig,
		eventsHandler,
		watermillLogger,
	)
	if err != nil {
		panic(fmt.Errorf("failed to create watermill router: %w", err))
	}

	ordersService := orders.NewService(
		eventsRepo,
		ordersRepo,
		usersRepo,
		paymentProvider,
		orders.Config{
			CallbackURL:      cfg.Fedapay.CallbackURL,
			GuestQuantityCap: cfg.GuestOrderQuantityCap,
		},
	)

	paymentService := payment.NewService(
		ordersRepo,
		transactionsRepo,
		usersRepo,
		paymentProvider,
		cfg.Fedapay.CallbackURL,
	)

	httpServer := http.NewServer(
		cfg.HTTPAddr,
		eventsRepo,
		ordersService,
		paymentService,
	)

	return Service{
		db,
		watermillRouter,
		httpServer,
	}
}

func (s Service) Run(ctx context.Context) error {
	if err := db.InitializeDatabaseSchema(s.db); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.watermillRouter.Run(ctx)
	})

	g.Go(func() error {
		// the HTTP server starts after the router, so the service is not
		// reported healthy before the handlers consume
		<-s.watermillRouter.Running()

		err := s.httpServer.Run(ctx)
		if err != nil {
			return err
		}

		return nil
	})

	return g.Wait()
}
