package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"meetix/entity"
	"meetix/log"
	"meetix/orders"
	"meetix/payment"
)

type EventsRepository interface {
	Store(ctx context.Context, event entity.Event, tiers []entity.PriceTier) error
	Get(ctx context.Context, eventID string) (entity.Event, error)
}

type OrdersService interface {
	PlaceOrder(ctx context.Context, request orders.PlaceOrderRequest) (orders.PlaceOrderResult, error)
	GetOrder(ctx context.Context, reference string) (entity.OrderWithItems, error)
}

type PaymentService interface {
	ProcessWebhook(ctx context.Context, payload entity.WebhookPayload) (bool, error)
	CreateSubscription(ctx context.Context, userID, pricingID, callbackURL string) (payment.SubscriptionResult, error)
}

type Server struct {
	addr string
	e    *echo.Echo

	eventsRepo     EventsRepository
	ordersService  OrdersService
	paymentService PaymentService
}

func NewServer(
	addr string,
	eventsRepo EventsRepository,
	ordersService OrdersService,
	paymentService PaymentService,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(otelecho.Middleware("meetix"))
	e.Use(loggerMiddleware)

	server := &Server{
		addr:           addr,
		e:              e,
		eventsRepo:     eventsRepo,
		ordersService:  ordersService,
		paymentService: paymentService,
	}

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/events", server.PostEvents)
	e.POST("/events/:event_id/orders", server.PostOrders)
	e.GET("/orders/:reference", server.GetOrder)
	e.POST("/subscriptions", server.PostSubscriptions)
	e.POST("/fedapay/webhook", server.PostFedapayWebhook)

	return server
}

func loggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		entry := log.FromContext(req.Context()).WithFields(logrus.Fields{
			"method": req.Method,
			"path":   req.URL.Path,
		})
		c.SetRequest(req.WithContext(log.ToContext(req.Context(), entry)))
		return next(c)
	}
}

func (s Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		err := s.e.Shutdown(ctx)
		if err != nil {
			log.FromContext(ctx).WithError(err).Error("failed to shutdown HTTP server")
		}
	}()
	log.FromContext(ctx).WithField("addr", s.addr).Info("[HTTP] server listening")
	if err := s.e.Start(s.addr); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
