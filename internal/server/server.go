package server

import (
	"arcpay-merchant/internal/handler"
	"arcpay-merchant/internal/pubsub"
	"arcpay-merchant/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	echo           *echo.Echo
	orderHandler   *handler.OrderHandler
	webhookHandler *handler.WebhookHandler
	streamHandler  *handler.StreamHandler
}

func NewServer(
	orderService service.OrderService,
	reconcileService service.ReconcileService,
	publisher *pubsub.Publisher,
) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:           e,
		orderHandler:   handler.NewOrderHandler(orderService),
		webhookHandler: handler.NewWebhookHandler(reconcileService),
		streamHandler:  handler.NewStreamHandler(orderService, publisher),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// -------- merchant boundary --------
	s.echo.POST("/create", s.orderHandler.CreateOrder)
	s.echo.GET("/order/:uuid", s.orderHandler.GetOrder)
	s.echo.GET("/order/:uuid/events", s.streamHandler.StreamEvents)
	s.echo.GET("/order/:uuid/ws", s.streamHandler.StreamWS)
	s.echo.GET("/", s.orderHandler.ListOrders)

	// -------- gateway callbacks --------
	s.echo.POST("/webhook", s.webhookHandler.HandleWebhook)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}
