package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"arcpay-merchant/internal/metrics"
	"arcpay-merchant/internal/model"
	"arcpay-merchant/internal/pubsub"
	"arcpay-merchant/internal/service"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// sseKeepAlive spaces comment frames so idle streams survive proxies.
const sseKeepAlive = 30 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamHandler serves live order streams: the current snapshot
// immediately, then one message per accepted transition. Delivery is
// at-least-once for the life of the connection; a reconnecting client
// re-fetches current state by getting the snapshot again on resubscribe.
type StreamHandler struct {
	orderService service.OrderService
	publisher    *pubsub.Publisher
}

func NewStreamHandler(orderService service.OrderService, publisher *pubsub.Publisher) *StreamHandler {
	return &StreamHandler{
		orderService: orderService,
		publisher:    publisher,
	}
}

// StreamEvents is the SSE variant: GET /order/:uuid/events.
func (h *StreamHandler) StreamEvents(c echo.Context) error {
	ctx := c.Request().Context()
	uuid := c.Param("uuid")

	// Subscribe before reading the snapshot so a transition landing
	// in between is not lost; it may then arrive twice, which
	// at-least-once delivery allows.
	sub := h.publisher.Subscribe(uuid)
	defer sub.Close()

	order, err := h.orderService.Get(ctx, uuid)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusBadGateway, "failed to fetch order")
	}

	metrics.ActiveSubscriptions.Inc()
	defer metrics.ActiveSubscriptions.Dec()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeSSE(w, order); err != nil {
		return nil
	}

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snapshot, ok := <-sub.C():
			if !ok {
				return nil
			}
			if err := writeSSE(w, &snapshot); err != nil {
				return nil
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

func writeSSE(w *echo.Response, order *model.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	w.Flush()
	return nil
}

// StreamWS is the WebSocket variant: GET /order/:uuid/ws. Same
// snapshot-then-transitions contract as the SSE stream.
func (h *StreamHandler) StreamWS(c echo.Context) error {
	ctx := c.Request().Context()
	uuid := c.Param("uuid")

	sub := h.publisher.Subscribe(uuid)
	defer sub.Close()

	order, err := h.orderService.Get(ctx, uuid)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusBadGateway, "failed to fetch order")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	metrics.ActiveSubscriptions.Inc()
	defer metrics.ActiveSubscriptions.Dec()

	// Read pump: we never expect client messages, but reading is what
	// notices the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(order); err != nil {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-closed:
			return nil
		case snapshot, ok := <-sub.C():
			if !ok {
				return nil
			}
			if err := conn.WriteJSON(snapshot); err != nil {
				return nil
			}
		}
	}
}
