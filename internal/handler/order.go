package handler

import (
	"errors"
	"net/http"

	"arcpay-merchant/internal/client"
	"arcpay-merchant/internal/dto"
	"arcpay-merchant/internal/metrics"
	"arcpay-merchant/internal/service"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// CreateOrder forwards the merchant order to the gateway. Upstream
// failures propagate the upstream status code.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	order, err := h.orderService.Create(ctx, &req)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			return c.JSON(apiErr.StatusCode, &dto.ErrorResponse{Message: apiErr.Message})
		}
		return echo.NewHTTPError(http.StatusBadGateway, "failed to create order")
	}

	metrics.OrdersCreatedTotal.Inc()
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	uuid := c.Param("uuid")

	order, err := h.orderService.Get(ctx, uuid)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			return c.JSON(apiErr.StatusCode, &dto.ErrorResponse{Message: apiErr.Message})
		}
		return echo.NewHTTPError(http.StatusBadGateway, "failed to fetch order")
	}

	return c.JSON(http.StatusOK, order)
}

// ListOrders dumps every known order. Diagnostic only.
func (h *OrderHandler) ListOrders(c echo.Context) error {
	return c.JSON(http.StatusOK, h.orderService.List(c.Request().Context()))
}
