package httpserver

import (
	"errors"
	"net/http"

	"github.com/Skotchmaster/parts_market/internal/models"
	"github.com/Skotchmaster/parts_market/internal/service"
	"github.com/Skotchmaster/parts_market/internal/transport"
	"github.com/Skotchmaster/parts_market/pkg/logging"
	"github.com/labstack/echo/v4"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) PlaceOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.place")

	actor, err := actorFrom(c)
	if err != nil {
		return respondError(c, l, "place_order_error", err)
	}

	order, err := h.Svc.PlaceOrder(ctx, actor, c.Request().Header.Get(HeaderIdempotencyKey))
	if errors.Is(err, service.ErrConsistency) {
		l.Warn("place_order_partial", "status", 202, "order_id", order.ID, "error", err)
		return c.JSON(http.StatusAccepted, transport.PlaceOrderResponse{
			Order:   order,
			Warning: "order placed, cart will be cleared shortly",
		})
	}
	if err != nil {
		return respondError(c, l, "place_order_error", err)
	}

	l.Info("place_order_success", "order_id", order.ID)
	return c.JSON(http.StatusCreated, transport.PlaceOrderResponse{Order: order})
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list")

	actor, err := actorFrom(c)
	if err != nil {
		return respondError(c, l, "list_orders_error", err)
	}

	var q transport.ListOrdersQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return badRequest(c, l, "list_orders_error", "invalid query", err)
	}

	page, err := h.Svc.ListOrders(ctx, actor, service.ListQuery{
		Status: models.OrderStatus(q.Status),
		Page:   q.Page,
		Size:   q.Size,
	})
	if err != nil {
		return respondError(c, l, "list_orders_error", err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get")

	actor, err := actorFrom(c)
	if err != nil {
		return respondError(c, l, "get_order_error", err)
	}

	order, err := h.Svc.GetOrder(ctx, actor, c.Param("id"))
	if err != nil {
		return respondError(c, l, "get_order_error", err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) EditOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.edit")

	actor, err := actorFrom(c)
	if err != nil {
		return respondError(c, l, "edit_order_error", err)
	}

	var req transport.EditOrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, l, "edit_order_error", "invalid body", err)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, l, "edit_order_error", err.Error(), err)
	}

	patch := service.OrderPatch{UserName: req.UserName, UserPhone: req.UserPhone}
	for _, it := range req.Items {
		patch.Items = append(patch.Items, service.QtyChange{PartID: it.PartID, Qty: it.Qty})
	}

	order, err := h.Svc.EditOrder(ctx, actor, c.Param("id"), patch)
	if err != nil {
		return respondError(c, l, "edit_order_error", err)
	}

	l.Info("edit_order_success", "order_id", order.ID)
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) CancelOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.cancel")

	actor, err := actorFrom(c)
	if err != nil {
		return respondError(c, l, "cancel_order_error", err)
	}

	order, err := h.Svc.CancelOrder(ctx, actor, c.Param("id"))
	if err != nil {
		return respondError(c, l, "cancel_order_error", err)
	}

	l.Info("cancel_order_success", "order_id", order.ID)
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) Pending(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.pending")

	actor, err := actorFrom(c)
	if err != nil {
		return respondError(c, l, "pending_orders_error", err)
	}

	pending, err := h.Svc.HasPendingOrders(ctx, actor.UserID)
	if err != nil {
		return respondError(c, l, "pending_orders_error", err)
	}
	return c.JSON(http.StatusOK, transport.PendingResponse{HasPending: pending})
}

func (h *OrderHTTP) StreamPending(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.pending_stream")

	actor, err := actorFrom(c)
	if err != nil {
		return respondError(c, l, "pending_stream_error", err)
	}

	ch, err := h.Svc.SubscribePendingOrders(ctx, actor.UserID)
	if err != nil {
		return respondError(c, l, "pending_stream_error", err)
	}

	out := make(chan transport.PendingResponse, 1)
	go func() {
		defer close(out)
		for v := range ch {
			select {
			case out <- transport.PendingResponse{HasPending: v}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return streamSSE(c, "pending", out)
}
