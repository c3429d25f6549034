package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/parts_market/internal/models"
	"github.com/Skotchmaster/parts_market/internal/service"
	"github.com/Skotchmaster/parts_market/internal/transport"
	"github.com/Skotchmaster/parts_market/pkg/logging"
	"github.com/labstack/echo/v4"
)

type AdminHTTP struct {
	Orders     *service.OrderService
	Reconciler *service.Reconciler
}

func (h *AdminHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.orders")

	actor, err := actorFrom(c)
	if err != nil {
		return respondError(c, l, "admin_list_orders_error", err)
	}

	var q transport.ListOrdersQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return badRequest(c, l, "admin_list_orders_error", "invalid query", err)
	}

	page, err := h.Orders.ListOrders(ctx, actor, service.ListQuery{
		Status:   models.OrderStatus(q.Status),
		Page:     q.Page,
		Size:     q.Size,
		AllUsers: true,
	})
	if err != nil {
		return respondError(c, l, "admin_list_orders_error", err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *AdminHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.order_status")

	actor, err := actorFrom(c)
	if err != nil {
		return respondError(c, l, "update_status_error", err)
	}

	var req transport.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, l, "update_status_error", "invalid body", err)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, l, "update_status_error", err.Error(), err)
	}

	order, err := h.Orders.UpdateStatus(ctx, actor, c.Param("id"), req.Status)
	if err != nil {
		return respondError(c, l, "update_status_error", err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *AdminHTTP) Reconcile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.reconcile")

	rep, err := h.Reconciler.Sweep(ctx)
	if err != nil {
		return respondError(c, l, "reconcile_error", err)
	}
	return c.JSON(http.StatusOK, rep)
}
