package httpserver

import (
	"context"
	"net/http"

	"github.com/Skotchmaster/parts_market/internal/models"
	"github.com/Skotchmaster/parts_market/internal/service"
	"github.com/Skotchmaster/parts_market/internal/transport"
	"github.com/Skotchmaster/parts_market/pkg/logging"
	"github.com/labstack/echo/v4"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	actor, err := actorFrom(c)
	if err != nil {
		return respondError(c, l, "get_cart_error", err)
	}

	cart, err := h.Svc.GetCart(ctx, actor.UserID)
	if err != nil {
		return respondError(c, l, "get_cart_error", err)
	}

	c.Response().Header().Set("ETag", etag(cart.Version))
	return c.JSON(http.StatusOK, transport.NewCartResponse(cart))
}

func (h *CartHTTP) Summary(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.summary")

	actor, err := actorFrom(c)
	if err != nil {
		return respondError(c, l, "cart_summary_error", err)
	}

	summary, err := h.Svc.Summary(ctx, actor.UserID)
	if err != nil {
		return respondError(c, l, "cart_summary_error", err)
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *CartHTTP) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	actor, err := actorFrom(c)
	if err != nil {
		return respondError(c, l, "add_to_cart_error", err)
	}

	var req transport.AddItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, l, "add_to_cart_error", "invalid body", err)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, l, "add_to_cart_error", err.Error(), err)
	}
	version, err := ifMatch(c)
	if err != nil {
		return badRequest(c, l, "add_to_cart_error", err.Error(), err)
	}

	cart, err := h.Svc.AddItem(ctx, actor.UserID, req.PartID, req.Qty, version)
	if err != nil {
		return respondError(c, l, "add_to_cart_error", err)
	}

	l.Info("item added to cart", "part_id", req.PartID, "qty", req.Qty)
	return h.writeCart(c, cart)
}

func (h *CartHTTP) IncreaseQty(c echo.Context) error {
	return h.lineOp(c, "cart.increase", h.Svc.IncreaseQty)
}

func (h *CartHTTP) DecreaseQty(c echo.Context) error {
	return h.lineOp(c, "cart.decrease", h.Svc.DecreaseQty)
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	return h.lineOp(c, "cart.remove", h.Svc.RemoveItem)
}

type lineFunc func(ctx context.Context, userID, partID string, ifVersion *int64) (models.Cart, error)

func (h *CartHTTP) lineOp(c echo.Context, handler string, op lineFunc) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", handler)

	actor, err := actorFrom(c)
	if err != nil {
		return respondError(c, l, "cart_line_error", err)
	}
	partID := c.Param("partId")
	if partID == "" {
		return badRequest(c, l, "cart_line_error", "partId required", nil)
	}
	version, err := ifMatch(c)
	if err != nil {
		return badRequest(c, l, "cart_line_error", err.Error(), err)
	}

	cart, err := op(ctx, actor.UserID, partID, version)
	if err != nil {
		return respondError(c, l, "cart_line_error", err)
	}
	return h.writeCart(c, cart)
}

func (h *CartHTTP) writeCart(c echo.Context, cart models.Cart) error {
	c.Response().Header().Set("ETag", etag(cart.Version))
	return c.JSON(http.StatusOK, transport.NewCartResponse(cart))
}

func (h *CartHTTP) StreamSummary(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.summary_stream")

	actor, err := actorFrom(c)
	if err != nil {
		return respondError(c, l, "cart_stream_error", err)
	}

	ch, err := h.Svc.SubscribeCartSummary(ctx, actor.UserID)
	if err != nil {
		return respondError(c, l, "cart_stream_error", err)
	}
	return streamSSE(c, "summary", ch)
}
