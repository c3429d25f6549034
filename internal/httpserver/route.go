package httpserver

import (
	"context"
	"net/http"

	middleware "github.com/Skotchmaster/parts_market/pkg/middleware/auth"
	"github.com/labstack/echo/v4"
)

type Deps struct {
	CartHandler  *CartHTTP
	OrderHandler *OrderHTTP
	AdminHandler *AdminHTTP
	JWTSecret    []byte
	// Ready backs /health/ready; nil means always ready.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	authMW := middleware.NewAuthMiddleware(d.JWTSecret)

	cart := e.Group("/cart", authMW.RequireAuth)
	cart.GET("", d.CartHandler.GetCart)
	cart.GET("/summary", d.CartHandler.Summary)
	cart.GET("/summary/stream", d.CartHandler.StreamSummary)
	cart.POST("/items", d.CartHandler.AddItem)
	cart.POST("/items/:partId/increase", d.CartHandler.IncreaseQty)
	cart.POST("/items/:partId/decrease", d.CartHandler.DecreaseQty)
	cart.DELETE("/items/:partId", d.CartHandler.RemoveItem)

	orders := e.Group("/orders", authMW.RequireAuth)
	orders.POST("", d.OrderHandler.PlaceOrder)
	orders.GET("", d.OrderHandler.ListOrders)
	orders.GET("/pending", d.OrderHandler.Pending)
	orders.GET("/pending/stream", d.OrderHandler.StreamPending)
	orders.GET("/:id", d.OrderHandler.GetOrder)
	orders.PATCH("/:id", d.OrderHandler.EditOrder)
	orders.POST("/:id/cancel", d.OrderHandler.CancelOrder)

	admin := e.Group("/admin", authMW.RequireAdmin)
	admin.GET("/orders", d.AdminHandler.ListOrders)
	admin.PATCH("/orders/:id/status", d.AdminHandler.UpdateStatus)
	admin.POST("/reconcile", d.AdminHandler.Reconcile)
}
