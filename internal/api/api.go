package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"cafe/internal/auth"
	"cafe/internal/monitoring"
	"cafe/internal/service"
)

// Services bundles the floor services the API exposes.
type Services struct {
	Catalog      *service.Catalog
	Tables       *service.Tables
	Reservations *service.Reservations
	Orders       *service.Orders
	Payments     *service.Payments
	Auth         *auth.Service
}

// CafeAPI represents the HTTP API of the floor backend
type CafeAPI struct {
	Router *gin.Engine

	catalog      *service.Catalog
	tables       *service.Tables
	reservations *service.Reservations
	orders       *service.Orders
	payments     *service.Payments
	auth         *auth.Service
	log          zerolog.Logger
	metrics      *monitoring.Metrics
}

// NewCafeAPI creates a new API instance with its middleware chain and routes
func NewCafeAPI(svc Services, log zerolog.Logger, metrics *monitoring.Metrics) *CafeAPI {
	router := gin.New()

	api := &CafeAPI{
		Router:       router,
		catalog:      svc.Catalog,
		tables:       svc.Tables,
		reservations: svc.Reservations,
		orders:       svc.Orders,
		payments:     svc.Payments,
		auth:         svc.Auth,
		log:          log,
		metrics:      metrics,
	}

	router.Use(
		gin.Recovery(),
		RequestID(),
		RequestLogger(log),
		Instrument(metrics),
		Authenticate(svc.Auth),
	)
	api.setupRoutes()
	return api
}

// setupRoutes configures all API endpoints
func (a *CafeAPI) setupRoutes() {
	r := a.Router

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": a.metrics.Uptime().String(),
		})
	})

	// Account
	r.POST("/login", a.Login)
	r.GET("/account", a.Account)
	r.POST("/logout", a.Logout)

	// Catalog
	r.GET("/menu", a.ListCategories)
	r.GET("/menu/:id", a.ListMenu)
	r.GET("/menu/:id/sort", a.SortMenu)
	r.GET("/menu/:id/search", a.SearchMenu)
	r.POST("/menu", a.CreateMenuItem)
	r.PUT("/menu/:id", a.UpdateMenuItem)
	r.DELETE("/menu/:id", a.DeleteMenuItem)
	r.POST("/categories", a.CreateCategory)
	r.DELETE("/categories/:id", a.DeleteCategory)

	// Tables
	r.GET("/tables", a.ListTables)
	r.GET("/tables/:id", a.GetTable)
	r.POST("/tables", a.CreateTable)
	r.DELETE("/tables/:id", a.DeleteTable)
	r.POST("/tables/:id/change_status", a.ChangeTableStatus)
	r.GET("/table_statuses", a.ListTableStatuses)

	// Reservations
	r.GET("/reservations", a.ListReservations)
	r.GET("/reservations/:id", a.GetReservation)
	r.POST("/reservations", a.CreateReservation)
	r.PUT("/reservations/:id", a.UpdateReservation)
	r.DELETE("/reservations/:id", a.CancelReservation)

	// Orders
	r.GET("/orders", a.ListOrders)
	r.GET("/order/:id", a.GetOrder)
	r.POST("/order", a.CreateOrder)
	r.POST("/order/add_item", a.AddOrderItem)
	r.POST("/order/:id/append", a.IncrementOrderItem)
	r.POST("/order/:id/delete", a.DecrementOrderItem)
	r.POST("/order/:id/change_status", a.ChangeOrderStatus)
	r.POST("/order/:id/recalculate", a.RecalculateOrder)
	r.GET("/order_statuses", a.ListOrderStatuses)

	// Payments
	r.GET("/payments", a.ListPayments)
	r.GET("/payments/:id", a.GetPayment)
	r.POST("/payments", a.CreatePayment)
	r.POST("/payments/:id/change_status", a.MarkPaymentPaid)
}
