package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type orderRequest struct {
	TableID       uint  `json:"table_id" binding:"required"`
	ReservationID *uint `json:"reservation_id"`
}

type addItemRequest struct {
	OrderID    uint `json:"order_id" binding:"required"`
	MenuItemID uint `json:"menu_item_id" binding:"required"`
	Quantity   uint `json:"quantity"`
}

type paymentRequest struct {
	OrderID uint `json:"order_id" binding:"required"`
}

// Order handlers

func (a *CafeAPI) ListOrders(c *gin.Context) {
	orders, err := a.orders.List(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (a *CafeAPI) GetOrder(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		a.badRequest(c, err)
		return
	}
	order, err := a.orders.Get(c.Request.Context(), id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (a *CafeAPI) CreateOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, err)
		return
	}
	order, err := a.orders.Create(c.Request.Context(), req.TableID, req.ReservationID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (a *CafeAPI) AddOrderItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	item, err := a.orders.AddItem(c.Request.Context(), req.OrderID, req.MenuItemID, req.Quantity)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// IncrementOrderItem takes an order item id, not an order id.
func (a *CafeAPI) IncrementOrderItem(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		a.badRequest(c, err)
		return
	}
	item, err := a.orders.IncrementItem(c.Request.Context(), id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// DecrementOrderItem takes an order item id, not an order id.
func (a *CafeAPI) DecrementOrderItem(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		a.badRequest(c, err)
		return
	}
	item, err := a.orders.DecrementItem(c.Request.Context(), id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (a *CafeAPI) ChangeOrderStatus(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		a.badRequest(c, err)
		return
	}
	status, err := statusID(c)
	if err != nil {
		a.badRequest(c, err)
		return
	}
	order, err := a.orders.ChangeStatus(c.Request.Context(), id, status)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (a *CafeAPI) RecalculateOrder(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		a.badRequest(c, err)
		return
	}
	order, err := a.orders.Recalculate(c.Request.Context(), id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (a *CafeAPI) ListOrderStatuses(c *gin.Context) {
	statuses, err := a.orders.ListStatuses(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, statuses)
}

// Payment handlers

func (a *CafeAPI) ListPayments(c *gin.Context) {
	payments, err := a.payments.List(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (a *CafeAPI) GetPayment(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		a.badRequest(c, err)
		return
	}
	payment, err := a.payments.Get(c.Request.Context(), id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (a *CafeAPI) CreatePayment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, err)
		return
	}
	payment, err := a.payments.Create(c.Request.Context(), req.OrderID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

func (a *CafeAPI) MarkPaymentPaid(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		a.badRequest(c, err)
		return
	}
	payment, err := a.payments.MarkPaid(c.Request.Context(), id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}
