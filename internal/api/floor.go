package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cafe/internal/models"
)

type tableRequest struct {
	Number   uint `json:"number" binding:"required"`
	StatusID uint `json:"status_id"`
}

type reservationRequest struct {
	TableID     uint      `json:"table_id" binding:"required"`
	ClientName  string    `json:"client_name" binding:"required"`
	ClientPhone string    `json:"client_phone" binding:"required"`
	Datetime    time.Time `json:"datetime"`
	GuestCount  uint      `json:"guest_count"`
	Comment     *string   `json:"comment"`
}

func (r reservationRequest) model() models.Reservation {
	return models.Reservation{
		TableID:     r.TableID,
		ClientName:  r.ClientName,
		ClientPhone: r.ClientPhone,
		Datetime:    r.Datetime,
		GuestCount:  r.GuestCount,
		Comment:     r.Comment,
	}
}

// Table handlers

func (a *CafeAPI) ListTables(c *gin.Context) {
	tables, err := a.tables.List(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tables)
}

func (a *CafeAPI) GetTable(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		a.badRequest(c, err)
		return
	}
	table, err := a.tables.Get(c.Request.Context(), id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

func (a *CafeAPI) CreateTable(c *gin.Context) {
	var req tableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, err)
		return
	}
	table, err := a.tables.Create(c.Request.Context(), req.Number, req.StatusID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, table)
}

func (a *CafeAPI) DeleteTable(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		a.badRequest(c, err)
		return
	}
	if err := a.tables.Delete(c.Request.Context(), id); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "table deleted"})
}

func (a *CafeAPI) ChangeTableStatus(c *gin.Context) {
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
	table, err := a.tables.SetStatus(c.Request.Context(), id, status)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

func (a *CafeAPI) ListTableStatuses(c *gin.Context) {
	statuses, err := a.tables.ListStatuses(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, statuses)
}

// Reservation handlers

func (a *CafeAPI) ListReservations(c *gin.Context) {
	reservations, err := a.reservations.List(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservations)
}

func (a *CafeAPI) GetReservation(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		a.badRequest(c, err)
		return
	}
	r, err := a.reservations.Get(c.Request.Context(), id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (a *CafeAPI) CreateReservation(c *gin.Context) {
	var req reservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, err)
		return
	}
	r, err := a.reservations.Book(c.Request.Context(), req.model())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (a *CafeAPI) UpdateReservation(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		a.badRequest(c, err)
		return
	}
	var req reservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, err)
		return
	}
	r, err := a.reservations.Update(c.Request.Context(), id, req.model())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (a *CafeAPI) CancelReservation(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		a.badRequest(c, err)
		return
	}
	if err := a.reservations.Cancel(c.Request.Context(), id); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "reservation cancelled"})
}
