package service

import (
	"context"
	"strings"

	"github.com/jinzhu/gorm"

	"cafe/internal/access"
	"cafe/internal/apperr"
	"cafe/internal/database"
	"cafe/internal/models"
)

// Reservations books tables for clients. A table can only be booked while it
// is free; booking moves it to reserved.
type Reservations struct {
	Deps
}

func NewReservations(deps Deps) *Reservations {
	return &Reservations{Deps: deps}
}

func (s *Reservations) List(ctx context.Context) ([]models.Reservation, error) {
	if err := s.Gate.Require(ctx, access.ReservationView); err != nil {
		return nil, err
	}
	var reservations []models.Reservation
	if err := s.DB.Order("datetime, id").Find(&reservations).Error; err != nil {
		return nil, apperr.Internal("list_reservations", err)
	}
	return reservations, nil
}

func (s *Reservations) Get(ctx context.Context, id uint) (*models.Reservation, error) {
	if err := s.Gate.Require(ctx, access.ReservationView); err != nil {
		return nil, err
	}
	var r models.Reservation
	if err := s.DB.First(&r, id).Error; err != nil {
		return nil, storeErr("get_reservation", "reservation", id, err)
	}
	return &r, nil
}

// Book reserves a free table.
func (s *Reservations) Book(ctx context.Context, in models.Reservation) (*models.Reservation, error) {
	const op = "book"
	if err := s.Gate.Require(ctx, access.ReservationCreate); err != nil {
		return nil, err
	}

	r := normalizeReservation(in)
	if err := models.ValidateReservation(&r); err != nil {
		return nil, apperr.Validation(op, err.Error())
	}

	err := database.WithTx(ctx, s.DB, func(tx *gorm.DB) error {
		if err := reserveTable(tx, op, r.TableID); err != nil {
			return err
		}
		if err := tx.Create(&r).Error; err != nil {
			return apperr.Internal(op, err)
		}
		return nil
	})
	s.Metrics.Operation(op, err)
	if err != nil {
		return nil, err
	}

	s.Log.Info().
		Str("action", op).
		Uint("reservation_id", r.ID).
		Uint("table_id", r.TableID).
		Msg("table reserved")
	return &r, nil
}

// Update replaces a reservation's fields. Moving it to another table books
// the new table and releases the old one once nothing else holds it.
func (s *Reservations) Update(ctx context.Context, id uint, in models.Reservation) (*models.Reservation, error) {
	const op = "update_reservation"
	if err := s.Gate.Require(ctx, access.ReservationUpdate); err != nil {
		return nil, err
	}

	update := normalizeReservation(in)
	if err := models.ValidateReservation(&update); err != nil {
		return nil, apperr.Validation(op, err.Error())
	}

	var r models.Reservation
	err := database.WithTx(ctx, s.DB, func(tx *gorm.DB) error {
		if err := database.ForUpdate(tx).First(&r, id).Error; err != nil {
			return storeErr(op, "reservation", id, err)
		}

		previousTable := r.TableID
		if update.TableID != previousTable {
			backed, err := backsOrder(tx, op, r.ID)
			if err != nil {
				return err
			}
			if backed {
				return apperr.Conflict(op, "reservation already has an order and cannot move tables")
			}
			if err := reserveTable(tx, op, update.TableID); err != nil {
				return err
			}
		}

		r.TableID = update.TableID
		r.ClientName = update.ClientName
		r.ClientPhone = update.ClientPhone
		r.Datetime = update.Datetime
		r.GuestCount = update.GuestCount
		r.Comment = update.Comment
		if err := tx.Save(&r).Error; err != nil {
			return apperr.Internal(op, err)
		}

		if previousTable != r.TableID {
			return settleTable(tx, op, previousTable)
		}
		return nil
	})
	s.Metrics.Operation(op, err)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Cancel deletes a reservation that no order was opened from and releases
// its table.
func (s *Reservations) Cancel(ctx context.Context, id uint) error {
	const op = "cancel_reservation"
	if err := s.Gate.Require(ctx, access.ReservationDelete); err != nil {
		return err
	}

	err := database.WithTx(ctx, s.DB, func(tx *gorm.DB) error {
		var r models.Reservation
		if err := database.ForUpdate(tx).First(&r, id).Error; err != nil {
			return storeErr(op, "reservation", id, err)
		}

		backed, err := backsOrder(tx, op, r.ID)
		if err != nil {
			return err
		}
		if backed {
			return apperr.Conflict(op, "reservation already has an order")
		}

		if err := tx.Delete(&r).Error; err != nil {
			return apperr.Internal(op, err)
		}
		return settleTable(tx, op, r.TableID)
	})
	s.Metrics.Operation(op, err)
	return err
}

// reserveTable locks a table, requires it to be free and marks it reserved.
func reserveTable(tx *gorm.DB, op string, tableID uint) error {
	table, err := lockTable(tx, op, tableID)
	if err != nil {
		return err
	}
	if table.Status != models.TableFree {
		return apperr.Conflict(op, "table already occupied")
	}
	return setTableState(tx, op, &table, models.TableReserved)
}

func backsOrder(tx *gorm.DB, op string, reservationID uint) (bool, error) {
	var n int
	if err := tx.Model(&models.Order{}).Where("reservation_id = ?", reservationID).Count(&n).Error; err != nil {
		return false, apperr.Internal(op, err)
	}
	return n > 0, nil
}

func normalizeReservation(in models.Reservation) models.Reservation {
	r := models.Reservation{
		TableID:     in.TableID,
		ClientName:  strings.TrimSpace(in.ClientName),
		ClientPhone: strings.TrimSpace(in.ClientPhone),
		Datetime:    in.Datetime,
		GuestCount:  in.GuestCount,
		Comment:     in.Comment,
	}
	if r.GuestCount == 0 {
		r.GuestCount = 1
	}
	return r
}
