package service

import (
	"context"
	"time"

	"github.com/jinzhu/gorm"

	"cafe/internal/access"
	"cafe/internal/apperr"
	"cafe/internal/database"
	"cafe/internal/models"
)

// Payments keeps the one-per-order receipt flag.
type Payments struct {
	Deps
	now func() time.Time
}

func NewPayments(deps Deps) *Payments {
	return &Payments{Deps: deps, now: time.Now}
}

func (s *Payments) List(ctx context.Context) ([]models.Payment, error) {
	if err := s.Gate.Require(ctx, access.PaymentView); err != nil {
		return nil, err
	}
	var payments []models.Payment
	if err := s.DB.Order("id").Find(&payments).Error; err != nil {
		return nil, apperr.Internal("list_payments", err)
	}
	return payments, nil
}

func (s *Payments) Get(ctx context.Context, id uint) (*models.Payment, error) {
	if err := s.Gate.Require(ctx, access.PaymentView); err != nil {
		return nil, err
	}
	var p models.Payment
	if err := s.DB.First(&p, id).Error; err != nil {
		return nil, storeErr("get_payment", "payment", id, err)
	}
	return &p, nil
}

// Create issues the unpaid receipt of an order. An order gets at most one.
func (s *Payments) Create(ctx context.Context, orderID uint) (*models.Payment, error) {
	const op = "create_payment"
	if err := s.Gate.Require(ctx, access.PaymentCreate); err != nil {
		return nil, err
	}

	var p models.Payment
	err := database.WithTx(ctx, s.DB, func(tx *gorm.DB) error {
		order, err := lockOrder(tx, op, orderID)
		if err != nil {
			return err
		}
		if order.Status == models.OrderCancelled {
			return apperr.Conflict(op, "order is cancelled")
		}

		var existing int
		if err := tx.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&existing).Error; err != nil {
			return apperr.Internal(op, err)
		}
		if existing > 0 {
			return apperr.Conflict(op, "order already has a payment")
		}

		p = models.Payment{OrderID: order.ID}
		if err := tx.Create(&p).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperr.Conflict(op, "order already has a payment")
			}
			return apperr.Internal(op, err)
		}
		return nil
	})
	s.Metrics.Operation(op, err)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// MarkPaid flips a payment to paid. Marking an already paid receipt again
// changes nothing.
func (s *Payments) MarkPaid(ctx context.Context, paymentID uint) (*models.Payment, error) {
	const op = "mark_paid"
	if err := s.Gate.Require(ctx, access.PaymentChangeStatus); err != nil {
		return nil, err
	}

	var (
		p       models.Payment
		order   models.Order
		settled bool
	)
	err := database.WithTx(ctx, s.DB, func(tx *gorm.DB) error {
		if err := database.ForUpdate(tx).First(&p, paymentID).Error; err != nil {
			return storeErr(op, "payment", paymentID, err)
		}
		var err error
		if order, err = lockOrder(tx, op, p.OrderID); err != nil {
			return err
		}
		if order.Status == models.OrderCancelled {
			return apperr.Conflict(op, "order is cancelled")
		}
		if p.Status {
			return nil
		}

		paidAt := s.now().UTC()
		if err := tx.Model(&p).Updates(map[string]interface{}{"status": true, "paid_at": paidAt}).Error; err != nil {
			return apperr.Internal(op, err)
		}
		p.Status = true
		p.PaidAt = &paidAt
		settled = true
		return nil
	})
	s.Metrics.Operation(op, err)
	if err != nil {
		return nil, err
	}

	if settled {
		s.Metrics.Settled(order.TotalAmount)
		s.Log.Info().
			Str("action", op).
			Uint("payment_id", p.ID).
			Uint("order_id", order.ID).
			Str("total", order.TotalAmount.StringFixed(2)).
			Msg("payment settled")
	}
	return &p, nil
}
