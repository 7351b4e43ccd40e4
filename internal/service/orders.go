package service

import (
	"context"
	"fmt"

	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"

	"cafe/internal/access"
	"cafe/internal/apperr"
	"cafe/internal/database"
	"cafe/internal/models"
)

// Orders is the order engine. Every line-item mutation locks the order row,
// rewrites the line and recomputes the order total in the same transaction,
// so the total always equals the sum of the live lines.
type Orders struct {
	Deps
}

func NewOrders(deps Deps) *Orders {
	return &Orders{Deps: deps}
}

func (s *Orders) ListStatuses(ctx context.Context) ([]models.OrderStatus, error) {
	if err := s.Gate.Require(ctx, access.OrderView); err != nil {
		return nil, err
	}
	var statuses []models.OrderStatus
	if err := s.DB.Order("id").Find(&statuses).Error; err != nil {
		return nil, apperr.Internal("list_order_statuses", err)
	}
	return statuses, nil
}

func (s *Orders) List(ctx context.Context) ([]models.Order, error) {
	const op = "list_orders"
	if err := s.Gate.Require(ctx, access.OrderView); err != nil {
		return nil, err
	}

	var orders []models.Order
	if err := s.DB.Order("id").Find(&orders).Error; err != nil {
		return nil, apperr.Internal(op, err)
	}

	var statuses []models.OrderStatus
	if err := s.DB.Find(&statuses).Error; err != nil {
		return nil, apperr.Internal(op, err)
	}
	codes := make(map[uint]models.OrderState, len(statuses))
	for _, st := range statuses {
		codes[st.ID] = st.Code
	}
	for i := range orders {
		orders[i].Status = codes[orders[i].StatusID]
	}
	return orders, nil
}

// Get returns an order together with its line items.
func (s *Orders) Get(ctx context.Context, id uint) (*models.Order, error) {
	const op = "get_order"
	if err := s.Gate.Require(ctx, access.OrderView); err != nil {
		return nil, err
	}
	order, err := getOrder(s.DB, op, id)
	if err != nil {
		return nil, err
	}
	if order.Items, err = orderItems(s.DB, op, order.ID); err != nil {
		return nil, err
	}
	return &order, nil
}

// Create opens an order on a table. A reservation id that does not resolve
// is ignored; a resolved one must be for the same table and not yet used.
// The table must be free, or reserved by that reservation, and becomes
// occupied.
func (s *Orders) Create(ctx context.Context, tableID uint, reservationID *uint) (*models.Order, error) {
	const op = "create_order"
	if err := s.Gate.Require(ctx, access.OrderCreate); err != nil {
		return nil, err
	}
	if tableID == 0 {
		return nil, apperr.Validation(op, "table is required")
	}

	var order models.Order
	err := database.WithTx(ctx, s.DB, func(tx *gorm.DB) error {
		table, err := lockTable(tx, op, tableID)
		if err != nil {
			return err
		}

		reservation, err := resolveReservation(tx, op, reservationID)
		if err != nil {
			return err
		}

		switch {
		case reservation == nil && table.Status != models.TableFree:
			return apperr.Conflict(op, fmt.Sprintf("table %d is %s", table.Number, table.Status))
		case reservation != nil:
			if reservation.TableID != table.ID {
				return apperr.Conflict(op, "reservation is for another table")
			}
			used, err := backsOrder(tx, op, reservation.ID)
			if err != nil {
				return err
			}
			if used {
				return apperr.Conflict(op, "reservation already has an order")
			}
			if table.Status == models.TableOccupied {
				return apperr.Conflict(op, fmt.Sprintf("table %d is occupied", table.Number))
			}
		}

		st, err := orderStatusByCode(tx, op, models.OrderNew)
		if err != nil {
			return err
		}
		order = models.Order{
			TableID:     table.ID,
			StatusID:    st.ID,
			TotalAmount: models.Money(decimal.Zero),
		}
		if reservation != nil {
			id := reservation.ID
			order.ReservationID = &id
		}
		if err := tx.Create(&order).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperr.Conflict(op, "reservation already has an order")
			}
			return apperr.Internal(op, err)
		}
		order.Status = st.Code
		order.Items = []models.OrderItem{}

		return setTableState(tx, op, &table, models.TableOccupied)
	})
	s.Metrics.Operation(op, err)
	if err != nil {
		return nil, err
	}

	s.Log.Info().
		Str("action", op).
		Uint("order_id", order.ID).
		Uint("table_id", order.TableID).
		Msg("order opened")
	return &order, nil
}

// AddItem puts quantity units of a menu item on an open order, merging into
// the existing line for that item if there is one.
func (s *Orders) AddItem(ctx context.Context, orderID, menuItemID, quantity uint) (*models.OrderItem, error) {
	const op = "add_item"
	if err := s.Gate.Require(ctx, access.OrderItemAdd); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, apperr.Validation(op, "quantity must be at least 1")
	}

	var line models.OrderItem
	err := database.WithTx(ctx, s.DB, func(tx *gorm.DB) error {
		order, err := lockOpenOrder(tx, op, orderID)
		if err != nil {
			return err
		}

		var item models.MenuItem
		if err := tx.First(&item, menuItemID).Error; err != nil {
			return storeErr(op, "menu item", menuItemID, err)
		}

		err = database.ForUpdate(tx).
			Where("order_id = ? AND menu_item_id = ?", order.ID, item.ID).
			First(&line).Error
		switch {
		case database.IsNotFound(err):
			line = models.OrderItem{OrderID: order.ID, MenuItemID: item.ID, Quantity: quantity}
		case err != nil:
			return apperr.Internal(op, err)
		default:
			line.Quantity += quantity
		}
		line.Reprice(item.Price)

		if err := tx.Save(&line).Error; err != nil {
			return apperr.Internal(op, err)
		}
		return recomputeTotal(tx, op, &order)
	})
	s.Metrics.Operation(op, err)
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// IncrementItem adds one unit to an order line.
func (s *Orders) IncrementItem(ctx context.Context, itemID uint) (*models.OrderItem, error) {
	return s.stepItem(ctx, "increment_item", itemID, 1)
}

// DecrementItem removes one unit from an order line. The line is deleted when
// its quantity reaches zero; the returned item then carries quantity 0.
func (s *Orders) DecrementItem(ctx context.Context, itemID uint) (*models.OrderItem, error) {
	return s.stepItem(ctx, "decrement_item", itemID, -1)
}

func (s *Orders) stepItem(ctx context.Context, op string, itemID uint, delta int) (*models.OrderItem, error) {
	if err := s.Gate.Require(ctx, access.OrderItemChange); err != nil {
		return nil, err
	}

	var line models.OrderItem
	err := database.WithTx(ctx, s.DB, func(tx *gorm.DB) error {
		// The order lock is taken first so line edits serialize with AddItem.
		if err := tx.First(&line, itemID).Error; err != nil {
			return storeErr(op, "order item", itemID, err)
		}
		order, err := lockOpenOrder(tx, op, line.OrderID)
		if err != nil {
			return err
		}
		if err := database.ForUpdate(tx).First(&line, itemID).Error; err != nil {
			return storeErr(op, "order item", itemID, err)
		}
		if line.Quantity < 1 {
			return apperr.Validation(op, "order item quantity must be at least 1")
		}

		if delta < 0 && line.Quantity == 1 {
			if err := tx.Delete(&line).Error; err != nil {
				return apperr.Internal(op, err)
			}
			line.Quantity = 0
			line.Amount = models.Money(decimal.Zero)
			return recomputeTotal(tx, op, &order)
		}

		var item models.MenuItem
		if err := tx.First(&item, line.MenuItemID).Error; err != nil {
			return storeErr(op, "menu item", line.MenuItemID, err)
		}
		line.Quantity = uint(int(line.Quantity) + delta)
		line.Reprice(item.Price)
		if err := tx.Save(&line).Error; err != nil {
			return apperr.Internal(op, err)
		}
		return recomputeTotal(tx, op, &order)
	})
	s.Metrics.Operation(op, err)
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// Recalculate reprices every line of an open order from the current menu
// prices and recomputes the total.
func (s *Orders) Recalculate(ctx context.Context, orderID uint) (*models.Order, error) {
	const op = "recalculate_order"
	if err := s.Gate.Require(ctx, access.OrderItemChange); err != nil {
		return nil, err
	}

	var order models.Order
	err := database.WithTx(ctx, s.DB, func(tx *gorm.DB) error {
		var err error
		if order, err = lockOpenOrder(tx, op, orderID); err != nil {
			return err
		}

		lines, err := orderItems(database.ForUpdate(tx), op, order.ID)
		if err != nil {
			return err
		}
		for i := range lines {
			var item models.MenuItem
			if err := tx.First(&item, lines[i].MenuItemID).Error; err != nil {
				return storeErr(op, "menu item", lines[i].MenuItemID, err)
			}
			previous := lines[i].Amount
			lines[i].Reprice(item.Price)
			if lines[i].Amount.Equal(previous) {
				continue
			}
			if err := tx.Model(&lines[i]).Update("amount", lines[i].Amount).Error; err != nil {
				return apperr.Internal(op, err)
			}
		}
		return recomputeTotal(tx, op, &order)
	})
	s.Metrics.Operation(op, err)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ChangeStatus moves an order along its state machine. Completing or
// cancelling an order lets its table go.
func (s *Orders) ChangeStatus(ctx context.Context, orderID, statusID uint) (*models.Order, error) {
	const op = "change_order_status"
	if err := s.Gate.Require(ctx, access.OrderChangeStatus); err != nil {
		return nil, err
	}

	var order models.Order
	err := database.WithTx(ctx, s.DB, func(tx *gorm.DB) error {
		var err error
		if order, err = lockOrder(tx, op, orderID); err != nil {
			return err
		}
		st, err := orderStatusByID(tx, op, statusID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransition(st.Code) {
			return apperr.InvalidTransition(op, string(order.Status), string(st.Code))
		}
		if order.Status == st.Code {
			return nil
		}

		if err := tx.Model(&order).Update("status_id", st.ID).Error; err != nil {
			return apperr.Internal(op, err)
		}
		order.StatusID = st.ID
		order.Status = st.Code

		if st.Code.IsTerminal() {
			return settleTable(tx, op, order.TableID)
		}
		return nil
	})
	s.Metrics.Operation(op, err)
	if err != nil {
		return nil, err
	}
	if order.Items, err = orderItems(s.DB, op, order.ID); err != nil {
		return nil, err
	}
	return &order, nil
}

// lockOpenOrder locks an order and requires it to still accept line edits.
func lockOpenOrder(tx *gorm.DB, op string, id uint) (models.Order, error) {
	order, err := lockOrder(tx, op, id)
	if err != nil {
		return order, err
	}
	if !order.Status.IsOpen() {
		return order, apperr.Conflict(op, fmt.Sprintf("order %d is %s", order.ID, order.Status))
	}
	return order, nil
}

func orderItems(db *gorm.DB, op string, orderID uint) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	if err := db.Where("order_id = ?", orderID).Order("id").Find(&items).Error; err != nil {
		return nil, apperr.Internal(op, err)
	}
	return items, nil
}

// recomputeTotal sets the order total to the sum of its live lines.
func recomputeTotal(tx *gorm.DB, op string, order *models.Order) error {
	items, err := orderItems(tx, op, order.ID)
	if err != nil {
		return err
	}
	total := models.SumAmounts(items)
	if err := tx.Model(order).Update("total_amount", total).Error; err != nil {
		return apperr.Internal(op, err)
	}
	order.TotalAmount = total
	order.Items = items
	return nil
}

func resolveReservation(tx *gorm.DB, op string, id *uint) (*models.Reservation, error) {
	if id == nil || *id == 0 {
		return nil, nil
	}
	var r models.Reservation
	err := database.ForUpdate(tx).First(&r, *id).Error
	switch {
	case database.IsNotFound(err):
		return nil, nil
	case err != nil:
		return nil, apperr.Internal(op, err)
	}
	return &r, nil
}
