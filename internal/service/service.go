// Package service holds the floor-management core: catalog, table registry,
// reservation manager and the order engine. Every mutating operation asks the
// access gate first and then runs inside a single store transaction.
package service

import (
	"github.com/jinzhu/gorm"
	"github.com/rs/zerolog"

	"cafe/internal/access"
	"cafe/internal/apperr"
	"cafe/internal/database"
	"cafe/internal/models"
	"cafe/internal/monitoring"
)

// Deps are the collaborators shared by all services.
type Deps struct {
	DB      *gorm.DB
	Gate    *access.Gate
	Metrics *monitoring.Metrics
	Log     zerolog.Logger
}

// storeErr translates a gorm error into the typed taxonomy.
func storeErr(op, what string, id interface{}, err error) error {
	if err == nil {
		return nil
	}
	if database.IsNotFound(err) {
		return apperr.NotFound(op, what, id)
	}
	return apperr.Internal(op, err)
}

func tableStatusByID(tx *gorm.DB, op string, id uint) (models.TableStatus, error) {
	var st models.TableStatus
	err := tx.First(&st, id).Error
	return st, storeErr(op, "table status", id, err)
}

func tableStatusByCode(tx *gorm.DB, op string, code models.TableState) (models.TableStatus, error) {
	var st models.TableStatus
	err := tx.Where("code = ?", code).First(&st).Error
	return st, storeErr(op, "table status", code, err)
}

func orderStatusByID(tx *gorm.DB, op string, id uint) (models.OrderStatus, error) {
	var st models.OrderStatus
	err := tx.First(&st, id).Error
	return st, storeErr(op, "order status", id, err)
}

func orderStatusByCode(tx *gorm.DB, op string, code models.OrderState) (models.OrderStatus, error) {
	var st models.OrderStatus
	err := tx.Where("code = ?", code).First(&st).Error
	return st, storeErr(op, "order status", code, err)
}

// lockTable re-reads the table row under a write lock and resolves its state.
func lockTable(tx *gorm.DB, op string, id uint) (models.Table, error) {
	return fetchTable(tx, database.ForUpdate(tx), op, id)
}

func getTable(db *gorm.DB, op string, id uint) (models.Table, error) {
	return fetchTable(db, db, op, id)
}

func fetchTable(tx, q *gorm.DB, op string, id uint) (models.Table, error) {
	var table models.Table
	if err := q.First(&table, id).Error; err != nil {
		return table, storeErr(op, "table", id, err)
	}
	st, err := tableStatusByID(tx, op, table.StatusID)
	if err != nil {
		return table, err
	}
	table.Status = st.Code
	return table, nil
}

func lockOrder(tx *gorm.DB, op string, id uint) (models.Order, error) {
	return fetchOrder(tx, database.ForUpdate(tx), op, id)
}

func getOrder(db *gorm.DB, op string, id uint) (models.Order, error) {
	return fetchOrder(db, db, op, id)
}

func fetchOrder(tx, q *gorm.DB, op string, id uint) (models.Order, error) {
	var order models.Order
	if err := q.First(&order, id).Error; err != nil {
		return order, storeErr(op, "order", id, err)
	}
	st, err := orderStatusByID(tx, op, order.StatusID)
	if err != nil {
		return order, err
	}
	order.Status = st.Code
	return order, nil
}

// setTableState writes the status row for state onto table.
func setTableState(tx *gorm.DB, op string, table *models.Table, state models.TableState) error {
	st, err := tableStatusByCode(tx, op, state)
	if err != nil {
		return err
	}
	if err := tx.Model(table).Update("status_id", st.ID).Error; err != nil {
		return apperr.Internal(op, err)
	}
	table.StatusID = st.ID
	table.Status = state
	return nil
}

var openOrderStates = []models.OrderState{models.OrderNew, models.OrderInProgress}

// settleTable derives a table's status from what still holds it once a
// reservation or order lets go: an open order keeps it occupied, a
// reservation not yet turned into an order keeps it reserved, otherwise it
// is free.
func settleTable(tx *gorm.DB, op string, tableID uint) error {
	table, err := lockTable(tx, op, tableID)
	if err != nil {
		return err
	}

	var openOrders int
	err = tx.Model(&models.Order{}).
		Joins("JOIN order_statuses ON order_statuses.id = orders.status_id").
		Where("orders.table_id = ? AND order_statuses.code IN (?)", tableID, openOrderStates).
		Count(&openOrders).Error
	if err != nil {
		return apperr.Internal(op, err)
	}

	var pending int
	err = tx.Model(&models.Reservation{}).
		Joins("LEFT JOIN orders ON orders.reservation_id = reservations.id").
		Where("reservations.table_id = ? AND orders.id IS NULL", tableID).
		Count(&pending).Error
	if err != nil {
		return apperr.Internal(op, err)
	}

	target := models.TableFree
	switch {
	case openOrders > 0:
		target = models.TableOccupied
	case pending > 0:
		target = models.TableReserved
	}

	if table.Status == target {
		return nil
	}
	return setTableState(tx, op, &table, target)
}

func withTableState(tx *gorm.DB, op string, tables []models.Table) error {
	var statuses []models.TableStatus
	if err := tx.Find(&statuses).Error; err != nil {
		return apperr.Internal(op, err)
	}
	codes := make(map[uint]models.TableState, len(statuses))
	for _, st := range statuses {
		codes[st.ID] = st.Code
	}
	for i := range tables {
		tables[i].Status = codes[tables[i].StatusID]
	}
	return nil
}
