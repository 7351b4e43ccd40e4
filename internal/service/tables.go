package service

import (
	"context"
	"fmt"

	"github.com/jinzhu/gorm"

	"cafe/internal/access"
	"cafe/internal/apperr"
	"cafe/internal/database"
	"cafe/internal/models"
)

// Tables is the table registry: physical tables and their occupancy status.
type Tables struct {
	Deps
}

func NewTables(deps Deps) *Tables {
	return &Tables{Deps: deps}
}

func (s *Tables) ListStatuses(ctx context.Context) ([]models.TableStatus, error) {
	if err := s.Gate.Require(ctx, access.TableView); err != nil {
		return nil, err
	}
	var statuses []models.TableStatus
	if err := s.DB.Order("id").Find(&statuses).Error; err != nil {
		return nil, apperr.Internal("list_table_statuses", err)
	}
	return statuses, nil
}

func (s *Tables) List(ctx context.Context) ([]models.Table, error) {
	const op = "list_tables"
	if err := s.Gate.Require(ctx, access.TableView); err != nil {
		return nil, err
	}

	var tables []models.Table
	if err := s.DB.Order("number").Find(&tables).Error; err != nil {
		return nil, apperr.Internal(op, err)
	}
	if err := withTableState(s.DB, op, tables); err != nil {
		return nil, err
	}
	return tables, nil
}

func (s *Tables) Get(ctx context.Context, id uint) (*models.Table, error) {
	const op = "get_table"
	if err := s.Gate.Require(ctx, access.TableView); err != nil {
		return nil, err
	}
	table, err := getTable(s.DB, op, id)
	if err != nil {
		return nil, err
	}
	return &table, nil
}

// Create registers a table. A zero statusID means the table starts free.
func (s *Tables) Create(ctx context.Context, number, statusID uint) (*models.Table, error) {
	const op = "create_table"
	if err := s.Gate.Require(ctx, access.TableCreate); err != nil {
		return nil, err
	}
	if number == 0 {
		return nil, apperr.Validation(op, "table number must be positive")
	}

	var st models.TableStatus
	var err error
	if statusID == 0 {
		st, err = tableStatusByCode(s.DB, op, models.TableFree)
	} else {
		st, err = tableStatusByID(s.DB, op, statusID)
	}
	if err != nil {
		return nil, err
	}

	table := models.Table{Number: number, StatusID: st.ID}
	if err := s.DB.Create(&table).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperr.Conflict(op, fmt.Sprintf("table number %d already exists", number))
		}
		return nil, apperr.Internal(op, err)
	}
	table.Status = st.Code

	s.Metrics.Operation(op, nil)
	return &table, nil
}

// Delete removes a table no reservation or order refers to.
func (s *Tables) Delete(ctx context.Context, id uint) error {
	const op = "delete_table"
	if err := s.Gate.Require(ctx, access.TableDelete); err != nil {
		return err
	}

	return database.WithTx(ctx, s.DB, func(tx *gorm.DB) error {
		table, err := lockTable(tx, op, id)
		if err != nil {
			return err
		}

		var refs int
		if err := tx.Model(&models.Reservation{}).Where("table_id = ?", id).Count(&refs).Error; err != nil {
			return apperr.Internal(op, err)
		}
		if refs == 0 {
			if err := tx.Model(&models.Order{}).Where("table_id = ?", id).Count(&refs).Error; err != nil {
				return apperr.Internal(op, err)
			}
		}
		if refs > 0 {
			return apperr.Conflict(op, fmt.Sprintf("table %d is referenced by reservations or orders", table.Number))
		}

		if err := tx.Delete(&table).Error; err != nil {
			return apperr.Internal(op, err)
		}
		return nil
	})
}

// SetStatus is the staff override of a table's status. The move must be
// allowed by the table transition table.
func (s *Tables) SetStatus(ctx context.Context, tableID, statusID uint) (*models.Table, error) {
	const op = "set_table_status"
	if err := s.Gate.Require(ctx, access.TableChangeStatus); err != nil {
		return nil, err
	}

	var table models.Table
	err := database.WithTx(ctx, s.DB, func(tx *gorm.DB) error {
		var err error
		table, err = lockTable(tx, op, tableID)
		if err != nil {
			return err
		}
		st, err := tableStatusByID(tx, op, statusID)
		if err != nil {
			return err
		}
		if !table.Status.CanTransition(st.Code) {
			return apperr.InvalidTransition(op, string(table.Status), string(st.Code))
		}
		if table.Status == st.Code {
			return nil
		}
		return setTableState(tx, op, &table, st.Code)
	})
	s.Metrics.Operation(op, err)
	if err != nil {
		return nil, err
	}
	return &table, nil
}

// IsAvailable is true iff the table is currently free.
func (s *Tables) IsAvailable(ctx context.Context, tableID uint) (bool, error) {
	if err := s.Gate.Require(ctx, access.TableView); err != nil {
		return false, err
	}
	table, err := getTable(s.DB, "is_available", tableID)
	if err != nil {
		return false, err
	}
	return table.Status == models.TableFree, nil
}
