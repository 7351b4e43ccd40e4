package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"cafe/internal/access"
	"cafe/internal/database"
	"cafe/internal/models"
	"cafe/internal/monitoring"
)

type fixture struct {
	db           *gorm.DB
	ctx          context.Context
	catalog      *Catalog
	tables       *Tables
	reservations *Reservations
	orders       *Orders
	payments     *Payments
	metrics      *monitoring.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenInMemory(strings.ReplaceAll(t.Name(), "/", "_"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	metrics := monitoring.NewMetrics()
	deps := Deps{
		DB:      db,
		Gate:    access.NewGate(access.AllowAll),
		Metrics: metrics,
		Log:     zerolog.Nop(),
	}
	return &fixture{
		db:           db,
		ctx:          access.WithIdentity(context.Background(), access.Identity{UserID: 1, Username: "admin", Role: "admin"}),
		catalog:      NewCatalog(deps, nil),
		tables:       NewTables(deps),
		reservations: NewReservations(deps),
		orders:       NewOrders(deps),
		payments:     NewPayments(deps),
		metrics:      metrics,
	}
}

func (f *fixture) table(t *testing.T, number uint) *models.Table {
	t.Helper()
	table, err := f.tables.Create(f.ctx, number, 0)
	require.NoError(t, err)
	return table
}

func (f *fixture) menuItem(t *testing.T, name, price string) *models.MenuItem {
	t.Helper()
	var category models.Category
	err := f.db.Where(models.Category{Slug: "mains"}).
		Attrs(models.Category{Name: "Mains"}).
		FirstOrCreate(&category).Error
	require.NoError(t, err)

	item, err := f.catalog.CreateMenuItem(f.ctx, models.MenuItem{
		CategoryID: category.ID,
		Name:       name,
		Slug:       strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		Price:      decimal.RequireFromString(price),
	})
	require.NoError(t, err)
	return item
}

func (f *fixture) tableState(t *testing.T, id uint) models.TableState {
	t.Helper()
	table, err := f.tables.Get(f.ctx, id)
	require.NoError(t, err)
	return table.Status
}

func (f *fixture) orderStatusID(t *testing.T, code models.OrderState) uint {
	t.Helper()
	st, err := orderStatusByCode(f.db, "test", code)
	require.NoError(t, err)
	return st.ID
}

func (f *fixture) tableStatusID(t *testing.T, code models.TableState) uint {
	t.Helper()
	st, err := tableStatusByCode(f.db, "test", code)
	require.NoError(t, err)
	return st.ID
}

func booking(tableID uint) models.Reservation {
	return models.Reservation{
		TableID:     tableID,
		ClientName:  "Ivanov",
		ClientPhone: "+70000000000",
		Datetime:    time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC),
		GuestCount:  2,
	}
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
