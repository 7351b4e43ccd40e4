package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafe/internal/access"
	"cafe/internal/apperr"
	"cafe/internal/models"
)

func TestBookRejectsDoubleBooking(t *testing.T) {
	f := newFixture(t)
	table := f.table(t, 5)

	r, err := f.reservations.Book(f.ctx, booking(table.ID))
	require.NoError(t, err)
	assert.Equal(t, uint(2), r.GuestCount)
	assert.Equal(t, models.TableReserved, f.tableState(t, table.ID))

	_, err = f.reservations.Book(f.ctx, booking(table.ID))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.Equal(t, 406, apperr.HTTPStatus(err))
	assert.Contains(t, apperr.Message(err), "table already occupied")

	all, err := f.reservations.List(f.ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestConcurrentBookingsSingleWinner(t *testing.T) {
	f := newFixture(t)
	table := f.table(t, 3)

	const workers = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.reservations.Book(f.ctx, booking(table.ID))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, apperr.ErrConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, conflicts)
}

func TestBookValidation(t *testing.T) {
	f := newFixture(t)
	table := f.table(t, 1)

	cases := map[string]func(r *models.Reservation){
		"no name":     func(r *models.Reservation) { r.ClientName = " " },
		"no phone":    func(r *models.Reservation) { r.ClientPhone = "" },
		"long phone":  func(r *models.Reservation) { r.ClientPhone = "+7000000000000000000000" },
		"no datetime": func(r *models.Reservation) { r.Datetime = time.Time{} },
		"no table":    func(r *models.Reservation) { r.TableID = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := booking(table.ID)
			mutate(&in)
			_, err := f.reservations.Book(f.ctx, in)
			assert.True(t, errors.Is(err, apperr.ErrValidation), "%v", err)
		})
	}

	_, err := f.reservations.Book(f.ctx, booking(404))
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.Equal(t, models.TableFree, f.tableState(t, table.ID))
}

func TestUpdateToNewTableReleasesOldOne(t *testing.T) {
	f := newFixture(t)
	t1 := f.table(t, 1)
	t2 := f.table(t, 2)

	r, err := f.reservations.Book(f.ctx, booking(t1.ID))
	require.NoError(t, err)

	in := booking(t2.ID)
	in.ClientName = "Petrov"
	updated, err := f.reservations.Update(f.ctx, r.ID, in)
	require.NoError(t, err)
	assert.Equal(t, t2.ID, updated.TableID)
	assert.Equal(t, "Petrov", updated.ClientName)

	assert.Equal(t, models.TableFree, f.tableState(t, t1.ID))
	assert.Equal(t, models.TableReserved, f.tableState(t, t2.ID))
}

func TestUpdateToOccupiedTableFails(t *testing.T) {
	f := newFixture(t)
	t1 := f.table(t, 1)
	t2 := f.table(t, 2)

	r, err := f.reservations.Book(f.ctx, booking(t1.ID))
	require.NoError(t, err)
	_, err = f.orders.Create(f.ctx, t2.ID, nil)
	require.NoError(t, err)

	_, err = f.reservations.Update(f.ctx, r.ID, booking(t2.ID))
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.Equal(t, models.TableReserved, f.tableState(t, t1.ID))

	got, err := f.reservations.Get(f.ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, t1.ID, got.TableID)
}

func TestCancelReleasesTable(t *testing.T) {
	f := newFixture(t)
	table := f.table(t, 1)

	r, err := f.reservations.Book(f.ctx, booking(table.ID))
	require.NoError(t, err)

	require.NoError(t, f.reservations.Cancel(f.ctx, r.ID))
	assert.Equal(t, models.TableFree, f.tableState(t, table.ID))

	_, err = f.reservations.Get(f.ctx, r.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	err = f.reservations.Cancel(f.ctx, r.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestCancelReservationWithOrder(t *testing.T) {
	f := newFixture(t)
	table := f.table(t, 1)

	r, err := f.reservations.Book(f.ctx, booking(table.ID))
	require.NoError(t, err)
	_, err = f.orders.Create(f.ctx, table.ID, &r.ID)
	require.NoError(t, err)

	err = f.reservations.Cancel(f.ctx, r.ID)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.Equal(t, models.TableOccupied, f.tableState(t, table.ID))
}

func TestReservationsRequireIdentity(t *testing.T) {
	f := newFixture(t)
	table := f.table(t, 1)

	_, err := f.reservations.Book(context.Background(), booking(table.ID))
	assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))

	denied := *f.reservations
	denied.Gate = access.NewGate(access.AuthorizerFunc(func(context.Context, access.Identity, access.Capability) access.Decision {
		return access.Deny("read only")
	}))
	_, err = denied.Book(f.ctx, booking(table.ID))
	assert.True(t, errors.Is(err, apperr.ErrPermissionDenied))
	assert.Equal(t, models.TableFree, f.tableState(t, table.ID))
}
