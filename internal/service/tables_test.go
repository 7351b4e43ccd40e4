package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafe/internal/apperr"
	"cafe/internal/models"
)

func TestTableCreateAndList(t *testing.T) {
	f := newFixture(t)

	t2 := f.table(t, 2)
	t1 := f.table(t, 1)
	assert.Equal(t, models.TableFree, t1.Status)

	_, err := f.tables.Create(f.ctx, 1, 0)
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	_, err = f.tables.Create(f.ctx, 0, 0)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = f.tables.Create(f.ctx, 9, 999)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	tables, err := f.tables.List(f.ctx)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, t1.ID, tables[0].ID)
	assert.Equal(t, t2.ID, tables[1].ID)
	assert.Equal(t, models.TableFree, tables[1].Status)

	statuses, err := f.tables.ListStatuses(f.ctx)
	require.NoError(t, err)
	assert.Len(t, statuses, len(models.TableStates))
}

func TestTableSetStatus(t *testing.T) {
	f := newFixture(t)
	table := f.table(t, 1)

	free := f.tableStatusID(t, models.TableFree)
	reserved := f.tableStatusID(t, models.TableReserved)
	occupied := f.tableStatusID(t, models.TableOccupied)

	got, err := f.tables.SetStatus(f.ctx, table.ID, occupied)
	require.NoError(t, err)
	assert.Equal(t, models.TableOccupied, got.Status)

	_, err = f.tables.SetStatus(f.ctx, table.ID, reserved)
	assert.True(t, errors.Is(err, apperr.ErrInvalidTransition))
	assert.Equal(t, 406, apperr.HTTPStatus(err))

	got, err = f.tables.SetStatus(f.ctx, table.ID, occupied)
	require.NoError(t, err)
	assert.Equal(t, models.TableOccupied, got.Status)

	got, err = f.tables.SetStatus(f.ctx, table.ID, free)
	require.NoError(t, err)
	assert.Equal(t, models.TableFree, got.Status)

	available, err := f.tables.IsAvailable(f.ctx, table.ID)
	require.NoError(t, err)
	assert.True(t, available)

	_, err = f.tables.SetStatus(f.ctx, 404, free)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	_, err = f.tables.SetStatus(f.ctx, table.ID, 404)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestTableDeleteWhileReferenced(t *testing.T) {
	f := newFixture(t)
	table := f.table(t, 1)
	spare := f.table(t, 2)

	r, err := f.reservations.Book(f.ctx, booking(table.ID))
	require.NoError(t, err)

	err = f.tables.Delete(f.ctx, table.ID)
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	require.NoError(t, f.reservations.Cancel(f.ctx, r.ID))
	require.NoError(t, f.tables.Delete(f.ctx, table.ID))
	require.NoError(t, f.tables.Delete(f.ctx, spare.ID))

	_, err = f.tables.Get(f.ctx, table.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	again := f.table(t, 1)
	assert.Equal(t, models.TableFree, again.Status)
}
