package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/barbershop-ledger/internal/model"
	"github.com/mmeshcher/barbershop-ledger/internal/repository"
)

func newSQLiteService(t *testing.T) (*Service, int64) {
	t.Helper()

	repo, err := repository.NewSQLiteRepository(filepath.Join(t.TempDir(), "scenario.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	p, err := repo.EnsurePartition(context.Background(), "main", "Main")
	require.NoError(t, err)

	svc := NewService(repo, time.UTC)
	svc.now = func() time.Time { return time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC) }
	return svc, p.ID
}

func TestCompletionScenario(t *testing.T) {
	svc, pid := newSQLiteService(t)
	ctx := context.Background()

	clientID, err := svc.AddClient(ctx, pid, "Ana", "")
	require.NoError(t, err)
	serviceID, err := svc.AddService(ctx, pid, "Haircut", 5000)
	require.NoError(t, err)

	before, err := svc.Balance(ctx, pid)
	require.NoError(t, err)

	apptID, err := svc.Book(ctx, pid, clientID, serviceID, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), "10:00")
	require.NoError(t, err)

	pending, err := svc.ListPending(ctx, pid)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, model.AppointmentStatusPending, pending[0].Status)

	entryID, err := svc.Complete(ctx, pid, apptID)
	require.NoError(t, err)

	appt, err := svc.GetAppointment(ctx, pid, apptID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, appt.Status)

	entries, err := svc.ListEntries(ctx, pid, true)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entryID, entries[0].ID)
	assert.Equal(t, model.EntryKindInflow, entries[0].Kind)
	assert.Equal(t, int64(5000), entries[0].AmountCents)
	assert.Equal(t, "2024-05-03", entries[0].Date.Format(model.DateLayout))

	after, err := svc.Balance(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, before.NetCents+5000, after.NetCents)

	_, err = svc.Complete(ctx, pid, apptID)
	require.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestCancelScenario(t *testing.T) {
	svc, pid := newSQLiteService(t)
	ctx := context.Background()

	clientID, err := svc.AddClient(ctx, pid, "Bruno", "+5511987654321")
	require.NoError(t, err)
	serviceID, err := svc.AddService(ctx, pid, "Beard", 3000)
	require.NoError(t, err)

	apptID, err := svc.Book(ctx, pid, clientID, serviceID, time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), "15:30")
	require.NoError(t, err)

	today, err := svc.ListPendingToday(ctx, pid)
	require.NoError(t, err)
	require.Len(t, today, 1)

	require.NoError(t, svc.Cancel(ctx, pid, apptID))

	pending, err := svc.ListPending(ctx, pid)
	require.NoError(t, err)
	assert.Empty(t, pending)

	entries, err := svc.ListEntries(ctx, pid, false)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.ErrorIs(t, svc.Cancel(ctx, pid, apptID), model.ErrNotFound)
}

func TestRemoveReferencedClientSucceeds(t *testing.T) {
	svc, pid := newSQLiteService(t)
	ctx := context.Background()

	clientID, err := svc.AddClient(ctx, pid, "Ana", "")
	require.NoError(t, err)
	serviceID, err := svc.AddService(ctx, pid, "Haircut", 5000)
	require.NoError(t, err)
	_, err = svc.Book(ctx, pid, clientID, serviceID, time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), "11:00")
	require.NoError(t, err)

	require.NoError(t, svc.RemoveClient(ctx, pid, clientID))

	pending, err := svc.ListPending(ctx, pid)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].CatalogMissing)

	d, err := svc.Dashboard(ctx, pid)
	require.NoError(t, err)
	assert.Zero(t, d.ClientCount)
	assert.Equal(t, int64(1), d.PendingToday)
	require.Len(t, d.DailyAppointments, 1)
	assert.Equal(t, int64(1), d.DailyAppointments[0].Count)
}
