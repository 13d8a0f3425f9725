package repository

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/barbershop-ledger/internal/model"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func newTestPartition(t *testing.T, repo *SQLiteRepository, key string) int64 {
	t.Helper()

	p, err := repo.EnsurePartition(context.Background(), key, key+" label")
	require.NoError(t, err)
	return p.ID
}

func day(s string) time.Time {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestEnsurePartitionIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.EnsurePartition(ctx, "downtown", "Downtown")
	require.NoError(t, err)

	second, err := repo.EnsurePartition(ctx, "downtown", "ignored")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Downtown", second.Label)
}

func TestCatalogCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	pid := newTestPartition(t, repo, "a")

	anaID, err := repo.CreateClient(ctx, pid, "Ana", "11987654321")
	require.NoError(t, err)
	brunoID, err := repo.CreateClient(ctx, pid, "Bruno", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), anaID)
	assert.Equal(t, int64(2), brunoID)

	require.NoError(t, repo.UpdateClient(ctx, pid, model.Client{ID: anaID, Name: "Ana Maria", Contact: "11911112222"}))

	err = repo.UpdateClient(ctx, pid, model.Client{ID: 99, Name: "Ghost"})
	assert.True(t, errors.Is(err, model.ErrNotFound))

	clients, err := repo.ListClients(ctx, pid)
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, "Ana Maria", clients[0].Name)
	assert.Equal(t, "Bruno", clients[1].Name)

	require.NoError(t, repo.DeleteClient(ctx, pid, brunoID))
	assert.True(t, errors.Is(repo.DeleteClient(ctx, pid, brunoID), model.ErrNotFound))

	n, err := repo.CountClients(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	svcID, err := repo.CreateService(ctx, pid, "Haircut", 5000)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateService(ctx, pid, model.Service{ID: svcID, Name: "Haircut", PriceCents: 5500}))

	services, err := repo.ListServices(ctx, pid)
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, int64(5500), services[0].PriceCents)

	require.NoError(t, repo.DeleteService(ctx, pid, svcID))
	assert.True(t, errors.Is(repo.UpdateService(ctx, pid, model.Service{ID: svcID}), model.ErrNotFound))
}

func TestPartitionsDoNotShareData(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	a := newTestPartition(t, repo, "a")
	b := newTestPartition(t, repo, "b")

	idA, err := repo.CreateClient(ctx, a, "Ana", "")
	require.NoError(t, err)
	idB, err := repo.CreateClient(ctx, b, "Beatriz", "")
	require.NoError(t, err)
	require.Equal(t, idA, idB)

	require.NoError(t, repo.UpdateClient(ctx, a, model.Client{ID: idA, Name: "Ana Paula"}))

	clientsB, err := repo.ListClients(ctx, b)
	require.NoError(t, err)
	require.Len(t, clientsB, 1)
	assert.Equal(t, "Beatriz", clientsB[0].Name)

	_, err = repo.CreateEntry(ctx, a, model.LedgerEntry{Description: "rent", AmountCents: 1000, Kind: model.EntryKindOutflow, Date: day("2024-05-01")})
	require.NoError(t, err)

	balanceB, err := repo.GetBalance(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, model.Balance{}, balanceB)
}

func TestCreateAppointmentRequiresCatalog(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	pid := newTestPartition(t, repo, "a")
	other := newTestPartition(t, repo, "b")

	clientID, err := repo.CreateClient(ctx, pid, "Ana", "")
	require.NoError(t, err)
	serviceID, err := repo.CreateService(ctx, other, "Haircut", 5000)
	require.NoError(t, err)

	_, err = repo.CreateAppointment(ctx, pid, model.Appointment{ClientID: clientID, ServiceID: serviceID, Date: day("2024-05-01"), Time: "10:00"})
	assert.True(t, errors.Is(err, model.ErrNotFound), "service of another partition must not resolve")

	_, err = repo.CreateAppointment(ctx, pid, model.Appointment{ClientID: 42, ServiceID: serviceID, Date: day("2024-05-01"), Time: "10:00"})
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func bookHaircut(t *testing.T, repo *SQLiteRepository, pid int64, price int64, date, at string) (int64, int64, int64) {
	t.Helper()
	ctx := context.Background()

	clientID, err := repo.CreateClient(ctx, pid, "Ana", "11987654321")
	require.NoError(t, err)
	serviceID, err := repo.CreateService(ctx, pid, "Haircut", price)
	require.NoError(t, err)
	apptID, err := repo.CreateAppointment(ctx, pid, model.Appointment{ClientID: clientID, ServiceID: serviceID, Date: day(date), Time: at})
	require.NoError(t, err)

	return clientID, serviceID, apptID
}

func TestCompleteAppointmentPostsInflow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	pid := newTestPartition(t, repo, "a")

	_, serviceID, apptID := bookHaircut(t, repo, pid, 5000, "2024-05-01", "10:00")

	appt, err := repo.GetAppointment(ctx, pid, apptID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, appt.Status)

	// Цена берётся на момент завершения, а не записи.
	require.NoError(t, repo.UpdateService(ctx, pid, model.Service{ID: serviceID, Name: "Haircut", PriceCents: 6000}))

	entryID, err := repo.CompleteAppointment(ctx, pid, apptID, day("2024-05-03"))
	require.NoError(t, err)

	appt, err = repo.GetAppointment(ctx, pid, apptID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, appt.Status)

	entries, err := repo.ListEntries(ctx, pid, true, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entryID, entries[0].ID)
	assert.Equal(t, int64(6000), entries[0].AmountCents)
	assert.Equal(t, model.EntryKindInflow, entries[0].Kind)
	assert.Equal(t, day("2024-05-03"), entries[0].Date)
	assert.Equal(t, "Appointment: Ana - Haircut (60.00)", entries[0].Description)
	require.NotNil(t, entries[0].AppointmentID)
	assert.Equal(t, apptID, *entries[0].AppointmentID)

	pending, err := repo.ListPendingAppointments(ctx, pid, nil)
	require.NoError(t, err)
	assert.Empty(t, pending)

	events, err := repo.FetchUnpublishedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventAppointmentCompleted, events[0].EventType)

	var payload model.AppointmentCompleted
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, apptID, payload.AppointmentID)
	assert.Equal(t, entryID, payload.EntryID)
	assert.Equal(t, int64(6000), payload.AmountCents)

	require.NoError(t, repo.MarkEventsPublished(ctx, []int64{events[0].ID}))
	events, err = repo.FetchUnpublishedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCompleteAppointmentTwice(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	pid := newTestPartition(t, repo, "a")

	_, _, apptID := bookHaircut(t, repo, pid, 5000, "2024-05-01", "10:00")

	_, err := repo.CompleteAppointment(ctx, pid, apptID, day("2024-05-01"))
	require.NoError(t, err)

	_, err = repo.CompleteAppointment(ctx, pid, apptID, day("2024-05-01"))
	assert.True(t, errors.Is(err, model.ErrInvalidTransition))

	assert.True(t, errors.Is(repo.CancelAppointment(ctx, pid, apptID), model.ErrInvalidTransition))

	_, err = repo.CompleteAppointment(ctx, pid, 999, day("2024-05-01"))
	assert.True(t, errors.Is(err, model.ErrNotFound))

	entries, err := repo.ListEntries(ctx, pid, false, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCompleteAppointmentConcurrent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	pid := newTestPartition(t, repo, "a")

	_, _, apptID := bookHaircut(t, repo, pid, 5000, "2024-05-01", "10:00")

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		invalid int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CompleteAppointment(ctx, pid, apptID, day("2024-05-01"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, model.ErrInvalidTransition):
				invalid++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, workers-1, invalid)

	entries, err := repo.ListEntries(ctx, pid, false, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCompleteWithRemovedServiceKeepsPending(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	pid := newTestPartition(t, repo, "a")

	clientID, serviceID, apptID := bookHaircut(t, repo, pid, 5000, "2024-05-01", "10:00")

	// Удаление клиента и услуги не блокируется ссылающейся записью.
	require.NoError(t, repo.DeleteService(ctx, pid, serviceID))
	require.NoError(t, repo.DeleteClient(ctx, pid, clientID))

	pending, err := repo.ListPendingAppointments(ctx, pid, nil)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].CatalogMissing)

	_, err = repo.CompleteAppointment(ctx, pid, apptID, day("2024-05-01"))
	assert.True(t, errors.Is(err, model.ErrNotFound))

	appt, err := repo.GetAppointment(ctx, pid, apptID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, appt.Status)

	entries, err := repo.ListEntries(ctx, pid, false, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCompleteRollsBackWhenLedgerInsertFails(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	pid := newTestPartition(t, repo, "a")

	_, _, apptID := bookHaircut(t, repo, pid, 5000, "2024-05-01", "10:00")

	_, err := repo.db.ExecContext(ctx,
		`CREATE TRIGGER fail_ledger_insert BEFORE INSERT ON ledger_entries
		 BEGIN SELECT RAISE(ABORT, 'ledger unavailable'); END`)
	require.NoError(t, err)

	_, err = repo.CompleteAppointment(ctx, pid, apptID, day("2024-05-01"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert ledger entry")

	appt, err := repo.GetAppointment(ctx, pid, apptID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, appt.Status)

	balance, err := repo.GetBalance(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, model.Balance{}, balance)

	events, err := repo.FetchUnpublishedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)

	// После устранения сбоя запись завершается штатно.
	_, err = repo.db.ExecContext(ctx, `DROP TRIGGER fail_ledger_insert`)
	require.NoError(t, err)

	_, err = repo.CompleteAppointment(ctx, pid, apptID, day("2024-05-01"))
	require.NoError(t, err)
}

func TestCancelAppointmentDeletes(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	pid := newTestPartition(t, repo, "a")

	_, _, apptID := bookHaircut(t, repo, pid, 5000, "2024-05-01", "10:00")

	require.NoError(t, repo.CancelAppointment(ctx, pid, apptID))

	_, err := repo.GetAppointment(ctx, pid, apptID)
	assert.True(t, errors.Is(err, model.ErrNotFound))

	assert.True(t, errors.Is(repo.CancelAppointment(ctx, pid, apptID), model.ErrNotFound))

	entries, err := repo.ListEntries(ctx, pid, false, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListPendingOrderAndFilter(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	pid := newTestPartition(t, repo, "a")

	clientID, err := repo.CreateClient(ctx, pid, "Ana", "")
	require.NoError(t, err)
	serviceID, err := repo.CreateService(ctx, pid, "Shave", 2000)
	require.NoError(t, err)

	book := func(date, at string) int64 {
		id, err := repo.CreateAppointment(ctx, pid, model.Appointment{ClientID: clientID, ServiceID: serviceID, Date: day(date), Time: at})
		require.NoError(t, err)
		return id
	}

	late := book("2024-05-02", "09:00")
	afternoon := book("2024-05-01", "15:30")
	morning := book("2024-05-01", "08:15")

	pending, err := repo.ListPendingAppointments(ctx, pid, nil)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, []int64{morning, afternoon, late}, []int64{pending[0].ID, pending[1].ID, pending[2].ID})
	assert.Equal(t, "Ana", pending[0].ClientName)
	assert.Equal(t, int64(2000), pending[0].ServicePrice)

	on := day("2024-05-01")
	today, err := repo.ListPendingAppointments(ctx, pid, &on)
	require.NoError(t, err)
	assert.Len(t, today, 2)

	counts, err := repo.CountAppointmentsByDate(ctx, pid, 7)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, day("2024-05-02"), counts[0].Date)
	assert.Equal(t, int64(1), counts[0].Count)
	assert.Equal(t, int64(2), counts[1].Count)
}

func TestBalanceFollowsEntries(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	pid := newTestPartition(t, repo, "a")

	post := func(amount int64, kind model.EntryKind) int64 {
		id, err := repo.CreateEntry(ctx, pid, model.LedgerEntry{Description: "x", AmountCents: amount, Kind: kind, Date: day("2024-05-01")})
		require.NoError(t, err)
		return id
	}

	post(5000, model.EntryKindInflow)
	rent := post(2000, model.EntryKindOutflow)
	post(1500, model.EntryKindInflow)

	b, err := repo.GetBalance(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, model.Balance{InflowCents: 6500, OutflowCents: 2000, NetCents: 4500}, b)

	require.NoError(t, repo.DeleteEntry(ctx, pid, rent))
	assert.True(t, errors.Is(repo.DeleteEntry(ctx, pid, rent), model.ErrNotFound))

	b, err = repo.GetBalance(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, int64(6500), b.NetCents)

	newest, err := repo.ListEntries(ctx, pid, true, 1)
	require.NoError(t, err)
	require.Len(t, newest, 1)
	assert.Equal(t, int64(1500), newest[0].AmountCents)
}
