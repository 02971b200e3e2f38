package repository_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/app"
	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/Freeeeeet/slot_swap/internal/repository"
	"github.com/Freeeeeet/slot_swap/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newPostgres подключается к TEST_DB_DSN и применяет миграции
func newPostgres(t *testing.T) *repository.Postgres {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	mg, err := app.NewMigrator(pool, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, mg.Run(ctx))
	require.NoError(t, mg.Close())

	return repository.NewPostgres(pool)
}

func createUser(t *testing.T, s repository.Stores, name string) *model.User {
	t.Helper()
	email := uuid.NewString() + "@example.com"
	user := &model.User{Name: name, Email: &email, PasswordHash: "x"}
	require.NoError(t, s.Users.Create(context.Background(), user))
	return user
}

func createSlot(t *testing.T, s repository.Stores, owner uuid.UUID, status model.SlotStatus) *model.Slot {
	t.Helper()
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	slot := &model.Slot{OwnerID: owner, Title: "slot", StartTime: start, EndTime: start.Add(time.Hour), Status: status}
	require.NoError(t, s.Slots.Create(context.Background(), slot))
	return slot
}

func TestPostgresConditionalWrites(t *testing.T) {
	pg := newPostgres(t)
	ctx := context.Background()
	s := pg.Stores()

	alice := createUser(t, s, "Alice")
	slot := createSlot(t, s, alice.ID, model.SlotStatusSwappable)

	err := s.Slots.TransitionStatus(ctx, slot.ID, alice.ID, model.SlotStatusBusy, model.SlotStatusSwappable)
	assert.ErrorIs(t, err, repository.ErrConflict)

	require.NoError(t, s.Slots.TransitionStatus(ctx, slot.ID, alice.ID, model.SlotStatusSwappable, model.SlotStatusSwapPending))

	slot.Title = "edited"
	err = s.Slots.UpdateIfStatus(ctx, slot, model.SlotStatusSwappable)
	assert.ErrorIs(t, err, repository.ErrConflict)

	got, err := s.Slots.GetByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, "slot", got.Title)
	assert.Equal(t, model.SlotStatusSwapPending, got.Status)

	missing, err := s.Slots.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPostgresDuplicateEmail(t *testing.T) {
	pg := newPostgres(t)
	s := pg.Stores()

	user := createUser(t, s, "Alice")
	dup := &model.User{Name: "Alice 2", Email: user.Email, PasswordHash: "x"}
	assert.ErrorIs(t, s.Users.Create(context.Background(), dup), repository.ErrDuplicate)
}

func TestPostgresWithinTxRollsBack(t *testing.T) {
	pg := newPostgres(t)
	ctx := context.Background()
	s := pg.Stores()

	alice := createUser(t, s, "Alice")
	slot := createSlot(t, s, alice.ID, model.SlotStatusSwappable)

	boom := errors.New("boom")
	err := pg.WithinTx(ctx, func(ctx context.Context, tx repository.Stores) error {
		if err := tx.Slots.TransitionStatus(ctx, slot.ID, alice.ID, model.SlotStatusSwappable, model.SlotStatusSwapPending); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Slots.GetByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotStatusSwappable, got.Status)
}

func TestPostgresSwapFlow(t *testing.T) {
	pg := newPostgres(t)
	ctx := context.Background()
	s := pg.Stores()
	logger := zap.NewNop()
	swaps := service.NewSwapService(pg, logger)
	query := service.NewQueryService(pg, logger)

	alice := createUser(t, s, "Alice")
	bob := createUser(t, s, "Bob")
	aliceSlot := createSlot(t, s, alice.ID, model.SlotStatusSwappable)
	bobSlot := createSlot(t, s, bob.ID, model.SlotStatusSwappable)

	req, err := swaps.CreateProposal(ctx, alice.ID, aliceSlot.ID, bobSlot.ID)
	require.NoError(t, err)

	incoming, err := query.ListIncoming(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, "Alice", incoming[0].Requester.Name)

	res, err := swaps.ResolveProposal(ctx, req.ID, bob.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.SwapStatusAccepted, res.Request.Status)
	assert.Equal(t, bob.ID, res.RequesterSlot.OwnerID)
	assert.Equal(t, alice.ID, res.ReceiverSlot.OwnerID)
	assert.Equal(t, model.SlotStatusBusy, res.RequesterSlot.Status)

	_, err = swaps.ResolveProposal(ctx, req.ID, bob.ID, false)
	assert.ErrorIs(t, err, service.ErrInvalidState)
}

func TestPostgresConcurrentProposals(t *testing.T) {
	pg := newPostgres(t)
	ctx := context.Background()
	s := pg.Stores()
	swaps := service.NewSwapService(pg, zap.NewNop())

	owner := createUser(t, s, "Owner")
	target := createSlot(t, s, owner.ID, model.SlotStatusSwappable)

	const bidders = 8
	offers := make([]*model.Slot, bidders)
	users := make([]*model.User, bidders)
	for i := range bidders {
		users[i] = createUser(t, s, "Bidder")
		offers[i] = createSlot(t, s, users[i].ID, model.SlotStatusSwappable)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := range bidders {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := swaps.CreateProposal(ctx, users[i].ID, offers[i].ID, target.ID); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}
