package service

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/Freeeeeet/slot_swap/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	store *memory.Store
	slots *SlotService
	swaps *SwapService
	query *QueryService
	users *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.New()
	logger := zap.NewNop()

	users := NewUserService(store, logger)
	users.hashCost = bcrypt.MinCost

	return &testEnv{
		store: store,
		slots: NewSlotService(store, logger),
		swaps: NewSwapService(store, logger),
		query: NewQueryService(store, logger),
		users: users,
	}
}

func (e *testEnv) user(t *testing.T, name string) *model.User {
	t.Helper()
	email := name + "@example.com"
	user := &model.User{Name: name, Email: &email}
	require.NoError(t, e.store.Stores().Users.Create(context.Background(), user))
	return user
}

var baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func (e *testEnv) slot(t *testing.T, owner uuid.UUID, title string, status model.SlotStatus) *model.Slot {
	t.Helper()
	slot := &model.Slot{
		OwnerID:   owner,
		Title:     title,
		StartTime: baseTime,
		EndTime:   baseTime.Add(time.Hour),
		Status:    status,
	}
	require.NoError(t, e.store.Stores().Slots.Create(context.Background(), slot))
	return slot
}

func (e *testEnv) reload(t *testing.T, id uuid.UUID) *model.Slot {
	t.Helper()
	slot, err := e.store.Stores().Slots.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, slot)
	return slot
}

func (e *testEnv) request(t *testing.T, id uuid.UUID) *model.SwapRequest {
	t.Helper()
	req, err := e.store.Stores().Requests.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, req)
	return req
}
