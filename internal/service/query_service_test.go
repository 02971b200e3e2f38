package service

import (
	"context"
	"testing"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListSwappableSlots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.user(t, "alice")
	u2 := env.user(t, "bob")

	env.slot(t, u1.ID, "Mine", model.SlotStatusSwappable)
	env.slot(t, u2.ID, "Busy", model.SlotStatusBusy)
	offered := env.slot(t, u2.ID, "Offered", model.SlotStatusSwappable)

	slots, err := env.query.ListSwappableSlots(ctx, u1.ID)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, offered.ID, slots[0].ID)
}

func TestListIncomingAndOutgoing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.user(t, "alice")
	u2 := env.user(t, "bob")

	a1 := env.slot(t, u1.ID, "A1", model.SlotStatusSwappable)
	a2 := env.slot(t, u1.ID, "A2", model.SlotStatusSwappable)
	b1 := env.slot(t, u2.ID, "B1", model.SlotStatusSwappable)
	b2 := env.slot(t, u2.ID, "B2", model.SlotStatusSwappable)

	rejected, err := env.swaps.CreateProposal(ctx, u1.ID, a1.ID, b1.ID)
	require.NoError(t, err)
	_, err = env.swaps.ResolveProposal(ctx, rejected.ID, u2.ID, false)
	require.NoError(t, err)

	open, err := env.swaps.CreateProposal(ctx, u1.ID, a2.ID, b2.ID)
	require.NoError(t, err)

	incoming, err := env.query.ListIncoming(ctx, u2.ID)
	require.NoError(t, err)
	require.Len(t, incoming, 1)

	view := incoming[0]
	assert.Equal(t, open.ID, view.ID)
	assert.Equal(t, model.SwapStatusPending, view.Status)
	require.NotNil(t, view.Requester)
	assert.Equal(t, "alice", view.Requester.Name)
	assert.Equal(t, "alice@example.com", view.Requester.Email)
	require.NotNil(t, view.RequesterSlot)
	assert.Equal(t, a2.ID, view.RequesterSlot.ID)
	require.NotNil(t, view.ReceiverSlot)
	assert.Equal(t, b2.ID, view.ReceiverSlot.ID)

	// Запрашивающий своих заявок во входящих не видит
	none, err := env.query.ListIncoming(ctx, u1.ID)
	require.NoError(t, err)
	assert.Empty(t, none)

	outgoing, err := env.query.ListOutgoing(ctx, u1.ID)
	require.NoError(t, err)
	require.Len(t, outgoing, 2)

	statuses := map[uuid.UUID]model.SwapStatus{}
	for _, v := range outgoing {
		statuses[v.ID] = v.Status
		require.NotNil(t, v.Receiver)
		assert.Equal(t, "bob", v.Receiver.Name)
	}
	assert.Equal(t, model.SwapStatusRejected, statuses[rejected.ID])
	assert.Equal(t, model.SwapStatusPending, statuses[open.ID])
}

func TestListIncomingMissingReferences(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	receiver := env.user(t, "bob")
	ghost := uuid.New()

	req := &model.SwapRequest{
		Status:          model.SwapStatusPending,
		RequesterID:     ghost,
		ReceiverID:      receiver.ID,
		RequesterSlotID: uuid.New(),
		ReceiverSlotID:  uuid.New(),
	}
	require.NoError(t, env.store.Stores().Requests.Create(ctx, req))

	incoming, err := env.query.ListIncoming(ctx, receiver.ID)
	require.NoError(t, err)
	require.Len(t, incoming, 1)

	assert.Nil(t, incoming[0].Requester)
	assert.Nil(t, incoming[0].RequesterSlot)
	assert.Nil(t, incoming[0].ReceiverSlot)
	require.NotNil(t, incoming[0].Receiver)
	assert.Equal(t, receiver.ID, incoming[0].Receiver.ID)
}

func TestListEmpty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")

	incoming, err := env.query.ListIncoming(ctx, u.ID)
	require.NoError(t, err)
	assert.NotNil(t, incoming)
	assert.Empty(t, incoming)
}
