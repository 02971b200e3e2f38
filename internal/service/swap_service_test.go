package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStorageDown = errors.New("storage down")

func TestCreateProposal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u1 := env.user(t, "alice")
	u2 := env.user(t, "bob")
	a := env.slot(t, u1.ID, "Standup", model.SlotStatusSwappable)
	b := env.slot(t, u2.ID, "Review", model.SlotStatusSwappable)

	req, err := env.swaps.CreateProposal(ctx, u1.ID, a.ID, b.ID)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, req.ID)
	assert.Equal(t, model.SwapStatusPending, req.Status)
	assert.Equal(t, u1.ID, req.RequesterID)
	assert.Equal(t, u2.ID, req.ReceiverID)
	assert.Equal(t, a.ID, req.RequesterSlotID)
	assert.Equal(t, b.ID, req.ReceiverSlotID)

	assert.Equal(t, model.SlotStatusSwapPending, env.reload(t, a.ID).Status)
	assert.Equal(t, model.SlotStatusSwapPending, env.reload(t, b.ID).Status)

	// Слоты в открытой заявке больше не предлагаются
	market, err := env.query.ListSwappableSlots(ctx, u1.ID)
	require.NoError(t, err)
	assert.Empty(t, market)
}

func TestCreateProposalInvalidSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u1 := env.user(t, "alice")
	u2 := env.user(t, "bob")
	mine := env.slot(t, u1.ID, "Mine", model.SlotStatusSwappable)
	mineBusy := env.slot(t, u1.ID, "Mine busy", model.SlotStatusBusy)
	mineOther := env.slot(t, u1.ID, "Mine too", model.SlotStatusSwappable)
	theirs := env.slot(t, u2.ID, "Theirs", model.SlotStatusSwappable)
	theirsBusy := env.slot(t, u2.ID, "Theirs busy", model.SlotStatusBusy)

	tests := []struct {
		name   string
		mySlot uuid.UUID
		their  uuid.UUID
	}{
		{"same slot", mine.ID, mine.ID},
		{"my slot missing", uuid.New(), theirs.ID},
		{"my slot owned by someone else", theirs.ID, mine.ID},
		{"my slot not swappable", mineBusy.ID, theirs.ID},
		{"their slot missing", mine.ID, uuid.New()},
		{"their slot is mine", mine.ID, mineOther.ID},
		{"their slot not swappable", mine.ID, theirsBusy.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.swaps.CreateProposal(ctx, u1.ID, tt.mySlot, tt.their)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidSlot)
			assert.Equal(t, ErrInvalidSlot, Kind(err))
		})
	}

	// Ни одна неудачная попытка ничего не изменила
	assert.Equal(t, model.SlotStatusSwappable, env.reload(t, mine.ID).Status)
	assert.Equal(t, model.SlotStatusSwappable, env.reload(t, theirs.ID).Status)
	assert.Equal(t, model.SlotStatusBusy, env.reload(t, mineBusy.ID).Status)

	outgoing, err := env.query.ListOutgoing(ctx, u1.ID)
	require.NoError(t, err)
	assert.Empty(t, outgoing)
}

func TestCreateProposalSlotAlreadyPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u1 := env.user(t, "alice")
	u2 := env.user(t, "bob")
	u3 := env.user(t, "carol")
	a := env.slot(t, u1.ID, "A", model.SlotStatusSwappable)
	b := env.slot(t, u2.ID, "B", model.SlotStatusSwappable)
	c := env.slot(t, u3.ID, "C", model.SlotStatusSwappable)

	_, err := env.swaps.CreateProposal(ctx, u1.ID, a.ID, b.ID)
	require.NoError(t, err)

	_, err = env.swaps.CreateProposal(ctx, u3.ID, c.ID, b.ID)
	assert.ErrorIs(t, err, ErrInvalidSlot)
	assert.Equal(t, model.SlotStatusSwappable, env.reload(t, c.ID).Status)
}

func TestCreateProposalConcurrentSameTarget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	target := env.slot(t, env.user(t, "owner").ID, "Target", model.SlotStatusSwappable)

	const bidders = 16
	type bid struct {
		user uuid.UUID
		slot uuid.UUID
	}
	bids := make([]bid, bidders)
	for i := range bids {
		u := env.user(t, uuid.NewString())
		bids[i] = bid{user: u.ID, slot: env.slot(t, u.ID, "Offer", model.SlotStatusSwappable).ID}
	}

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		start     = make(chan struct{})
	)
	for _, b := range bids {
		wg.Add(1)
		go func(b bid) {
			defer wg.Done()
			<-start
			_, err := env.swaps.CreateProposal(ctx, b.user, b.slot, target.ID)
			if err == nil {
				successes.Add(1)
				return
			}
			kind := Kind(err)
			assert.True(t, kind == ErrInvalidSlot || kind == ErrInvalidState, "unexpected error: %v", err)
		}(b)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, model.SlotStatusSwapPending, env.reload(t, target.ID).Status)

	pending := 0
	for _, b := range bids {
		if env.reload(t, b.slot).Status == model.SlotStatusSwapPending {
			pending++
		}
	}
	assert.Equal(t, 1, pending)
}

func TestResolveProposalAccept(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u1 := env.user(t, "alice")
	u2 := env.user(t, "bob")
	a := env.slot(t, u1.ID, "Standup", model.SlotStatusSwappable)
	b := env.slot(t, u2.ID, "Review", model.SlotStatusSwappable)

	req, err := env.swaps.CreateProposal(ctx, u1.ID, a.ID, b.ID)
	require.NoError(t, err)

	res, err := env.swaps.ResolveProposal(ctx, req.ID, u2.ID, true)
	require.NoError(t, err)

	assert.Equal(t, "Swap accepted", res.Message)
	assert.Equal(t, model.SwapStatusAccepted, res.Request.Status)
	require.NotNil(t, res.RequesterSlot)
	require.NotNil(t, res.ReceiverSlot)
	assert.Equal(t, u2.ID, res.RequesterSlot.OwnerID)
	assert.Equal(t, u1.ID, res.ReceiverSlot.OwnerID)

	gotA := env.reload(t, a.ID)
	gotB := env.reload(t, b.ID)
	assert.Equal(t, u2.ID, gotA.OwnerID)
	assert.Equal(t, u1.ID, gotB.OwnerID)
	assert.Equal(t, model.SlotStatusBusy, gotA.Status)
	assert.Equal(t, model.SlotStatusBusy, gotB.Status)
	assert.Equal(t, model.SwapStatusAccepted, env.request(t, req.ID).Status)

	mine, err := env.slots.ListMySlots(ctx, u1.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, b.ID, mine[0].ID)
}

func TestResolveProposalReject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u1 := env.user(t, "alice")
	u2 := env.user(t, "bob")
	a := env.slot(t, u1.ID, "Standup", model.SlotStatusSwappable)
	b := env.slot(t, u2.ID, "Review", model.SlotStatusSwappable)

	req, err := env.swaps.CreateProposal(ctx, u1.ID, a.ID, b.ID)
	require.NoError(t, err)

	res, err := env.swaps.ResolveProposal(ctx, req.ID, u2.ID, false)
	require.NoError(t, err)

	assert.Equal(t, "Swap rejected", res.Message)
	assert.Equal(t, model.SwapStatusRejected, res.Request.Status)

	gotA := env.reload(t, a.ID)
	gotB := env.reload(t, b.ID)
	assert.Equal(t, u1.ID, gotA.OwnerID)
	assert.Equal(t, u2.ID, gotB.OwnerID)
	assert.Equal(t, model.SlotStatusSwappable, gotA.Status)
	assert.Equal(t, model.SlotStatusSwappable, gotB.Status)

	// После отказа слоты снова можно предлагать
	_, err = env.swaps.CreateProposal(ctx, u1.ID, a.ID, b.ID)
	assert.NoError(t, err)
}

func TestResolveProposalErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u1 := env.user(t, "alice")
	u2 := env.user(t, "bob")
	a := env.slot(t, u1.ID, "A", model.SlotStatusSwappable)
	b := env.slot(t, u2.ID, "B", model.SlotStatusSwappable)

	req, err := env.swaps.CreateProposal(ctx, u1.ID, a.ID, b.ID)
	require.NoError(t, err)

	t.Run("missing request", func(t *testing.T) {
		_, err := env.swaps.ResolveProposal(ctx, uuid.New(), u2.ID, true)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.Equal(t, ErrNotFound, Kind(err))
	})

	t.Run("requester cannot respond", func(t *testing.T) {
		_, err := env.swaps.ResolveProposal(ctx, req.ID, u1.ID, true)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("stranger cannot respond", func(t *testing.T) {
		_, err := env.swaps.ResolveProposal(ctx, req.ID, uuid.New(), false)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	assert.Equal(t, model.SwapStatusPending, env.request(t, req.ID).Status)
	assert.Equal(t, model.SlotStatusSwapPending, env.reload(t, a.ID).Status)

	t.Run("second resolution", func(t *testing.T) {
		_, err := env.swaps.ResolveProposal(ctx, req.ID, u2.ID, true)
		require.NoError(t, err)

		_, err = env.swaps.ResolveProposal(ctx, req.ID, u2.ID, false)
		assert.ErrorIs(t, err, ErrInvalidState)

		assert.Equal(t, model.SwapStatusAccepted, env.request(t, req.ID).Status)
		assert.Equal(t, u2.ID, env.reload(t, a.ID).OwnerID)
		assert.Equal(t, model.SlotStatusBusy, env.reload(t, a.ID).Status)
	})
}

func TestResolveProposalConcurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u1 := env.user(t, "alice")
	u2 := env.user(t, "bob")
	a := env.slot(t, u1.ID, "A", model.SlotStatusSwappable)
	b := env.slot(t, u2.ID, "B", model.SlotStatusSwappable)

	req, err := env.swaps.CreateProposal(ctx, u1.ID, a.ID, b.ID)
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		start     = make(chan struct{})
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(accept bool) {
			defer wg.Done()
			<-start
			_, err := env.swaps.ResolveProposal(ctx, req.ID, u2.ID, accept)
			if err == nil {
				successes.Add(1)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidState)
		}(i%2 == 0)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())

	final := env.request(t, req.ID)
	gotA := env.reload(t, a.ID)
	switch final.Status {
	case model.SwapStatusAccepted:
		assert.Equal(t, u2.ID, gotA.OwnerID)
		assert.Equal(t, model.SlotStatusBusy, gotA.Status)
	case model.SwapStatusRejected:
		assert.Equal(t, u1.ID, gotA.OwnerID)
		assert.Equal(t, model.SlotStatusSwappable, gotA.Status)
	default:
		t.Fatalf("request left in status %s", final.Status)
	}
}

func TestProposalRacesRejection(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		env := newTestEnv(t)

		u1 := env.user(t, "alice")
		u2 := env.user(t, "bob")
		u3 := env.user(t, "carol")
		a := env.slot(t, u1.ID, "A", model.SlotStatusSwappable)
		b := env.slot(t, u2.ID, "B", model.SlotStatusSwappable)
		c := env.slot(t, u3.ID, "C", model.SlotStatusSwappable)

		req, err := env.swaps.CreateProposal(ctx, u1.ID, a.ID, b.ID)
		require.NoError(t, err)

		var (
			wg          sync.WaitGroup
			start       = make(chan struct{})
			rejectErr   error
			proposal    *model.SwapRequest
			proposalErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			_, rejectErr = env.swaps.ResolveProposal(ctx, req.ID, u2.ID, false)
		}()
		go func() {
			defer wg.Done()
			<-start
			proposal, proposalErr = env.swaps.CreateProposal(ctx, u3.ID, c.ID, b.ID)
		}()
		close(start)
		wg.Wait()

		require.NoError(t, rejectErr)
		assert.Equal(t, model.SwapStatusRejected, env.request(t, req.ID).Status)
		assert.Equal(t, model.SlotStatusSwappable, env.reload(t, a.ID).Status)

		open, err := env.store.Stores().Requests.ListByReceiver(ctx, u2.ID, model.SwapStatusPending)
		require.NoError(t, err)
		var openOnB []*model.SwapRequest
		for _, r := range open {
			if r.ReceiverSlotID == b.ID {
				openOnB = append(openOnB, r)
			}
		}

		if proposalErr != nil {
			kind := Kind(proposalErr)
			assert.True(t, kind == ErrInvalidSlot || kind == ErrInvalidState, "unexpected error: %v", proposalErr)
			assert.Equal(t, model.SlotStatusSwappable, env.reload(t, b.ID).Status)
			assert.Equal(t, model.SlotStatusSwappable, env.reload(t, c.ID).Status)
			assert.Empty(t, openOnB)
			continue
		}

		assert.Equal(t, model.SlotStatusSwapPending, env.reload(t, b.ID).Status)
		assert.Equal(t, model.SlotStatusSwapPending, env.reload(t, c.ID).Status)
		require.Len(t, openOnB, 1)
		assert.Equal(t, proposal.ID, openOnB[0].ID)
	}
}

func TestCreateProposalStorageFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u1 := env.user(t, "alice")
	u2 := env.user(t, "bob")
	a := env.slot(t, u1.ID, "A", model.SlotStatusSwappable)
	b := env.slot(t, u2.ID, "B", model.SlotStatusSwappable)

	env.store.SetFaultHook(func(op string) error {
		if op == "requests.Create" {
			return errStorageDown
		}
		return nil
	})

	_, err := env.swaps.CreateProposal(ctx, u1.ID, a.ID, b.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSystem)
	assert.ErrorIs(t, err, errStorageDown)

	assert.Equal(t, model.SlotStatusSwappable, env.reload(t, a.ID).Status)
	assert.Equal(t, model.SlotStatusSwappable, env.reload(t, b.ID).Status)

	env.store.SetFaultHook(nil)
	_, err = env.swaps.CreateProposal(ctx, u1.ID, a.ID, b.ID)
	assert.NoError(t, err)
}

func TestResolveProposalStorageFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u1 := env.user(t, "alice")
	u2 := env.user(t, "bob")
	a := env.slot(t, u1.ID, "A", model.SlotStatusSwappable)
	b := env.slot(t, u2.ID, "B", model.SlotStatusSwappable)

	req, err := env.swaps.CreateProposal(ctx, u1.ID, a.ID, b.ID)
	require.NoError(t, err)

	// Падает вторая передача владельца: первая уже выполнена внутри транзакции
	var transfers atomic.Int32
	env.store.SetFaultHook(func(op string) error {
		if op == "slots.TransferOwner" && transfers.Add(1) == 2 {
			return errStorageDown
		}
		return nil
	})

	_, err = env.swaps.ResolveProposal(ctx, req.ID, u2.ID, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSystem)

	assert.Equal(t, model.SwapStatusPending, env.request(t, req.ID).Status)
	gotA := env.reload(t, a.ID)
	gotB := env.reload(t, b.ID)
	assert.Equal(t, u1.ID, gotA.OwnerID)
	assert.Equal(t, u2.ID, gotB.OwnerID)
	assert.Equal(t, model.SlotStatusSwapPending, gotA.Status)
	assert.Equal(t, model.SlotStatusSwapPending, gotB.Status)

	env.store.SetFaultHook(nil)
	res, err := env.swaps.ResolveProposal(ctx, req.ID, u2.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.SwapStatusAccepted, res.Request.Status)
}

func TestSwappedSlotsAreNotOfferable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u1 := env.user(t, "alice")
	u2 := env.user(t, "bob")
	a := env.slot(t, u1.ID, "A", model.SlotStatusSwappable)
	b := env.slot(t, u2.ID, "B", model.SlotStatusSwappable)

	req, err := env.swaps.CreateProposal(ctx, u1.ID, a.ID, b.ID)
	require.NoError(t, err)
	_, err = env.swaps.ResolveProposal(ctx, req.ID, u2.ID, true)
	require.NoError(t, err)

	// Слоты после обмена BUSY, новый обмен требует явного выставления
	_, err = env.swaps.CreateProposal(ctx, u1.ID, b.ID, a.ID)
	assert.ErrorIs(t, err, ErrInvalidSlot)

	_, err = env.slots.SetSwappable(ctx, u1.ID, b.ID, true)
	require.NoError(t, err)
	_, err = env.slots.SetSwappable(ctx, u2.ID, a.ID, true)
	require.NoError(t, err)

	_, err = env.swaps.CreateProposal(ctx, u1.ID, b.ID, a.ID)
	assert.NoError(t, err)
}
