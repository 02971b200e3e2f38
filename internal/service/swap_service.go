package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/Freeeeeet/slot_swap/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SwapService правила создания и разрешения заявок на обмен слотами.
// Все изменения нескольких записей выполняются в одной транзакции
// с условной записью по статусу каждой записи.
type SwapService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewSwapService(store repository.Store, logger *zap.Logger) *SwapService {
	return &SwapService{
		store:  store,
		logger: logger,
	}
}

// CreateProposal предлагает обменять свой слот mySlotID на чужой theirSlotID
func (s *SwapService) CreateProposal(ctx context.Context, requesterID, mySlotID, theirSlotID uuid.UUID) (*model.SwapRequest, error) {
	if mySlotID == theirSlotID {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSlot, errSameSlot)
	}

	var created *model.SwapRequest
	err := s.store.WithinTx(ctx, func(ctx context.Context, st repository.Stores) error {
		mySlot, err := st.Slots.GetByID(ctx, mySlotID)
		if err != nil {
			return systemError("get my slot", err)
		}
		if err := checkOfferable(mySlot, requesterID, true); err != nil {
			return fmt.Errorf("%w: mySlot: %w", ErrInvalidSlot, err)
		}

		theirSlot, err := st.Slots.GetByID(ctx, theirSlotID)
		if err != nil {
			return systemError("get their slot", err)
		}
		if err := checkOfferable(theirSlot, requesterID, false); err != nil {
			return fmt.Errorf("%w: theirSlot: %w", ErrInvalidSlot, err)
		}

		// Слоты блокируем в порядке ID, чтобы встречные предложения не ждали друг друга по кругу
		for _, slot := range orderByID(mySlot, theirSlot) {
			err := st.Slots.TransitionStatus(ctx, slot.ID, slot.OwnerID, model.SlotStatusSwappable, model.SlotStatusSwapPending)
			if err != nil {
				return conditionalWriteError("reserve slot", err)
			}
		}

		req := &model.SwapRequest{
			Status:          model.SwapStatusPending,
			RequesterID:     requesterID,
			ReceiverID:      theirSlot.OwnerID,
			RequesterSlotID: mySlot.ID,
			ReceiverSlotID:  theirSlot.ID,
		}
		if err := st.Requests.Create(ctx, req); err != nil {
			return conditionalWriteError("create swap request", err)
		}

		created = req
		return nil
	})

	if err != nil {
		s.logFailure("Swap proposal failed", err,
			zap.String("requester_id", requesterID.String()),
			zap.String("my_slot_id", mySlotID.String()),
			zap.String("their_slot_id", theirSlotID.String()),
		)
		return nil, err
	}

	s.logger.Info("Swap proposed",
		zap.String("request_id", created.ID.String()),
		zap.String("requester_id", created.RequesterID.String()),
		zap.String("receiver_id", created.ReceiverID.String()),
		zap.String("requester_slot_id", created.RequesterSlotID.String()),
		zap.String("receiver_slot_id", created.ReceiverSlotID.String()),
	)

	return created, nil
}

// ResolveProposal принимает или отклоняет заявку от имени получателя.
// Повторный ответ на уже закрытую заявку завершается ErrInvalidState без изменений.
func (s *SwapService) ResolveProposal(ctx context.Context, requestID, responderID uuid.UUID, accepted bool) (*model.Resolution, error) {
	var result *model.Resolution
	err := s.store.WithinTx(ctx, func(ctx context.Context, st repository.Stores) error {
		req, err := st.Requests.GetByID(ctx, requestID)
		if err != nil {
			return systemError("get swap request", err)
		}

		if req == nil {
			return fmt.Errorf("%w: %w: swap request %s", ErrNotFound, ErrInvalidState, requestID)
		}

		if req.ReceiverID != responderID {
			return fmt.Errorf("%w: only the receiver can respond to swap request %s", ErrUnauthorized, requestID)
		}

		if req.Status.Terminal() {
			return fmt.Errorf("%w: swap request %s is already %s", ErrInvalidState, requestID, req.Status)
		}

		status := model.SwapStatusRejected
		if accepted {
			status = model.SwapStatusAccepted
		}

		resolved, err := st.Requests.Resolve(ctx, req.ID, status)
		if err != nil {
			return conditionalWriteError("resolve swap request", err)
		}

		if accepted {
			err = s.exchangeOwners(ctx, st, req)
		} else {
			err = s.release(ctx, st, req)
		}
		if err != nil {
			return err
		}

		slots, err := st.Slots.GetByIDs(ctx, []uuid.UUID{req.RequesterSlotID, req.ReceiverSlotID})
		if err != nil {
			return systemError("reload slots", err)
		}

		result = &model.Resolution{
			Message:       resolutionMessage(accepted),
			Request:       resolved,
			RequesterSlot: slots[req.RequesterSlotID],
			ReceiverSlot:  slots[req.ReceiverSlotID],
		}
		return nil
	})

	if err != nil {
		s.logFailure("Swap resolution failed", err,
			zap.String("request_id", requestID.String()),
			zap.String("responder_id", responderID.String()),
			zap.Bool("accepted", accepted),
		)
		return nil, err
	}

	s.logger.Info("Swap resolved",
		zap.String("request_id", requestID.String()),
		zap.String("responder_id", responderID.String()),
		zap.String("status", string(result.Request.Status)),
	)

	return result, nil
}

// exchangeOwners меняет владельцев слотов местами и переводит оба в BUSY
func (s *SwapService) exchangeOwners(ctx context.Context, st repository.Stores, req *model.SwapRequest) error {
	transfers := []struct {
		slotID   uuid.UUID
		from, to uuid.UUID
	}{
		{req.RequesterSlotID, req.RequesterID, req.ReceiverID},
		{req.ReceiverSlotID, req.ReceiverID, req.RequesterID},
	}
	if bytes.Compare(transfers[0].slotID[:], transfers[1].slotID[:]) > 0 {
		transfers[0], transfers[1] = transfers[1], transfers[0]
	}

	for _, t := range transfers {
		err := st.Slots.TransferOwner(ctx, t.slotID, t.from, t.to, model.SlotStatusSwapPending, model.SlotStatusBusy)
		if err != nil {
			return conditionalWriteError("transfer slot", err)
		}
	}
	return nil
}

// release возвращает оба слота в SWAPPABLE без смены владельцев
func (s *SwapService) release(ctx context.Context, st repository.Stores, req *model.SwapRequest) error {
	owners := map[uuid.UUID]uuid.UUID{
		req.RequesterSlotID: req.RequesterID,
		req.ReceiverSlotID:  req.ReceiverID,
	}
	ids := []uuid.UUID{req.RequesterSlotID, req.ReceiverSlotID}
	if bytes.Compare(ids[0][:], ids[1][:]) > 0 {
		ids[0], ids[1] = ids[1], ids[0]
	}

	for _, id := range ids {
		err := st.Slots.TransitionStatus(ctx, id, owners[id], model.SlotStatusSwapPending, model.SlotStatusSwappable)
		if err != nil {
			return conditionalWriteError("release slot", err)
		}
	}
	return nil
}

func (s *SwapService) logFailure(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if errors.Is(Kind(err), ErrSystem) {
		s.logger.Error(msg, fields...)
		return
	}
	s.logger.Info(msg, fields...)
}

// checkOfferable проверяет что слот существует, выставлен на обмен и принадлежит
// (own=true) или не принадлежит (own=false) пользователю userID
func checkOfferable(slot *model.Slot, userID uuid.UUID, own bool) error {
	if slot == nil {
		return fmt.Errorf("%w: %w", errSlotNotFound, ErrNotFound)
	}
	if own && slot.OwnerID != userID {
		return errSlotOwner
	}
	if !own && slot.OwnerID == userID {
		return errSameOwnerSlot
	}
	if slot.Status != model.SlotStatusSwappable {
		return fmt.Errorf("%w: status %s", errSlotStatus, slot.Status)
	}
	return nil
}

// conditionalWriteError различает конфликт условной записи и отказ хранилища
func conditionalWriteError(op string, err error) error {
	if errors.Is(err, repository.ErrConflict) {
		return fmt.Errorf("%w: %s: %w", ErrInvalidState, op, err)
	}
	return systemError(op, err)
}

func orderByID(a, b *model.Slot) []*model.Slot {
	if bytes.Compare(a.ID[:], b.ID[:]) > 0 {
		return []*model.Slot{b, a}
	}
	return []*model.Slot{a, b}
}

func resolutionMessage(accepted bool) string {
	if accepted {
		return "Swap accepted"
	}
	return "Swap rejected"
}
