package service

import (
	"context"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/Freeeeeet/slot_swap/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QueryService выборки для участников обмена: рынок слотов, входящие и исходящие заявки
type QueryService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewQueryService(store repository.Store, logger *zap.Logger) *QueryService {
	return &QueryService{
		store:  store,
		logger: logger,
	}
}

// ListSwappableSlots возвращает чужие слоты, выставленные на обмен
func (s *QueryService) ListSwappableSlots(ctx context.Context, userID uuid.UUID) ([]*model.Slot, error) {
	slots, err := s.store.Stores().Slots.ListSwappable(ctx, userID)
	if err != nil {
		return nil, systemError("list swappable slots", err)
	}
	return slots, nil
}

// ListIncoming возвращает открытые заявки, адресованные пользователю
func (s *QueryService) ListIncoming(ctx context.Context, userID uuid.UUID) ([]*model.SwapRequestView, error) {
	requests, err := s.store.Stores().Requests.ListByReceiver(ctx, userID, model.SwapStatusPending)
	if err != nil {
		return nil, systemError("list incoming requests", err)
	}
	return s.enrich(ctx, requests), nil
}

// ListOutgoing возвращает все заявки пользователя в любом статусе
func (s *QueryService) ListOutgoing(ctx context.Context, userID uuid.UUID) ([]*model.SwapRequestView, error) {
	requests, err := s.store.Stores().Requests.ListByRequester(ctx, userID)
	if err != nil {
		return nil, systemError("list outgoing requests", err)
	}
	return s.enrich(ctx, requests), nil
}

// enrich подтягивает профили и слоты одним запросом на тип записи.
// Отсутствующие или недоступные записи оставляют поле пустым.
func (s *QueryService) enrich(ctx context.Context, requests []*model.SwapRequest) []*model.SwapRequestView {
	views := make([]*model.SwapRequestView, 0, len(requests))
	if len(requests) == 0 {
		return views
	}

	userIDs := make([]uuid.UUID, 0, len(requests)*2)
	slotIDs := make([]uuid.UUID, 0, len(requests)*2)
	seenUsers := make(map[uuid.UUID]bool)
	seenSlots := make(map[uuid.UUID]bool)
	for _, req := range requests {
		for _, id := range []uuid.UUID{req.RequesterID, req.ReceiverID} {
			if !seenUsers[id] {
				seenUsers[id] = true
				userIDs = append(userIDs, id)
			}
		}
		for _, id := range []uuid.UUID{req.RequesterSlotID, req.ReceiverSlotID} {
			if !seenSlots[id] {
				seenSlots[id] = true
				slotIDs = append(slotIDs, id)
			}
		}
	}

	stores := s.store.Stores()

	users, err := stores.Users.GetByIDs(ctx, userIDs)
	if err != nil {
		s.logger.Warn("Failed to load users for swap requests", zap.Error(err))
		users = map[uuid.UUID]*model.User{}
	}

	slots, err := stores.Slots.GetByIDs(ctx, slotIDs)
	if err != nil {
		s.logger.Warn("Failed to load slots for swap requests", zap.Error(err))
		slots = map[uuid.UUID]*model.Slot{}
	}

	for _, req := range requests {
		views = append(views, &model.SwapRequestView{
			ID:            req.ID,
			Status:        req.Status,
			Requester:     users[req.RequesterID].Profile(),
			Receiver:      users[req.ReceiverID].Profile(),
			RequesterSlot: slots[req.RequesterSlotID],
			ReceiverSlot:  slots[req.ReceiverSlotID],
			CreatedAt:     req.CreatedAt,
			UpdatedAt:     req.UpdatedAt,
		})
	}

	return views
}
