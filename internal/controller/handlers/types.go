package handlers

import (
	"context"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/controller/state"
	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserService interface {
	RegisterTelegramUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
}

type SlotService interface {
	CreateSlot(ctx context.Context, ownerID uuid.UUID, title string, startTime, endTime time.Time) (*model.Slot, error)
	ListMySlots(ctx context.Context, ownerID uuid.UUID) ([]*model.Slot, error)
	SetSwappable(ctx context.Context, ownerID, slotID uuid.UUID, swappable bool) (*model.Slot, error)
}

type SwapService interface {
	CreateProposal(ctx context.Context, requesterID, mySlotID, theirSlotID uuid.UUID) (*model.SwapRequest, error)
	ResolveProposal(ctx context.Context, requestID, responderID uuid.UUID, accepted bool) (*model.Resolution, error)
}

type QueryService interface {
	ListSwappableSlots(ctx context.Context, userID uuid.UUID) ([]*model.Slot, error)
	ListIncoming(ctx context.Context, userID uuid.UUID) ([]*model.SwapRequestView, error)
	ListOutgoing(ctx context.Context, userID uuid.UUID) ([]*model.SwapRequestView, error)
}

// Handlers содержит все зависимости для обработки команд и кнопок
type Handlers struct {
	userService  UserService
	slotService  SlotService
	swapService  SwapService
	queryService QueryService
	stateManager *state.Manager
	location     *time.Location
	logger       *zap.Logger
	now          func() time.Time
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	userService UserService,
	slotService SlotService,
	swapService SwapService,
	queryService QueryService,
	stateManager *state.Manager,
	location *time.Location,
	logger *zap.Logger,
) *Handlers {
	if location == nil {
		location = time.UTC
	}
	return &Handlers{
		userService:  userService,
		slotService:  slotService,
		swapService:  swapService,
		queryService: queryService,
		stateManager: stateManager,
		location:     location,
		logger:       logger,
		now:          time.Now,
	}
}
