package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/Freeeeeet/slot_swap/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxTitleLength = 200

type SlotService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewSlotService(store repository.Store, logger *zap.Logger) *SlotService {
	return &SlotService{
		store:  store,
		logger: logger,
	}
}

// CreateSlot создаёт слот владельца в статусе BUSY
func (s *SlotService) CreateSlot(ctx context.Context, ownerID uuid.UUID, title string, startTime, endTime time.Time) (*model.Slot, error) {
	title = strings.TrimSpace(title)
	if err := validateSlot(title, startTime, endTime); err != nil {
		return nil, err
	}

	slot := &model.Slot{
		OwnerID:   ownerID,
		Title:     title,
		StartTime: startTime.UTC(),
		EndTime:   endTime.UTC(),
		Status:    model.SlotStatusBusy,
	}

	if err := s.store.Stores().Slots.Create(ctx, slot); err != nil {
		return nil, systemError("create slot", err)
	}

	s.logger.Info("Slot created",
		zap.String("slot_id", slot.ID.String()),
		zap.String("owner_id", ownerID.String()),
		zap.Time("start_time", slot.StartTime),
	)

	return slot, nil
}

// ListMySlots возвращает все слоты пользователя по времени начала
func (s *SlotService) ListMySlots(ctx context.Context, ownerID uuid.UUID) ([]*model.Slot, error) {
	slots, err := s.store.Stores().Slots.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, systemError("list slots", err)
	}
	return slots, nil
}

// GetSlot возвращает слот владельца
func (s *SlotService) GetSlot(ctx context.Context, ownerID, slotID uuid.UUID) (*model.Slot, error) {
	slot, err := s.store.Stores().Slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, systemError("get slot", err)
	}
	if slot == nil {
		return nil, fmt.Errorf("%w: slot %s", ErrNotFound, slotID)
	}
	if slot.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: slot %s belongs to another user", ErrUnauthorized, slotID)
	}
	return slot, nil
}

// UpdateSlot меняет поля слота. Пустые поля патча сохраняют прежние значения.
// Слот, занятый открытой заявкой, не редактируется; SWAP_PENDING выставить нельзя.
func (s *SlotService) UpdateSlot(ctx context.Context, ownerID, slotID uuid.UUID, patch model.SlotPatch) (*model.Slot, error) {
	current, err := s.GetSlot(ctx, ownerID, slotID)
	if err != nil {
		return nil, err
	}

	if patch.Status != nil && !patch.Status.OwnerSettable() {
		return nil, invalid("status", "must be BUSY or SWAPPABLE")
	}

	if current.Status == model.SlotStatusSwapPending {
		return nil, fmt.Errorf("%w: slot %s is reserved by a pending swap", ErrInvalidState, slotID)
	}

	updated := *current
	if patch.Title != nil && strings.TrimSpace(*patch.Title) != "" {
		updated.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.StartTime != nil && !patch.StartTime.IsZero() {
		updated.StartTime = patch.StartTime.UTC()
	}
	if patch.EndTime != nil && !patch.EndTime.IsZero() {
		updated.EndTime = patch.EndTime.UTC()
	}
	if patch.Status != nil {
		updated.Status = *patch.Status
	}

	if err := validateSlot(updated.Title, updated.StartTime, updated.EndTime); err != nil {
		return nil, err
	}

	// Запись проходит только если статус не изменился с момента чтения
	if err := s.store.Stores().Slots.UpdateIfStatus(ctx, &updated, current.Status); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: slot %s changed concurrently: %w", ErrInvalidState, slotID, err)
		}
		return nil, systemError("update slot", err)
	}

	s.logger.Info("Slot updated",
		zap.String("slot_id", slotID.String()),
		zap.String("owner_id", ownerID.String()),
		zap.String("status", string(updated.Status)),
	)

	return &updated, nil
}

// SetSwappable выставляет слот на обмен или снимает с обмена
func (s *SlotService) SetSwappable(ctx context.Context, ownerID, slotID uuid.UUID, swappable bool) (*model.Slot, error) {
	status := model.SlotStatusBusy
	if swappable {
		status = model.SlotStatusSwappable
	}
	return s.UpdateSlot(ctx, ownerID, slotID, model.SlotPatch{Status: &status})
}

func validateSlot(title string, startTime, endTime time.Time) error {
	if title == "" {
		return invalid("title", "is required")
	}
	if len(title) > maxTitleLength {
		return invalid("title", fmt.Sprintf("must be at most %d characters", maxTitleLength))
	}
	if startTime.IsZero() {
		return invalid("startTime", "is required")
	}
	if endTime.IsZero() {
		return invalid("endTime", "is required")
	}
	if !endTime.After(startTime) {
		return invalid("endTime", "must be after startTime")
	}
	return nil
}
