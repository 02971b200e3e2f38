package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/Freeeeeet/slot_swap/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const slotColumns = `id, owner_id, title, start_time, end_time, status, created_at, updated_at`

type SlotRepository struct {
	*base.Repository
}

func NewSlotRepository(repo *base.Repository) *SlotRepository {
	return &SlotRepository{Repository: repo}
}

func scanSlot(row pgx.Row) (*model.Slot, error) {
	var slot model.Slot
	err := row.Scan(
		&slot.ID,
		&slot.OwnerID,
		&slot.Title,
		&slot.StartTime,
		&slot.EndTime,
		&slot.Status,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func collectSlots(rows pgx.Rows) ([]*model.Slot, error) {
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// Create создаёт новый слот
func (r *SlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	query := `
		INSERT INTO slots (id, owner_id, title, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}

	err := r.QueryRow(
		ctx, query,
		slot.ID,
		slot.OwnerID,
		slot.Title,
		slot.StartTime,
		slot.EndTime,
		slot.Status,
	).Scan(&slot.CreatedAt, &slot.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`

	var slot *model.Slot
	err := r.Retry(ctx, func(ctx context.Context) error {
		var err error
		slot, err = scanSlot(r.QueryRow(ctx, query, id))
		return err
	})

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// GetByIDs получает слоты по списку ID; отсутствующие просто не попадают в map
func (r *SlotRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Slot, error) {
	result := make(map[uuid.UUID]*model.Slot, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = ANY($1)`

	var slots []*model.Slot
	err := r.Retry(ctx, func(ctx context.Context) error {
		rows, err := r.Query(ctx, query, ids)
		if err != nil {
			return err
		}
		slots, err = collectSlots(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get slots by ids: %w", err)
	}

	for _, slot := range slots {
		result[slot.ID] = slot
	}
	return result, nil
}

// ListByOwner получает все слоты пользователя
func (r *SlotRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE owner_id = $1
		ORDER BY start_time
	`

	var slots []*model.Slot
	err := r.Retry(ctx, func(ctx context.Context) error {
		rows, err := r.Query(ctx, query, ownerID)
		if err != nil {
			return err
		}
		slots, err = collectSlots(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get slots by owner: %w", err)
	}

	return slots, nil
}

// ListSwappable получает слоты, выставленные на обмен, кроме слотов excludeOwnerID
func (r *SlotRepository) ListSwappable(ctx context.Context, excludeOwnerID uuid.UUID) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE status = 'SWAPPABLE'
		  AND owner_id <> $1
		ORDER BY start_time
	`

	var slots []*model.Slot
	err := r.Retry(ctx, func(ctx context.Context) error {
		rows, err := r.Query(ctx, query, excludeOwnerID)
		if err != nil {
			return err
		}
		slots, err = collectSlots(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get swappable slots: %w", err)
	}

	return slots, nil
}

// UpdateIfStatus обновляет поля слота владельцем
func (r *SlotRepository) UpdateIfStatus(ctx context.Context, slot *model.Slot, expected model.SlotStatus) error {
	query := `
		UPDATE slots
		SET title = $1, start_time = $2, end_time = $3, status = $4, updated_at = now()
		WHERE id = $5 AND owner_id = $6 AND status = $7
		RETURNING updated_at
	`

	err := r.QueryRow(
		ctx, query,
		slot.Title,
		slot.StartTime,
		slot.EndTime,
		slot.Status,
		slot.ID,
		slot.OwnerID,
		expected,
	).Scan(&slot.UpdatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return ErrConflict
		}
		return fmt.Errorf("update slot: %w", err)
	}

	return nil
}

// TransitionStatus меняет статус слота, если он не изменился с момента чтения
func (r *SlotRepository) TransitionStatus(ctx context.Context, id, ownerID uuid.UUID, from, to model.SlotStatus) error {
	query := `
		UPDATE slots
		SET status = $1, updated_at = now()
		WHERE id = $2 AND owner_id = $3 AND status = $4
	`

	affected, err := r.ExecAffected(ctx, query, to, id, ownerID, from)
	if err != nil {
		return fmt.Errorf("update slot status: %w", err)
	}

	if affected == 0 {
		return ErrConflict
	}

	return nil
}

// TransferOwner передаёт слот другому пользователю
func (r *SlotRepository) TransferOwner(ctx context.Context, id, fromOwner, toOwner uuid.UUID, from, to model.SlotStatus) error {
	query := `
		UPDATE slots
		SET owner_id = $1, status = $2, updated_at = now()
		WHERE id = $3 AND owner_id = $4 AND status = $5
	`

	affected, err := r.ExecAffected(ctx, query, toOwner, to, id, fromOwner, from)
	if err != nil {
		return fmt.Errorf("transfer slot: %w", err)
	}

	if affected == 0 {
		return ErrConflict
	}

	return nil
}
