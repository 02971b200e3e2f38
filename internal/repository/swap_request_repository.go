package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/Freeeeeet/slot_swap/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const swapRequestColumns = `id, status, requester_id, receiver_id, requester_slot_id, receiver_slot_id, created_at, updated_at`

type SwapRequestRepository struct {
	*base.Repository
}

func NewSwapRequestRepository(repo *base.Repository) *SwapRequestRepository {
	return &SwapRequestRepository{Repository: repo}
}

func scanSwapRequest(row pgx.Row) (*model.SwapRequest, error) {
	var req model.SwapRequest
	err := row.Scan(
		&req.ID,
		&req.Status,
		&req.RequesterID,
		&req.ReceiverID,
		&req.RequesterSlotID,
		&req.ReceiverSlotID,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *SwapRequestRepository) list(ctx context.Context, query string, args ...any) ([]*model.SwapRequest, error) {
	var requests []*model.SwapRequest
	err := r.Retry(ctx, func(ctx context.Context) error {
		rows, err := r.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		requests = requests[:0]
		for rows.Next() {
			req, err := scanSwapRequest(rows)
			if err != nil {
				return fmt.Errorf("scan swap request: %w", err)
			}
			requests = append(requests, req)
		}
		return rows.Err()
	})
	return requests, err
}

// Create создаёт новую заявку на обмен
func (r *SwapRequestRepository) Create(ctx context.Context, req *model.SwapRequest) error {
	query := `
		INSERT INTO swap_requests (id, status, requester_id, receiver_id, requester_slot_id, receiver_slot_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	err := r.QueryRow(
		ctx, query,
		req.ID,
		req.Status,
		req.RequesterID,
		req.ReceiverID,
		req.RequesterSlotID,
		req.ReceiverSlotID,
	).Scan(&req.CreatedAt, &req.UpdatedAt)

	if err != nil {
		if base.IsUniqueViolation(err) {
			// Слот уже участвует в открытой заявке
			return ErrConflict
		}
		return fmt.Errorf("create swap request: %w", err)
	}

	return nil
}

// GetByID получает заявку по ID
func (r *SwapRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.SwapRequest, error) {
	query := `SELECT ` + swapRequestColumns + ` FROM swap_requests WHERE id = $1`

	var req *model.SwapRequest
	err := r.Retry(ctx, func(ctx context.Context) error {
		var err error
		req, err = scanSwapRequest(r.QueryRow(ctx, query, id))
		return err
	})

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get swap request by id: %w", err)
	}

	return req, nil
}

// ListByReceiver получает заявки, адресованные пользователю, с указанным статусом
func (r *SwapRequestRepository) ListByReceiver(ctx context.Context, receiverID uuid.UUID, status model.SwapStatus) ([]*model.SwapRequest, error) {
	query := `
		SELECT ` + swapRequestColumns + `
		FROM swap_requests
		WHERE receiver_id = $1 AND status = $2
		ORDER BY created_at DESC
	`

	requests, err := r.list(ctx, query, receiverID, status)
	if err != nil {
		return nil, fmt.Errorf("get swap requests by receiver: %w", err)
	}
	return requests, nil
}

// ListByRequester получает все заявки пользователя
func (r *SwapRequestRepository) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]*model.SwapRequest, error) {
	query := `
		SELECT ` + swapRequestColumns + `
		FROM swap_requests
		WHERE requester_id = $1
		ORDER BY created_at DESC
	`

	requests, err := r.list(ctx, query, requesterID)
	if err != nil {
		return nil, fmt.Errorf("get swap requests by requester: %w", err)
	}
	return requests, nil
}

// Resolve закрывает заявку, только если она ещё в статусе PENDING
func (r *SwapRequestRepository) Resolve(ctx context.Context, id uuid.UUID, status model.SwapStatus) (*model.SwapRequest, error) {
	query := `
		UPDATE swap_requests
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = 'PENDING'
		RETURNING ` + swapRequestColumns

	req, err := scanSwapRequest(r.QueryRow(ctx, query, status, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("resolve swap request: %w", err)
	}

	return req, nil
}
