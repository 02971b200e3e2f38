package repository

import (
	"context"
	"errors"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/google/uuid"
)

var (
	// ErrConflict условная запись не затронула ни одной строки:
	// запись изменилась с момента чтения
	ErrConflict = errors.New("record changed concurrently")
	// ErrDuplicate нарушение уникальности (email, telegram_id)
	ErrDuplicate = errors.New("record already exists")
)

// SlotStore хранилище слотов. GetByID возвращает nil, nil если слот не найден.
type SlotStore interface {
	Create(ctx context.Context, slot *model.Slot) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Slot, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.Slot, error)
	ListSwappable(ctx context.Context, excludeOwnerID uuid.UUID) ([]*model.Slot, error)

	// UpdateIfStatus сохраняет поля слота, если владелец и статус в хранилище
	// всё ещё равны slot.OwnerID и expected
	UpdateIfStatus(ctx context.Context, slot *model.Slot, expected model.SlotStatus) error
	// TransitionStatus меняет статус from -> to при неизменном владельце
	TransitionStatus(ctx context.Context, id, ownerID uuid.UUID, from, to model.SlotStatus) error
	// TransferOwner передаёт слот новому владельцу с одновременной сменой статуса
	TransferOwner(ctx context.Context, id, fromOwner, toOwner uuid.UUID, from, to model.SlotStatus) error
}

// SwapRequestStore хранилище заявок на обмен
type SwapRequestStore interface {
	Create(ctx context.Context, req *model.SwapRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.SwapRequest, error)
	ListByReceiver(ctx context.Context, receiverID uuid.UUID, status model.SwapStatus) ([]*model.SwapRequest, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]*model.SwapRequest, error)

	// Resolve переводит заявку из PENDING в терминальный статус
	Resolve(ctx context.Context, id uuid.UUID, status model.SwapStatus) (*model.SwapRequest, error)
}

// UserStore хранилище пользователей
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
}

// Stores набор хранилищ, привязанных к одному соединению или транзакции
type Stores struct {
	Slots    SlotStore
	Requests SwapRequestStore
	Users    UserStore
}

// Store точка доступа к хранилищам и единица работы
type Store interface {
	Stores() Stores
	// WithinTx выполняет fn в транзакции; любая ошибка fn откатывает все записи
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
