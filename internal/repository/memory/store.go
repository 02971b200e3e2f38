// Package memory хранилище в памяти процесса с той же семантикой условных
// записей, что и Postgres. Используется в тестах и для локального запуска (STORE=memory).
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/Freeeeeet/slot_swap/internal/repository"
	"github.com/google/uuid"
)

type data struct {
	slots    map[uuid.UUID]model.Slot
	requests map[uuid.UUID]model.SwapRequest
	users    map[uuid.UUID]model.User
}

func newData() *data {
	return &data{
		slots:    make(map[uuid.UUID]model.Slot),
		requests: make(map[uuid.UUID]model.SwapRequest),
		users:    make(map[uuid.UUID]model.User),
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.slots {
		c.slots[k] = v
	}
	for k, v := range d.requests {
		c.requests[k] = v
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	return c
}

// Store хранилище в памяти. Транзакция работает на копии данных
// под эксклюзивной блокировкой и подменяет их только при успехе.
type Store struct {
	mu    sync.RWMutex
	data  *data
	now   func() time.Time
	fault func(op string) error
}

func New() *Store {
	return &Store{
		data: newData(),
		now:  time.Now,
	}
}

// SetFaultHook задаёт функцию, вызываемую перед каждой записью.
// Ненулевая ошибка прерывает запись (для тестов отказов хранилища).
func (s *Store) SetFaultHook(hook func(op string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = hook
}

// Stores возвращает хранилища без транзакции
func (s *Store) Stores() repository.Stores {
	return s.stores(nil)
}

// WithinTx выполняет fn атомарно
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, st repository.Stores) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.data.clone()
	if err := fn(ctx, s.stores(tx)); err != nil {
		return err
	}
	s.data = tx
	return nil
}

func (s *Store) stores(tx *data) repository.Stores {
	c := &conn{store: s, tx: tx}
	return repository.Stores{
		Slots:    &slotStore{c},
		Requests: &requestStore{c},
		Users:    &userStore{c},
	}
}

// conn выполняет операцию либо на данных транзакции (блокировка уже взята),
// либо на общих данных под блокировкой
type conn struct {
	store *Store
	tx    *data
}

func (c *conn) read(fn func(d *data) error) error {
	if c.tx != nil {
		return fn(c.tx)
	}
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	return fn(c.store.data)
}

func (c *conn) write(op string, fn func(d *data) error) error {
	if c.tx == nil {
		c.store.mu.Lock()
		defer c.store.mu.Unlock()
	}
	if c.store.fault != nil {
		if err := c.store.fault(op); err != nil {
			return err
		}
	}
	if c.tx != nil {
		return fn(c.tx)
	}
	return fn(c.store.data)
}

func (c *conn) now() time.Time {
	return c.store.now().UTC()
}

type slotStore struct{ *conn }

func sortSlots(slots []*model.Slot) {
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].StartTime.Equal(slots[j].StartTime) {
			return slots[i].ID.String() < slots[j].ID.String()
		}
		return slots[i].StartTime.Before(slots[j].StartTime)
	})
}

func (s *slotStore) Create(_ context.Context, slot *model.Slot) error {
	return s.write("slots.Create", func(d *data) error {
		if slot.ID == uuid.Nil {
			slot.ID = uuid.New()
		}
		slot.CreatedAt = s.now()
		slot.UpdatedAt = slot.CreatedAt
		d.slots[slot.ID] = *slot
		return nil
	})
}

func (s *slotStore) GetByID(_ context.Context, id uuid.UUID) (*model.Slot, error) {
	var result *model.Slot
	err := s.read(func(d *data) error {
		if slot, ok := d.slots[id]; ok {
			result = &slot
		}
		return nil
	})
	return result, err
}

func (s *slotStore) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Slot, error) {
	result := make(map[uuid.UUID]*model.Slot, len(ids))
	err := s.read(func(d *data) error {
		for _, id := range ids {
			if slot, ok := d.slots[id]; ok {
				result[id] = &slot
			}
		}
		return nil
	})
	return result, err
}

func (s *slotStore) filter(keep func(model.Slot) bool) ([]*model.Slot, error) {
	var result []*model.Slot
	err := s.read(func(d *data) error {
		for _, slot := range d.slots {
			if keep(slot) {
				slot := slot
				result = append(result, &slot)
			}
		}
		return nil
	})
	sortSlots(result)
	return result, err
}

func (s *slotStore) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*model.Slot, error) {
	return s.filter(func(slot model.Slot) bool {
		return slot.OwnerID == ownerID
	})
}

func (s *slotStore) ListSwappable(_ context.Context, excludeOwnerID uuid.UUID) ([]*model.Slot, error) {
	return s.filter(func(slot model.Slot) bool {
		return slot.Status == model.SlotStatusSwappable && slot.OwnerID != excludeOwnerID
	})
}

func (s *slotStore) UpdateIfStatus(_ context.Context, slot *model.Slot, expected model.SlotStatus) error {
	return s.write("slots.UpdateIfStatus", func(d *data) error {
		current, ok := d.slots[slot.ID]
		if !ok || current.OwnerID != slot.OwnerID || current.Status != expected {
			return repository.ErrConflict
		}
		current.Title = slot.Title
		current.StartTime = slot.StartTime
		current.EndTime = slot.EndTime
		current.Status = slot.Status
		current.UpdatedAt = s.now()
		d.slots[slot.ID] = current
		slot.UpdatedAt = current.UpdatedAt
		return nil
	})
}

func (s *slotStore) TransitionStatus(ctx context.Context, id, ownerID uuid.UUID, from, to model.SlotStatus) error {
	return s.TransferOwner(ctx, id, ownerID, ownerID, from, to)
}

func (s *slotStore) TransferOwner(_ context.Context, id, fromOwner, toOwner uuid.UUID, from, to model.SlotStatus) error {
	return s.write("slots.TransferOwner", func(d *data) error {
		current, ok := d.slots[id]
		if !ok || current.OwnerID != fromOwner || current.Status != from {
			return repository.ErrConflict
		}
		current.OwnerID = toOwner
		current.Status = to
		current.UpdatedAt = s.now()
		d.slots[id] = current
		return nil
	})
}

type requestStore struct{ *conn }

func (s *requestStore) Create(_ context.Context, req *model.SwapRequest) error {
	return s.write("requests.Create", func(d *data) error {
		// Аналог частичных уникальных индексов по открытым заявкам
		for _, other := range d.requests {
			if other.Status != model.SwapStatusPending {
				continue
			}
			if other.RequesterSlotID == req.RequesterSlotID || other.ReceiverSlotID == req.ReceiverSlotID {
				return repository.ErrConflict
			}
		}
		if req.ID == uuid.Nil {
			req.ID = uuid.New()
		}
		req.CreatedAt = s.now()
		req.UpdatedAt = req.CreatedAt
		d.requests[req.ID] = *req
		return nil
	})
}

func (s *requestStore) GetByID(_ context.Context, id uuid.UUID) (*model.SwapRequest, error) {
	var result *model.SwapRequest
	err := s.read(func(d *data) error {
		if req, ok := d.requests[id]; ok {
			result = &req
		}
		return nil
	})
	return result, err
}

func (s *requestStore) filter(keep func(model.SwapRequest) bool) ([]*model.SwapRequest, error) {
	var result []*model.SwapRequest
	err := s.read(func(d *data) error {
		for _, req := range d.requests {
			if keep(req) {
				req := req
				result = append(result, &req)
			}
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, err
}

func (s *requestStore) ListByReceiver(_ context.Context, receiverID uuid.UUID, status model.SwapStatus) ([]*model.SwapRequest, error) {
	return s.filter(func(req model.SwapRequest) bool {
		return req.ReceiverID == receiverID && req.Status == status
	})
}

func (s *requestStore) ListByRequester(_ context.Context, requesterID uuid.UUID) ([]*model.SwapRequest, error) {
	return s.filter(func(req model.SwapRequest) bool {
		return req.RequesterID == requesterID
	})
}

func (s *requestStore) Resolve(_ context.Context, id uuid.UUID, status model.SwapStatus) (*model.SwapRequest, error) {
	var result *model.SwapRequest
	err := s.write("requests.Resolve", func(d *data) error {
		current, ok := d.requests[id]
		if !ok || current.Status != model.SwapStatusPending {
			return repository.ErrConflict
		}
		current.Status = status
		current.UpdatedAt = s.now()
		d.requests[id] = current
		result = &current
		return nil
	})
	return result, err
}

type userStore struct{ *conn }

func unique(d *data, user *model.User) error {
	for id, other := range d.users {
		if id == user.ID {
			continue
		}
		if user.Email != nil && other.Email != nil && strings.EqualFold(*user.Email, *other.Email) {
			return repository.ErrDuplicate
		}
		if user.TelegramID != nil && other.TelegramID != nil && *user.TelegramID == *other.TelegramID {
			return repository.ErrDuplicate
		}
	}
	return nil
}

func (s *userStore) Create(_ context.Context, user *model.User) error {
	return s.write("users.Create", func(d *data) error {
		if err := unique(d, user); err != nil {
			return err
		}
		if user.ID == uuid.Nil {
			user.ID = uuid.New()
		}
		user.CreatedAt = s.now()
		d.users[user.ID] = *user
		return nil
	})
}

func (s *userStore) Update(_ context.Context, user *model.User) error {
	return s.write("users.Update", func(d *data) error {
		current, ok := d.users[user.ID]
		if !ok {
			return repository.ErrConflict
		}
		if err := unique(d, user); err != nil {
			return err
		}
		user.CreatedAt = current.CreatedAt
		d.users[user.ID] = *user
		return nil
	})
}

func (s *userStore) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	return s.find(func(u model.User) bool { return u.ID == id })
}

func (s *userStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return s.find(func(u model.User) bool {
		return u.Email != nil && strings.EqualFold(*u.Email, email)
	})
}

func (s *userStore) GetByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	return s.find(func(u model.User) bool {
		return u.TelegramID != nil && *u.TelegramID == telegramID
	})
}

func (s *userStore) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.User, error) {
	result := make(map[uuid.UUID]*model.User, len(ids))
	err := s.read(func(d *data) error {
		for _, id := range ids {
			if user, ok := d.users[id]; ok {
				result[id] = &user
			}
		}
		return nil
	})
	return result, err
}

func (s *userStore) find(match func(model.User) bool) (*model.User, error) {
	var result *model.User
	err := s.read(func(d *data) error {
		for _, user := range d.users {
			if match(user) {
				user := user
				result = &user
				return nil
			}
		}
		return nil
	})
	return result, err
}
