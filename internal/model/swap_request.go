package model

import (
	"time"

	"github.com/google/uuid"
)

type SwapStatus string

const (
	SwapStatusPending  SwapStatus = "PENDING"  // Ожидает ответа получателя
	SwapStatusAccepted SwapStatus = "ACCEPTED" // Обмен состоялся
	SwapStatusRejected SwapStatus = "REJECTED" // Отклонено получателем
)

// Terminal возвращает true если заявка уже разрешена
func (s SwapStatus) Terminal() bool {
	return s == SwapStatusAccepted || s == SwapStatusRejected
}

type SwapRequest struct {
	ID              uuid.UUID  `json:"id"`
	Status          SwapStatus `json:"status"`
	RequesterID     uuid.UUID  `json:"requester"`
	ReceiverID      uuid.UUID  `json:"receiver"`
	RequesterSlotID uuid.UUID  `json:"requesterSlot"`
	ReceiverSlotID  uuid.UUID  `json:"receiverSlot"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// SwapRequestView заявка с подтянутыми профилями и слотами.
// Отсутствующие записи остаются nil.
type SwapRequestView struct {
	ID            uuid.UUID      `json:"id"`
	Status        SwapStatus     `json:"status"`
	Requester     *PublicProfile `json:"requester"`
	Receiver      *PublicProfile `json:"receiver"`
	RequesterSlot *Slot          `json:"requesterSlot"`
	ReceiverSlot  *Slot          `json:"receiverSlot"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Resolution результат ответа на заявку
type Resolution struct {
	Message       string       `json:"message"`
	Request       *SwapRequest `json:"request"`
	RequesterSlot *Slot        `json:"requesterSlot"`
	ReceiverSlot  *Slot        `json:"receiverSlot"`
}
