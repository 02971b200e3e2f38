package model

import (
	"time"

	"github.com/google/uuid"
)

type SlotStatus string

const (
	SlotStatusBusy        SlotStatus = "BUSY"
	SlotStatusSwappable   SlotStatus = "SWAPPABLE"
	SlotStatusSwapPending SlotStatus = "SWAP_PENDING"
)

// Valid проверяет что статус входит в допустимый набор
func (s SlotStatus) Valid() bool {
	switch s {
	case SlotStatusBusy, SlotStatusSwappable, SlotStatusSwapPending:
		return true
	}
	return false
}

// OwnerSettable возвращает true для статусов, которые владелец может выставить сам
func (s SlotStatus) OwnerSettable() bool {
	return s == SlotStatusBusy || s == SlotStatusSwappable
}

type Slot struct {
	ID        uuid.UUID  `json:"id"`
	OwnerID   uuid.UUID  `json:"owner"`
	Title     string     `json:"title"`
	StartTime time.Time  `json:"startTime"`
	EndTime   time.Time  `json:"endTime"`
	Status    SlotStatus `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// SlotPatch частичное обновление слота владельцем (nil - поле не меняется)
type SlotPatch struct {
	Title     *string
	StartTime *time.Time
	EndTime   *time.Time
	Status    *SlotStatus
}
