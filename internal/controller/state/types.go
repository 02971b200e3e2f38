package state

import "time"

// UserState представляет текущее состояние пользователя в диалоге
type UserState string

const (
	StateNone UserState = "" // Нет активного состояния

	// Создание слота: название, начало, длительность
	StateNewSlotTitle    UserState = "new_slot_title"
	StateNewSlotStart    UserState = "new_slot_start"
	StateNewSlotDuration UserState = "new_slot_duration"

	// Выбран чужой слот на рынке, ждём выбора своего слота для обмена
	StatePickingOffer UserState = "picking_offer"
)

// Ключи временных данных диалога
const (
	KeySlotTitle   = "slot_title"
	KeySlotStart   = "slot_start"
	KeyTheirSlotID = "their_slot_id"
)

// UserData хранит временные данные пользователя во время диалога
type UserData struct {
	State     UserState
	Data      map[string]any // Временные данные для текущего диалога
	UpdatedAt time.Time
}
