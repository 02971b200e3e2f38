package handlers

import (
	"fmt"
	"strings"

	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
)

// Форматы callback data: "<действие>:<uuid>", не длиннее 64 байт
const (
	ActionMark   = "mark"   // выставить свой слот на обмен
	ActionUnmark = "unmark" // снять свой слот с обмена
	ActionWant   = "want"   // выбрать чужой слот на рынке
	ActionGive   = "give"   // предложить свой слот в обмен на выбранный
	ActionAccept = "accept" // принять входящую заявку
	ActionReject = "reject" // отклонить входящую заявку
)

// Builder упрощает создание inline клавиатур
type Builder struct {
	rows [][]models.InlineKeyboardButton
}

// NewBuilder создаёт новый builder клавиатуры
func NewBuilder() *Builder {
	return &Builder{
		rows: make([][]models.InlineKeyboardButton, 0),
	}
}

// Row добавляет новый ряд кнопок
func (b *Builder) Row(buttons ...models.InlineKeyboardButton) *Builder {
	if len(buttons) > 0 {
		b.rows = append(b.rows, buttons)
	}
	return b
}

// Empty true если не добавлено ни одного ряда
func (b *Builder) Empty() bool {
	return len(b.rows) == 0
}

// Build создаёт финальную клавиатуру
func (b *Builder) Build() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: b.rows,
	}
}

// Button создаёт кнопку с действием над записью id
func Button(text, action string, id uuid.UUID) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text:         text,
		CallbackData: callbackData(action, id),
	}
}

func callbackData(action string, id uuid.UUID) string {
	return action + ":" + id.String()
}

// parseCallback разбирает "action:uuid"
func parseCallback(data string) (string, uuid.UUID, error) {
	action, rawID, ok := strings.Cut(data, ":")
	if !ok || action == "" {
		return "", uuid.Nil, fmt.Errorf("invalid callback data %q", data)
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("invalid callback id %q: %w", rawID, err)
	}
	return action, id, nil
}
