package handlers

import (
	"bytes"
	"context"
	"fmt"

	"github.com/Freeeeeet/slot_swap/internal/calendar"
	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandleMySlots показывает слоты пользователя с кнопками обмена
func (h *Handlers) HandleMySlots(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	user, ok := h.requireUser(ctx, b, update.Message.From.ID, update.Message.Chat.ID)
	if !ok {
		return
	}
	h.showMySlots(ctx, b, user, update.Message.Chat.ID)
}

func (h *Handlers) showMySlots(ctx context.Context, b *bot.Bot, user *model.User, chatID int64) {
	slots, err := h.slotService.ListMySlots(ctx, user.ID)
	if err != nil {
		h.replyError(ctx, b, chatID, "list my slots", err)
		return
	}

	if len(slots) == 0 {
		h.sendMessage(ctx, b, chatID, "📭 У вас пока нет слотов.\n\nСоздать: /newslot")
		return
	}

	h.sendWithKeyboard(ctx, b, chatID, formatSlotList("📅 Ваши слоты:", slots, h.location), mySlotsKeyboard(slots))
}

// mySlotsKeyboard кнопка на каждый слот, кроме ожидающих обмена
func mySlotsKeyboard(slots []*model.Slot) *Builder {
	kb := NewBuilder()
	for i, slot := range slots {
		switch slot.Status {
		case model.SlotStatusBusy:
			kb.Row(Button(fmt.Sprintf("🔁 %d. Выставить на обмен", i+1), ActionMark, slot.ID))
		case model.SlotStatusSwappable:
			kb.Row(Button(fmt.Sprintf("🔒 %d. Снять с обмена", i+1), ActionUnmark, slot.ID))
		}
	}
	return kb
}

// HandleWeek отправляет картинку недели со слотами пользователя
func (h *Handlers) HandleWeek(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	user, ok := h.requireUser(ctx, b, update.Message.From.ID, chatID)
	if !ok {
		return
	}

	slots, err := h.slotService.ListMySlots(ctx, user.ID)
	if err != nil {
		h.replyError(ctx, b, chatID, "list my slots", err)
		return
	}

	now := h.now()
	img, err := calendar.RenderWeek(calendar.WeekImage{
		Day:      now,
		Location: h.location,
		Now:      now,
		Slots:    slots,
	})
	if err != nil {
		h.logger.Error("Failed to render week image", zap.Error(err))
		h.sendError(ctx, b, chatID, textSystemError)
		return
	}

	_, err = b.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID: chatID,
		Photo: &models.InputFileUpload{
			Filename: "week.png",
			Data:     bytes.NewReader(img),
		},
		Caption: "🗓 Ваша неделя",
	})
	if err != nil {
		h.logger.Error("Failed to send week image", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// handleToggleSwappable выставляет слот на обмен или снимает с него
func (h *Handlers) handleToggleSwappable(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, user *model.User, slotID uuid.UUID, swappable bool) {
	chatID := callbackChatID(callback)

	slot, err := h.slotService.SetSwappable(ctx, user.ID, slotID, swappable)
	if err != nil {
		answerCallback(ctx, b, callback.ID, "")
		h.replyError(ctx, b, chatID, "set swappable", err)
		return
	}

	text := "🔒 Слот снят с обмена"
	if swappable {
		text = "🔁 Слот выставлен на обмен"
	}
	answerCallback(ctx, b, callback.ID, text)

	h.logger.Info("Slot swappable toggled",
		zap.String("slot_id", slot.ID.String()),
		zap.String("status", string(slot.Status)))

	h.showMySlots(ctx, b, user, chatID)
}
