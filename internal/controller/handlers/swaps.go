package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/slot_swap/internal/controller/state"
	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandleMarket показывает чужие слоты, доступные для обмена
func (h *Handlers) HandleMarket(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	user, ok := h.requireUser(ctx, b, update.Message.From.ID, chatID)
	if !ok {
		return
	}

	slots, err := h.queryService.ListSwappableSlots(ctx, user.ID)
	if err != nil {
		h.replyError(ctx, b, chatID, "list swappable slots", err)
		return
	}

	if len(slots) == 0 {
		h.sendMessage(ctx, b, chatID, "📭 Сейчас нет слотов, доступных для обмена.")
		return
	}

	kb := NewBuilder()
	for i, slot := range slots {
		kb.Row(Button(fmt.Sprintf("🤝 %d. Хочу этот", i+1), ActionWant, slot.ID))
	}
	h.sendWithKeyboard(ctx, b, chatID, formatSlotList("🛒 Слоты на обмен:", slots, h.location), kb)
}

// handleWant запоминает выбранный чужой слот и предлагает выбрать свой
func (h *Handlers) handleWant(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, user *model.User, theirSlotID uuid.UUID) {
	chatID := callbackChatID(callback)
	answerCallback(ctx, b, callback.ID, "")

	slots, err := h.slotService.ListMySlots(ctx, user.ID)
	if err != nil {
		h.replyError(ctx, b, chatID, "list my slots", err)
		return
	}

	kb := NewBuilder()
	for _, slot := range slots {
		if slot.Status == model.SlotStatusSwappable {
			kb.Row(Button(slotButtonText(slot, h.location), ActionGive, slot.ID))
		}
	}

	if kb.Empty() {
		h.sendMessage(ctx, b, chatID, "📭 У вас нет слотов на обмене.\n\nВыставьте свой слот через /myslots и возвращайтесь в /market.")
		return
	}

	h.stateManager.ClearState(callback.From.ID)
	h.stateManager.SetState(callback.From.ID, state.StatePickingOffer)
	h.stateManager.SetData(callback.From.ID, state.KeyTheirSlotID, theirSlotID.String())

	h.sendWithKeyboard(ctx, b, chatID, "🔁 Какой из ваших слотов предложить взамен?\n\n/cancel - отменить", kb)
}

// handleGive создаёт заявку на обмен выбранных слотов
func (h *Handlers) handleGive(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, user *model.User, mySlotID uuid.UUID) {
	chatID := callbackChatID(callback)
	telegramID := callback.From.ID

	rawTheirID, ok := h.stateManager.GetString(telegramID, state.KeyTheirSlotID)
	theirSlotID, err := uuid.Parse(rawTheirID)
	if h.stateManager.GetState(telegramID) != state.StatePickingOffer || !ok || err != nil {
		answerCallback(ctx, b, callback.ID, "")
		h.sendError(ctx, b, chatID, "❌ Выбор устарел. Откройте /market заново.")
		return
	}

	h.stateManager.ClearState(telegramID)

	_, err = h.swapService.CreateProposal(ctx, user.ID, mySlotID, theirSlotID)
	if err != nil {
		answerCallback(ctx, b, callback.ID, "")
		h.replyError(ctx, b, chatID, "create proposal", err)
		return
	}

	answerCallback(ctx, b, callback.ID, "✅ Заявка отправлена")
	h.sendMessage(ctx, b, chatID, "✅ Заявка на обмен отправлена. Оба слота ждут ответа.\n\nСтатус: /outgoing")
}

// HandleIncoming показывает входящие заявки с кнопками ответа
func (h *Handlers) HandleIncoming(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	user, ok := h.requireUser(ctx, b, update.Message.From.ID, chatID)
	if !ok {
		return
	}

	views, err := h.queryService.ListIncoming(ctx, user.ID)
	if err != nil {
		h.replyError(ctx, b, chatID, "list incoming", err)
		return
	}

	if len(views) == 0 {
		h.sendMessage(ctx, b, chatID, "📭 Входящих заявок нет.")
		return
	}

	// Отдельное сообщение на каждую заявку, чтобы кнопки относились к ней
	for _, v := range views {
		kb := NewBuilder().Row(
			Button("✅ Принять", ActionAccept, v.ID),
			Button("❌ Отклонить", ActionReject, v.ID),
		)
		h.sendWithKeyboard(ctx, b, chatID, formatIncoming(v, h.location), kb)
	}
}

// HandleOutgoing показывает заявки пользователя во всех статусах
func (h *Handlers) HandleOutgoing(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	user, ok := h.requireUser(ctx, b, update.Message.From.ID, chatID)
	if !ok {
		return
	}

	views, err := h.queryService.ListOutgoing(ctx, user.ID)
	if err != nil {
		h.replyError(ctx, b, chatID, "list outgoing", err)
		return
	}

	if len(views) == 0 {
		h.sendMessage(ctx, b, chatID, "📭 Вы ещё не отправляли заявок. Найти слот: /market")
		return
	}

	parts := make([]string, 0, len(views))
	for _, v := range views {
		parts = append(parts, formatOutgoing(v, h.location))
	}
	h.sendMessage(ctx, b, chatID, "📤 Ваши заявки:\n\n"+strings.Join(parts, "\n\n"))
}

// handleResolve принимает или отклоняет входящую заявку
func (h *Handlers) handleResolve(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, user *model.User, requestID uuid.UUID, accepted bool) {
	chatID := callbackChatID(callback)

	res, err := h.swapService.ResolveProposal(ctx, requestID, user.ID, accepted)
	if err != nil {
		answerCallback(ctx, b, callback.ID, "")
		h.replyError(ctx, b, chatID, "resolve proposal", err)
		return
	}

	h.logger.Info("Swap resolved via bot",
		zap.String("request_id", requestID.String()),
		zap.Bool("accepted", accepted))

	if accepted {
		answerCallback(ctx, b, callback.ID, "✅ Обмен состоялся")
		h.sendMessage(ctx, b, chatID, "✅ Обмен состоялся. Теперь ваш слот:\n"+formatSlot(res.RequesterSlot, h.location))
		return
	}

	answerCallback(ctx, b, callback.ID, "Заявка отклонена")
	h.sendMessage(ctx, b, chatID, "❌ Заявка отклонена. Ваш слот снова на обмене:\n"+formatSlot(res.ReceiverSlot, h.location))
}
