package handlers

import (
	"context"
	"errors"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/Freeeeeet/slot_swap/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const (
	textUserNotFound = "❌ Пользователь не найден. Используйте /start для регистрации."
	textSystemError  = "❌ Произошла ошибка. Попробуйте позже."
)

// requireUser проверяет что пользователь зарегистрирован
// Возвращает user и true если OK, nil и false если нет
func (h *Handlers) requireUser(ctx context.Context, b *bot.Bot, telegramID, chatID int64) (*model.User, bool) {
	user, err := h.userService.GetByTelegramID(ctx, telegramID)
	if errors.Is(err, service.ErrNotFound) {
		h.sendError(ctx, b, chatID, textUserNotFound)
		return nil, false
	}
	if err != nil {
		h.logger.Error("Failed to get user", zap.Int64("telegram_id", telegramID), zap.Error(err))
		h.sendError(ctx, b, chatID, textSystemError)
		return nil, false
	}
	return user, true
}

// errorText возвращает пользовательское сообщение для ошибки сервиса
func errorText(err error) string {
	switch service.Kind(err) {
	case service.ErrValidation:
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			return "❌ Некорректные данные: " + vErr.Error()
		}
		return "❌ Некорректные данные"
	case service.ErrInvalidSlot:
		return "❌ Слот недоступен для обмена. Возможно, его уже забрали или сняли с обмена."
	case service.ErrUnauthorized:
		return "❌ Это действие вам недоступно."
	case service.ErrNotFound:
		return "❌ Запись не найдена."
	case service.ErrInvalidState:
		return "❌ Заявка уже обработана или слот участвует в другом обмене."
	default:
		return textSystemError
	}
}

// replyError логирует неожиданные ошибки и отвечает пользователю
func (h *Handlers) replyError(ctx context.Context, b *bot.Bot, chatID int64, op string, err error) {
	if errors.Is(service.Kind(err), service.ErrSystem) {
		h.logger.Error("Operation failed", zap.String("op", op), zap.Error(err))
	} else {
		h.logger.Info("Operation rejected", zap.String("op", op), zap.Error(err))
	}
	h.sendError(ctx, b, chatID, errorText(err))
}

// sendError отправляет сообщение об ошибке и логирует если не удалось
func (h *Handlers) sendError(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send error message",
			zap.Int64("chat_id", chatID),
			zap.String("text", text),
			zap.Error(err),
		)
	}
}

// sendMessage отправляет сообщение и логирует если не удалось
func (h *Handlers) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	h.sendWithKeyboard(ctx, b, chatID, text, nil)
}

func (h *Handlers) sendWithKeyboard(ctx context.Context, b *bot.Bot, chatID int64, text string, keyboard *Builder) {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if keyboard != nil && !keyboard.Empty() {
		params.ReplyMarkup = keyboard.Build()
	}

	if _, err := b.SendMessage(ctx, params); err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}

// answerCallback отвечает на callback query (без alert)
func answerCallback(ctx context.Context, b *bot.Bot, callbackID string, text string) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
}

// callbackChatID возвращает чат, из которого нажата кнопка
func callbackChatID(callback *models.CallbackQuery) int64 {
	if callback.Message.Message != nil {
		return callback.Message.Message.Chat.ID
	}
	// В личном чате ID чата совпадает с ID пользователя
	return callback.From.ID
}
