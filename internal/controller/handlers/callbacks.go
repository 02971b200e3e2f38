package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleCallbackQuery распределяет нажатия inline кнопок по обработчикам
func (h *Handlers) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	callback := update.CallbackQuery
	if callback == nil {
		return
	}

	h.logger.Info("Routing callback",
		zap.String("data", callback.Data),
		zap.Int64("user_id", callback.From.ID))

	action, id, err := parseCallback(callback.Data)
	if err != nil {
		h.logger.Warn("Bad callback data", zap.String("data", callback.Data), zap.Error(err))
		answerCallback(ctx, b, callback.ID, "❌ Неверный формат")
		return
	}

	user, ok := h.requireUser(ctx, b, callback.From.ID, callbackChatID(callback))
	if !ok {
		answerCallback(ctx, b, callback.ID, "")
		return
	}

	switch action {
	case ActionMark:
		h.handleToggleSwappable(ctx, b, callback, user, id, true)
	case ActionUnmark:
		h.handleToggleSwappable(ctx, b, callback, user, id, false)
	case ActionWant:
		h.handleWant(ctx, b, callback, user, id)
	case ActionGive:
		h.handleGive(ctx, b, callback, user, id)
	case ActionAccept:
		h.handleResolve(ctx, b, callback, user, id, true)
	case ActionReject:
		h.handleResolve(ctx, b, callback, user, id, false)
	default:
		h.logger.Warn("Unknown callback action", zap.String("action", action))
		answerCallback(ctx, b, callback.ID, "❌ Неизвестное действие")
	}
}
