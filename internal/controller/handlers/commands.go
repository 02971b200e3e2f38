package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/controller/state"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const (
	startInputLayout = "02.01.2006 15:04"
	maxSlotDuration  = 24 * time.Hour
)

const helpText = "📚 Справка по командам:\n\n" +
	"/myslots - Мои слоты, выставить на обмен или снять\n" +
	"/newslot - Добавить слот\n" +
	"/week - Моя неделя картинкой\n" +
	"/market - Слоты других участников, доступные для обмена\n" +
	"/incoming - Входящие заявки на обмен\n" +
	"/outgoing - Мои заявки\n" +
	"/cancel - Отменить текущий диалог\n\n" +
	"Чтобы обменяться, выставьте свой слот на обмен в /myslots, затем выберите чужой слот в /market."

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	from := update.Message.From

	// Регистрируем пользователя
	user, err := h.userService.RegisterTelegramUser(ctx, from.ID, from.Username, from.FirstName, from.LastName)
	if err != nil {
		h.logger.Error("Failed to register user", zap.Int64("telegram_id", from.ID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Произошла ошибка при регистрации. Попробуйте позже.")
		return
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, fmt.Sprintf(
		"👋 Привет, %s!\n\nЭто бот для обмена слотами в расписании.\n\n%s",
		user.Name, helpText,
	))
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.sendMessage(ctx, b, update.Message.Chat.ID, helpText)
}

// HandleCancel обрабатывает команду /cancel - отмена текущего диалога
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	telegramID := update.Message.From.ID
	if h.stateManager.GetState(telegramID) == state.StateNone {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "❌ Нет активных операций для отмены.")
		return
	}

	h.stateManager.ClearState(telegramID)
	h.sendMessage(ctx, b, update.Message.Chat.ID, "✅ Операция отменена.\n\nИспользуйте /help для просмотра доступных команд.")
}

// HandleNewSlot начинает диалог создания слота
func (h *Handlers) HandleNewSlot(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	if _, ok := h.requireUser(ctx, b, update.Message.From.ID, update.Message.Chat.ID); !ok {
		return
	}

	h.stateManager.ClearState(update.Message.From.ID)
	h.stateManager.SetState(update.Message.From.ID, state.StateNewSlotTitle)
	h.sendMessage(ctx, b, update.Message.Chat.ID, "📝 Введите название слота\n\n/cancel - отменить")
}

// HandleTextMessage обрабатывает текстовые сообщения в зависимости от состояния пользователя
func (h *Handlers) HandleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Text == "" {
		return
	}

	// Команды обрабатываются другими handlers
	if strings.HasPrefix(update.Message.Text, "/") {
		return
	}

	telegramID := update.Message.From.ID
	currentState := h.stateManager.GetState(telegramID)

	switch currentState {
	case state.StateNone:
		return
	case state.StateNewSlotTitle:
		h.handleSlotTitleStep(ctx, b, update)
	case state.StateNewSlotStart:
		h.handleSlotStartStep(ctx, b, update)
	case state.StateNewSlotDuration:
		h.handleSlotDurationStep(ctx, b, update)
	case state.StatePickingOffer:
		h.sendMessage(ctx, b, update.Message.Chat.ID, "👆 Выберите слот кнопкой выше или /cancel")
	default:
		h.logger.Warn("Unknown state", zap.String("state", string(currentState)))
	}
}

func (h *Handlers) handleSlotTitleStep(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID
	title := strings.TrimSpace(update.Message.Text)
	if title == "" {
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Название не может быть пустым. Введите название слота")
		return
	}

	h.stateManager.SetData(telegramID, state.KeySlotTitle, title)
	h.stateManager.SetState(telegramID, state.StateNewSlotStart)
	h.sendMessage(ctx, b, update.Message.Chat.ID, fmt.Sprintf(
		"🕐 Введите дату и время начала в формате ДД.ММ.ГГГГ ЧЧ:ММ\nНапример: %s\n\nЧасовой пояс: %s",
		h.now().In(h.location).Format(startInputLayout), h.location.String(),
	))
}

func (h *Handlers) handleSlotStartStep(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID
	start, err := time.ParseInLocation(startInputLayout, strings.TrimSpace(update.Message.Text), h.location)
	if err != nil {
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Неверный формат. Используйте ДД.ММ.ГГГГ ЧЧ:ММ, например 10.03.2025 09:00")
		return
	}

	h.stateManager.SetData(telegramID, state.KeySlotStart, start)
	h.stateManager.SetState(telegramID, state.StateNewSlotDuration)
	h.sendMessage(ctx, b, update.Message.Chat.ID, "⏱ Введите длительность в минутах (например 60) или как 1h30m")
}

func (h *Handlers) handleSlotDurationStep(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	duration, err := parseDuration(update.Message.Text)
	if err != nil {
		h.sendError(ctx, b, chatID, "❌ Длительность должна быть от 1 минуты до 24 часов. Попробуйте ещё раз")
		return
	}

	title, okTitle := h.stateManager.GetString(telegramID, state.KeySlotTitle)
	startData, okStart := h.stateManager.GetData(telegramID, state.KeySlotStart)
	start, okType := startData.(time.Time)
	if !okTitle || !okStart || !okType {
		h.logger.Error("Missing dialog data for new slot", zap.Int64("telegram_id", telegramID))
		h.stateManager.ClearState(telegramID)
		h.sendError(ctx, b, chatID, "❌ Данные диалога потерялись. Начните заново: /newslot")
		return
	}

	user, ok := h.requireUser(ctx, b, telegramID, chatID)
	if !ok {
		h.stateManager.ClearState(telegramID)
		return
	}

	slot, err := h.slotService.CreateSlot(ctx, user.ID, title, start, start.Add(duration))
	h.stateManager.ClearState(telegramID)
	if err != nil {
		h.replyError(ctx, b, chatID, "create slot", err)
		return
	}

	h.sendMessage(ctx, b, chatID, fmt.Sprintf(
		"✅ Слот создан:\n%s\n\nВыставить на обмен: /myslots",
		formatSlot(slot, h.location),
	))
}

// parseDuration принимает минуты числом или строку вида 1h30m
func parseDuration(text string) (time.Duration, error) {
	text = strings.TrimSpace(text)

	var duration time.Duration
	if minutes, err := strconv.Atoi(text); err == nil {
		duration = time.Duration(minutes) * time.Minute
	} else {
		parsed, err := time.ParseDuration(text)
		if err != nil {
			return 0, err
		}
		duration = parsed
	}

	if duration < time.Minute || duration > maxSlotDuration {
		return 0, fmt.Errorf("duration %s out of range", duration)
	}
	return duration, nil
}
