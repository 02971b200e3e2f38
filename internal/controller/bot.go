package controller

import (
	"context"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/controller/handlers"
	"github.com/Freeeeeet/slot_swap/internal/controller/state"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// sweepInterval как часто забываются брошенные диалоги
const sweepInterval = 5 * time.Minute

type BotController struct {
	bot          *bot.Bot
	handlers     *handlers.Handlers
	stateManager *state.Manager
	logger       *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	userService handlers.UserService,
	slotService handlers.SlotService,
	swapService handlers.SwapService,
	queryService handlers.QueryService,
	location *time.Location,
	logger *zap.Logger,
) *BotController {
	// Создаём менеджер состояний
	stateManager := state.NewManager(state.DefaultTTL)

	// Создаём обработчики команд и кнопок
	cmdHandlers := handlers.NewHandlers(
		userService,
		slotService,
		swapService,
		queryService,
		stateManager,
		location,
		logger,
	)

	return &BotController{
		bot:          botInstance,
		handlers:     cmdHandlers,
		stateManager: stateManager,
		logger:       logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.handlers.HandleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handlers.HandleHelp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypeExact, c.handlers.HandleCancel)

	// Свои слоты
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/myslots", bot.MatchTypeExact, c.handlers.HandleMySlots)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/newslot", bot.MatchTypeExact, c.handlers.HandleNewSlot)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/week", bot.MatchTypeExact, c.handlers.HandleWeek)

	// Обмен
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/market", bot.MatchTypeExact, c.handlers.HandleMarket)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/incoming", bot.MatchTypeExact, c.handlers.HandleIncoming)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/outgoing", bot.MatchTypeExact, c.handlers.HandleOutgoing)

	// Обработчик текстовых сообщений (для диалогов с состояниями)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, c.handlers.HandleTextMessage)

	// Обработчик нажатий на inline кнопки
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, c.handlers.HandleCallbackQuery)

	// Устанавливаем меню команд
	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Начать работу с ботом"},
		{Command: "help", Description: "❓ Справка по командам"},
		{Command: "myslots", Description: "📅 Мои слоты"},
		{Command: "newslot", Description: "➕ Добавить слот"},
		{Command: "week", Description: "🗓 Моя неделя"},
		{Command: "market", Description: "🛒 Слоты на обмен"},
		{Command: "incoming", Description: "📨 Входящие заявки"},
		{Command: "outgoing", Description: "📤 Мои заявки"},
		{Command: "cancel", Description: "✖️ Отменить диалог"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})

	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start запускает бота и блокируется до отмены ctx
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot...")

	go c.sweepStates(ctx)

	c.bot.Start(ctx)
	return nil
}

func (c *BotController) sweepStates(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.stateManager.Sweep(); removed > 0 {
				c.logger.Debug("Expired dialogs removed", zap.Int("count", removed))
			}
		}
	}
}
