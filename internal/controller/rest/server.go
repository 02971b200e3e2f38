// Package rest HTTP API поверх echo.
package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type UserService interface {
	Register(ctx context.Context, name, email, password string) (*model.User, error)
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

type SlotService interface {
	CreateSlot(ctx context.Context, ownerID uuid.UUID, title string, startTime, endTime time.Time) (*model.Slot, error)
	ListMySlots(ctx context.Context, ownerID uuid.UUID) ([]*model.Slot, error)
	UpdateSlot(ctx context.Context, ownerID, slotID uuid.UUID, patch model.SlotPatch) (*model.Slot, error)
}

type SwapService interface {
	CreateProposal(ctx context.Context, requesterID, mySlotID, theirSlotID uuid.UUID) (*model.SwapRequest, error)
	ResolveProposal(ctx context.Context, requestID, responderID uuid.UUID, accepted bool) (*model.Resolution, error)
}

type QueryService interface {
	ListSwappableSlots(ctx context.Context, userID uuid.UUID) ([]*model.Slot, error)
	ListIncoming(ctx context.Context, userID uuid.UUID) ([]*model.SwapRequestView, error)
	ListOutgoing(ctx context.Context, userID uuid.UUID) ([]*model.SwapRequestView, error)
}

type TokenService interface {
	Issue(userID uuid.UUID) (string, time.Time, error)
	Verify(token string) (uuid.UUID, error)
}

type Deps struct {
	Users  UserService
	Slots  SlotService
	Swaps  SwapService
	Query  QueryService
	Tokens TokenService
	Logger *zap.Logger
}

type Server struct {
	echo   *echo.Echo
	users  UserService
	slots  SlotService
	swaps  SwapService
	query  QueryService
	tokens TokenService
	logger *zap.Logger
	now    func() time.Time
}

func NewServer(deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()

	s := &Server{
		echo:   e,
		users:  deps.Users,
		slots:  deps.Slots,
		swaps:  deps.Swaps,
		query:  deps.Query,
		tokens: deps.Tokens,
		logger: deps.Logger,
		now:    time.Now,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(deps.Logger))

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.health)

	api := s.echo.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", s.register)
	auth.POST("/login", s.login)

	private := api.Group("", s.authMiddleware())

	private.POST("/events", s.createSlot)
	private.GET("/events", s.listMySlots)
	private.GET("/events/calendar.ics", s.exportCalendar)
	private.GET("/events/week.png", s.weekImage)
	private.PUT("/events/:id", s.updateSlot)

	private.GET("/swappable-slots", s.listSwappable)
	private.POST("/swap-request", s.createSwapRequest)
	private.POST("/swap-response/:requestId", s.respondSwapRequest)
	private.GET("/swap-requests/incoming", s.listIncoming)
	private.GET("/swap-requests/outgoing", s.listOutgoing)
}

// Handler возвращает http.Handler сервера (для тестов и встраивания)
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start слушает addr до вызова Shutdown
func (s *Server) Start(addr string) error {
	s.logger.Info("HTTP server started", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown дожидается завершения активных запросов
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
