package rest

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/calendar"
	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/Freeeeeet/slot_swap/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type createSlotRequest struct {
	Title     string    `json:"title" validate:"required,max=200"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// updateSlotRequest отсутствующие или пустые поля не меняются
type updateSlotRequest struct {
	Title     *string           `json:"title" validate:"omitempty,max=200"`
	StartTime *time.Time        `json:"startTime"`
	EndTime   *time.Time        `json:"endTime"`
	Status    *model.SlotStatus `json:"status"`
}

func (s *Server) createSlot(c echo.Context) error {
	req := new(createSlotRequest)
	if err := bind(c, req); err != nil {
		return s.fail(c, err)
	}

	slot, err := s.slots.CreateSlot(c.Request().Context(), currentUser(c), req.Title, req.StartTime, req.EndTime)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusCreated, slot)
}

func (s *Server) listMySlots(c echo.Context) error {
	slots, err := s.slots.ListMySlots(c.Request().Context(), currentUser(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, nonNil(slots))
}

func (s *Server) updateSlot(c echo.Context) error {
	slotID, err := pathID(c, "id")
	if err != nil {
		return s.fail(c, err)
	}

	req := new(updateSlotRequest)
	if err := bind(c, req); err != nil {
		return s.fail(c, err)
	}

	slot, err := s.slots.UpdateSlot(c.Request().Context(), currentUser(c), slotID, model.SlotPatch{
		Title:     req.Title,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    req.Status,
	})
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, slot)
}

func (s *Server) exportCalendar(c echo.Context) error {
	ctx := c.Request().Context()
	userID := currentUser(c)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return s.fail(c, err)
	}

	slots, err := s.slots.ListMySlots(ctx, userID)
	if err != nil {
		return s.fail(c, err)
	}

	var buf bytes.Buffer
	if err := calendar.WriteICS(&buf, user.Name, slots, s.now()); err != nil {
		return s.fail(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="slots.ics"`)
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}

// weekImage рисует неделю, содержащую ?date=YYYY-MM-DD (по умолчанию текущую), в часовом поясе ?tz=
func (s *Server) weekImage(c echo.Context) error {
	loc := time.UTC
	if tz := c.QueryParam("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return s.fail(c, &service.ValidationError{Field: "tz", Message: "unknown time zone"})
		}
		loc = l
	}

	now := s.now().In(loc)
	day := now
	if raw := c.QueryParam("date"); raw != "" {
		d, err := time.ParseInLocation(time.DateOnly, raw, loc)
		if err != nil {
			return s.fail(c, &service.ValidationError{Field: "date", Message: "must be YYYY-MM-DD"})
		}
		day = d
	}

	slots, err := s.slots.ListMySlots(c.Request().Context(), currentUser(c))
	if err != nil {
		return s.fail(c, err)
	}

	img, err := calendar.RenderWeek(calendar.WeekImage{
		Day:      day,
		Location: loc,
		Now:      now,
		Slots:    slots,
	})
	if err != nil {
		return s.fail(c, err)
	}

	return c.Blob(http.StatusOK, "image/png", img)
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, &service.ValidationError{Field: name, Message: fmt.Sprintf("invalid id %q", c.Param(name))}
	}
	return id, nil
}

// nonNil отдаёт пустой массив вместо null
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
