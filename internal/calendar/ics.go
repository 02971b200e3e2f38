// Package calendar экспорт слотов пользователя: iCalendar-фид и картинка недели.
package calendar

import (
	"fmt"
	"io"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/emersion/go-ical"
)

const productID = "-//slot_swap//EN"

// WriteICS пишет слоты в формате iCalendar. Статус слота попадает в CATEGORIES,
// слоты в ожидании обмена помечаются как TENTATIVE.
func WriteICS(w io.Writer, calendarName string, slots []*model.Slot, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	if calendarName != "" {
		cal.Props.SetText(ical.PropName, calendarName)
	}

	for _, slot := range slots {
		cal.Children = append(cal.Children, toEvent(slot, stamp))
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

func toEvent(slot *model.Slot, stamp time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, slot.ID.String()+"@slot_swap")
	ve.Props.SetText(ical.PropSummary, slot.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, slot.StartTime.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, slot.EndTime.UTC())
	if !slot.UpdatedAt.IsZero() {
		ve.Props.SetDateTime(ical.PropLastModified, slot.UpdatedAt.UTC())
	}
	ve.Props.SetText(ical.PropCategories, string(slot.Status))

	status := "CONFIRMED"
	if slot.Status == model.SlotStatusSwapPending {
		status = "TENTATIVE"
	}
	ve.Props.SetText(ical.PropStatus, status)

	return ve
}
