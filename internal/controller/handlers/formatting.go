package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/model"
)

const buttonTitleLength = 24

var weekdayShort = [...]string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}

// formatSlotTime форматирует интервал слота: "Пн 10.03 09:00-10:00"
func formatSlotTime(slot *model.Slot, loc *time.Location) string {
	start := slot.StartTime.In(loc)
	end := slot.EndTime.In(loc)

	endLayout := "15:04"
	if start.Year() != end.Year() || start.YearDay() != end.YearDay() {
		endLayout = "02.01 15:04"
	}
	return fmt.Sprintf("%s %s-%s", weekdayShort[start.Weekday()], start.Format("02.01 15:04"), end.Format(endLayout))
}

func slotStatusLabel(status model.SlotStatus) string {
	switch status {
	case model.SlotStatusBusy:
		return "🔒 занят"
	case model.SlotStatusSwappable:
		return "🔁 на обмене"
	case model.SlotStatusSwapPending:
		return "⏳ ждёт обмена"
	default:
		return string(status)
	}
}

func swapStatusLabel(status model.SwapStatus) string {
	switch status {
	case model.SwapStatusPending:
		return "⏳ ожидает ответа"
	case model.SwapStatusAccepted:
		return "✅ принята"
	case model.SwapStatusRejected:
		return "❌ отклонена"
	default:
		return string(status)
	}
}

// formatSlot одна строка слота для списков
func formatSlot(slot *model.Slot, loc *time.Location) string {
	if slot == nil {
		return "слот удалён"
	}
	return fmt.Sprintf("%s · %s (%s)", formatSlotTime(slot, loc), slot.Title, slotStatusLabel(slot.Status))
}

// formatSlotList нумерованный список слотов
func formatSlotList(header string, slots []*model.Slot, loc *time.Location) string {
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n")
	for i, slot := range slots {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, formatSlot(slot, loc))
	}
	return sb.String()
}

func profileName(p *model.PublicProfile) string {
	if p == nil || p.Name == "" {
		return "неизвестный пользователь"
	}
	return p.Name
}

// formatIncoming описание входящей заявки: что предлагают и что просят
func formatIncoming(v *model.SwapRequestView, loc *time.Location) string {
	return fmt.Sprintf(
		"📨 Заявка от %s\n\nПредлагает: %s\nПросит ваш: %s",
		profileName(v.Requester),
		formatSlot(v.RequesterSlot, loc),
		formatSlot(v.ReceiverSlot, loc),
	)
}

// formatOutgoing описание исходящей заявки
func formatOutgoing(v *model.SwapRequestView, loc *time.Location) string {
	return fmt.Sprintf(
		"→ %s\nОтдаёте: %s\nПолучаете: %s\nСтатус: %s",
		profileName(v.Receiver),
		formatSlot(v.RequesterSlot, loc),
		formatSlot(v.ReceiverSlot, loc),
		swapStatusLabel(v.Status),
	)
}

// slotButtonText короткая подпись слота для inline кнопки
func slotButtonText(slot *model.Slot, loc *time.Location) string {
	return fmt.Sprintf("%s %s", slot.StartTime.In(loc).Format("02.01 15:04"), shorten(slot.Title, buttonTitleLength))
}

func shorten(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
