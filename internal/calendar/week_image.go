package calendar

import (
	"bytes"
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Константы размеров и отступов
const (
	imageWidth       = 1400
	imageHeight      = 900
	headerHeight     = 100
	leftLabelsWidth  = 80
	legendWidth      = 150
	dayPaddingX      = 8
	minSlotHeight    = 8.0
	slotBorderRadius = 6.0
	shadowOffset     = 3.0
	totalDaysInWeek  = 7
	hourPaddingTop   = 1
	hourPaddingBot   = 1
	defaultMinHour   = 8
	defaultMaxHour   = 20
	maxTitleRunes    = 18
)

// Константы шрифтов
const (
	titleFontSize      = 25.0
	dayFontSize        = 24.0
	hourLabelFontSize  = 16.0
	slotTimeFontSize   = 15.0
	legendItemFontSize = 13.0
)

// Цветовая схема
var (
	bgColor          = color.RGBA{245, 246, 248, 255}
	textColor        = color.RGBA{80, 85, 90, 220}
	hourLabelColor   = color.RGBA{110, 115, 120, 200}
	hourLineColor    = color.NRGBA{150, 150, 150, 255}
	todayBgColor     = color.NRGBA{255, 99, 71, 90}
	evenDayColor     = color.NRGBA{240, 240, 240, 255}
	oddDayColor      = color.NRGBA{225, 225, 225, 255}
	currentTimeColor = color.NRGBA{255, 80, 80, 200}

	slotBusyColor      = color.RGBA{158, 170, 190, 220}
	slotSwappableColor = color.RGBA{133, 193, 85, 220}
	slotPendingColor   = color.RGBA{255, 196, 87, 235}
	slotDefaultColor   = color.RGBA{220, 220, 220, 200}
	slotTextColor      = color.RGBA{20, 24, 28, 230}
	slotShadowColor    = color.RGBA{0, 0, 0, 20}

	legendItemColor = color.RGBA{70, 74, 78, 220}
)

type fontStyle int

const (
	fontRegular fontStyle = iota
	fontBold
)

var (
	fontsMu     sync.Mutex
	cachedFonts = make(map[fontStyle]*opentype.Font)
)

// weekBounds границы недели
type weekBounds struct {
	start time.Time
	end   time.Time
}

// hourRange диапазон часов для отображения
type hourRange struct {
	start int
	end   int
	total int
}

// WeekImage параметры отрисовки недели
type WeekImage struct {
	// Любой день недели; неделя берётся с понедельника в локации Location
	Day      time.Time
	Location *time.Location
	Now      time.Time
	Slots    []*model.Slot
}

// RenderWeek рисует PNG с календарём недели и слотами, окрашенными по статусу
func RenderWeek(w WeekImage) ([]byte, error) {
	loc := w.Location
	if loc == nil {
		loc = time.UTC
	}

	week := normalizeToWeekBounds(w.Day.In(loc))
	today := normalizeToDay(w.Now.In(loc))
	highlightToday := !w.Now.IsZero() && !today.Before(week.start) && !today.After(week.end)

	slotsByDay := groupSlotsByDay(w.Slots, week, loc)
	hours := calculateHourRange(slotsByDay, loc)

	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(bgColor)
	dc.Clear()

	dayWidth := (imageWidth - leftLabelsWidth - legendWidth) / totalDaysInWeek
	dayHeight := imageHeight - headerHeight
	cellHeight := float64(dayHeight) / float64(hours.total)

	drawHeader(dc, week)
	drawHourLabels(dc, hours, cellHeight)

	for dayIndex, date := 0, week.start; dayIndex < totalDaysInWeek; dayIndex, date = dayIndex+1, date.AddDate(0, 0, 1) {
		x := float64(leftLabelsWidth + dayIndex*dayWidth)
		y := float64(headerHeight)
		isToday := highlightToday && date.Equal(today)

		drawDayBackground(dc, x, y, dayWidth, dayHeight, dayIndex, isToday)
		drawDayHeader(dc, date, x, y, dayWidth)
		drawHourLines(dc, x, y, dayWidth, hours, cellHeight)
		for _, slot := range slotsByDay[date.Format(time.DateOnly)] {
			drawSlot(dc, slot, loc, x, y, dayWidth, hours, cellHeight)
		}
	}

	if highlightToday {
		drawCurrentTimeLine(dc, w.Now.In(loc), hours, cellHeight, dayWidth)
	}
	drawLegend(dc, dayWidth)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// loadFont выставляет шрифт Go нужного размера или basicfont, если разобрать его не удалось
func loadFont(dc *gg.Context, size float64, style fontStyle) {
	fontsMu.Lock()
	parsed, ok := cachedFonts[style]
	if !ok {
		data := goregular.TTF
		if style == fontBold {
			data = gobold.TTF
		}
		var err error
		parsed, err = opentype.Parse(data)
		if err != nil {
			parsed = nil
		}
		cachedFonts[style] = parsed
	}
	fontsMu.Unlock()

	if parsed != nil {
		face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err == nil {
			dc.SetFontFace(face)
			return
		}
	}
	dc.SetFontFace(basicfont.Face7x13)
}

// normalizeToWeekBounds нормализует дату к границам недели (Пн-Вс)
func normalizeToWeekBounds(date time.Time) weekBounds {
	normalized := normalizeToDay(date)

	daysSinceMonday := int(normalized.Weekday()) - 1
	if normalized.Weekday() == time.Sunday {
		daysSinceMonday = 6
	}

	start := normalized.AddDate(0, 0, -daysSinceMonday)
	return weekBounds{start: start, end: start.AddDate(0, 0, 6)}
}

func normalizeToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// groupSlotsByDay раскладывает слоты недели по дням начала
func groupSlotsByDay(slots []*model.Slot, week weekBounds, loc *time.Location) map[string][]*model.Slot {
	weekEnd := week.end.AddDate(0, 0, 1)
	slotsByDay := make(map[string][]*model.Slot)
	for _, slot := range slots {
		start := slot.StartTime.In(loc)
		if start.Before(week.start) || !start.Before(weekEnd) {
			continue
		}
		key := start.Format(time.DateOnly)
		slotsByDay[key] = append(slotsByDay[key], slot)
	}
	return slotsByDay
}

// calculateHourRange определяет диапазон часов по слотам недели
func calculateHourRange(slotsByDay map[string][]*model.Slot, loc *time.Location) hourRange {
	minHour, maxHour := 24, 0
	for _, slots := range slotsByDay {
		for _, slot := range slots {
			start := slot.StartTime.In(loc)
			end := slot.EndTime.In(loc)
			endH := end.Hour()
			if end.Minute() > 0 {
				endH++
			}
			// Слот до следующего дня рисуется до полуночи
			if !isSameDay(start, end) {
				endH = 24
			}
			minHour = min(minHour, start.Hour())
			maxHour = max(maxHour, endH)
		}
	}

	if minHour == 24 {
		minHour, maxHour = defaultMinHour, defaultMaxHour
	}

	startHour := max(minHour-hourPaddingTop, 0)
	endHour := min(maxHour+hourPaddingBot, 24)

	return hourRange{
		start: startHour,
		end:   endHour,
		total: max(endHour-startHour, 1),
	}
}

// drawHeader рисует заголовок с названием месяца
func drawHeader(dc *gg.Context, week weekBounds) {
	title := week.start.Month().String()
	if week.start.Month() != week.end.Month() {
		title += " - " + week.end.Month().String()
	}
	title += fmt.Sprintf(" %d", week.end.Year())

	loadFont(dc, titleFontSize, fontBold)
	dc.SetColor(textColor)
	_, h := dc.MeasureString(title)
	dc.DrawStringAnchored(title, float64(leftLabelsWidth), float64(headerHeight)/8+h/2, 0, 0)
}

// drawHourLabels рисует колонку с часами слева
func drawHourLabels(dc *gg.Context, hours hourRange, cellHeight float64) {
	loadFont(dc, hourLabelFontSize, fontRegular)
	dc.SetColor(hourLabelColor)

	for hIdx := 0; hIdx <= hours.total; hIdx++ {
		y := float64(headerHeight) + float64(hIdx)*cellHeight
		dc.DrawStringAnchored(fmt.Sprintf("%02d:00", hours.start+hIdx), float64(leftLabelsWidth)-10, y, 1, 0.5)
	}
}

func drawDayBackground(dc *gg.Context, x, y float64, dayWidth, dayHeight, dayIndex int, isToday bool) {
	switch {
	case isToday:
		dc.SetColor(todayBgColor)
	case dayIndex%2 == 0:
		dc.SetColor(evenDayColor)
	default:
		dc.SetColor(oddDayColor)
	}
	dc.DrawRectangle(x, y, float64(dayWidth), float64(dayHeight))
	dc.Fill()
}

// drawDayHeader рисует день недели и дату
func drawDayHeader(dc *gg.Context, date time.Time, x, y float64, dayWidth int) {
	loadFont(dc, dayFontSize, fontBold)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(date.Format("02.01"), x+float64(dayWidth)/2, y, 0.5, -1)
	dc.DrawStringAnchored(date.Format("Mon"), x+float64(dayWidth)/2, y, 0.5, -0.2)
}

func drawHourLines(dc *gg.Context, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	dc.SetLineWidth(0.3)
	dc.SetColor(hourLineColor)

	for hIdx := 0; hIdx <= hours.total; hIdx++ {
		hy := y + float64(hIdx)*cellHeight
		dc.DrawLine(x, hy, x+float64(dayWidth), hy)
		dc.Stroke()
	}
}

// drawSlot рисует один слот: время начала и название
func drawSlot(dc *gg.Context, slot *model.Slot, loc *time.Location, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	start := slot.StartTime.In(loc)
	end := slot.EndTime.In(loc)

	startHour := float64(start.Hour()) + float64(start.Minute())/60.0
	endHour := float64(end.Hour()) + float64(end.Minute())/60.0
	if !isSameDay(start, end) {
		endHour = 24
	}

	slotY := y + (startHour-float64(hours.start))*cellHeight
	slotHeight := max((endHour-startHour)*cellHeight, minSlotHeight)

	fillColor := slotColor(slot.Status)
	slotWidth := float64(dayWidth) - float64(dayPaddingX*2)
	left := x + float64(dayPaddingX)

	// Тень
	dc.SetColor(slotShadowColor)
	dc.DrawRoundedRectangle(left+shadowOffset, slotY+2+shadowOffset, slotWidth, slotHeight-4, slotBorderRadius)
	dc.Fill()

	dc.SetColor(fillColor)
	dc.DrawRoundedRectangle(left, slotY+2, slotWidth, slotHeight-4, slotBorderRadius)
	dc.Fill()

	dc.SetColor(darkenColor(fillColor, 0.8))
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(left, slotY+2, slotWidth, slotHeight-4, slotBorderRadius)
	dc.Stroke()

	loadFont(dc, slotTimeFontSize, fontBold)
	dc.SetColor(slotTextColor)
	txtX := left + 8
	txtY := slotY + 18
	dc.DrawStringAnchored(start.Format("15:04"), txtX, txtY, 0, 0)

	if slotHeight > 25 {
		loadFont(dc, slotTimeFontSize-2, fontRegular)
		dc.DrawStringAnchored(truncate(slot.Title, maxTitleRunes), txtX, txtY+16, 0, 0)
	}
}

func slotColor(status model.SlotStatus) color.RGBA {
	switch status {
	case model.SlotStatusBusy:
		return slotBusyColor
	case model.SlotStatusSwappable:
		return slotSwappableColor
	case model.SlotStatusSwapPending:
		return slotPendingColor
	default:
		return slotDefaultColor
	}
}

// darkenColor затемняет цвет на указанный множитель
func darkenColor(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

// drawCurrentTimeLine рисует линию текущего времени
func drawCurrentTimeLine(dc *gg.Context, now time.Time, hours hourRange, cellHeight float64, dayWidth int) {
	currentHour := float64(now.Hour()) + float64(now.Minute())/60.0
	if currentHour < float64(hours.start) || currentHour > float64(hours.end) {
		return
	}

	currentTimeY := float64(headerHeight) + (currentHour-float64(hours.start))*cellHeight
	dc.SetColor(currentTimeColor)
	dc.SetLineWidth(2.0)
	dc.DrawLine(float64(leftLabelsWidth), currentTimeY, float64(leftLabelsWidth+totalDaysInWeek*dayWidth), currentTimeY)
	dc.Stroke()
}

// drawLegend рисует легенду справа
func drawLegend(dc *gg.Context, dayWidth int) {
	items := []struct {
		label string
		clr   color.Color
	}{
		{"Занят", slotBusyColor},
		{"На обмен", slotSwappableColor},
		{"Ждёт ответа", slotPendingColor},
	}

	boxW, boxH := 20.0, 14.0
	liX := float64(leftLabelsWidth + totalDaysInWeek*dayWidth + 10)
	liY := float64(imageHeight) - 100.0

	loadFont(dc, legendItemFontSize, fontRegular)
	for _, item := range items {
		dc.SetColor(item.clr)
		dc.DrawRoundedRectangle(liX, liY, boxW, boxH, 3)
		dc.Fill()

		dc.SetColor(legendItemColor)
		dc.DrawStringAnchored(item.label, liX+boxW+8, liY+boxH/2+1, 0, 0.2)
		liY += boxH + 14
	}
}

func isSameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
