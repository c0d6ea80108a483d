// Package agenda draws a student's week of appointments as a PNG.
package agenda

import (
	"bytes"
	"fmt"
	"image/color"
	"strconv"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/Freeeeeet/ltrc_platform/internal/availability"
	"github.com/Freeeeeet/ltrc_platform/internal/calendar"
	"github.com/Freeeeeet/ltrc_platform/internal/model"
)

const (
	Width  = 1200
	Height = 760

	headerHeight    = 110
	leftLabelsWidth = 90
	dayPaddingX     = 6
	cellRadius      = 6.0
	shadowOffset    = 3.0

	titleFontSize = 26.0
	dayFontSize   = 20.0
	hourFontSize  = 16.0
	cellFontSize  = 15.0
)

var (
	bgColor        = color.RGBA{245, 246, 248, 255}
	textColor      = color.RGBA{80, 85, 90, 220}
	hourLabelColor = color.RGBA{110, 115, 120, 200}
	hourLineColor  = color.NRGBA{150, 150, 150, 255}
	todayBgColor   = color.NRGBA{255, 99, 71, 90}
	evenDayColor   = color.NRGBA{240, 240, 240, 255}
	oddDayColor    = color.NRGBA{225, 225, 225, 255}

	bookedColor     = color.RGBA{133, 193, 85, 230}
	bookedTextColor = color.RGBA{20, 24, 28, 230}
	shadowColor     = color.RGBA{0, 0, 0, 20}
)

type fontStyle int

const (
	styleRegular fontStyle = iota
	styleBold
)

var parsedFonts = sync.OnceValues(func() (map[fontStyle]*opentype.Font, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	return map[fontStyle]*opentype.Font{styleRegular: regular, styleBold: bold}, nil
})

// setFont falls back to the built-in bitmap face when the font cannot be
// loaded.
func setFont(dc *gg.Context, size float64, style fontStyle) {
	fonts, err := parsedFonts()
	if err == nil {
		face, err := opentype.NewFace(fonts[style], &opentype.FaceOptions{
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

// Week is the Sunday-first week that contains d.
func Week(d calendar.Date) [calendar.DaysPerWeek]calendar.Date {
	start := d.AddDays(-int(d.Weekday()))
	var week [calendar.DaysPerWeek]calendar.Date
	for i := range week {
		week[i] = start.AddDays(i)
	}
	return week
}

// cell is one meeting placed on the grid.
type cell struct {
	day   int
	row   int
	label string
}

// place keeps the meetings that fall on a ladder hour inside week.
func place(week [calendar.DaysPerWeek]calendar.Date, meetings []*model.Meeting) []cell {
	days := make(map[calendar.Date]int, len(week))
	for i, d := range week {
		days[d] = i
	}

	var cells []cell
	for _, m := range meetings {
		date, err := calendar.ParseDate(m.Date)
		if err != nil {
			continue
		}
		day, ok := days[date]
		if !ok {
			continue
		}
		label, err := availability.LabelFromStored(m.Time)
		if err != nil {
			continue
		}
		row := ladderRow(label)
		if row < 0 {
			continue
		}
		cells = append(cells, cell{day: day, row: row, label: model.Topic(m.Request).Title()})
	}
	return cells
}

func ladderRow(label string) int {
	for i, l := range availability.Ladder {
		if l == label {
			return i
		}
	}
	return -1
}

// InWeek counts the meetings Render would draw.
func InWeek(week [calendar.DaysPerWeek]calendar.Date, meetings []*model.Meeting) int {
	return len(place(week, meetings))
}

// Render draws the week with one row per bookable hour. today is
// highlighted when it falls inside the week.
func Render(week [calendar.DaysPerWeek]calendar.Date, today calendar.Date, meetings []*model.Meeting) ([]byte, error) {
	rows := len(availability.Ladder)
	dayWidth := float64(Width-leftLabelsWidth) / calendar.DaysPerWeek
	cellHeight := float64(Height-headerHeight) / float64(rows)

	dc := gg.NewContext(Width, Height)
	dc.SetColor(bgColor)
	dc.Clear()

	drawTitle(dc, week)
	drawHourLabels(dc, cellHeight)

	for i, d := range week {
		x := leftLabelsWidth + float64(i)*dayWidth
		drawDay(dc, d, i, d == today, x, dayWidth, cellHeight, rows)
	}

	for _, c := range place(week, meetings) {
		drawMeeting(dc, c, dayWidth, cellHeight)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode agenda: %w", err)
	}
	return buf.Bytes(), nil
}

func drawTitle(dc *gg.Context, week [calendar.DaysPerWeek]calendar.Date) {
	first, last := week[0], week[len(week)-1]
	title := first.Month.String() + " " + strconv.Itoa(first.Year)
	if first.Month != last.Month {
		title = first.Month.String() + " - " + last.Month.String() + " " + strconv.Itoa(last.Year)
	}

	setFont(dc, titleFontSize, styleBold)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(title, 20, headerHeight/4, 0, 0.5)
}

func drawHourLabels(dc *gg.Context, cellHeight float64) {
	setFont(dc, hourFontSize, styleRegular)
	dc.SetColor(hourLabelColor)
	for i, label := range availability.Ladder {
		y := headerHeight + float64(i)*cellHeight + cellHeight/2
		dc.DrawStringAnchored(label, leftLabelsWidth-10, y, 1, 0.5)
	}
}

func drawDay(dc *gg.Context, d calendar.Date, index int, isToday bool, x, dayWidth, cellHeight float64, rows int) {
	switch {
	case isToday:
		dc.SetColor(todayBgColor)
	case index%2 == 0:
		dc.SetColor(evenDayColor)
	default:
		dc.SetColor(oddDayColor)
	}
	dc.DrawRectangle(x, headerHeight, dayWidth, Height-headerHeight)
	dc.Fill()

	setFont(dc, dayFontSize, styleBold)
	dc.SetColor(textColor)
	t := d.In(time.UTC)
	dc.DrawStringAnchored(t.Format("Mon"), x+dayWidth/2, headerHeight-38, 0.5, 0.5)
	dc.DrawStringAnchored(t.Format("Jan 2"), x+dayWidth/2, headerHeight-14, 0.5, 0.5)

	dc.SetLineWidth(0.3)
	dc.SetColor(hourLineColor)
	for i := 0; i <= rows; i++ {
		y := headerHeight + float64(i)*cellHeight
		dc.DrawLine(x, y, x+dayWidth, y)
		dc.Stroke()
	}
}

func drawMeeting(dc *gg.Context, c cell, dayWidth, cellHeight float64) {
	x := leftLabelsWidth + float64(c.day)*dayWidth + dayPaddingX
	y := headerHeight + float64(c.row)*cellHeight + 2
	w := dayWidth - 2*dayPaddingX
	h := cellHeight - 4

	dc.SetColor(shadowColor)
	dc.DrawRoundedRectangle(x+shadowOffset, y+shadowOffset, w, h, cellRadius)
	dc.Fill()

	dc.SetColor(bookedColor)
	dc.DrawRoundedRectangle(x, y, w, h, cellRadius)
	dc.Fill()

	dc.SetColor(darken(bookedColor, 0.8))
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x, y, w, h, cellRadius)
	dc.Stroke()

	setFont(dc, cellFontSize, styleRegular)
	dc.SetColor(bookedTextColor)
	dc.DrawStringAnchored(c.label, x+8, y+h/2, 0, 0.5)
}

func darken(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}
