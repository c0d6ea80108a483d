package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/Freeeeeet/ltrc_platform/internal/availability"
	"github.com/Freeeeeet/ltrc_platform/internal/booking"
	"github.com/Freeeeeet/ltrc_platform/internal/calendar"
	"github.com/Freeeeeet/ltrc_platform/internal/controller/telegram/keyboard"
	"github.com/Freeeeeet/ltrc_platform/internal/model"
)

// Callback data. Values after the prefix are ISO dates, YYYY-MM months,
// 24h times or topic values.
const (
	cbMonth     = "cal:"   // cal:2024-03
	cbDay       = "day:"   // day:2024-03-15
	cbSlot      = "slot:"  // slot:13:00
	cbTopic     = "topic:" // topic:grammar
	cbSkipNotes = "notes:skip"
	cbConfirm   = "book:confirm"
	cbAbort     = "book:cancel"

	monthLayout = "2006-01"
	slotsPerRow = 3
)

var weekdayHeader = []string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"}

func monthKey(m calendar.Month) string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month0+1)
}

func parseMonthKey(s string) (calendar.Month, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return calendar.Month{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return calendar.NewMonth(t.Year(), int(t.Month())-1), nil
}

// displayDate renders e.g. "Fri, Mar 15 2024".
func displayDate(d calendar.Date) string {
	return d.In(time.UTC).Format("Mon, Jan 2 2006")
}

// calendarKeyboard lays the month out as a 7-column grid under a
// navigation row. today is marked.
func calendarKeyboard(m calendar.Month, today calendar.Date) *models.InlineKeyboardMarkup {
	kb := keyboard.NewBuilder()

	kb.Row(
		keyboard.Button("«", cbMonth+monthKey(m.Prev())),
		keyboard.Noop(m.Title()),
		keyboard.Button("»", cbMonth+monthKey(m.Next())),
	)

	header := make([]models.InlineKeyboardButton, 0, calendar.DaysPerWeek)
	for _, name := range weekdayHeader {
		header = append(header, keyboard.Noop(name))
	}
	kb.Row(header...)

	for _, week := range m.Weeks() {
		row := make([]models.InlineKeyboardButton, 0, calendar.DaysPerWeek)
		for _, day := range week {
			if day == 0 {
				row = append(row, keyboard.Noop(""))
				continue
			}
			date := m.Date(day)
			label := strconv.Itoa(day)
			if date == today {
				label = "·" + label + "·"
			}
			row = append(row, keyboard.Button(label, cbDay+date.String()))
		}
		kb.Row(row...)
	}

	kb.Row(keyboard.CancelButton(cbAbort))
	return kb.Build()
}

// slotsKeyboard offers the day's labels. Callback data carries the stored
// 24h form, which is shorter and unambiguous.
func slotsKeyboard(date calendar.Date, labels []string) *models.InlineKeyboardMarkup {
	buttons := make([]models.InlineKeyboardButton, 0, len(labels))
	for _, label := range labels {
		stored, err := availability.FormatTimeForSubmission(label)
		if err != nil {
			continue
		}
		buttons = append(buttons, keyboard.Button(label, cbSlot+stored))
	}

	return keyboard.NewBuilder().
		Chunk(slotsPerRow, buttons...).
		Row(keyboard.BackButton(cbMonth+monthKey(calendar.MonthOf(date))), keyboard.CancelButton(cbAbort)).
		Build()
}

func topicsKeyboard(date calendar.Date) *models.InlineKeyboardMarkup {
	buttons := make([]models.InlineKeyboardButton, 0, len(model.Topics))
	for _, t := range model.Topics {
		buttons = append(buttons, keyboard.Button(t.Title(), cbTopic+string(t)))
	}

	return keyboard.NewBuilder().
		Chunk(2, buttons...).
		Row(keyboard.BackButton(cbDay+date.String()), keyboard.CancelButton(cbAbort)).
		Build()
}

func notesKeyboard() *models.InlineKeyboardMarkup {
	return keyboard.NewBuilder().
		Row(keyboard.Button("⏭ Skip", cbSkipNotes)).
		Row(keyboard.CancelButton(cbAbort)).
		Build()
}

func confirmKeyboard() *models.InlineKeyboardMarkup {
	return keyboard.NewBuilder().
		Row(keyboard.ConfirmButton(cbConfirm), keyboard.CancelButton(cbAbort)).
		Build()
}

func formatDraft(s booking.DraftState) string {
	var sb strings.Builder
	sb.WriteString("📝 Your appointment request\n\n")
	if !s.Date.IsZero() {
		fmt.Fprintf(&sb, "📅 Date: %s\n", displayDate(s.Date))
	}
	if s.Time != "" {
		fmt.Fprintf(&sb, "🕐 Time: %s\n", s.Time)
	}
	if s.Topic.Valid() {
		fmt.Fprintf(&sb, "📚 Topic: %s\n", s.Topic.Title())
	}
	if notes := strings.TrimSpace(s.Notes); notes != "" {
		fmt.Fprintf(&sb, "🗒 Notes: %s\n", notes)
	}
	return sb.String()
}

// meetingLine renders a stored meeting. Times that do not convert back to
// a label are shown as stored.
func meetingLine(m *model.Meeting) string {
	when := m.Date
	if d, err := calendar.ParseDate(m.Date); err == nil {
		when = displayDate(d)
	}
	at := m.Time
	if label, err := availability.LabelFromStored(m.Time); err == nil {
		at = label
	}
	return fmt.Sprintf("📅 %s at %s · %s", when, at, model.Topic(m.Request).Title())
}

func formatUpcoming(meetings []*model.Meeting) string {
	if len(meetings) == 0 {
		return "You have no upcoming appointments.\n\nUse /book to book one."
	}

	var sb strings.Builder
	sb.WriteString("🗓 Your upcoming appointments:\n")
	for _, m := range meetings {
		sb.WriteString("\n")
		sb.WriteString(meetingLine(m))
	}
	return sb.String()
}
