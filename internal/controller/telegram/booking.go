package telegram

import (
	"context"
	"errors"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/ltrc_platform/internal/availability"
	"github.com/Freeeeeet/ltrc_platform/internal/booking"
	"github.com/Freeeeeet/ltrc_platform/internal/calendar"
	"github.com/Freeeeeet/ltrc_platform/internal/controller/state"
	"github.com/Freeeeeet/ltrc_platform/internal/controller/telegram/keyboard"
	"github.com/Freeeeeet/ltrc_platform/internal/identity"
	"github.com/Freeeeeet/ltrc_platform/internal/model"
)

const msgPickDay = "📅 Choose a day for your appointment:"

// handleBook opens the calendar on the current month.
func (c *Controller) handleBook(ctx context.Context, m messenger, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	if _, ok := c.requireIdentity(ctx, m, chatID); !ok {
		return
	}
	c.states.ClearDialog(chatKey(chatID))

	today := c.engine.Today()
	c.send(ctx, m, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        msgPickDay,
		ReplyMarkup: calendarKeyboard(calendar.MonthOf(today), today),
	})
}

// handleNotesStep stores free text as the draft's notes and moves to the
// confirmation.
func (c *Controller) handleNotesStep(ctx context.Context, m messenger, update *models.Update) {
	chatID := update.Message.Chat.ID
	key := chatKey(chatID)

	draft := c.states.Draft(key)
	draft.SetNotes(strings.TrimSpace(update.Message.Text))
	c.states.ClearDialog(key)

	c.send(ctx, m, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        formatDraft(draft.State()) + "\nConfirm the booking?",
		ReplyMarkup: confirmKeyboard(),
	})
}

func (c *Controller) handleCallbackQuery(ctx context.Context, m messenger, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil {
		return
	}

	msg := cb.Message.Message
	if msg == nil {
		c.answer(ctx, m, cb.ID, "❌ This message is no longer available", true)
		return
	}

	c.logger.Debug("Callback received",
		zap.Int64("chat_id", msg.Chat.ID),
		zap.String("data", cb.Data),
	)

	switch data := cb.Data; {
	case data == keyboard.NoopData:
		c.answer(ctx, m, cb.ID, "", false)
	case strings.HasPrefix(data, cbMonth):
		c.onMonth(ctx, m, cb, msg, strings.TrimPrefix(data, cbMonth))
	case strings.HasPrefix(data, cbDay):
		c.onDay(ctx, m, cb, msg, strings.TrimPrefix(data, cbDay))
	case strings.HasPrefix(data, cbSlot):
		c.onSlot(ctx, m, cb, msg, strings.TrimPrefix(data, cbSlot))
	case strings.HasPrefix(data, cbTopic):
		c.onTopic(ctx, m, cb, msg, model.Topic(strings.TrimPrefix(data, cbTopic)))
	case data == cbSkipNotes:
		c.onSkipNotes(ctx, m, cb, msg)
	case data == cbConfirm:
		c.onConfirm(ctx, m, cb, msg)
	case data == cbAbort:
		c.onAbort(ctx, m, cb, msg)
	default:
		c.logger.Warn("Unknown callback", zap.String("data", data))
		c.answer(ctx, m, cb.ID, "❌ Unknown action", false)
	}
}

func (c *Controller) onMonth(ctx context.Context, m messenger, cb *models.CallbackQuery, msg *models.Message, raw string) {
	month, err := parseMonthKey(raw)
	if err != nil {
		c.answer(ctx, m, cb.ID, "❌ Invalid month", true)
		return
	}
	c.answer(ctx, m, cb.ID, "", false)
	c.edit(ctx, m, msg, msgPickDay, calendarKeyboard(month, c.engine.Today()))
}

func (c *Controller) onDay(ctx context.Context, m messenger, cb *models.CallbackQuery, msg *models.Message, raw string) {
	date, err := calendar.ParseDate(raw)
	if err != nil {
		c.answer(ctx, m, cb.ID, "Please select a date", true)
		return
	}

	c.states.Draft(chatKey(msg.Chat.ID)).SelectDate(date)

	slots, err := c.engine.Slots(ctx, date)
	if err != nil {
		c.logger.Error("Failed to load slots", zap.String("date", raw), zap.Error(err))
		c.answer(ctx, m, cb.ID, "❌ Failed to load available times. Please try again.", true)
		return
	}
	c.answer(ctx, m, cb.ID, "", false)

	if len(slots) == 0 {
		c.edit(ctx, m, msg, "😔 No times are available on "+displayDate(date)+".",
			keyboard.NewBuilder().Row(keyboard.BackButton(cbMonth+monthKey(calendar.MonthOf(date)))).Build())
		return
	}
	c.edit(ctx, m, msg, "🕐 "+displayDate(date)+"\n\nChoose a time:", slotsKeyboard(date, slots))
}

func (c *Controller) onSlot(ctx context.Context, m messenger, cb *models.CallbackQuery, msg *models.Message, stored string) {
	label, err := availability.LabelFromStored(stored)
	if err != nil {
		c.answer(ctx, m, cb.ID, "Please select a time", true)
		return
	}

	draft := c.states.Draft(chatKey(msg.Chat.ID))
	draft.SelectTime(label)
	c.answer(ctx, m, cb.ID, "", false)

	s := draft.State()
	c.edit(ctx, m, msg, formatDraft(s)+"\nWhat do you need help with?", topicsKeyboard(s.Date))
}

func (c *Controller) onTopic(ctx context.Context, m messenger, cb *models.CallbackQuery, msg *models.Message, topic model.Topic) {
	if !topic.Valid() {
		c.answer(ctx, m, cb.ID, "Please select a topic", true)
		return
	}

	key := chatKey(msg.Chat.ID)
	draft := c.states.Draft(key)
	draft.SetTopic(topic)
	c.states.SetState(key, state.StateBookingNotes)
	c.answer(ctx, m, cb.ID, "", false)

	c.edit(ctx, m, msg, formatDraft(draft.State())+
		"\n🗒 Anything else we should know? Send it as a message, or tap Skip.", notesKeyboard())
}

func (c *Controller) onSkipNotes(ctx context.Context, m messenger, cb *models.CallbackQuery, msg *models.Message) {
	key := chatKey(msg.Chat.ID)
	draft := c.states.Draft(key)
	draft.SetNotes("")
	c.states.ClearDialog(key)
	c.answer(ctx, m, cb.ID, "", false)

	c.edit(ctx, m, msg, formatDraft(draft.State())+"\nConfirm the booking?", confirmKeyboard())
}

// onConfirm submits the chat's draft. Validation failures are shown as an
// alert and leave the draft as it was.
func (c *Controller) onConfirm(ctx context.Context, m messenger, cb *models.CallbackQuery, msg *models.Message) {
	key := chatKey(msg.Chat.ID)

	who, err := c.currentIdentity(ctx, key)
	if err != nil {
		var ae *identity.AuthError
		if errors.As(err, &ae) {
			c.answer(ctx, m, cb.ID, ae.Message(), true)
			return
		}
		c.logger.Error("Failed to resolve chat identity", zap.String("key", key), zap.Error(err))
		c.answer(ctx, m, cb.ID, msgGenericError, true)
		return
	}

	res, err := c.states.Draft(key).Submit(ctx, c.engine, who)
	if c.metrics != nil {
		c.metrics.ObserveSubmission(err)
	}
	if err != nil {
		c.answer(ctx, m, cb.ID, submitFailureText(err), true)
		return
	}
	c.answer(ctx, m, cb.ID, "✅ Booked", false)

	text := "✅ Your appointment has been booked!"
	if res.RefreshErr != nil {
		c.logger.Warn("Failed to refresh upcoming meetings", zap.Error(res.RefreshErr))
		text += "\n\n❌ Failed to load your bookings. Please try again later."
	} else {
		text += "\n\n" + formatUpcoming(res.Upcoming)
	}
	c.edit(ctx, m, msg, text, nil)
}

func submitFailureText(err error) string {
	var (
		ve *booking.ValidationError
		se *booking.SubmissionError
	)
	switch {
	case errors.As(err, &ve):
		return ve.Reason
	case errors.Is(err, booking.ErrSubmissionInFlight):
		return "⏳ Your booking is already being submitted."
	case errors.As(err, &se):
		return "❌ " + se.Error()
	default:
		return msgGenericError
	}
}

func (c *Controller) onAbort(ctx context.Context, m messenger, cb *models.CallbackQuery, msg *models.Message) {
	key := chatKey(msg.Chat.ID)
	c.states.ClearDialog(key)
	c.states.ResetDraft(key)
	c.answer(ctx, m, cb.ID, "", false)
	c.edit(ctx, m, msg, "❌ Booking cancelled.", nil)
}

func (c *Controller) answer(ctx context.Context, m messenger, callbackID, text string, alert bool) {
	if _, err := m.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	}); err != nil {
		c.logger.Warn("Failed to answer callback", zap.Error(err))
	}
}

// edit replaces the text and keyboard of msg. A nil keyboard removes it.
func (c *Controller) edit(ctx context.Context, m messenger, msg *models.Message, text string, kb *models.InlineKeyboardMarkup) {
	params := &bot.EditMessageTextParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text:      text,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	if _, err := m.EditMessageText(ctx, params); err != nil {
		c.logger.Error("Failed to edit message",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Error(err),
		)
	}
}
