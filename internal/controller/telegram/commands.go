package telegram

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/ltrc_platform/internal/controller/state"
	"github.com/Freeeeeet/ltrc_platform/internal/controller/telegram/agenda"
	"github.com/Freeeeeet/ltrc_platform/internal/identity"
	"github.com/Freeeeeet/ltrc_platform/internal/model"
)

const (
	dataLoginEmail = "email"

	msgLoginFirst   = "🔑 Please log in first with /login."
	msgGenericError = "❌ Something went wrong. Please try again later."
)

func (c *Controller) handleStart(ctx context.Context, m messenger, update *models.Update) {
	if update.Message == nil {
		return
	}
	key := chatKey(update.Message.Chat.ID)

	text := "👋 Welcome to the LTRC Online Platform!\n\n" +
		"Book a one-hour session with the Language Teaching and Research Centre.\n\n" +
		"/login - Log in with your LTRC account\n" +
		"/book - Book an appointment\n" +
		"/mybookings - Your upcoming appointments\n" +
		"/help - Help"
	if _, ok := c.states.GetBinding(key); ok {
		text += "\n\n✅ You are logged in."
	}

	c.sendMessage(ctx, m, update.Message.Chat.ID, text)
}

func (c *Controller) handleHelp(ctx context.Context, m messenger, update *models.Update) {
	if update.Message == nil {
		return
	}

	helpText := "📚 Commands:\n\n" +
		"/login - Log in (accounts are created on the website)\n" +
		"/book - Pick a day, a time and a topic\n" +
		"/mybookings - Appointments from today on\n" +
		"/cancel - Cancel the current action\n" +
		"/logout - Log out"

	c.sendMessage(ctx, m, update.Message.Chat.ID, helpText)
}

func (c *Controller) handleLogin(ctx context.Context, m messenger, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	key := chatKey(chatID)

	if _, ok := c.states.GetBinding(key); ok {
		c.sendMessage(ctx, m, chatID, "✅ You are already logged in. Use /logout to switch accounts.")
		return
	}

	c.states.ClearDialog(key)
	c.states.SetState(key, state.StateLoginEmail)
	c.sendMessage(ctx, m, chatID, "📧 Send the email address of your LTRC account.\n\n/cancel to stop.")
}

func (c *Controller) handleLogout(ctx context.Context, m messenger, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	key := chatKey(chatID)

	b, ok := c.states.GetBinding(key)
	if !ok {
		c.sendMessage(ctx, m, chatID, "You are not logged in.")
		return
	}

	// forget first so the sign-out event does not notify this chat again
	c.states.Forget(key)
	if err := c.auth.SignOut(ctx, b.Token); err != nil {
		c.logger.Warn("Sign-out failed",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
	c.sendMessage(ctx, m, chatID, "👋 You have been logged out.")
}

func (c *Controller) handleCancel(ctx context.Context, m messenger, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	key := chatKey(chatID)

	draft := c.states.Draft(key).State()
	if c.states.GetState(key) == state.StateNone && draft.Date.IsZero() && draft.Time == "" && !draft.Topic.Valid() {
		c.sendMessage(ctx, m, chatID, "❌ Nothing to cancel.")
		return
	}

	c.states.ClearDialog(key)
	c.states.ResetDraft(key)
	c.sendMessage(ctx, m, chatID, "✅ Cancelled.\n\nUse /help to see the available commands.")
}

// handleTextMessage routes free text to the open dialog, if any.
func (c *Controller) handleTextMessage(ctx context.Context, m messenger, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	// commands have their own handlers
	if strings.HasPrefix(update.Message.Text, "/") {
		return
	}

	key := chatKey(update.Message.Chat.ID)
	switch current := c.states.GetState(key); current {
	case state.StateNone:
		return
	case state.StateLoginEmail:
		c.handleLoginEmailStep(ctx, m, update)
	case state.StateLoginPassword:
		c.handleLoginPasswordStep(ctx, m, update)
	case state.StateBookingNotes:
		c.handleNotesStep(ctx, m, update)
	default:
		c.logger.Warn("Unknown state", zap.String("state", string(current)))
	}
}

func (c *Controller) handleLoginEmailStep(ctx context.Context, m messenger, update *models.Update) {
	chatID := update.Message.Chat.ID
	key := chatKey(chatID)

	c.states.SetData(key, dataLoginEmail, strings.TrimSpace(update.Message.Text))
	c.states.SetState(key, state.StateLoginPassword)
	c.sendMessage(ctx, m, chatID, "🔒 Now send your password. The message is deleted right after.")
}

func (c *Controller) handleLoginPasswordStep(ctx context.Context, m messenger, update *models.Update) {
	chatID := update.Message.Chat.ID
	key := chatKey(chatID)

	if _, err := m.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: update.Message.ID,
	}); err != nil {
		c.logger.Warn("Failed to delete password message", zap.Int64("chat_id", chatID), zap.Error(err))
	}

	raw, _ := c.states.GetData(key, dataLoginEmail)
	email, _ := raw.(string)
	c.states.ClearDialog(key)

	signed, err := c.auth.SignIn(ctx, email, update.Message.Text)
	if c.metrics != nil {
		c.metrics.ObserveSignIn(err)
	}
	if err != nil {
		var ae *identity.AuthError
		if errors.As(err, &ae) {
			c.sendMessage(ctx, m, chatID, "❌ "+ae.Message()+"\n\nTry again with /login.")
			return
		}
		c.logger.Error("Sign-in failed", zap.Int64("chat_id", chatID), zap.Error(err))
		c.sendMessage(ctx, m, chatID, msgGenericError)
		return
	}

	c.states.Bind(key, state.Binding{
		UID:       signed.Identity.UID,
		SessionID: signed.Identity.SessionID,
		Token:     signed.Token,
	})
	c.logger.Info("Chat signed in",
		zap.Int64("chat_id", chatID),
		zap.String("uid", signed.Identity.UID),
	)
	c.sendMessage(ctx, m, chatID, "✅ Logged in as "+signed.Identity.Email+".\n\nUse /book to book an appointment.")
}

func (c *Controller) handleMyBookings(ctx context.Context, m messenger, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	who, ok := c.requireIdentity(ctx, m, chatID)
	if !ok {
		return
	}

	upcoming, err := c.engine.ListUpcoming(ctx, who)
	if err != nil {
		c.logger.Error("Failed to list upcoming meetings", zap.String("uid", who.UID), zap.Error(err))
		c.sendMessage(ctx, m, chatID, "❌ Failed to load your bookings. Please try again later.")
		return
	}
	c.sendMessage(ctx, m, chatID, formatUpcoming(upcoming))
	c.sendWeekAgenda(ctx, m, chatID, upcoming)
}

// sendWeekAgenda sends a picture of the current week when it has
// appointments.
func (c *Controller) sendWeekAgenda(ctx context.Context, m messenger, chatID int64, upcoming []*model.Meeting) {
	today := c.engine.Today()
	week := agenda.Week(today)
	if agenda.InWeek(week, upcoming) == 0 {
		return
	}

	image, err := agenda.Render(week, today, upcoming)
	if err != nil {
		c.logger.Warn("Failed to render week agenda", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	if _, err := m.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:  chatID,
		Photo:   &models.InputFileUpload{Filename: "week.png", Data: bytes.NewReader(image)},
		Caption: "🗓 This week",
	}); err != nil {
		c.logger.Error("Failed to send week agenda", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// currentIdentity resolves the chat's binding. A chat without a binding
// yields nil, nil; a dead session is forgotten and reported as an error.
func (c *Controller) currentIdentity(ctx context.Context, key string) (*identity.Identity, error) {
	b, ok := c.states.GetBinding(key)
	if !ok {
		return nil, nil
	}
	who, err := c.auth.Authenticate(ctx, b.Token)
	if err != nil {
		var ae *identity.AuthError
		if errors.As(err, &ae) {
			c.states.Forget(key)
		}
		return nil, err
	}
	return who, nil
}

// requireIdentity is currentIdentity for commands: it answers the chat
// itself when there is no usable session.
func (c *Controller) requireIdentity(ctx context.Context, m messenger, chatID int64) (*identity.Identity, bool) {
	who, err := c.currentIdentity(ctx, chatKey(chatID))
	if err != nil {
		var ae *identity.AuthError
		if errors.As(err, &ae) {
			c.sendMessage(ctx, m, chatID, "🔒 "+ae.Message()+"\n\nUse /login.")
			return nil, false
		}
		c.logger.Error("Failed to resolve chat identity", zap.Int64("chat_id", chatID), zap.Error(err))
		c.sendMessage(ctx, m, chatID, msgGenericError)
		return nil, false
	}
	if who == nil {
		c.sendMessage(ctx, m, chatID, msgLoginFirst)
		return nil, false
	}
	return who, true
}

// sendMessage sends text and logs a failed delivery.
func (c *Controller) sendMessage(ctx context.Context, m messenger, chatID int64, text string) {
	c.send(ctx, m, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
}

func (c *Controller) send(ctx context.Context, m messenger, params *bot.SendMessageParams) {
	if _, err := m.SendMessage(ctx, params); err != nil {
		c.logger.Error("Failed to send message",
			zap.Any("chat_id", params.ChatID),
			zap.Error(err),
		)
	}
}
