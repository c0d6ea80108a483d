package telegram

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/ltrc_platform/internal/booking"
	"github.com/Freeeeeet/ltrc_platform/internal/controller/state"
	"github.com/Freeeeeet/ltrc_platform/internal/identity"
	"github.com/Freeeeeet/ltrc_platform/internal/metrics"
)

const (
	chatKeyPrefix = "tg:"
	notifyTimeout = 10 * time.Second
)

// Auth is the identity provider as seen by the bot.
type Auth interface {
	SignIn(ctx context.Context, email, password string) (*identity.SignedIn, error)
	SignOut(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*identity.Identity, error)
	Observe(fn func(identity.SessionEvent)) (unsubscribe func())
}

// messenger is the subset of the Bot API the handlers call. *bot.Bot
// implements it.
type messenger interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
}

type handlerFunc func(ctx context.Context, m messenger, update *models.Update)

// Controller runs the student booking flow in Telegram chats.
type Controller struct {
	bot     *bot.Bot
	out     messenger
	auth    Auth
	engine  *booking.Engine
	states  *state.Manager
	metrics *metrics.Metrics
	logger  *zap.Logger

	mu          sync.Mutex
	unsubscribe func()
}

func NewController(b *bot.Bot, auth Auth, engine *booking.Engine, m *metrics.Metrics, logger *zap.Logger) *Controller {
	return &Controller{
		bot:     b,
		out:     b,
		auth:    auth,
		engine:  engine,
		states:  state.NewManager(),
		metrics: m,
		logger:  logger,
	}
}

func chatKey(chatID int64) string {
	return chatKeyPrefix + strconv.FormatInt(chatID, 10)
}

func chatIDFromKey(key string) (int64, bool) {
	raw, ok := strings.CutPrefix(key, chatKeyPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	return id, err == nil
}

func (c *Controller) adapt(h handlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		h(ctx, b, update)
	}
}

// RegisterHandlers wires commands, dialog text and inline buttons.
func (c *Controller) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.adapt(c.handleStart))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.adapt(c.handleHelp))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/login", bot.MatchTypeExact, c.adapt(c.handleLogin))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/logout", bot.MatchTypeExact, c.adapt(c.handleLogout))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/book", bot.MatchTypeExact, c.adapt(c.handleBook))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/mybookings", bot.MatchTypeExact, c.adapt(c.handleMyBookings))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypeExact, c.adapt(c.handleCancel))

	// dialog input
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, c.adapt(c.handleTextMessage))

	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, c.adapt(c.handleCallbackQuery))

	return c.setCommands(ctx)
}

func (c *Controller) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Start"},
		{Command: "login", Description: "🔑 Log in with your LTRC account"},
		{Command: "book", Description: "📅 Book an appointment"},
		{Command: "mybookings", Description: "🗓 My upcoming appointments"},
		{Command: "cancel", Description: "❌ Cancel the current action"},
		{Command: "logout", Description: "🚪 Log out"},
		{Command: "help", Description: "❓ Help"},
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

// Start subscribes to session changes and polls for updates until ctx is
// done.
func (c *Controller) Start(ctx context.Context) {
	c.subscribe()
	defer c.Stop()

	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
	c.logger.Info("Bot stopped")
}

func (c *Controller) subscribe() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unsubscribe == nil {
		c.unsubscribe = c.auth.Observe(c.onSessionEvent)
	}
}

// Stop unsubscribes from session changes. Safe to call more than once.
func (c *Controller) Stop() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// onSessionEvent drops chats bound to a session that just ended and tells
// them. It can run inside a web request, so delivery happens off the
// caller's goroutine.
func (c *Controller) onSessionEvent(ev identity.SessionEvent) {
	if ev.Identity != nil {
		return
	}
	keys := c.states.ForgetSession(ev.SessionID)
	if len(keys) == 0 {
		return
	}
	go c.notifySignedOut(keys)
}

func (c *Controller) notifySignedOut(keys []string) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	for _, key := range keys {
		chatID, ok := chatIDFromKey(key)
		if !ok {
			continue
		}
		c.sendMessage(ctx, c.out, chatID, "🔒 You have been logged out. Use /login to sign in again.")
	}
}
