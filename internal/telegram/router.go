package telegram

import (
	"context"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/deadman/internal/account"
)

// Pending state keys used in conversational flows.
const (
	pendingInterval     = "await_interval_text"
	pendingTZ           = "await_tz_text"
	pendingCheckinTime  = "await_checkin_time_text"
	pendingName         = "await_display_name_text"
	pendingContactName  = "await_contact_name"
	pendingContactEmail = "await_contact_email"
)

// Sender is the part of *tgbotapi.BotAPI the router talks to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// pending is the in-flight conversation of one chat.
type pending struct {
	step        string
	contactName string
}

// Router wires Telegram updates to account flows and holds minimal in-memory state.
type Router struct {
	bot      Sender
	log      *zap.Logger
	accounts *account.Service
	state    map[int64]pending // chatID -> pending state
	mu       sync.RWMutex
}

// NewRouter creates a new Telegram router.
func NewRouter(bot Sender, log *zap.Logger, accounts *account.Service) *Router {
	return &Router{
		bot:      bot,
		log:      log,
		accounts: accounts,
		state:    make(map[int64]pending),
	}
}

// UserID maps a Telegram chat to the user id stored in profiles.
func UserID(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

func (r *Router) setPending(chatID int64, p pending) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[chatID] = p
}

func (r *Router) getPending(chatID int64) pending {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state[chatID]
}

func (r *Router) clearPending(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state, chatID)
}

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil && upd.Message.Chat != nil {
		msg := upd.Message
		chatID := msg.Chat.ID
		text := strings.TrimSpace(msg.Text)

		// Any command abandons a half-finished flow.
		if strings.HasPrefix(text, "/") {
			r.clearPending(chatID)
		}

		switch {
		case strings.HasPrefix(text, "/start"):
			r.handleStart(ctx, chatID, msg.From)
		case strings.HasPrefix(text, "/status"):
			r.handleStatus(ctx, chatID)
		case strings.HasPrefix(text, "/checkin"):
			r.handleCheckIn(ctx, chatID)
		case strings.HasPrefix(text, "/settings"):
			r.handleSettings(ctx, chatID)
		case strings.HasPrefix(text, "/contacts"):
			r.handleContacts(ctx, chatID)
		case strings.HasPrefix(text, "/addcontact"):
			r.askContactName(ctx, chatID)
		case strings.HasPrefix(text, "/history"):
			r.handleHistory(ctx, chatID)
		case strings.HasPrefix(text, "/pause"):
			r.handleMonitoring(ctx, chatID, false)
		case strings.HasPrefix(text, "/resume"):
			r.handleMonitoring(ctx, chatID, true)
		case strings.HasPrefix(text, "/cancel"):
			r.sendText(chatID, cancelledText)
		case strings.HasPrefix(text, "/"):
			r.sendText(chatID, unknownCommandText)
		default:
			r.handleFreeForm(ctx, chatID, text)
		}
		return
	}

	if upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil {
		cb := upd.CallbackQuery
		data := cb.Data
		chatID := cb.Message.Chat.ID
		_ = r.answerCallback(cb.ID, "")

		switch {
		case data == "checkin":
			r.handleCheckIn(ctx, chatID)

		case data == "set_interval":
			r.askIntervalPresets(chatID)
		case strings.HasPrefix(data, "interval:"):
			r.handleIntervalCallback(ctx, chatID, strings.TrimPrefix(data, "interval:"))

		case data == "set_tz":
			r.askTZPresets(chatID)
		case strings.HasPrefix(data, "tz:"):
			r.handleTZCallback(ctx, chatID, strings.TrimPrefix(data, "tz:"))

		case data == "set_time":
			r.sendText(chatID, askCheckinTimeText)
			r.setPending(chatID, pending{step: pendingCheckinTime})

		case data == "set_name":
			r.sendText(chatID, askNameText)
			r.setPending(chatID, pending{step: pendingName})

		case data == "add_contact":
			r.askContactName(ctx, chatID)
		case strings.HasPrefix(data, "delcontact:"):
			r.handleDeleteContact(ctx, chatID, strings.TrimPrefix(data, "delcontact:"))

		default:
			// Unknown callback, ignore silently.
		}
	}
}
