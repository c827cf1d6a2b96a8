package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/deadman/internal/account"
	"github.com/ykvlv/deadman/internal/domain"
)

const historyLimit = 10

// --- Generic helpers ---

func (r *Router) sendText(chatID int64, text string) {
	_, _ = r.bot.Send(tgbotapi.NewMessage(chatID, text))
}

func (r *Router) send(msg tgbotapi.MessageConfig) {
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("telegram send failed", zap.Int64("chatID", msg.ChatID), zap.Error(err))
	}
}

func (r *Router) answerCallback(id, text string) error {
	_, err := r.bot.Request(tgbotapi.NewCallback(id, text))
	return err
}

// replyError shows validation problems verbatim and hides everything else behind fallback.
func (r *Router) replyError(chatID int64, op string, err error, fallback string) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		r.sendText(chatID, "⚠️ "+ve.Message)
		return
	}
	r.log.Error(op+" failed", zap.String("userID", UserID(chatID)), zap.Error(err))
	r.sendText(chatID, fallback)
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64) + "h"
}

// --- Core commands ---

func (r *Router) handleStart(ctx context.Context, chatID int64, from *tgbotapi.User) {
	uid := UserID(chatID)
	p, err := r.accounts.GetOrCreateProfile(ctx, uid)
	if err != nil {
		r.replyError(chatID, "profile init", err, "Profile initialization error. Please try again later.")
		return
	}
	if p.DisplayName == "" && from != nil && strings.TrimSpace(from.FirstName) != "" {
		name := from.FirstName
		if updated, err := r.accounts.UpdateSettings(ctx, uid, domain.ProfileUpdate{DisplayName: &name}); err == nil {
			p = updated
		}
	}

	msg := tgbotapi.NewMessage(chatID, startText)
	msg.ReplyMarkup = mainMenuKeyboard(p.MonitoringEnabled)
	r.send(msg)

	has, err := r.accounts.HasContact(ctx, uid)
	if err != nil {
		r.log.Warn("contact lookup failed", zap.String("userID", uid), zap.Error(err))
		return
	}
	if !has {
		onboarding := tgbotapi.NewMessage(chatID, onboardingText)
		onboarding.ReplyMarkup = addContactKeyboard()
		r.send(onboarding)
	}
}

func (r *Router) handleStatus(ctx context.Context, chatID int64) {
	uid := UserID(chatID)
	if _, err := r.accounts.GetOrCreateProfile(ctx, uid); err != nil {
		r.replyError(chatID, "profile init", err, "Error reading your status.")
		return
	}
	v, err := r.accounts.Status(ctx, uid)
	if err != nil {
		r.replyError(chatID, "status", err, "Error reading your status.")
		return
	}

	monitoring := "✅ Active"
	if !v.MonitoringEnabled {
		monitoring = "⏸ Paused"
	}
	body := fmt.Sprintf("%s\n\n"+statusFmt,
		statusTitle,
		statusLabel(v.Status),
		domain.FormatCheckinDate(v.LastCheckinAt, v.Timezone),
		formatHours(v.CheckinIntervalHours),
		v.HoursUntilNext,
		v.CheckinTime,
		v.Timezone,
		v.ContactCount, v.ContactLimit,
		monitoring,
	)

	msg := tgbotapi.NewMessage(chatID, body)
	if v.CanCheckIn {
		msg.ReplyMarkup = checkinKeyboard()
	} else {
		msg.ReplyMarkup = mainMenuKeyboard(v.MonitoringEnabled)
	}
	r.send(msg)
}

func (r *Router) handleCheckIn(ctx context.Context, chatID int64) {
	uid := UserID(chatID)
	p, err := r.accounts.GetOrCreateProfile(ctx, uid)
	if err != nil {
		r.replyError(chatID, "profile init", err, "Could not record your check-in.")
		return
	}
	ci, err := r.accounts.CheckIn(ctx, uid)
	if err != nil {
		r.replyError(chatID, "check-in", err, "Could not record your check-in.")
		return
	}
	r.sendText(chatID, fmt.Sprintf(checkinDoneFmt, domain.FormatCheckinDate(&ci.CheckinAt, p.Timezone)))
}

func (r *Router) handleSettings(ctx context.Context, chatID int64) {
	if _, err := r.accounts.GetOrCreateProfile(ctx, UserID(chatID)); err != nil {
		r.replyError(chatID, "profile init", err, "Error opening settings.")
		return
	}
	msg := tgbotapi.NewMessage(chatID, "What do you want to configure?")
	msg.ReplyMarkup = settingsInlineKeyboard()
	r.send(msg)
}

func (r *Router) handleHistory(ctx context.Context, chatID int64) {
	uid := UserID(chatID)
	p, err := r.accounts.GetOrCreateProfile(ctx, uid)
	if err != nil {
		r.replyError(chatID, "profile init", err, "Error reading your history.")
		return
	}
	items, err := r.accounts.History(ctx, uid, historyLimit)
	if err != nil {
		r.replyError(chatID, "history", err, "Error reading your history.")
		return
	}
	if len(items) == 0 {
		r.sendText(chatID, noHistoryText)
		return
	}
	var b strings.Builder
	b.WriteString(historyTitle)
	for _, ci := range items {
		b.WriteString("\n• ")
		b.WriteString(domain.FormatCheckinDate(&ci.CheckinAt, p.Timezone))
	}
	r.sendText(chatID, b.String())
}

// --- Pause / Resume ---

func (r *Router) handleMonitoring(ctx context.Context, chatID int64, enabled bool) {
	if _, err := r.accounts.SetMonitoring(ctx, UserID(chatID), enabled); err != nil {
		r.replyError(chatID, "set monitoring", err, "Failed to update monitoring.")
		return
	}
	text := "Monitoring paused ⏸\nYour contacts will not be alerted until you /resume."
	if enabled {
		text = "Monitoring resumed ✅"
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = mainMenuKeyboard(enabled)
	r.send(msg)
}

// --- Interval flow ---

func (r *Router) askIntervalPresets(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "How often should you check in? (or Custom to enter your own)")
	msg.ReplyMarkup = intervalPresetsKeyboard()
	r.send(msg)
}

func (r *Router) handleIntervalCallback(ctx context.Context, chatID int64, val string) {
	if val == "custom" {
		r.sendText(chatID, askIntervalText)
		r.setPending(chatID, pending{step: pendingInterval})
		return
	}
	r.updateInterval(ctx, chatID, val)
}

func (r *Router) updateInterval(ctx context.Context, chatID int64, raw string) {
	h, err := domain.ParseIntervalHours(raw)
	if err != nil {
		// Unparseable input is not a ValidationError; out-of-range values are.
		if domain.IsValidation(err) {
			r.replyError(chatID, "update interval", err, invalidIntervalText)
		} else {
			r.sendText(chatID, invalidIntervalText)
		}
		return
	}
	p, err := r.accounts.UpdateSettings(ctx, UserID(chatID), domain.ProfileUpdate{CheckinIntervalHours: &h})
	if err != nil {
		r.replyError(chatID, "update interval", err, "Could not save interval.")
		return
	}
	r.sendText(chatID, "Interval updated: every "+formatHours(p.CheckinIntervalHours))
}

// --- Timezone flow ---

func (r *Router) askTZPresets(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "Choose a timezone or enter your own (Region/City):")
	msg.ReplyMarkup = tzPresetsKeyboard()
	r.send(msg)
}

func (r *Router) handleTZCallback(ctx context.Context, chatID int64, val string) {
	if val == "custom" {
		r.sendText(chatID, "Enter timezone (e.g., Europe/Rome):")
		r.setPending(chatID, pending{step: pendingTZ})
		return
	}
	r.updateTZ(ctx, chatID, val)
}

func (r *Router) updateTZ(ctx context.Context, chatID int64, tz string) {
	p, err := r.accounts.UpdateSettings(ctx, UserID(chatID), domain.ProfileUpdate{Timezone: &tz})
	if err != nil {
		r.replyError(chatID, "update timezone", err, "Could not save timezone.")
		return
	}
	r.sendText(chatID, "Timezone updated: "+p.Timezone)
}

// --- Contacts ---

func (r *Router) handleContacts(ctx context.Context, chatID int64) {
	uid := UserID(chatID)
	p, err := r.accounts.GetOrCreateProfile(ctx, uid)
	if err != nil {
		r.replyError(chatID, "profile init", err, "Error reading your contacts.")
		return
	}
	contacts, err := r.accounts.ListContacts(ctx, uid)
	if err != nil {
		r.replyError(chatID, "list contacts", err, "Error reading your contacts.")
		return
	}
	if len(contacts) == 0 {
		msg := tgbotapi.NewMessage(chatID, noContactsText)
		msg.ReplyMarkup = addContactKeyboard()
		r.send(msg)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d/%d)", contactsTitle, len(contacts), p.ContactLimit())
	for _, c := range contacts {
		fmt.Fprintf(&b, "\n%d. %s <%s>", c.Priority, c.Name, c.Email)
	}
	msg := tgbotapi.NewMessage(chatID, b.String())
	msg.ReplyMarkup = contactsKeyboard(contacts, len(contacts) < p.ContactLimit())
	r.send(msg)
}

func (r *Router) askContactName(ctx context.Context, chatID int64) {
	uid := UserID(chatID)
	if _, err := r.accounts.GetOrCreateProfile(ctx, uid); err != nil {
		r.replyError(chatID, "profile init", err, "Could not start adding a contact.")
		return
	}
	v, err := r.accounts.Status(ctx, uid)
	if err != nil {
		r.replyError(chatID, "status", err, "Could not start adding a contact.")
		return
	}
	if v.ContactCount >= v.ContactLimit {
		r.sendText(chatID, "⚠️ "+domain.ContactLimitError(v.IsPremium).Message)
		return
	}
	r.sendText(chatID, askContactNameText)
	r.setPending(chatID, pending{step: pendingContactName})
}

func (r *Router) addContact(ctx context.Context, chatID int64, name, email string) {
	c, err := r.accounts.AddContact(ctx, UserID(chatID), domain.NewContact{Name: name, Email: email})
	if err != nil {
		r.replyError(chatID, "add contact", err, "Could not save the contact.")
		return
	}
	r.sendText(chatID, fmt.Sprintf(contactAddedFmt, c.Name, c.Email))
}

func (r *Router) handleDeleteContact(ctx context.Context, chatID int64, contactID string) {
	if err := r.accounts.DeleteContact(ctx, UserID(chatID), contactID); err != nil {
		if account.IsNotFound(err) {
			r.sendText(chatID, "That contact no longer exists.")
			return
		}
		r.replyError(chatID, "delete contact", err, "Could not remove the contact.")
		return
	}
	r.sendText(chatID, "Contact removed.")
}

// --- Free-form dispatcher (for all text inputs) ---

func (r *Router) handleFreeForm(ctx context.Context, chatID int64, text string) {
	p := r.getPending(chatID)
	switch p.step {
	case pendingInterval:
		r.clearPending(chatID)
		r.updateInterval(ctx, chatID, text)

	case pendingTZ:
		r.clearPending(chatID)
		r.updateTZ(ctx, chatID, text)

	case pendingCheckinTime:
		r.clearPending(chatID)
		got, err := r.accounts.UpdateSettings(ctx, UserID(chatID), domain.ProfileUpdate{CheckinTime: &text})
		if err != nil {
			r.replyError(chatID, "update checkin time", err, "Could not save check-in time.")
			return
		}
		r.sendText(chatID, "Preferred check-in time updated: "+got.CheckinTime)

	case pendingName:
		r.clearPending(chatID)
		got, err := r.accounts.UpdateSettings(ctx, UserID(chatID), domain.ProfileUpdate{DisplayName: &text})
		if err != nil {
			r.replyError(chatID, "update display name", err, "Could not save your name.")
			return
		}
		r.sendText(chatID, "Your contacts will see you as: "+got.DisplayName)

	case pendingContactName:
		if text == "" {
			r.sendText(chatID, askContactNameText)
			return
		}
		r.setPending(chatID, pending{step: pendingContactEmail, contactName: text})
		r.sendText(chatID, fmt.Sprintf(askContactEmailFmt, text))

	case pendingContactEmail:
		r.clearPending(chatID)
		r.addContact(ctx, chatID, p.contactName, text)

	default:
		// No pending flow: ignore free-form message
	}
}

func statusLabel(s domain.Status) string {
	switch s {
	case domain.StatusOK:
		return "🟢 OK"
	case domain.StatusWarning:
		return "🟡 Check in soon"
	case domain.StatusCritical:
		return "🔴 Overdue"
	case domain.StatusPaused:
		return "⏸ Paused"
	}
	return string(s)
}
