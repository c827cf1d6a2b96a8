package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ykvlv/deadman/internal/domain"
)

// UI texts in English
const (
	startText = "👋 I am your dead man's switch.\n\n" +
		"Check in regularly with /checkin. If you stay silent longer than your interval, " +
		"I email your emergency contacts so someone looks after you.\n\n" +
		"Use /settings to choose the interval and timezone, /contacts to manage who gets alerted."
	onboardingText = "You have no emergency contact yet. Nobody can be alerted until you add one."
	noContactsText = "No emergency contacts yet."
	contactsTitle  = "👥 Emergency contacts"
	noHistoryText  = "No check-ins yet. Send /checkin to record your first one."
	historyTitle   = "🗓 Recent check-ins:"

	statusTitle = "🧾 Your status:"
	statusFmt   = "• Status: %s\n• Last check-in: %s\n• Interval: every %s\n• Next due in: %.1fh\n" +
		"• Preferred time: %s\n• TZ: %s\n• Contacts: %d/%d\n• Monitoring: %s\n"

	checkinDoneFmt      = "✅ Check-in recorded: %s"
	askIntervalText     = "Enter interval, e.g.: 24, 12h, 1h30m, 0.5"
	invalidIntervalText = "Invalid interval. Examples: 24, 12h, 1h30m."
	askCheckinTimeText  = "Enter your preferred check-in time as HH:MM (e.g., 09:00):"
	askNameText         = "How should your contacts call you? (max 64 characters)"
	askContactNameText  = "Send the name of your emergency contact:"
	askContactEmailFmt  = "Now send the email address of %s:"
	contactAddedFmt     = "Contact saved: %s <%s>"
	cancelledText       = "Cancelled."
	unknownCommandText  = "Unknown command. Try /status, /checkin, /settings or /contacts."
)

// mainMenuKeyboard builds a reply keyboard; the toggle shows /pause or /resume.
func mainMenuKeyboard(enabled bool) tgbotapi.ReplyKeyboardMarkup {
	toggle := "/pause"
	if !enabled {
		toggle = "/resume"
	}
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/checkin"),
			tgbotapi.NewKeyboardButton("/status"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/contacts"),
			tgbotapi.NewKeyboardButton("/settings"),
			tgbotapi.NewKeyboardButton(toggle),
		),
	)
}

// Inline keyboards
func checkinKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ I'm OK", "checkin"),
		),
	)
}

func settingsInlineKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏲️ Interval", "set_interval"),
			tgbotapi.NewInlineKeyboardButtonData("🕘 Check-in time", "set_time"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌍 Timezone", "set_tz"),
			tgbotapi.NewInlineKeyboardButtonData("📝 Name", "set_name"),
		),
	)
}

func intervalPresetsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("12h", "interval:12h"),
			tgbotapi.NewInlineKeyboardButtonData("24h", "interval:24h"),
			tgbotapi.NewInlineKeyboardButtonData("36h", "interval:36h"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("48h", "interval:48h"),
			tgbotapi.NewInlineKeyboardButtonData("72h", "interval:72h"),
			tgbotapi.NewInlineKeyboardButtonData("✍️ Custom…", "interval:custom"),
		),
	)
}

func tzPresetsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Europe/Rome", "tz:Europe/Rome"),
			tgbotapi.NewInlineKeyboardButtonData("Europe/London", "tz:Europe/London"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("America/New_York", "tz:America/New_York"),
			tgbotapi.NewInlineKeyboardButtonData("UTC", "tz:UTC"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✍️ Custom…", "tz:custom"),
		),
	)
}

func addContactKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Add contact", "add_contact"),
		),
	)
}

// contactsKeyboard offers one remove button per contact, plus add while under the cap.
func contactsKeyboard(contacts []domain.EmergencyContact, canAdd bool) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(contacts)+1)
	for _, c := range contacts {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 "+c.Name, "delcontact:"+c.ID),
		))
	}
	if canAdd {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Add contact", "add_contact"),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
