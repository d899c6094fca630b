package chat

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/opencode-ai/sessionbridge/internal/permission"
	"github.com/opencode-ai/sessionbridge/internal/session"
)

// permissionKeyboard builds the approval keyboard for one pending tool
// call (§4.9 callback-data schema: perm:{allow|always|accept_edits|
// reject}). Edit tools get "Accept Edits" in place of "Always", mirroring
// the source's create_permission_keyboard.
func permissionKeyboard(toolName string) tgbotapi.InlineKeyboardMarkup {
	if permission.IsEditTool(toolName) {
		return tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✓ Allow", "perm:allow"),
				tgbotapi.NewInlineKeyboardButtonData("📝 Accept Edits", "perm:accept_edits"),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✗ Reject", "perm:reject"),
			),
		)
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✓ Allow", "perm:allow"),
			tgbotapi.NewInlineKeyboardButtonData("✓ Always", "perm:always"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✗ Reject", "perm:reject"),
		),
	)
}

// questionKeyboard builds the option keyboard for one step of a
// multi-step AskUserQuestion form (callback-data: q:<q_idx>:<opt_idx|
// "other">).
func questionKeyboard(qIdx int, options []string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(options)+1)
	for i, opt := range options {
		data := questionCallbackData(qIdx, i)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(opt, data)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Other (type answer)", questionOtherCallbackData(qIdx)),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

var modeChoices = []struct {
	id    session.Mode
	label string
}{
	{session.ModeDefault, "🔒 Default"},
	{session.ModeAcceptEdits, "📝 Accept Edits"},
	{session.ModePlan, "📋 Plan Mode"},
	{session.ModeBypass, "⚠️ Dangerous"},
}

// modeKeyboard builds the /mode selection keyboard, marking the current
// mode.
func modeKeyboard(current session.Mode) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(modeChoices))
	for _, m := range modeChoices {
		label := m.label
		if m.id == current {
			label = "• " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "mode:"+string(m.id)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

var modelChoices = []struct {
	id, label, desc string
}{
	{"sonnet", "⚡ Sonnet", "Fast, balanced"},
	{"opus", "🧠 Opus", "Most capable"},
	{"haiku", "🚀 Haiku", "Fastest, lightweight"},
}

// modelKeyboard builds the /model selection keyboard, marking the
// currently selected model by substring match (model ids are free-form
// strings the agent reports, e.g. "claude-sonnet-4-5").
func modelKeyboard(current string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(modelChoices))
	for _, m := range modelChoices {
		display := m.label
		if current != "" && containsFold(current, m.id) {
			display = "• " + display
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(display+" - "+m.desc, "model:"+m.id),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func containsFold(haystack, needle string) bool {
	h, n := []rune(haystack), []rune(needle)
	toLower := func(rs []rune) []rune {
		out := make([]rune, len(rs))
		for i, r := range rs {
			if r >= 'A' && r <= 'Z' {
				r += 'a' - 'A'
			}
			out[i] = r
		}
		return out
	}
	h, n = toLower(h), toLower(n)
	if len(n) == 0 || len(n) > len(h) {
		return len(n) == 0
	}
	for i := 0; i+len(n) <= len(h); i++ {
		if string(h[i:i+len(n)]) == string(n) {
			return true
		}
	}
	return false
}
