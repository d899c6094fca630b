package chat

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/opencode-ai/sessionbridge/internal/agent"
	"github.com/opencode-ai/sessionbridge/internal/frontend"
	"github.com/opencode-ai/sessionbridge/internal/logging"
	"github.com/opencode-ai/sessionbridge/internal/permission"
	"github.com/opencode-ai/sessionbridge/internal/reload"
	"github.com/opencode-ai/sessionbridge/internal/session"
	"github.com/opencode-ai/sessionbridge/internal/sharing"
	"github.com/opencode-ai/sessionbridge/internal/teleport"
)

// chatMessageLimit is the chat SDK's message length cap (§6).
const chatMessageLimit = 4096

// toolHandleSep separates a tool-call message's id from its rendered
// text inside a frontend.ToolCallHandle, so SendToolResult can append
// to (rather than replace) the original content when editing in place.
const toolHandleSep = "\x00"

// Bot is the Telegram implementation of frontend.Frontend and the
// owner of the per-session turn loop (§4.9).
type Bot struct {
	api            *tgbotapi.BotAPI
	operatorChatID string

	manager     *session.Manager
	coordinator *permission.Coordinator
	adapter     *agent.Adapter
	teleport    *teleport.Controller
	reload      *reload.Coordinator
	setup       *sharing.Registry
	processCWD  string

	statusMu  sync.Mutex
	statusMsg map[string]int // chat identity -> pinned status message id
}

// NewBot constructs a Bot around an authenticated Telegram client and
// the already-wired core components.
func NewBot(
	api *tgbotapi.BotAPI,
	operatorChatID string,
	manager *session.Manager,
	coordinator *permission.Coordinator,
	adapter *agent.Adapter,
	tc *teleport.Controller,
	rc *reload.Coordinator,
	setup *sharing.Registry,
	processCWD string,
) *Bot {
	return &Bot{
		api:            api,
		operatorChatID: operatorChatID,
		manager:        manager,
		coordinator:    coordinator,
		adapter:        adapter,
		teleport:       tc,
		reload:         rc,
		setup:          setup,
		processCWD:     processCWD,
		statusMsg:      make(map[string]int),
	}
}

var _ frontend.Frontend = (*Bot)(nil)

// SetCoordinator and SetTeleport resolve the construction cycle between
// the Bot and the components that need the Bot as their frontend.Frontend:
// the caller builds the Bot first (with these left nil), then builds the
// coordinator/controller around it, then wires them back in before
// calling Run.
func (b *Bot) SetCoordinator(c *permission.Coordinator) { b.coordinator = c }
func (b *Bot) SetTeleport(tc *teleport.Controller)      { b.teleport = tc }

// Run starts the long-polling update loop (§4.9 expansion: long polling
// via go-telegram-bot-api, not webhooks, matching the single-operator
// deployment). It blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// handleUpdate dispatches one update on its own goroutine. This is
// required, not incidental: a permission wait blocks inside a message
// update's turn loop on the session's pending-permission signal, and
// that signal is only produced by a later callback-query update's
// button press. §5 is explicit that callback handling must run
// concurrently with, not after, such a pending wait — a synchronous
// one-update-at-a-time loop would deadlock the first permission
// request it ever saw.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		go b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		go b.handleCallback(ctx, update.CallbackQuery)
	}
}

// authorized reports whether a chat id matches the single configured
// operator identity (§1 Non-goal: single operator, one authorized
// remote identity).
func (b *Bot) authorized(chatID int64) bool {
	return strconv.FormatInt(chatID, 10) == b.operatorChatID
}

func chatIdentity(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

func parseChatIdentity(identity string) (int64, error) {
	return strconv.ParseInt(identity, 10, 64)
}

// --- frontend.Frontend -------------------------------------------------

// SendText implements frontend.Frontend. Long text is split on line
// boundaries into consecutive sends; only the last chunk of a final
// text event plays a notification sound (§6, §4.9 rendering rules).
func (b *Bot) SendText(ctx context.Context, chatIdent, text string, final bool) error {
	chatID, err := parseChatIdentity(chatIdent)
	if err != nil {
		return err
	}
	html := agent.TranslateMarkup(text)
	chunks := splitMessage(html, chatMessageLimit)
	for i, chunk := range chunks {
		silent := !(final && i == len(chunks)-1)
		msg := tgbotapi.NewMessage(chatID, chunk)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableNotification = silent
		if _, err := b.api.Send(msg); err != nil {
			_ = b.sendPlainFallback(chatID, chunk, silent, err)
		}
	}
	return nil
}

// sendPlainFallback strips markup and retries as plain text when an
// HTML send fails (§7: "HTML send failure falls back to a tag-stripped
// plain-text send; double failure is logged and swallowed").
func (b *Bot) sendPlainFallback(chatID int64, chunk string, silent bool, origErr error) error {
	plain := stripTags(chunk)
	msg := tgbotapi.NewMessage(chatID, plain)
	msg.DisableNotification = silent
	if _, err := b.api.Send(msg); err != nil {
		logging.Warn().Err(err).Str("original_error", origErr.Error()).Msg("chat send failed twice, swallowing")
		return nil
	}
	return nil
}

// SendToolCall implements frontend.Frontend: tool calls render as a
// single, silent message.
func (b *Bot) SendToolCall(ctx context.Context, chatIdent, toolName string, input map[string]any) (frontend.ToolCallHandle, error) {
	chatID, err := parseChatIdentity(chatIdent)
	if err != nil {
		return "", err
	}
	text, ok := agent.RenderToolCall(toolName, input)
	if !ok {
		return "", nil
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableNotification = true
	sent, err := b.api.Send(msg)
	if err != nil {
		return "", err
	}
	return frontend.ToolCallHandle(strconv.Itoa(sent.MessageID) + toolHandleSep + text), nil
}

// SendToolResult implements frontend.Frontend: edits the tool-call
// message to append the result, or sends standalone if no handle was
// recorded (e.g. after a reload).
func (b *Bot) SendToolResult(ctx context.Context, chatIdent string, handle frontend.ToolCallHandle, result string, isError bool) error {
	rendered := agent.RenderToolResult(result, isError)
	if rendered == "" {
		return nil
	}
	chatID, err := parseChatIdentity(chatIdent)
	if err != nil {
		return err
	}

	msgID, original, ok := decodeToolHandle(handle)
	if !ok {
		msg := tgbotapi.NewMessage(chatID, rendered)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableNotification = true
		_, err := b.api.Send(msg)
		return err
	}

	combined := original + "\n" + rendered
	edit := tgbotapi.NewEditMessageText(chatID, msgID, combined)
	edit.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(edit)
	return err
}

// RequestPermission implements frontend.Frontend: shows the approval
// keyboard, with notification sound enabled.
func (b *Bot) RequestPermission(ctx context.Context, chatIdent string, p frontend.PermissionPrompt) error {
	chatID, err := parseChatIdentity(chatIdent)
	if err != nil {
		return err
	}
	text, ok := agent.RenderToolCall(p.ToolName, p.Input)
	if !ok {
		text = fmt.Sprintf("🔧 <b>%s</b>", p.ToolName)
	}
	msg := tgbotapi.NewMessage(chatID, text+"\n\nApprove this action?")
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = permissionKeyboard(p.ToolName)
	_, err = b.api.Send(msg)
	return err
}

// RequestQuestion implements frontend.Frontend: shows one step of a
// multi-step question form, with notification sound enabled.
func (b *Bot) RequestQuestion(ctx context.Context, chatIdent string, q frontend.QuestionPrompt) error {
	chatID, err := parseChatIdentity(chatIdent)
	if err != nil {
		return err
	}
	text := q.Question
	if q.Total > 1 {
		text = fmt.Sprintf("(%d/%d) %s", q.Index+1, q.Total, q.Question)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = questionKeyboard(q.Index, q.Options)
	_, err = b.api.Send(msg)
	return err
}

// UpdateStatus implements frontend.Frontend: edits the pinned status
// message in place, or sends and pins it on first call.
func (b *Bot) UpdateStatus(ctx context.Context, chatIdent string, snap frontend.StatusSnapshot) error {
	chatID, err := parseChatIdentity(chatIdent)
	if err != nil {
		return err
	}
	text := renderStatus(snap)

	b.statusMu.Lock()
	msgID, exists := b.statusMsg[chatIdent]
	b.statusMu.Unlock()

	if exists {
		edit := tgbotapi.NewEditMessageText(chatID, msgID, text)
		edit.ParseMode = tgbotapi.ModeHTML
		if _, err := b.api.Send(edit); err != nil {
			return err
		}
		return nil
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableNotification = true
	sent, err := b.api.Send(msg)
	if err != nil {
		return err
	}
	b.statusMu.Lock()
	b.statusMsg[chatIdent] = sent.MessageID
	b.statusMu.Unlock()

	_, _ = b.api.Request(tgbotapi.PinChatMessageConfig{
		ChatID:              chatID,
		MessageID:           sent.MessageID,
		DisableNotification: true,
	})
	return nil
}

// NotifyTeleport implements frontend.Frontend: a sounded notice.
func (b *Bot) NotifyTeleport(ctx context.Context, chatIdent, text string) error {
	chatID, err := parseChatIdentity(chatIdent)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	_, err = b.api.Send(msg)
	return err
}

func decodeToolHandle(h frontend.ToolCallHandle) (msgID int, original string, ok bool) {
	s := string(h)
	if s == "" {
		return 0, "", false
	}
	idx := strings.Index(s, toolHandleSep)
	if idx < 0 {
		return 0, "", false
	}
	id, err := strconv.Atoi(s[:idx])
	if err != nil {
		return 0, "", false
	}
	return id, s[idx+len(toolHandleSep):], true
}

func renderStatus(s frontend.StatusSnapshot) string {
	var b strings.Builder
	b.WriteString("<b>Session status</b>\n")
	fmt.Fprintf(&b, "Mode: <code>%s</code>\n", s.Mode)
	fmt.Fprintf(&b, "Model: <code>%s</code>\n", s.Model)
	fmt.Fprintf(&b, "Context used: %d%%\n", s.ContextPercentUse)
	fmt.Fprintf(&b, "Cost so far: $%.4f", s.TotalCostUSD)
	if s.PendingTeleport != "" {
		fmt.Fprintf(&b, "\nPending teleport: %s", s.PendingTeleport)
	}
	return b.String()
}
