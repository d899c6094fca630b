package chat

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/opencode-ai/sessionbridge/internal/frontend"
	"github.com/opencode-ai/sessionbridge/internal/logging"
	"github.com/opencode-ai/sessionbridge/internal/session"
)

// handleMessage dispatches one incoming chat message: commands,
// `/link <token>` (the one command usable before authorization, since
// it's how authorization itself gets established via the setup
// wizard's rendezvous), or plain text resolved per the flag-bit
// priority of §5 (rejection reason, then question answer, then query).
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if cmd, arg, ok := parseCommand(text); ok && cmd == "link" {
		b.handleLink(ctx, msg.Chat.ID, arg)
		return
	}

	if !b.authorized(msg.Chat.ID) {
		return
	}
	chatIdent := chatIdentity(msg.Chat.ID)

	if cmd, arg, ok := parseCommand(text); ok {
		b.dispatchCommand(ctx, chatIdent, cmd, arg)
		return
	}

	b.handlePlainText(ctx, chatIdent, text)
}

func parseCommand(text string) (cmd, arg string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	fields := strings.SplitN(text[1:], " ", 2)
	cmd = strings.ToLower(fields[0])
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i] // strip "@botname" suffix some clients add
	}
	if len(fields) > 1 {
		arg = strings.TrimSpace(fields[1])
	}
	return cmd, arg, true
}

func (b *Bot) handleLink(ctx context.Context, chatID int64, token string) {
	if token == "" {
		return
	}
	if b.setup.Complete(token, chatIdentity(chatID)) {
		msg := tgbotapi.NewMessage(chatID, "✅ Linked. You can close the setup wizard now.")
		_, _ = b.api.Send(msg)
		return
	}
	msg := tgbotapi.NewMessage(chatID, "That setup link has expired or was already used.")
	_, _ = b.api.Send(msg)
}

func (b *Bot) dispatchCommand(ctx context.Context, chatIdent, cmd, arg string) {
	switch cmd {
	case "start":
		b.replyText(chatIdent, "Connected. Send a message to start a session, or use /status to check the current one.")
	case "new":
		b.cmdNew(ctx, chatIdent)
	case "cc":
		b.cmdReturnToTerminal(ctx, chatIdent)
	case "status":
		b.cmdStatus(ctx, chatIdent)
	case "mode":
		b.cmdMode(ctx, chatIdent, arg)
	case "model":
		b.cmdModel(ctx, chatIdent, arg)
	case "cost":
		b.cmdCost(chatIdent)
	case "context":
		b.cmdContext(chatIdent)
	case "compact":
		b.cmdCompact(ctx, chatIdent)
	case "todos":
		b.cmdTodos(ctx, chatIdent)
	case "stop":
		b.cmdStop(chatIdent)
	case "cancel":
		b.cmdCancel(chatIdent)
	default:
		b.replyText(chatIdent, "Unknown command.")
	}
}

func (b *Bot) replyText(chatIdent, text string) {
	chatID, err := parseChatIdentity(chatIdent)
	if err != nil {
		return
	}
	_, _ = b.api.Send(tgbotapi.NewMessage(chatID, text))
}

// cmdNew disconnects the agent and clears pendings (§5 cancellation):
// in-flight SSE consumers receive session_end.
func (b *Bot) cmdNew(ctx context.Context, chatIdent string) {
	s := b.manager.GetByIdentity(chatIdent)
	if s == nil {
		b.replyText(chatIdent, "No active session.")
		return
	}
	s.Disconnect()
	s.Lock()
	s.AgentSessionID = ""
	s.Processing = false
	s.PendingPermission = nil
	s.PendingQuestion = nil
	s.AwaitingRejection = false
	s.AwaitingQuestionAns = false
	s.ToolMessageHandles = make(map[string]any)
	s.Unlock()
	s.Emit(sessionEndEvent())
	b.replyText(chatIdent, "Started a fresh conversation. Send a message to begin.")
}

// cmdReturnToTerminal implements /cc (§4.6 inverse flow).
func (b *Bot) cmdReturnToTerminal(ctx context.Context, chatIdent string) {
	s := b.manager.GetByIdentity(chatIdent)
	if s == nil {
		b.replyText(chatIdent, "No active session to return.")
		return
	}
	if _, ok := b.teleport.ReturnToTerminal(s); !ok {
		b.replyText(chatIdent, "Nothing to return — no resumable conversation yet.")
		return
	}
	b.replyText(chatIdent, "Returned to the terminal. Resume there with your agent's --resume flag.")
}

func (b *Bot) cmdStatus(ctx context.Context, chatIdent string) {
	s := b.manager.GetOrCreate(chatIdent, b.processCWD)
	s.Lock()
	snap := statusSnapshotOf(s)
	s.Unlock()
	_ = b.UpdateStatus(ctx, chatIdent, snap)
}

func (b *Bot) cmdMode(ctx context.Context, chatIdent, arg string) {
	s := b.manager.GetOrCreate(chatIdent, b.processCWD)
	if arg == "" {
		s.Lock()
		current := s.Mode
		s.Unlock()
		chatID, err := parseChatIdentity(chatIdent)
		if err != nil {
			return
		}
		msg := tgbotapi.NewMessage(chatID, "Choose a mode:")
		msg.ReplyMarkup = modeKeyboard(current)
		_, _ = b.api.Send(msg)
		return
	}
	b.applyMode(ctx, s, session.Mode(arg))
}

func (b *Bot) applyMode(ctx context.Context, s *session.Session, mode session.Mode) {
	s.Lock()
	s.Mode = mode
	handle := s.Handle
	s.Unlock()
	if live, ok := handle.(liveHandle); ok {
		if err := live.SetMode(mode); err != nil {
			logging.Warn().Err(err).Msg("failed to push mode change to agent")
		}
	}
	s.Lock()
	snap := statusSnapshotOf(s)
	s.Unlock()
	_ = b.UpdateStatus(ctx, s.ChatIdentity, snap)
}

func (b *Bot) cmdModel(ctx context.Context, chatIdent, arg string) {
	s := b.manager.GetOrCreate(chatIdent, b.processCWD)
	if arg == "" {
		s.Lock()
		current := s.CurrentModel
		s.Unlock()
		chatID, err := parseChatIdentity(chatIdent)
		if err != nil {
			return
		}
		msg := tgbotapi.NewMessage(chatID, "Choose a model:")
		msg.ReplyMarkup = modelKeyboard(current)
		_, _ = b.api.Send(msg)
		return
	}
	b.applyModel(ctx, s, arg)
}

func (b *Bot) applyModel(ctx context.Context, s *session.Session, model string) {
	s.Lock()
	s.CurrentModel = model
	handle := s.Handle
	s.Unlock()
	if live, ok := handle.(liveHandle); ok {
		if err := live.SetModel(model); err != nil {
			logging.Warn().Err(err).Msg("failed to push model change to agent")
		}
	}
	s.Lock()
	snap := statusSnapshotOf(s)
	s.Unlock()
	_ = b.UpdateStatus(ctx, s.ChatIdentity, snap)
}

func (b *Bot) cmdCost(chatIdent string) {
	s := b.manager.GetByIdentity(chatIdent)
	if s == nil {
		b.replyText(chatIdent, "No session yet.")
		return
	}
	s.Lock()
	cost := s.Usage.TotalCostUSD
	turns := s.Usage.NumTurns
	s.Unlock()
	b.replyText(chatIdent, fmt.Sprintf("Cumulative cost: $%.4f over %d turns", cost, turns))
}

func (b *Bot) cmdContext(chatIdent string) {
	s := b.manager.GetByIdentity(chatIdent)
	if s == nil {
		b.replyText(chatIdent, "No session yet.")
		return
	}
	s.Lock()
	ctx := s.Context
	s.Unlock()
	b.replyText(chatIdent, fmt.Sprintf("Context: %d / %d tokens (%d%%)", ctx.TokensUsed, ctx.TokensMax, ctx.PercentUsed))
}

// cmdCompact and cmdTodos forward a literal instruction to the agent as
// a normal query — the agent owns conversation history and its own
// built-in compact/todo handling (§1 Non-goal: no durable storage of
// conversation history here).
func (b *Bot) cmdCompact(ctx context.Context, chatIdent string) {
	b.runTurn(ctx, chatIdent, "/compact")
}

func (b *Bot) cmdTodos(ctx context.Context, chatIdent string) {
	b.runTurn(ctx, chatIdent, "/todos")
}

func (b *Bot) cmdStop(chatIdent string) {
	s := b.manager.GetByIdentity(chatIdent)
	if s == nil {
		return
	}
	s.Lock()
	handle := s.Handle
	s.Unlock()
	if handle != nil {
		handle.Interrupt()
	}
}

func (b *Bot) cmdCancel(chatIdent string) {
	s := b.manager.GetByIdentity(chatIdent)
	if s == nil {
		return
	}
	s.Lock()
	s.PendingPermission = nil
	s.PendingQuestion = nil
	s.AwaitingRejection = false
	s.AwaitingQuestionAns = false
	s.Unlock()
	b.replyText(chatIdent, "Cancelled the pending interaction.")
}

// statusSnapshotOf builds a frontend.StatusSnapshot from a session.
// Callers must hold s's lock.
func statusSnapshotOf(s *session.Session) frontend.StatusSnapshot {
	return frontend.StatusSnapshot{
		Mode:              string(s.Mode),
		Model:             s.CurrentModel,
		ContextPercentUse: s.Context.PercentUsed,
		TotalCostUSD:      s.Usage.TotalCostUSD,
	}
}
