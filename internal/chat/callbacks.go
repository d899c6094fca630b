package chat

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/opencode-ai/sessionbridge/internal/session"
)

// handleCallback dispatches one inline-keyboard button press. Every
// callback is acknowledged (button "answered") regardless of outcome;
// an invalid payload is acknowledged and otherwise ignored (§7).
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	defer func() {
		_, _ = b.api.Request(tgbotapi.NewCallback(cb.ID, ""))
	}()

	if cb.Message == nil || !b.authorized(cb.Message.Chat.ID) {
		return
	}
	chatIdent := chatIdentity(cb.Message.Chat.ID)
	s := b.manager.GetByIdentity(chatIdent)
	if s == nil {
		return
	}

	parsed := parseCallbackData(cb.Data)
	switch parsed.kind {
	case callbackPermission:
		b.handlePermissionCallback(s, parsed.perm)
	case callbackQuestion:
		b.handleQuestionCallback(ctx, s, parsed.qIdx, parsed.optIdx)
	case callbackMode:
		b.applyMode(ctx, s, session.Mode(parsed.mode))
	case callbackModel:
		b.applyModel(ctx, s, parsed.model)
	default:
		// Unknown payload: already acknowledged above, nothing else to do.
	}
}

func (b *Bot) handlePermissionCallback(s *session.Session, perm string) {
	switch perm {
	case "allow":
		session.Respond(s, session.DecisionAllowOnce, "")
	case "always":
		session.Respond(s, session.DecisionAllowAlways, "")
	case "accept_edits":
		session.Respond(s, session.DecisionAcceptEdits, "")
	case "reject":
		s.Lock()
		s.AwaitingRejection = true
		s.Unlock()
		b.replyText(s.ChatIdentity, "Send a short reason for the rejection.")
	}
}

func (b *Bot) handleQuestionCallback(ctx context.Context, s *session.Session, qIdx, optIdx int) {
	s.Lock()
	pq := s.PendingQuestion
	if pq == nil || pq.Cursor != qIdx {
		s.Unlock()
		return
	}
	if optIdx == -1 {
		s.AwaitingQuestionAns = true
		s.Unlock()
		b.replyText(s.ChatIdentity, "Type your answer.")
		return
	}
	q := pq.Questions[qIdx]
	if optIdx < 0 || optIdx >= len(q.Options) {
		s.Unlock()
		return
	}
	pq.Answers[strconv.Itoa(qIdx)] = q.Options[optIdx]
	pq.Cursor++
	done := pq.Cursor >= len(pq.Questions)
	s.Unlock()

	b.advanceQuestion(ctx, s, pq, done)
}
