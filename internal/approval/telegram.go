package approval

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"redscout/internal/core/domain"
	"redscout/internal/core/ports"
	"redscout/internal/match"
)

const (
	callbackApprove = "approve"
	callbackEdit    = "edit"
	callbackReject  = "reject"
)

type telegramReply struct {
	action string
	editor string
}

// Telegram reviews candidates through inline-keyboard messages in one
// chat. Review blocks on a per-message channel until a button is pressed;
// choosing edit waits for the next plain text message as the replacement.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64

	mu       sync.Mutex
	pending  map[int]chan telegramReply
	editWait chan string
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	if chatID == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}

	t := &Telegram{
		bot:     bot,
		chatID:  chatID,
		pending: make(map[int]chan telegramReply),
	}
	go t.listen()
	return t, nil
}

var _ ports.Approver = (*Telegram)(nil)

func (t *Telegram) listen() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.bot.GetUpdatesChan(u)

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			t.handleCallback(update.CallbackQuery)
		case update.Message != nil && update.Message.Chat != nil && update.Message.Chat.ID == t.chatID:
			t.handleText(update.Message.Text)
		}
	}
}

func (t *Telegram) handleCallback(cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}

	t.mu.Lock()
	ch, ok := t.pending[cb.Message.MessageID]
	if ok {
		delete(t.pending, cb.Message.MessageID)
	}
	t.mu.Unlock()
	if !ok {
		return
	}

	editor := cb.From.UserName
	if editor == "" {
		editor = fmt.Sprintf("telegram:%d", cb.From.ID)
	}

	_, _ = t.bot.Request(tgbotapi.NewCallback(cb.ID, "Got it: "+cb.Data))
	clear := tgbotapi.NewEditMessageReplyMarkup(t.chatID, cb.Message.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	_, _ = t.bot.Send(clear)

	ch <- telegramReply{action: cb.Data, editor: editor}
}

func (t *Telegram) handleText(text string) {
	t.mu.Lock()
	ch := t.editWait
	t.editWait = nil
	t.mu.Unlock()

	if ch != nil {
		ch <- text
	}
}

func (t *Telegram) Review(ctx context.Context, post domain.Post, candidate domain.ReplyCandidate) (domain.ApprovalDecision, error) {
	body := fmt.Sprintf("*r/%s*: %s\n\n%s\n\n_Suggested reply (%s):_\n%s",
		escapeMarkdown(post.Subreddit),
		escapeMarkdown(post.Title),
		escapeMarkdown(match.Preview(post.Body, 200)),
		candidate.Source,
		escapeMarkdown(candidate.Text))

	msg := tgbotapi.NewMessage(t.chatID, body)
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Approve", callbackApprove),
			tgbotapi.NewInlineKeyboardButtonData("✏️ Edit", callbackEdit),
			tgbotapi.NewInlineKeyboardButtonData("❌ Reject", callbackReject),
		),
	)

	sent, err := t.bot.Send(msg)
	if err != nil {
		return domain.ApprovalDecision{}, fmt.Errorf("send review message: %w", err)
	}

	ch := make(chan telegramReply, 1)
	t.mu.Lock()
	t.pending[sent.MessageID] = ch
	t.mu.Unlock()

	var reply telegramReply
	select {
	case reply = <-ch:
	case <-ctx.Done():
		t.mu.Lock()
		delete(t.pending, sent.MessageID)
		t.mu.Unlock()
		return domain.ApprovalDecision{}, ctx.Err()
	}

	decision := domain.ApprovalDecision{
		DecidedBy: reply.editor,
		DecidedAt: time.Now(),
	}

	switch reply.action {
	case callbackApprove:
		decision.Approved = true
	case callbackEdit:
		edited, err := t.awaitEdit(ctx)
		if err != nil {
			return domain.ApprovalDecision{}, err
		}
		decision.Approved = true
		decision.EditedText = edited
	default:
		decision.Reason = "rejected by operator"
	}
	return decision, nil
}

func (t *Telegram) awaitEdit(ctx context.Context) (string, error) {
	prompt := tgbotapi.NewMessage(t.chatID, "Send the replacement reply text as a message.")
	if _, err := t.bot.Send(prompt); err != nil {
		return "", fmt.Errorf("send edit prompt: %w", err)
	}

	ch := make(chan string, 1)
	t.mu.Lock()
	t.editWait = ch
	t.mu.Unlock()

	select {
	case text := <-ch:
		return strings.TrimSpace(text), nil
	case <-ctx.Done():
		t.mu.Lock()
		t.editWait = nil
		t.mu.Unlock()
		return "", ctx.Err()
	}
}

// escapeMarkdown keeps user content from breaking Telegram markdown parsing.
func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"`", "\\`",
	)
	return replacer.Replace(text)
}
