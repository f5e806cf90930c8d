// Package telegram delivers notifications to a Telegram chat. It implements
// notify.Gateway: "scheduling" sends a message immediately, cancellation
// deletes it, and the badge is a local counter (Telegram has no badge
// concept of its own).
package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"alertd/internal/notify"
	"alertd/pkg/logx"
)

type Config struct {
	Token      string
	ChatID     int64
	RatePerSec int
}

type Gateway struct {
	cfg     Config
	log     logx.Logger
	bot     *tele.Bot
	limiter *rate.Limiter

	mu    sync.Mutex
	sent  map[string]tele.StoredMessage // notification id -> telegram message
	badge int
}

func New(cfg Config, log logx.Logger) (*Gateway, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is empty")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 3
	}

	// Send-only: no poller, no Start().
	b, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, err
	}
	return &Gateway{
		cfg: cfg,
		log: log.With(logx.String("comp", "gateway.telegram")),
		bot: b,
		// Token bucket: burst = rate per sec, so short spikes don't block.
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		sent:    map[string]tele.StoredMessage{},
	}, nil
}

func (g *Gateway) Schedule(ctx context.Context, p notify.Payload) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	msg, err := g.bot.Send(tele.ChatID(g.cfg.ChatID), formatMessage(p), &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	g.mu.Lock()
	g.sent[id] = tele.StoredMessage{
		MessageID: fmt.Sprint(msg.ID),
		ChatID:    msg.Chat.ID,
	}
	g.mu.Unlock()

	g.log.Debug("notification delivered",
		logx.String("notification_id", id),
		logx.String("category", p.Category))
	return id, nil
}

func (g *Gateway) Cancel(ctx context.Context, id string) error {
	_ = ctx
	g.mu.Lock()
	stored, ok := g.sent[id]
	delete(g.sent, id)
	g.mu.Unlock()
	if !ok {
		return nil
	}
	return g.bot.Delete(stored)
}

func (g *Gateway) CancelAll(ctx context.Context) error {
	_ = ctx
	g.mu.Lock()
	stored := make([]tele.StoredMessage, 0, len(g.sent))
	for _, m := range g.sent {
		stored = append(stored, m)
	}
	g.sent = map[string]tele.StoredMessage{}
	g.mu.Unlock()

	var firstErr error
	for _, m := range stored {
		if err := g.bot.Delete(m); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (g *Gateway) BadgeCount(ctx context.Context) (int, error) {
	_ = ctx
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.badge, nil
}

func (g *Gateway) SetBadgeCount(ctx context.Context, n int) error {
	_ = ctx
	g.mu.Lock()
	g.badge = n
	g.mu.Unlock()
	return nil
}

func formatMessage(p notify.Payload) string {
	var b strings.Builder
	b.WriteString(prefixForCategory(p.Category))
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(p.Title))
	b.WriteString("</b>")
	if p.Body != "" {
		b.WriteString("\n")
		b.WriteString(html.EscapeString(p.Body))
	}
	b.WriteString("\n<i>")
	b.WriteString(time.Now().Format("2006-01-02 15:04:05"))
	b.WriteString("</i>")
	return b.String()
}

func prefixForCategory(cat string) string {
	switch cat {
	case "CRITICAL_ALERT":
		return "🚨 "
	case "HIGH_ALERT":
		return "⚠️ "
	case "MEDIUM_ALERT":
		return "ℹ️ "
	default:
		return ""
	}
}
