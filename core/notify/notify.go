// Package notify alerts advisors about completed policy lookup requests.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/hmbot/core/leads"
	"github.com/m3rciful/hmbot/core/logger"
)

const component = "notify"

// Notifier delivers an alert for a completed request.
type Notifier interface {
	Notify(ctx context.Context, r leads.Request) error
}

// Noop discards alerts.
type Noop struct{}

// Notify implements Notifier.
func (Noop) Notify(context.Context, leads.Request) error { return nil }

// TelegramOptions configures the advisors chat alert.
type TelegramOptions struct {
	Token  string
	ChatID int64
	// APIURL overrides the Bot API endpoint; empty selects the public one.
	APIURL string
	Client *http.Client
}

// Telegram posts a Markdown summary to the advisors chat.
type Telegram struct {
	bot  *tele.Bot
	chat tele.ChatID
}

// NewTelegram builds an offline bot: no getMe call and no update polling.
func NewTelegram(opts TelegramOptions) (*Telegram, error) {
	if opts.Token == "" || opts.ChatID == 0 {
		return nil, fmt.Errorf("notify: telegram token and chat id are required")
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	bot, err := tele.NewBot(tele.Settings{
		URL:     opts.APIURL,
		Token:   opts.Token,
		Client:  client,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("notify: telegram bot init: %w", err)
	}
	return &Telegram{bot: bot, chat: tele.ChatID(opts.ChatID)}, nil
}

// Notify implements Notifier.
func (t *Telegram) Notify(ctx context.Context, r leads.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	if _, err := t.bot.Send(t.chat, Summary(r), &tele.SendOptions{ParseMode: tele.ModeMarkdown}); err != nil {
		return fmt.Errorf("notify: telegram send: %w", err)
	}
	logger.Info(ctx, component, "advisors.notified",
		slog.String("id", r.ID.String()),
		slog.String("insurance_type", r.InsuranceType),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// Summary renders the advisors alert in Telegram Markdown.
func Summary(r leads.Request) string {
	var b strings.Builder
	b.WriteString("*Nueva solicitud de póliza*\n\n")
	fmt.Fprintf(&b, "*Nombre:* %s\n", escapeMarkdown(r.FullName))
	fmt.Fprintf(&b, "*CURP:* %s\n", escapeMarkdown(r.NationalID))
	fmt.Fprintf(&b, "*Fecha de nacimiento:* %s\n", escapeMarkdown(r.BirthDate))
	fmt.Fprintf(&b, "*Tipo de seguro:* %s\n", escapeMarkdown(r.InsuranceType))
	fmt.Fprintf(&b, "*WhatsApp:* +%s\n", escapeMarkdown(r.SenderID))
	fmt.Fprintf(&b, "_%s_", r.CreatedAt.Format("2006-01-02 15:04 MST"))
	return b.String()
}

var markdownEscaper = strings.NewReplacer(`_`, `\_`, `*`, `\*`, "`", "\\`", `[`, `\[`)

// escapeMarkdown escapes user text for legacy Telegram Markdown.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
