package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/ObiAU/newsfeed/internal/cache"
	"github.com/ObiAU/newsfeed/internal/engagement"
	"github.com/ObiAU/newsfeed/internal/models"
	"github.com/ObiAU/newsfeed/internal/recommender"
)

const (
	DefaultPageSize = 6
	maxMessageLen   = 4000
	maxSummaryRunes = 240
)

type Recommender interface {
	Recommend(ctx context.Context, req recommender.Request) ([]*models.Article, error)
}

type ViewRecorder interface {
	RecordView(ctx context.Context, userID, articleID string, viewSeconds float64, at time.Time) (*models.Impression, error)
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Deps struct {
	Feed     Recommender
	Views    ViewRecorder
	Sessions *cache.Cache
	// DateKey maps a time to the date key articles are stored under.
	DateKey  func(time.Time) string
	PageSize int
}

type Bot struct {
	api        *tgbotapi.BotAPI
	out        sender
	webhookURL string
	deps       Deps
	logger     zerolog.Logger
	now        func() time.Time
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBot(token, webhookURL string, deps Deps, logger zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	b := newBot(api, deps, logger)
	b.api = api
	b.webhookURL = webhookURL
	return b, nil
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func newBot(out sender, deps Deps, logger zerolog.Logger) *Bot {
	if deps.PageSize <= 0 {
		deps.PageSize = DefaultPageSize
	}
	return &Bot{
		out:    out,
		deps:   deps,
		logger: logger.With().Str("component", "telegram").Logger(),
		now:    time.Now,
	}
}

// Start registers the webhook when one is configured and otherwise long-polls
// for updates until ctx is done.
func (b *Bot) Start(ctx context.Context) error {
	if b.webhookURL != "" {
		webhook, err := tgbotapi.NewWebhook(b.webhookURL)
		if err != nil {
			return err
		}
		if _, err := b.api.Request(webhook); err != nil {
			return err
		}

		info, err := b.api.GetWebhookInfo()
		if err != nil {
			return err
		}
		if info.LastErrorDate != 0 {
			b.logger.Warn().Str("error", info.LastErrorMessage).Msg("telegram webhook reported an error")
		}
		return nil
	}

	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return err
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()
	go func() {
		for update := range updates {
			b.handleUpdate(ctx, update)
		}
	}()
	return nil
}

// HandleWebhook decodes one update posted by Telegram and handles it.
func (b *Bot) HandleWebhook(ctx context.Context, r *http.Request) error {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		return fmt.Errorf("failed to decode update: %w", err)
	}
	b.handleUpdate(ctx, update)
	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.Chat == nil {
		return
	}

	chatID := update.Message.Chat.ID
	userID := strconv.FormatInt(chatID, 10)
	if update.Message.From != nil {
		userID = strconv.FormatInt(update.Message.From.ID, 10)
	}
	// Command is empty for plain text and drops any @botname suffix.
	switch update.Message.Command() {
	case "start":
		b.deps.Sessions.Reset(chatID)
		b.handleStart(chatID)
	case "feed":
		b.handleFeed(ctx, userID, chatID, true)
	case "more":
		b.handleFeed(ctx, userID, chatID, false)
	case "read":
		b.handleRead(ctx, userID, chatID, update.Message.CommandArguments())
	case "help":
		b.handleHelp(chatID)
	default:
		b.handleUnknownCommand(chatID)
	}
}

func (b *Bot) handleStart(chatID int64) {
	b.sendMessage(chatID, `Welcome to your daily news feed! 📰

I pick today's stories from the front pages and learn from what you read.

/feed - Today's feed
/more - More stories you have not seen yet
/read &lt;id&gt; &lt;seconds&gt; - Tell me how long you read a story
/help - Show this help message`)
}

func (b *Bot) handleFeed(ctx context.Context, userID string, chatID int64, initial bool) {
	date := b.deps.DateKey(b.now())

	req := recommender.Request{
		UserID:      userID,
		Date:        date,
		Count:       b.deps.PageSize,
		InitialFeed: initial,
	}
	if initial {
		b.deps.Sessions.Reset(chatID)
	} else {
		req.ExcludedIDs = b.deps.Sessions.Served(chatID, date)
	}

	articles, err := b.deps.Feed.Recommend(ctx, req)
	if err != nil {
		b.logger.Error().Err(err).Str("user_id", userID).Msg("recommendation failed")
		b.sendMessage(chatID, "Could not build your feed right now. Please try again later.")
		return
	}
	if len(articles) == 0 {
		if initial {
			b.sendMessage(chatID, "No stories for today yet.")
		} else {
			b.sendMessage(chatID, "You are all caught up for today. 🎉")
		}
		return
	}

	ids := make([]string, len(articles))
	for i, a := range articles {
		ids[i] = a.ID
	}
	b.deps.Sessions.MarkServed(chatID, date, ids)

	for _, msg := range splitMessages(formatArticles(articles), maxMessageLen) {
		b.sendMessage(chatID, msg)
	}
}

func (b *Bot) handleRead(ctx context.Context, userID string, chatID int64, args string) {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		b.sendMessage(chatID, "Usage: /read &lt;article id&gt; &lt;seconds&gt;")
		return
	}
	seconds, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		b.sendMessage(chatID, "Seconds must be a number, e.g. /read 42 90")
		return
	}

	impression, err := b.deps.Views.RecordView(ctx, userID, parts[0], seconds, b.now())
	if errors.Is(err, engagement.ErrInvalidView) {
		b.sendMessage(chatID, "Seconds must not be negative.")
		return
	}
	if err != nil {
		b.logger.Error().Err(err).Str("user_id", userID).Msg("failed to record view")
		b.sendMessage(chatID, "Could not record that read. Please try again later.")
		return
	}

	b.sendMessage(chatID, fmt.Sprintf("Noted 👍 (interest %.2f)", impression.InteractionStrength))
}

func (b *Bot) handleHelp(chatID int64) {
	b.sendMessage(chatID, `News Feed Help 📖

/feed - Today's feed, starting a new session
/more - Stories not yet shown in this session
/read &lt;id&gt; &lt;seconds&gt; - Record reading time for a story
/help - Show this help

The longer you read a story compared to its length, the more your feed leans towards similar stories.`)
}

func (b *Bot) handleUnknownCommand(chatID int64) {
	b.sendMessage(chatID, "Unknown command. Use /help for available commands.")
}

func formatArticles(articles []*models.Article) []string {
	out := make([]string, len(articles))
	for i, a := range articles {
		var sb strings.Builder
		fmt.Fprintf(&sb, "<b>%d. %s</b>\n", i+1, html.EscapeString(a.Headline))
		if source := strings.Trim(a.Newspaper+" · "+a.Category, " ·"); source != "" {
			fmt.Fprintf(&sb, "<i>%s</i>\n", html.EscapeString(source))
		}
		if summary := truncate(a.Summary, maxSummaryRunes); summary != "" {
			sb.WriteString(html.EscapeString(summary))
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "<code>/read %s</code>", html.EscapeString(a.ID))
		out[i] = sb.String()
	}
	return out
}

// splitMessages joins parts with blank lines into messages no longer than
// limit. A single part longer than limit gets a message of its own.
func splitMessages(parts []string, limit int) []string {
	var out []string
	var cur strings.Builder
	for _, p := range parts {
		if cur.Len() > 0 && cur.Len()+2+len(p) > limit {
			out = append(out, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(p)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := b.out.Send(msg); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to send telegram message")
	}
}
