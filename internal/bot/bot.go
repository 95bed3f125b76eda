package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"auto-repeat/internal/model"
	"auto-repeat/internal/recurrence"
	"auto-repeat/internal/repository"
	"auto-repeat/internal/service"
)

const (
	cbDisablePrefix = "disable:"
	cbEnablePrefix  = "enable:"
)

const (
	iconActive    = "🟢"
	iconDisabled  = "⏸"
	iconCompleted = "🏁"
)

type client interface {
	sender
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot exposes auto repeat operations over Telegram and notifies assignment
// owners about generated documents. Only admins may list, toggle or run auto
// repeats; anyone may /start to register for notifications.
type Bot struct {
	api         *tgbotapi.BotAPI
	client      client
	userRepo    *repository.UserRepository
	autoRepeats *service.AutoRepeatService
	notifier    *Notifier
	admins      map[int64]bool
	log         zerolog.Logger
}

func New(token string, userRepo *repository.UserRepository, autoRepeats *service.AutoRepeatService, admins []int64, notifyRatePerSec int, log zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Info().Str("account", api.Self.UserName).Int("admins", len(admins)).Msg("bot authorized")
	if len(admins) == 0 {
		log.Warn().Msg("no ADMIN_IDS configured, operator commands are disabled")
	}

	return &Bot{
		api:         api,
		client:      api,
		userRepo:    userRepo,
		autoRepeats: autoRepeats,
		notifier:    NewNotifier(api, userRepo, notifyRatePerSec, log),
		admins:      adminSet(admins),
		log:         log,
	}, nil
}

func adminSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func (b *Bot) isAdmin(userID int64) bool {
	return b.admins[userID]
}

// Notifier returns the notifier sending through this bot.
func (b *Bot) Notifier() *Notifier {
	return b.notifier
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info().Msg("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Error().Err(err).Msg("handle callback")
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Error().Err(err).Msg("handle message")
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	if !msg.IsCommand() {
		return b.sendText(msg.Chat.ID, "Send /help to see what I can do.")
	}

	b.log.Info().Int64("from", msg.From.ID).Str("command", msg.Command()).Str("args", msg.CommandArguments()).Msg("command received")
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.sendText(msg.Chat.ID, helpText)
	}

	if !b.isAdmin(msg.From.ID) {
		b.log.Warn().Int64("from", msg.From.ID).Str("command", msg.Command()).Msg("operator command rejected")
		return b.sendText(msg.Chat.ID, notAllowedText)
	}
	switch msg.Command() {
	case "repeats":
		return b.handleList(ctx, msg.Chat.ID)
	case "disable":
		return b.handleToggle(ctx, msg, true)
	case "enable":
		return b.handleToggle(ctx, msg, false)
	case "run":
		return b.handleRun(ctx, msg.Chat.ID)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

const notAllowedText = "⛔ Only operators can manage auto repeats."

const helpText = "ℹ️ <b>Commands</b>\n" +
	"• /start - register for assignment notifications\n" +
	"Operators only:\n" +
	"• /repeats - list auto repeats and their next dates\n" +
	"• /disable &lt;id&gt; - stop an auto repeat\n" +
	"• /enable &lt;id&gt; - resume an auto repeat\n" +
	"• /run - generate every document that is due now\n" +
	"• /help - this message"

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.userRepo.UpsertFromTelegram(ctx, msg.From.ID, msg.From.FirstName, msg.From.LastName, msg.From.UserName)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(user.FirstName)
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("👋 Hi, %s!\nI will message you when a recurring document assigns you a task.\n\n%s", escape(name), helpText)
	if user.Username == "" {
		text += "\n\n⚠️ Set a Telegram username so assignments can be matched to you."
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleList(ctx context.Context, chatID int64) error {
	list, err := b.autoRepeats.List(ctx)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load auto repeats: %s", escape(err.Error())))
	}
	if len(list) == 0 {
		return b.sendText(chatID, "No auto repeats configured yet.")
	}

	var builder strings.Builder
	builder.WriteString("🔁 <b>Auto repeats</b>\n\n")
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, ar := range list {
		builder.WriteString(formatAutoRepeat(ar))
		if ar.Disabled {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("▶️ Enable #%d", ar.ID), fmt.Sprintf("%s%d", cbEnablePrefix, ar.ID))))
		} else if ar.Status == model.StatusActive {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("⏸ Disable #%d", ar.ID), fmt.Sprintf("%s%d", cbDisablePrefix, ar.ID))))
		}
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ParseMode = tgbotapi.ModeHTML
	if len(buttons) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	}
	_, err = b.client.Send(msg)
	return err
}

func (b *Bot) handleToggle(ctx context.Context, msg *tgbotapi.Message, disable bool) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Give the auto repeat id: /%s 3", msg.Command()))
	}
	id, err := parseID(args, "")
	if err != nil {
		return b.sendText(msg.Chat.ID, "The id must be a number.")
	}
	return b.toggle(ctx, msg.Chat.ID, id, disable)
}

func (b *Bot) toggle(ctx context.Context, chatID int64, id uint, disable bool) error {
	ar, err := b.autoRepeats.SetDisabled(ctx, id, disable)
	if err != nil {
		return b.sendText(chatID, describeError(err))
	}
	if disable {
		return b.sendText(chatID, fmt.Sprintf("%s Auto repeat #%d disabled.", iconDisabled, ar.ID))
	}
	return b.sendText(chatID, fmt.Sprintf("%s Auto repeat #%d enabled, next on %s.", iconActive, ar.ID, formatDate(ar.NextScheduleDate)))
}

func (b *Bot) handleRun(ctx context.Context, chatID int64) error {
	n, err := b.autoRepeats.RunDue(ctx)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Generated %d document(s), some auto repeats failed:\n<code>%s</code>", n, escape(err.Error())))
	}
	return b.sendText(chatID, fmt.Sprintf("✅ Generated %d document(s).", n))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.client.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn().Err(err).Msg("callback ack")
	}

	data := cb.Data
	b.log.Info().Int64("from", cb.From.ID).Str("data", data).Msg("callback received")
	if !b.isAdmin(cb.From.ID) {
		b.log.Warn().Int64("from", cb.From.ID).Str("data", data).Msg("operator callback rejected")
		return b.sendText(cb.Message.Chat.ID, notAllowedText)
	}
	switch {
	case strings.HasPrefix(data, cbDisablePrefix):
		id, err := parseID(data, cbDisablePrefix)
		if err != nil {
			return nil
		}
		return b.toggle(ctx, cb.Message.Chat.ID, id, true)
	case strings.HasPrefix(data, cbEnablePrefix):
		id, err := parseID(data, cbEnablePrefix)
		if err != nil {
			return nil
		}
		return b.toggle(ctx, cb.Message.Chat.ID, id, false)
	default:
		return nil
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.client.Send(msg)
	return err
}

func describeError(err error) string {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "Auto repeat not found."
	case errors.Is(err, recurrence.ErrValidation), errors.Is(err, recurrence.ErrConfiguration):
		return fmt.Sprintf("⚠️ %s", escape(err.Error()))
	default:
		return fmt.Sprintf("Error: %s", escape(err.Error()))
	}
}

func formatAutoRepeat(ar model.AutoRepeat) string {
	icon := iconActive
	switch {
	case ar.Disabled:
		icon = iconDisabled
	case ar.Status == model.StatusCompleted:
		icon = iconCompleted
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s <b>#%d</b> %s %s · %s", icon, ar.ID,
		escape(ar.ReferenceDoctype), escape(ar.ReferenceDocument), escape(ar.Frequency)))
	if days := ar.DayNames(); len(days) > 0 && ar.Frequency == string(recurrence.Weekly) {
		sb.WriteString(fmt.Sprintf(" (%s)", escape(strings.Join(days, ", "))))
	}
	sb.WriteString(fmt.Sprintf("\n   📆 next: %s", formatDate(ar.NextScheduleDate)))
	if ar.EndDate != nil {
		sb.WriteString(fmt.Sprintf(" · until %s", formatDate(ar.EndDate)))
	}
	sb.WriteByte('\n')
	return sb.String()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "—"
	}
	return t.Format(time.DateOnly)
}

func parseID(data, prefix string) (uint, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(data, prefix))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func escape(s string) string {
	return html.EscapeString(s)
}
