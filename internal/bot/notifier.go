package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"auto-repeat/internal/model"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type userFinder interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// Notifier messages assignment owners about generated documents. Sends are
// throttled so a tick that generates many documents stays under Telegram's
// flood limits.
type Notifier struct {
	send    sender
	users   userFinder
	limiter *rate.Limiter
	log     zerolog.Logger
}

func NewNotifier(send sender, users userFinder, perSecond int, log zerolog.Logger) *Notifier {
	if perSecond <= 0 {
		perSecond = 1
	}
	return &Notifier{
		send:    send,
		users:   users,
		limiter: rate.NewLimiter(rate.Limit(perSecond), perSecond),
		log:     log,
	}
}

// DocumentGenerated sends one message per distinct assignment owner that has
// talked to the bot. Unknown owners are skipped.
func (n *Notifier) DocumentGenerated(ctx context.Context, ar model.AutoRepeat, doc model.Document, assignments []model.Assignment) error {
	var errs []error
	seen := make(map[string]bool, len(assignments))
	for _, a := range assignments {
		owner := normalizeOwner(a.Owner)
		if owner == "" || seen[owner] {
			continue
		}
		seen[owner] = true

		user, err := n.users.FindByUsername(ctx, owner)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			n.log.Debug().Str("owner", owner).Msg("owner has no telegram chat, skip")
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("find %s: %w", owner, err))
			continue
		}

		if err := n.limiter.Wait(ctx); err != nil {
			return errors.Join(append(errs, err)...)
		}
		msg := tgbotapi.NewMessage(user.TelegramID, formatGenerated(ar, doc, ownerAssignments(assignments, owner)))
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := n.send.Send(msg); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", owner, err))
			continue
		}
		n.log.Info().Str("owner", owner).Str("document", doc.Name).Msg("owner notified")
	}
	return errors.Join(errs...)
}

func ownerAssignments(all []model.Assignment, owner string) []model.Assignment {
	var out []model.Assignment
	for _, a := range all {
		if normalizeOwner(a.Owner) == owner {
			out = append(out, a)
		}
	}
	return out
}

func normalizeOwner(owner string) string {
	return strings.TrimPrefix(strings.TrimSpace(owner), "@")
}

func formatGenerated(ar model.AutoRepeat, doc model.Document, assignments []model.Assignment) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔁 New %s <b>%s</b>", escape(doc.Doctype), escape(doc.Name)))
	if doc.Subject != "" {
		sb.WriteString(fmt.Sprintf("\n%s", escape(doc.Subject)))
	}
	if doc.StartDate != nil {
		sb.WriteString(fmt.Sprintf("\n📆 %s", formatDate(doc.StartDate)))
		if doc.EndDate != nil && !doc.EndDate.Equal(*doc.StartDate) {
			sb.WriteString(fmt.Sprintf(" – %s", formatDate(doc.EndDate)))
		}
	}
	for _, a := range assignments {
		line := "\n• assigned to you"
		if a.Description != "" {
			line = fmt.Sprintf("\n• %s", escape(a.Description))
		}
		if a.Priority == model.PriorityHigh {
			line += " ❗"
		}
		sb.WriteString(line)
	}
	if ar.NextScheduleDate != nil {
		sb.WriteString(fmt.Sprintf("\n\nNext one on %s (auto repeat #%d).", formatDate(ar.NextScheduleDate), ar.ID))
	}
	return sb.String()
}
