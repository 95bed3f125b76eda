package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"auto-repeat/internal/model"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

type fakeUsers map[string]int64

func (f fakeUsers) FindByUsername(_ context.Context, username string) (*model.User, error) {
	id, ok := f[username]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &model.User{TelegramID: id, Username: username}, nil
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestParseID(t *testing.T) {
	id, err := parseID("disable:42", cbDisablePrefix)
	if err != nil || id != 42 {
		t.Fatalf("expected 42, got %d (%v)", id, err)
	}
	id, err = parseID(" 7 ", "")
	if err != nil || id != 7 {
		t.Fatalf("expected 7, got %d (%v)", id, err)
	}
	if _, err := parseID("enable:x", cbEnablePrefix); err == nil {
		t.Fatalf("expected error for non-numeric id")
	}
}

func TestFormatAutoRepeat(t *testing.T) {
	ar := model.AutoRepeat{
		ID:                3,
		ReferenceDoctype:  "Task",
		ReferenceDocument: "TASK-<1>",
		Frequency:         "Weekly",
		RepeatOnDays:      []model.AutoRepeatDay{{Day: "Monday"}, {Day: "Thursday"}},
		NextScheduleDate:  datePtr(2025, 8, 28),
		EndDate:           datePtr(2025, 12, 31),
		Status:            model.StatusActive,
	}

	got := formatAutoRepeat(ar)
	for _, want := range []string{iconActive, "#3", "TASK-&lt;1&gt;", "(Monday, Thursday)", "next: 2025-08-28", "until 2025-12-31"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}

	ar.Disabled = true
	ar.NextScheduleDate = nil
	got = formatAutoRepeat(ar)
	if !strings.Contains(got, iconDisabled) || !strings.Contains(got, "next: —") {
		t.Errorf("unexpected disabled rendering %q", got)
	}
}

func TestDescribeError(t *testing.T) {
	if got := describeError(gorm.ErrRecordNotFound); got != "Auto repeat not found." {
		t.Fatalf("unexpected message %q", got)
	}
	if got := describeError(errors.New("a <b>")); !strings.Contains(got, "a &lt;b&gt;") {
		t.Fatalf("expected escaped error, got %q", got)
	}
}

func TestNotifierSendsOncePerKnownOwner(t *testing.T) {
	send := &fakeSender{}
	n := NewNotifier(send, fakeUsers{"zoe": 100}, 50, zerolog.Nop())

	ar := model.AutoRepeat{ID: 1, NextScheduleDate: datePtr(2025, 9, 1)}
	doc := model.Document{Name: "TASK-2", Doctype: "Task", Subject: "Weekly review", StartDate: datePtr(2025, 8, 25)}
	assignments := []model.Assignment{
		{Owner: "zoe", Description: "prepare notes", Priority: model.PriorityHigh},
		{Owner: "@zoe", Description: "book room"},
		{Owner: "zoe", Description: "send invite"},
		{Owner: "adam", Description: "unknown owner"},
	}

	if err := n.DocumentGenerated(context.Background(), ar, doc, assignments); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(send.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(send.sent))
	}
	msg := send.sent[0]
	if msg.ChatID != 100 || msg.ParseMode != tgbotapi.ModeHTML {
		t.Fatalf("unexpected message target %d / %q", msg.ChatID, msg.ParseMode)
	}
	for _, want := range []string{"TASK-2", "Weekly review", "2025-08-25", "prepare notes ❗", "book room", "send invite", "2025-09-01"} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("expected %q in %q", want, msg.Text)
		}
	}
	if strings.Contains(msg.Text, "unknown owner") {
		t.Errorf("message must only list the owner's assignments: %q", msg.Text)
	}
}

func TestNotifierCollectsSendErrors(t *testing.T) {
	send := &fakeSender{err: errors.New("flood")}
	n := NewNotifier(send, fakeUsers{"zoe": 1, "adam": 2}, 50, zerolog.Nop())

	err := n.DocumentGenerated(context.Background(), model.AutoRepeat{}, model.Document{Name: "T", Doctype: "Task"},
		[]model.Assignment{{Owner: "zoe"}, {Owner: "adam"}})
	if err == nil || !strings.Contains(err.Error(), "notify zoe") || !strings.Contains(err.Error(), "notify adam") {
		t.Fatalf("expected both send errors, got %v", err)
	}
}

func commandMessage(from int64, text string) *tgbotapi.Message {
	cmdLen := len(text)
	if i := strings.IndexByte(text, ' '); i >= 0 {
		cmdLen = i
	}
	return &tgbotapi.Message{
		Text:     text,
		From:     &tgbotapi.User{ID: from},
		Chat:     &tgbotapi.Chat{ID: from, Type: "private"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}
}

// The bot has no auto repeat service here: reaching it would panic.
func TestOperatorCommandsRejectNonAdmins(t *testing.T) {
	send := &fakeSender{}
	b := &Bot{client: send, admins: adminSet([]int64{1}), log: zerolog.Nop()}
	ctx := context.Background()

	for _, text := range []string{"/repeats", "/disable 3", "/enable 3", "/run"} {
		if err := b.handleMessage(ctx, commandMessage(7, text)); err != nil {
			t.Fatalf("%s: %v", text, err)
		}
	}
	cb := &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: 7},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 7}},
		Data:    cbDisablePrefix + "3",
	}
	if err := b.handleCallback(ctx, cb); err != nil {
		t.Fatalf("callback: %v", err)
	}

	if len(send.sent) != 5 {
		t.Fatalf("expected 5 replies, got %d", len(send.sent))
	}
	for _, msg := range send.sent {
		if msg.ChatID != 7 || msg.Text != notAllowedText {
			t.Fatalf("expected rejection for chat 7, got %d %q", msg.ChatID, msg.Text)
		}
	}
}

func TestHelpStaysOpenAndAdminPassesGuard(t *testing.T) {
	send := &fakeSender{}
	b := &Bot{client: send, admins: adminSet([]int64{1}), log: zerolog.Nop()}
	ctx := context.Background()

	if err := b.handleMessage(ctx, commandMessage(7, "/help")); err != nil {
		t.Fatalf("help: %v", err)
	}
	// An admin reaches the handler, which asks for the missing id.
	if err := b.handleMessage(ctx, commandMessage(1, "/disable")); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if len(send.sent) != 2 {
		t.Fatalf("expected 2 replies, got %d", len(send.sent))
	}
	if send.sent[0].Text != helpText {
		t.Fatalf("expected help for any user, got %q", send.sent[0].Text)
	}
	if !strings.Contains(send.sent[1].Text, "Give the auto repeat id") {
		t.Fatalf("expected admin to reach the handler, got %q", send.sent[1].Text)
	}
}
