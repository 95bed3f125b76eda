package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"auto-repeat/internal/recurrence"
)

func TestRootCmd_Subcommands(t *testing.T) {
	expected := []string{"serve", "tick", "next", "repeat", "doc", "version"}
	subs := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		subs[cmd.Name()] = true
	}
	for _, name := range expected {
		if !subs[name] {
			t.Errorf("expected subcommand %q on root, but it was not registered", name)
		}
	}
}

func TestRepeatCmd_Subcommands(t *testing.T) {
	expected := []string{"create", "update", "list", "show", "enable", "disable", "delete"}
	subs := make(map[string]bool)
	for _, cmd := range repeatCmd.Commands() {
		subs[cmd.Name()] = true
	}
	for _, name := range expected {
		if !subs[name] {
			t.Errorf("expected subcommand %q on 'repeat', but it was not registered", name)
		}
	}
}

func TestNextDates_Weekly(t *testing.T) {
	got, err := nextDates("weekly", []string{"Monday", "Thursday"}, "", "", "2025-08-25", 3, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"2025-08-28", "2025-09-01", "2025-09-04"}
	if len(got) != len(want) {
		t.Fatalf("expected %d dates, got %v", len(want), got)
	}
	for i := range want {
		if got[i].Format(time.DateOnly) != want[i] {
			t.Errorf("date %d: expected %s, got %s", i, want[i], got[i].Format(time.DateOnly))
		}
	}
}

func TestNextDates_MonthlyDrift(t *testing.T) {
	got, err := nextDates("Monthly", nil, "2025-01-31", "", "2025-03-01", 2, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].Format(time.DateOnly) != "2025-03-28" || got[1].Format(time.DateOnly) != "2025-04-28" {
		t.Fatalf("unexpected dates %v", got)
	}
}

func TestNextDates_StopsAtEndDate(t *testing.T) {
	got, err := nextDates("Daily", nil, "", "2025-08-27", "2025-08-25", 5, time.UTC)
	if !errors.Is(err, recurrence.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected the two dates before the end date, got %v", got)
	}
}

func TestNextDates_BadInput(t *testing.T) {
	if _, err := nextDates("Fortnightly", nil, "", "", "", 1, time.UTC); !errors.Is(err, recurrence.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
	if _, err := nextDates("Weekly", []string{"Funday"}, "", "", "", 1, time.UTC); err == nil {
		t.Errorf("expected error for unknown weekday")
	}
	if _, err := nextDates("Daily", nil, "", "", "25/08/2025", 1, time.UTC); err == nil {
		t.Errorf("expected error for malformed date")
	}
}

func TestParseFields(t *testing.T) {
	fields, err := parseFields([]string{"project=PROJ-1", " owner = a=b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fields["project"] != "PROJ-1" || fields["owner"] != " a=b" {
		t.Fatalf("unexpected fields %v", fields)
	}
	if _, err := parseFields([]string{"=x"}); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestParseRepeatID(t *testing.T) {
	if id, err := parseRepeatID(" 12 "); err != nil || id != 12 {
		t.Fatalf("expected 12, got %d (%v)", id, err)
	}
	for _, raw := range []string{"0", "-1", "abc"} {
		if _, err := parseRepeatID(raw); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	}()
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("autorepeat %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestCommands_CreateDailyRepeat(t *testing.T) {
	t.Setenv("DATABASE_URL", filepath.Join(t.TempDir(), "repeat.db"))
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("NO_COPY_FIELDS", "")

	today := time.Now().UTC().Format(time.DateOnly)
	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format(time.DateOnly)

	if out := run(t, "doc", "add", "Task", "--name", "TASK-1", "--subject", "Weekly review", "--start", today, "--field", "project=PROJ-1"); !strings.Contains(out, "Added Task TASK-1") {
		t.Fatalf("unexpected doc add output %q", out)
	}
	run(t, "doc", "assign", "Task", "TASK-1", "zoe", "--description", "prepare notes")

	out := run(t, "repeat", "create", "Task", "TASK-1", "--frequency", "Daily")
	if !strings.Contains(out, "next:      "+tomorrow) {
		t.Fatalf("expected next schedule date %s in %q", tomorrow, out)
	}
	if !strings.Contains(out, "last:") {
		t.Fatalf("expected a generated document in %q", out)
	}

	out = run(t, "repeat", "list")
	for _, want := range []string{"Task TASK-1", "Daily", "Active", tomorrow} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in list output %q", want, out)
		}
	}

	out = run(t, "repeat", "disable", "1")
	if !strings.Contains(out, "status:    Disabled") || !strings.Contains(out, "next:      -") {
		t.Fatalf("unexpected disable output %q", out)
	}

	if out := run(t, "tick"); !strings.Contains(out, "generated 0 document(s)") {
		t.Fatalf("disabled auto repeat must not generate, got %q", out)
	}

	exported := run(t, "repeat", "export")
	if !strings.Contains(exported, "document: TASK-1") || !strings.Contains(exported, "disabled: true") {
		t.Fatalf("unexpected export %q", exported)
	}
	path := filepath.Join(t.TempDir(), "repeats.yaml")
	if err := os.WriteFile(path, []byte(exported), 0o644); err != nil {
		t.Fatalf("write export: %v", err)
	}
	if out := run(t, "repeat", "import", path); !strings.Contains(out, "created 1 of 1") {
		t.Fatalf("unexpected import output %q", out)
	}
	if out := run(t, "repeat", "show", "2"); !strings.Contains(out, "status:    Disabled") {
		t.Fatalf("imported auto repeat must keep its disabled flag, got %q", out)
	}
}

func TestDecodeRepeatFile(t *testing.T) {
	src := `auto_repeats:
  - doctype: Task
    document: TASK-1
    frequency: Weekly
    days: [Monday, Thursday]
    start: 2025-08-25
    end: 2025-12-31
    notify: true
`
	f, err := decodeRepeatFile(strings.NewReader(src))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(f.AutoRepeats) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(f.AutoRepeats))
	}
	in, err := f.AutoRepeats[0].input(time.UTC)
	if err != nil {
		t.Fatalf("input: %v", err)
	}
	if in.ReferenceDocument != "TASK-1" || in.Frequency != "Weekly" || len(in.RepeatOnDays) != 2 || !in.Notify {
		t.Fatalf("unexpected input %+v", in)
	}
	if in.StartDate.Format(time.DateOnly) != "2025-08-25" || in.EndDate == nil || in.EndDate.Format(time.DateOnly) != "2025-12-31" {
		t.Fatalf("unexpected dates %v / %v", in.StartDate, in.EndDate)
	}

	if _, err := decodeRepeatFile(strings.NewReader("auto_repeats:\n  - doctype: Task\n    every: day\n")); err == nil {
		t.Fatalf("expected error for unknown field")
	}
	if f, err := decodeRepeatFile(strings.NewReader("")); err != nil || len(f.AutoRepeats) != 0 {
		t.Fatalf("expected empty file to decode to nothing, got %v (%v)", f, err)
	}
}
