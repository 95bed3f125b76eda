package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"auto-repeat/internal/model"
	"auto-repeat/internal/recurrence"
)

// AutoRepeatInput represents data required to create an auto repeat.
type AutoRepeatInput struct {
	ReferenceDoctype  string
	ReferenceDocument string
	Frequency         string
	RepeatOnDays      []string
	StartDate         time.Time
	EndDate           *time.Time
	Disabled          bool
	SubmitOnCreation  bool
	Notify            bool
}

// AutoRepeatPatch lists the fields an update changes. Nil fields are kept.
type AutoRepeatPatch struct {
	Frequency        *string
	RepeatOnDays     *[]string
	StartDate        *time.Time
	EndDate          *time.Time
	ClearEndDate     bool
	Disabled         *bool
	SubmitOnCreation *bool
	Notify           *bool
}

// Notifier is told about every generated document of an auto repeat with
// Notify set.
type Notifier interface {
	DocumentGenerated(ctx context.Context, ar model.AutoRepeat, doc model.Document, assignments []model.Assignment) error
}

type generation struct {
	doc         *model.Document
	assignments []model.Assignment
}

// AutoRepeatService drives the auto repeat lifecycle: it computes schedule
// dates on every change and generates documents when they are due.
type AutoRepeatService struct {
	uow        UnitOfWork
	replicator *Replicator
	clock      Clock
	notifier   Notifier
	log        zerolog.Logger

	runMu sync.Mutex
}

func NewAutoRepeatService(uow UnitOfWork, replicator *Replicator, clock Clock, log zerolog.Logger) *AutoRepeatService {
	return &AutoRepeatService{uow: uow, replicator: replicator, clock: clock, log: log}
}

// SetNotifier installs n; a nil notifier turns notifications off.
func (s *AutoRepeatService) SetNotifier(n Notifier) {
	s.notifier = n
}

// Create stores a new auto repeat. An active one generates its first
// document right away and then rolls its next schedule date forward.
func (s *AutoRepeatService) Create(ctx context.Context, input AutoRepeatInput) (*model.AutoRepeat, error) {
	ar := &model.AutoRepeat{
		ReferenceDoctype:  strings.TrimSpace(input.ReferenceDoctype),
		ReferenceDocument: strings.TrimSpace(input.ReferenceDocument),
		Frequency:         strings.TrimSpace(input.Frequency),
		RepeatOnDays:      repeatDays(input.RepeatOnDays),
		StartDate:         storedDate(input.StartDate),
		EndDate:           storedDatePtr(input.EndDate),
		Disabled:          input.Disabled,
		Status:            model.StatusActive,
		SubmitOnCreation:  input.SubmitOnCreation,
		Notify:            input.Notify,
	}
	if input.StartDate.IsZero() {
		ar.StartDate = storedDate(s.clock.Now())
	}
	if err := validate(ar); err != nil {
		return nil, err
	}

	today := s.clock.Now()
	var gen *generation
	err := s.uow.Do(ctx, func(st Stores) error {
		if err := s.setDates(ctx, st.Documents, ar, today); err != nil {
			return err
		}
		if err := st.AutoRepeats.Create(ctx, ar); err != nil {
			return err
		}
		if !ar.IsActive() {
			return nil
		}
		var err error
		if gen, err = s.generate(ctx, st, ar, today); err != nil {
			return err
		}
		return st.AutoRepeats.Save(ctx, ar)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("id", ar.ID).Str("name", ar.Name).Str("frequency", ar.Frequency).
		Str("next", formatDate(ar.NextScheduleDate)).Msg("auto repeat created")
	s.notify(ctx, ar, gen)
	return ar, nil
}

// Update applies patch and recomputes the schedule. A rejected update leaves
// the stored auto repeat untouched. Documents are generated only when the
// recomputed schedule date is already due.
func (s *AutoRepeatService) Update(ctx context.Context, id uint, patch AutoRepeatPatch) (*model.AutoRepeat, error) {
	today := s.clock.Now()
	var (
		result *model.AutoRepeat
		gen    *generation
	)
	err := s.uow.Do(ctx, func(st Stores) error {
		ar, err := st.AutoRepeats.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("find auto repeat %d: %w", id, err)
		}
		patch.apply(ar)
		if err := validate(ar); err != nil {
			return err
		}
		if err := s.setDates(ctx, st.Documents, ar, today); err != nil {
			return err
		}
		if ar.IsActive() && isDue(ar.NextScheduleDate, today) {
			if gen, err = s.generate(ctx, st, ar, today); err != nil {
				return err
			}
		}
		if err := st.AutoRepeats.Save(ctx, ar); err != nil {
			return err
		}
		result = ar
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("id", result.ID).Str("status", result.Status).
		Str("next", formatDate(result.NextScheduleDate)).Msg("auto repeat updated")
	s.notify(ctx, result, gen)
	return result, nil
}

// SetDisabled toggles the disabled flag. Disabling clears the schedule date.
func (s *AutoRepeatService) SetDisabled(ctx context.Context, id uint, disabled bool) (*model.AutoRepeat, error) {
	return s.Update(ctx, id, AutoRepeatPatch{Disabled: &disabled})
}

// RunDue generates a document for every active auto repeat whose schedule
// date has arrived and rolls each schedule forward. Each auto repeat runs in
// its own unit of work; failures are collected and returned together.
// Runs are serialized, and each auto repeat is re-read under a row lock so a
// concurrent run that already handled it is skipped.
func (s *AutoRepeatService) RunDue(ctx context.Context) (int, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	today := s.clock.Now()

	var due []model.AutoRepeat
	err := s.uow.Do(ctx, func(st Stores) error {
		var err error
		due, err = st.AutoRepeats.ListDue(ctx, storedDate(today))
		return err
	})
	if err != nil {
		return 0, err
	}

	generated := 0
	var errs []error
	for i := range due {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		id := due[i].ID
		var (
			ar  *model.AutoRepeat
			gen *generation
		)
		err := s.uow.Do(ctx, func(st Stores) error {
			var err error
			ar, err = st.AutoRepeats.FindByIDForUpdate(ctx, id)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if !ar.IsActive() || !isDue(ar.NextScheduleDate, today) {
				s.log.Debug().Uint("id", id).Msg("auto repeat no longer due, skip")
				return nil
			}
			if ar.EndDate != nil && storedDate(*ar.EndDate).Before(storedDate(today)) {
				markCompleted(ar)
				return st.AutoRepeats.Save(ctx, ar)
			}
			if gen, err = s.generate(ctx, st, ar, today); err != nil {
				return err
			}
			return st.AutoRepeats.Save(ctx, ar)
		})
		if err != nil {
			s.log.Error().Err(err).Uint("id", id).Str("name", due[i].Name).Msg("auto repeat run failed")
			errs = append(errs, fmt.Errorf("auto repeat %d: %w", id, err))
			continue
		}
		if gen != nil {
			generated++
			s.notify(ctx, ar, gen)
		}
	}

	s.log.Info().Int("due", len(due)).Int("generated", generated).Int("failed", len(errs)).Msg("due auto repeats processed")
	return generated, errors.Join(errs...)
}

func (s *AutoRepeatService) Get(ctx context.Context, id uint) (*model.AutoRepeat, error) {
	var ar *model.AutoRepeat
	err := s.uow.Do(ctx, func(st Stores) error {
		var err error
		ar, err = st.AutoRepeats.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("find auto repeat %d: %w", id, err)
		}
		return nil
	})
	return ar, err
}

func (s *AutoRepeatService) List(ctx context.Context) ([]model.AutoRepeat, error) {
	var list []model.AutoRepeat
	err := s.uow.Do(ctx, func(st Stores) error {
		var err error
		list, err = st.AutoRepeats.List(ctx)
		return err
	})
	return list, err
}

func (s *AutoRepeatService) Delete(ctx context.Context, id uint) error {
	return s.uow.Do(ctx, func(st Stores) error {
		return st.AutoRepeats.Delete(ctx, id)
	})
}

// generate creates the document for the current schedule date unless one was
// already generated today, then rolls the schedule forward.
func (s *AutoRepeatService) generate(ctx context.Context, st Stores, ar *model.AutoRepeat, today time.Time) (*generation, error) {
	var gen *generation
	if !generatedOn(ar, today) {
		var err error
		if gen, err = s.createDocuments(ctx, st, ar, today); err != nil {
			return nil, err
		}
	}
	if err := s.rollForward(ctx, st.Documents, ar, today); err != nil {
		return nil, err
	}
	return gen, nil
}

// setDates recomputes the schedule state of ar as of today.
func (s *AutoRepeatService) setDates(ctx context.Context, docs DocumentStore, ar *model.AutoRepeat, today time.Time) error {
	if ar.Disabled {
		ar.NextScheduleDate = nil
		ar.Status = model.StatusDisabled
		return nil
	}

	ar.Status = model.StatusActive
	next, err := s.computeNext(ctx, docs, ar, today)
	if err != nil {
		return err
	}
	if err := recurrence.CheckEndDate(ar.EndDate, next); err != nil {
		return err
	}
	ar.NextScheduleDate = storedDatePtr(&next)
	return nil
}

// rollForward moves the schedule past today after a document was generated.
// Running past the end date completes the auto repeat.
func (s *AutoRepeatService) rollForward(ctx context.Context, docs DocumentStore, ar *model.AutoRepeat, today time.Time) error {
	next, err := s.computeNext(ctx, docs, ar, today)
	if err != nil {
		return err
	}
	if !storedDate(next).After(storedDate(today)) {
		if next, err = s.computeNext(ctx, docs, ar, today.AddDate(0, 0, 1)); err != nil {
			return err
		}
	}
	if recurrence.CheckEndDate(ar.EndDate, next) != nil {
		markCompleted(ar)
		return nil
	}
	ar.NextScheduleDate = storedDatePtr(&next)
	return nil
}

func (s *AutoRepeatService) computeNext(ctx context.Context, docs DocumentStore, ar *model.AutoRepeat, today time.Time) (time.Time, error) {
	cfg, err := calculatorConfig(ar)
	if err != nil {
		return time.Time{}, err
	}
	ref, err := docs.Get(ctx, ar.ReferenceDoctype, ar.ReferenceDocument)
	if err != nil {
		return time.Time{}, err
	}
	created := ref.CreatedAt.In(today.Location())
	return recurrence.ComputeNext(cfg, recurrence.ReferenceDatesOf(ref.StartDate, created, ref.EndDate), today)
}

func (s *AutoRepeatService) createDocuments(ctx context.Context, st Stores, ar *model.AutoRepeat, today time.Time) (*generation, error) {
	ref, err := st.Documents.Get(ctx, ar.ReferenceDoctype, ar.ReferenceDocument)
	if err != nil {
		return nil, err
	}
	doc, assignments, err := s.replicator.Replicate(ctx, st.Documents, st.Assignments, ref, ReplicateOptions{
		SubmitOnCreation: ar.SubmitOnCreation,
		AutoRepeat:       ar.Name,
		ScheduleDate:     ar.NextScheduleDate,
	})
	if err != nil {
		return nil, err
	}
	name := doc.Name
	ar.LastGeneratedDocument = &name
	ar.LastGeneratedOn = storedDatePtr(&today)
	return &generation{doc: doc, assignments: assignments}, nil
}

func (s *AutoRepeatService) notify(ctx context.Context, ar *model.AutoRepeat, gen *generation) {
	if gen == nil || s.notifier == nil || !ar.Notify {
		return
	}
	if err := s.notifier.DocumentGenerated(ctx, *ar, *gen.doc, gen.assignments); err != nil {
		s.log.Warn().Err(err).Uint("id", ar.ID).Str("document", gen.doc.Name).Msg("notify generated document")
	}
}

func (p AutoRepeatPatch) apply(ar *model.AutoRepeat) {
	if p.Frequency != nil {
		ar.Frequency = strings.TrimSpace(*p.Frequency)
	}
	if p.RepeatOnDays != nil {
		ar.RepeatOnDays = repeatDays(*p.RepeatOnDays)
	}
	if p.StartDate != nil {
		ar.StartDate = storedDate(*p.StartDate)
	}
	if p.EndDate != nil {
		ar.EndDate = storedDatePtr(p.EndDate)
	}
	if p.ClearEndDate {
		ar.EndDate = nil
	}
	if p.Disabled != nil {
		ar.Disabled = *p.Disabled
	}
	if p.SubmitOnCreation != nil {
		ar.SubmitOnCreation = *p.SubmitOnCreation
	}
	if p.Notify != nil {
		ar.Notify = *p.Notify
	}
}

func validate(ar *model.AutoRepeat) error {
	if ar.ReferenceDoctype == "" || ar.ReferenceDocument == "" {
		return fmt.Errorf("%w: reference document is required", recurrence.ErrConfiguration)
	}
	_, err := calculatorConfig(ar)
	return err
}

func calculatorConfig(ar *model.AutoRepeat) (recurrence.Config, error) {
	freq, err := recurrence.ParseFrequency(ar.Frequency)
	if err != nil {
		return recurrence.Config{}, err
	}
	cfg := recurrence.Config{Frequency: freq}
	if freq != recurrence.Weekly {
		return cfg, nil
	}
	if len(ar.RepeatOnDays) == 0 {
		return cfg, fmt.Errorf("%w: repeat on days required for weekly frequency", recurrence.ErrConfiguration)
	}
	if cfg.Weekdays, err = recurrence.ParseWeekdays(ar.DayNames()); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func markCompleted(ar *model.AutoRepeat) {
	ar.Status = model.StatusCompleted
	ar.NextScheduleDate = nil
}

func repeatDays(names []string) []model.AutoRepeatDay {
	days := make([]model.AutoRepeatDay, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			days = append(days, model.AutoRepeatDay{Day: n})
		}
	}
	return days
}

func generatedOn(ar *model.AutoRepeat, today time.Time) bool {
	return ar.LastGeneratedOn != nil && storedDate(*ar.LastGeneratedOn).Equal(storedDate(today))
}

func isDue(next *time.Time, today time.Time) bool {
	return next != nil && !storedDate(*next).After(storedDate(today))
}

// storedDate keeps the calendar date of t as midnight UTC, the form every
// schedule date is persisted in.
func storedDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func storedDatePtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	d := storedDate(*t)
	return &d
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateOnly)
}
