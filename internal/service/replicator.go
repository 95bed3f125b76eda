package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"auto-repeat/internal/model"
	"auto-repeat/internal/recurrence"
	"auto-repeat/internal/repository"
)

// ReplicateOptions controls how a reference document is duplicated.
type ReplicateOptions struct {
	SubmitOnCreation bool
	// AutoRepeat is stored on the new document as a back link.
	AutoRepeat string
	// ScheduleDate, when set, moves the copy's start date to it and keeps the
	// reference start/end span.
	ScheduleDate *time.Time
}

// Replicator duplicates reference documents and carries their open
// assignments forward.
type Replicator struct {
	log zerolog.Logger
}

func NewReplicator(log zerolog.Logger) *Replicator {
	return &Replicator{log: log}
}

// Replicate inserts a copy of ref, re-creates every open assignment of ref on
// it in query order, and submits it when asked to. A second open assignment
// for the same owner is skipped. Other host errors are returned wrapped with
// context.
func (r *Replicator) Replicate(ctx context.Context, docs DocumentStore, assignments AssignmentStore, ref *model.Document, opts ReplicateOptions) (*model.Document, []model.Assignment, error) {
	doc := docs.Copy(ref)
	if opts.AutoRepeat != "" {
		name := opts.AutoRepeat
		doc.AutoRepeat = &name
	}
	if opts.ScheduleDate != nil {
		shiftDates(doc, ref, *opts.ScheduleDate)
	}

	if err := docs.Insert(ctx, doc); err != nil {
		return nil, nil, fmt.Errorf("insert copy of %s %q: %w", ref.Doctype, ref.Name, err)
	}

	open, err := assignments.ListOpen(ctx, ref.Doctype, ref.Name)
	if err != nil {
		return nil, nil, err
	}
	copied := make([]model.Assignment, 0, len(open))
	for _, a := range open {
		created, err := assignments.Assign(ctx, repository.AssignInput{
			Owner:         a.Owner,
			ReferenceType: doc.Doctype,
			ReferenceName: doc.Name,
			Description:   a.Description,
			Priority:      a.Priority,
		})
		if errors.Is(err, repository.ErrAlreadyAssigned) {
			r.log.Warn().Str("owner", a.Owner).Str("document", doc.Name).Msg("owner already assigned, skip duplicate")
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("copy assignment of %s: %w", a.Owner, err)
		}
		copied = append(copied, *created)
	}

	if opts.SubmitOnCreation {
		if err := docs.Submit(ctx, doc); err != nil {
			return nil, nil, err
		}
	}

	r.log.Info().
		Str("doctype", doc.Doctype).
		Str("reference", ref.Name).
		Str("document", doc.Name).
		Int("assignments", len(copied)).
		Bool("submitted", doc.IsSubmitted()).
		Msg("document replicated")
	return doc, copied, nil
}

func shiftDates(doc, ref *model.Document, on time.Time) {
	span := recurrence.ReferenceDatesOf(ref.StartDate, ref.CreatedAt, ref.EndDate).Duration()
	start := on
	doc.StartDate = &start
	if ref.EndDate != nil {
		end := start.Add(span)
		doc.EndDate = &end
	}
}
