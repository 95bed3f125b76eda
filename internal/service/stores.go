package service

import (
	"context"
	"time"

	"gorm.io/gorm"

	"auto-repeat/internal/model"
	"auto-repeat/internal/repository"
)

// DocumentStore is the host document engine.
type DocumentStore interface {
	Get(ctx context.Context, doctype, name string) (*model.Document, error)
	// Copy returns an unsaved duplicate without the host's no-copy fields.
	Copy(doc *model.Document) *model.Document
	Insert(ctx context.Context, doc *model.Document) error
	Submit(ctx context.Context, doc *model.Document) error
}

// AssignmentStore is the host assignment (to-do) subsystem.
type AssignmentStore interface {
	ListOpen(ctx context.Context, referenceType, referenceName string) ([]model.Assignment, error)
	Assign(ctx context.Context, input repository.AssignInput) (*model.Assignment, error)
}

// AutoRepeatStore persists auto repeat configurations.
type AutoRepeatStore interface {
	Create(ctx context.Context, ar *model.AutoRepeat) error
	Save(ctx context.Context, ar *model.AutoRepeat) error
	FindByID(ctx context.Context, id uint) (*model.AutoRepeat, error)
	// FindByIDForUpdate is FindByID holding the row until the unit of work ends.
	FindByIDForUpdate(ctx context.Context, id uint) (*model.AutoRepeat, error)
	List(ctx context.Context) ([]model.AutoRepeat, error)
	ListDue(ctx context.Context, today time.Time) ([]model.AutoRepeat, error)
	Delete(ctx context.Context, id uint) error
}

// Stores groups the stores taking part in one unit of work.
type Stores struct {
	AutoRepeats AutoRepeatStore
	Documents   DocumentStore
	Assignments AssignmentStore
}

// UnitOfWork runs fn atomically: if fn returns an error nothing it wrote is kept.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(Stores) error) error
}

type gormUnitOfWork struct {
	db     *gorm.DB
	noCopy []string
}

// NewGormUnitOfWork runs every unit of work in a gorm transaction.
func NewGormUnitOfWork(db *gorm.DB, noCopy []string) UnitOfWork {
	return &gormUnitOfWork{db: db, noCopy: noCopy}
}

func (u *gormUnitOfWork) Do(ctx context.Context, fn func(Stores) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(Stores{
			AutoRepeats: repository.NewAutoRepeatRepository(tx),
			Documents:   repository.NewDocumentRepository(tx, u.noCopy),
			Assignments: repository.NewAssignmentRepository(tx),
		})
	})
}

// Clock supplies "now".
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// LocalClock returns a clock reporting the current time in loc.
func LocalClock(loc *time.Location) Clock {
	return ClockFunc(func() time.Time { return time.Now().In(loc) })
}
