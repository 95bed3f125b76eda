package model

import "time"

// Auto repeat status values.
const (
	StatusActive    = "Active"
	StatusDisabled  = "Disabled"
	StatusCompleted = "Completed"
)

// AutoRepeat describes how often a reference document is duplicated.
// NextScheduleDate is the schedule state and is nil while disabled.
type AutoRepeat struct {
	ID                    uint   `gorm:"primaryKey"`
	Name                  string `gorm:"uniqueIndex"`
	ReferenceDoctype      string `gorm:"index:idx_auto_repeat_reference"`
	ReferenceDocument     string `gorm:"index:idx_auto_repeat_reference"`
	Frequency             string
	RepeatOnDays          []AutoRepeatDay `gorm:"foreignKey:AutoRepeatID;constraint:OnDelete:CASCADE"`
	StartDate             time.Time
	EndDate               *time.Time
	NextScheduleDate      *time.Time `gorm:"index"`
	Disabled              bool       `gorm:"default:false"`
	Status                string     `gorm:"default:Active;index"`
	SubmitOnCreation      bool       `gorm:"default:false"`
	Notify                bool       `gorm:"default:false"`
	LastGeneratedDocument *string
	// LastGeneratedOn is the day the last document was generated.
	LastGeneratedOn *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// AutoRepeatDay is one weekday an auto repeat fires on. Only used by Weekly.
type AutoRepeatDay struct {
	ID           uint `gorm:"primaryKey"`
	AutoRepeatID uint `gorm:"index"`
	Day          string
}

// DayNames returns the configured weekday names in stored order.
func (a *AutoRepeat) DayNames() []string {
	names := make([]string, 0, len(a.RepeatOnDays))
	for _, d := range a.RepeatOnDays {
		names = append(names, d.Day)
	}
	return names
}

// IsActive reports whether the auto repeat should generate documents.
func (a *AutoRepeat) IsActive() bool {
	return !a.Disabled && a.Status == StatusActive
}
