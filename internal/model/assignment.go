package model

import "time"

// Assignment status values.
const (
	AssignmentOpen      = "Open"
	AssignmentClosed    = "Closed"
	AssignmentCancelled = "Cancelled"
)

// Assignment priorities.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// Assignment links a user to a document as a to-do item.
type Assignment struct {
	ID            uint   `gorm:"primaryKey"`
	ReferenceType string `gorm:"index:idx_assignment_reference"`
	ReferenceName string `gorm:"index:idx_assignment_reference"`
	Owner         string `gorm:"index"`
	Description   string
	Priority      string `gorm:"default:Medium"`
	Status        string `gorm:"default:Open;index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
