package model

import (
	"time"

	"gorm.io/datatypes"
)

// Document status values, as kept in Document.DocStatus.
const (
	DocStatusDraft     = 0
	DocStatusSubmitted = 1
	DocStatusCancelled = 2
)

// Document is a host-framework record that can act as the reference of an
// auto repeat. Arbitrary persisted fields live in Fields.
type Document struct {
	ID         uint   `gorm:"primaryKey"`
	Name       string `gorm:"uniqueIndex"`
	Doctype    string `gorm:"index"`
	Subject    string
	StartDate  *time.Time
	EndDate    *time.Time
	DocStatus  int `gorm:"default:0"`
	Fields     datatypes.JSONMap
	AutoRepeat *string `gorm:"index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsSubmitted reports whether the document has been finalized.
func (d *Document) IsSubmitted() bool {
	return d.DocStatus == DocStatusSubmitted
}
