package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"auto-repeat/internal/model"
)

var (
	// ErrAlreadyAssigned is returned when the owner already has an open
	// assignment on the document.
	ErrAlreadyAssigned = errors.New("already assigned")
	// ErrMissingOwner is returned when an assignment has no owner.
	ErrMissingOwner = errors.New("assignment owner is required")
)

// AssignInput describes a new assignment on a document.
type AssignInput struct {
	Owner         string
	ReferenceType string
	ReferenceName string
	Description   string
	Priority      string
}

// AssignmentRepository stores to-do assignments.
type AssignmentRepository struct {
	db *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// ListOpen returns the open assignments on a document in creation order.
func (r *AssignmentRepository) ListOpen(ctx context.Context, referenceType, referenceName string) ([]model.Assignment, error) {
	var assignments []model.Assignment
	if err := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_name = ? AND status = ?", referenceType, referenceName, model.AssignmentOpen).
		Order("id ASC").
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// Assign creates an open assignment for input.Owner.
func (r *AssignmentRepository) Assign(ctx context.Context, input AssignInput) (*model.Assignment, error) {
	owner := strings.TrimSpace(input.Owner)
	if owner == "" {
		return nil, ErrMissingOwner
	}

	db := r.db.WithContext(ctx)
	var existing int64
	if err := db.Model(&model.Assignment{}).
		Where("reference_type = ? AND reference_name = ? AND owner = ? AND status = ?",
			input.ReferenceType, input.ReferenceName, owner, model.AssignmentOpen).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("check assignment: %w", err)
	}
	if existing > 0 {
		return nil, fmt.Errorf("assign %s to %s %q: %w", owner, input.ReferenceType, input.ReferenceName, ErrAlreadyAssigned)
	}

	priority := input.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	assignment := model.Assignment{
		ReferenceType: input.ReferenceType,
		ReferenceName: input.ReferenceName,
		Owner:         owner,
		Description:   input.Description,
		Priority:      priority,
		Status:        model.AssignmentOpen,
	}
	if err := db.Create(&assignment).Error; err != nil {
		return nil, fmt.Errorf("create assignment: %w", err)
	}
	return &assignment, nil
}

// Close marks an assignment as closed.
func (r *AssignmentRepository) Close(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Model(&model.Assignment{}).Where("id = ?", id).
		Update("status", model.AssignmentClosed).Error; err != nil {
		return fmt.Errorf("close assignment: %w", err)
	}
	return nil
}
