package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"auto-repeat/internal/model"
)

// AutoRepeatRepository handles CRUD for auto repeat configurations.
type AutoRepeatRepository struct {
	db *gorm.DB
}

func NewAutoRepeatRepository(db *gorm.DB) *AutoRepeatRepository {
	return &AutoRepeatRepository{db: db}
}

func (r *AutoRepeatRepository) Create(ctx context.Context, ar *model.AutoRepeat) error {
	if ar.Name == "" {
		ar.Name = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(ar).Error; err != nil {
		return fmt.Errorf("create auto repeat: %w", err)
	}
	return nil
}

// Save persists every field of ar and replaces its repeat days.
func (r *AutoRepeatRepository) Save(ctx context.Context, ar *model.AutoRepeat) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit("RepeatOnDays").Save(ar).Error; err != nil {
		return fmt.Errorf("save auto repeat: %w", err)
	}
	if err := db.Where("auto_repeat_id = ?", ar.ID).Delete(&model.AutoRepeatDay{}).Error; err != nil {
		return fmt.Errorf("clear repeat days: %w", err)
	}
	if len(ar.RepeatOnDays) == 0 {
		return nil
	}
	for i := range ar.RepeatOnDays {
		ar.RepeatOnDays[i].ID = 0
		ar.RepeatOnDays[i].AutoRepeatID = ar.ID
	}
	if err := db.Create(&ar.RepeatOnDays).Error; err != nil {
		return fmt.Errorf("save repeat days: %w", err)
	}
	return nil
}

func (r *AutoRepeatRepository) FindByID(ctx context.Context, id uint) (*model.AutoRepeat, error) {
	var ar model.AutoRepeat
	if err := r.withDays(ctx).First(&ar, id).Error; err != nil {
		return nil, err
	}
	return &ar, nil
}

// FindByIDForUpdate loads an auto repeat and locks its row until the
// transaction ends. SQLite has no row locks and relies on its write lock.
func (r *AutoRepeatRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.AutoRepeat, error) {
	var ar model.AutoRepeat
	if err := r.withDays(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&ar, id).Error; err != nil {
		return nil, err
	}
	return &ar, nil
}

func (r *AutoRepeatRepository) List(ctx context.Context) ([]model.AutoRepeat, error) {
	var list []model.AutoRepeat
	if err := r.withDays(ctx).Order("id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ListDue returns active auto repeats whose next schedule date is on or before today.
func (r *AutoRepeatRepository) ListDue(ctx context.Context, today time.Time) ([]model.AutoRepeat, error) {
	var list []model.AutoRepeat
	if err := r.withDays(ctx).
		Where("disabled = ? AND status = ? AND next_schedule_date IS NOT NULL AND next_schedule_date <= ?",
			false, model.StatusActive, today).
		Order("next_schedule_date ASC, id ASC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list due auto repeats: %w", err)
	}
	return list, nil
}

func (r *AutoRepeatRepository) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("auto_repeat_id = ?", id).Delete(&model.AutoRepeatDay{}).Error; err != nil {
		return fmt.Errorf("delete repeat days: %w", err)
	}
	if err := db.Delete(&model.AutoRepeat{}, id).Error; err != nil {
		return fmt.Errorf("delete auto repeat: %w", err)
	}
	return nil
}

func (r *AutoRepeatRepository) withDays(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("RepeatOnDays", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
}
