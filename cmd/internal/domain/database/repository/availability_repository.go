package repository

import (
	"context"

	"gorm.io/gorm"
	"smallcrm/cmd/internal/domain/entity"
)

type DefaultAvailabilityRepository struct {
	db *gorm.DB
}

func NewAvailabilityRepository(db *gorm.DB) *DefaultAvailabilityRepository {
	return &DefaultAvailabilityRepository{db: db}
}

// ListActiveWindows returns the active windows of a resource on a weekday
// ordered by start time.
func (r *DefaultAvailabilityRepository) ListActiveWindows(ctx context.Context, resourceID, weekday int) ([]*entity.AvailabilityWindow, error) {
	var windows []*entity.AvailabilityWindow
	err := conn(ctx, r.db).
		Where("resource_id = ? AND weekday = ? AND is_active = ?", resourceID, weekday, true).
		Order("start_time asc").
		Find(&windows).Error
	return windows, err
}

func (r *DefaultAvailabilityRepository) FindByResource(ctx context.Context, resourceID int) ([]*entity.AvailabilityWindow, error) {
	var windows []*entity.AvailabilityWindow
	err := conn(ctx, r.db).
		Where("resource_id = ?", resourceID).
		Order("weekday asc").Order("start_time asc").
		Find(&windows).Error
	return windows, err
}

func (r *DefaultAvailabilityRepository) FindByID(ctx context.Context, id int) (*entity.AvailabilityWindow, error) {
	var window entity.AvailabilityWindow
	err := conn(ctx, r.db).First(&window, id).Error
	return notFoundAsNil(&window, err)
}

// ExistsByKey reports whether another window already uses the
// (resource, weekday, start time) key. excludeID 0 excludes nothing.
func (r *DefaultAvailabilityRepository) ExistsByKey(ctx context.Context, resourceID, weekday int, start entity.TimeOfDay, excludeID int) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&entity.AvailabilityWindow{}).
		Where("resource_id = ? AND weekday = ? AND start_time = ?", resourceID, weekday, start).
		Where("id <> ?", excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *DefaultAvailabilityRepository) Create(ctx context.Context, window *entity.AvailabilityWindow) error {
	return conn(ctx, r.db).Create(window).Error
}

func (r *DefaultAvailabilityRepository) Save(ctx context.Context, window *entity.AvailabilityWindow) error {
	return conn(ctx, r.db).Save(window).Error
}

func (r *DefaultAvailabilityRepository) Delete(ctx context.Context, window *entity.AvailabilityWindow) error {
	return conn(ctx, r.db).Delete(window).Error
}
