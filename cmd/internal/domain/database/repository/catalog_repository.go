package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"smallcrm/cmd/internal/domain/entity"
)

type DefaultSegmentRepository struct {
	db *gorm.DB
}

func NewSegmentRepository(db *gorm.DB) *DefaultSegmentRepository {
	return &DefaultSegmentRepository{db: db}
}

func (s *DefaultSegmentRepository) FindAll(ctx context.Context) ([]*entity.CustomerSegment, error) {
	var segments []*entity.CustomerSegment
	err := conn(ctx, s.db).Order("name asc").Find(&segments).Error
	return segments, err
}

func (s *DefaultSegmentRepository) FindByID(ctx context.Context, id int) (*entity.CustomerSegment, error) {
	var segment entity.CustomerSegment
	err := conn(ctx, s.db).First(&segment, id).Error
	return notFoundAsNil(&segment, err)
}

func (s *DefaultSegmentRepository) FindByName(ctx context.Context, name string) (*entity.CustomerSegment, error) {
	var segment entity.CustomerSegment
	err := conn(ctx, s.db).Where("LOWER(name) = ?", strings.ToLower(name)).First(&segment).Error
	return notFoundAsNil(&segment, err)
}

func (s *DefaultSegmentRepository) Create(ctx context.Context, segment *entity.CustomerSegment) error {
	return conn(ctx, s.db).Create(segment).Error
}

type DefaultAppointmentTypeRepository struct {
	db *gorm.DB
}

func NewAppointmentTypeRepository(db *gorm.DB) *DefaultAppointmentTypeRepository {
	return &DefaultAppointmentTypeRepository{db: db}
}

func (a *DefaultAppointmentTypeRepository) FindAll(ctx context.Context) ([]*entity.AppointmentType, error) {
	var types []*entity.AppointmentType
	err := conn(ctx, a.db).Order("name asc").Find(&types).Error
	return types, err
}

func (a *DefaultAppointmentTypeRepository) FindByID(ctx context.Context, id int) (*entity.AppointmentType, error) {
	var apptType entity.AppointmentType
	err := conn(ctx, a.db).First(&apptType, id).Error
	return notFoundAsNil(&apptType, err)
}

func (a *DefaultAppointmentTypeRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	err := conn(ctx, a.db).Model(&entity.AppointmentType{}).
		Where("LOWER(name) = ?", strings.ToLower(name)).
		Count(&count).Error
	return count > 0, err
}

func (a *DefaultAppointmentTypeRepository) Create(ctx context.Context, apptType *entity.AppointmentType) error {
	return conn(ctx, a.db).Create(apptType).Error
}
