package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"smallcrm/cmd/internal/domain/entity"
)

type DefaultUserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *DefaultUserRepository {
	return &DefaultUserRepository{db: db}
}

func (u *DefaultUserRepository) FindByID(ctx context.Context, id int) (*entity.User, error) {
	var user entity.User
	err := conn(ctx, u.db).First(&user, id).Error
	return notFoundAsNil(&user, err)
}

func (u *DefaultUserRepository) FindBySub(ctx context.Context, sub string) (*entity.User, error) {
	var user entity.User
	err := conn(ctx, u.db).Where("sub_uuid = ?", sub).First(&user).Error
	return notFoundAsNil(&user, err)
}

func (u *DefaultUserRepository) FindAll(ctx context.Context) ([]*entity.User, error) {
	var users []*entity.User
	err := conn(ctx, u.db).Order("username asc").Find(&users).Error
	return users, err
}

func (u *DefaultUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := conn(ctx, u.db).Model(&entity.User{}).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		Count(&count).Error
	return count > 0, err
}

func (u *DefaultUserRepository) Create(ctx context.Context, user *entity.User) error {
	return conn(ctx, u.db).Create(user).Error
}
