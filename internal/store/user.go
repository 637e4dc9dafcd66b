package store

import (
	"context"
	"fmt"

	"equipment-tracker-backend/internal/apperr"
	"equipment-tracker-backend/internal/model"
)

func (s *gormStore) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, notFound(err, "user %q not found", username)
	}
	return &u, nil
}

func (s *gormStore) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err, "user %d not found", id)
	}
	return &u, nil
}

func (s *gormStore) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *gormStore) CreateUser(ctx context.Context, u *model.User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if isDuplicateKey(err) {
			return apperr.Conflict(err, "username %q is already taken", u.Username)
		}
		return fmt.Errorf("failed to create user %q: %w", u.Username, err)
	}
	return nil
}

func (s *gormStore) DeleteUser(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.User{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user %d not found", id)
	}
	return nil
}

func (s *gormStore) CountUsersByRole(ctx context.Context, role model.Role) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("role = ?", role).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count %s users: %w", role, err)
	}
	return n, nil
}
