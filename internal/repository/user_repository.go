package repository

import (
	"context"
	"strings"

	"ijara_backend/internal/model"
)

func (s *GormStore) CreateUser(ctx context.Context, user *model.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return s.conn(ctx).Create(user).Error
}

func (s *GormStore) FindUser(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := s.conn(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *GormStore) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := s.conn(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}
