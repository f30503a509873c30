package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmeshcher/coffeeshop/internal/model"
	"github.com/mmeshcher/coffeeshop/internal/repository"
)

// UpdateProfile меняет переданные поля профиля. Email и роль так изменить нельзя.
func (s *Service) UpdateProfile(ctx context.Context, caller model.Identity, upd model.ProfileUpdate) (*model.User, error) {
	upd = model.ProfileUpdate{
		Name:       trimPtr(upd.Name),
		Phone:      trimPtr(upd.Phone),
		Address:    trimPtr(upd.Address),
		City:       trimPtr(upd.City),
		PostalCode: trimPtr(upd.PostalCode),
	}
	if upd.Name != nil && *upd.Name == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrValidation)
	}

	user, err := s.repo.UpdateUserProfile(ctx, caller.UserID, upd)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}

// ListUsers возвращает всех пользователей. Доступно только администратору.
func (s *Service) ListUsers(ctx context.Context, caller model.Identity) ([]model.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx)
}

func trimPtr(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}
