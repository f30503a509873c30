package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/coffeeshop/internal/auth"
	"github.com/mmeshcher/coffeeshop/internal/model"
	"github.com/mmeshcher/coffeeshop/internal/repository"
)

// bcrypt учитывает не больше 72 байт пароля.
const (
	minPasswordLength = 6
	maxPasswordLength = 72
)

// RegisterInput содержит данные регистрации покупателя.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

// Session содержит пользователя и выданные ему токены.
type Session struct {
	User   *model.User
	Tokens auth.TokenPair
}

// Register регистрирует покупателя и сразу выдаёт токены.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)

	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, fmt.Errorf("%w: email must be a valid email", ErrValidation)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}
	if len(in.Password) > maxPasswordLength {
		return nil, fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, maxPasswordLength)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	id, err := s.repo.CreateUser(ctx, model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Phone:        strings.TrimSpace(in.Phone),
		Role:         model.RoleCustomer,
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, fmt.Errorf("%w: user already exists with this email", ErrConflict)
		}
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.Int64("userID", id))

	return s.newSession(user)
}

// Login проверяет email и пароль и выдаёт токены.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.newSession(user)
}

// AdminLogin работает как Login, но пускает только сотрудников и администраторов.
func (s *Service) AdminLogin(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if !user.Role.IsPrivileged() {
		return nil, fmt.Errorf("%w: not authorized as admin", ErrForbidden)
	}
	return s.newSession(user)
}

// Refresh выдаёт новый токен доступа по токену обновления.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	id, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: invalid or expired refresh token", ErrUnauthorized)
	}

	user, err := s.repo.GetUserByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", fmt.Errorf("%w: user not found", ErrUnauthorized)
		}
		return "", err
	}

	return s.tokens.IssueAccessToken(identityOf(user))
}

// Me возвращает профиль вызывающего пользователя.
func (s *Service) Me(ctx context.Context, caller model.Identity) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}

// EnsureAdmin создаёт учётную запись администратора, если email ещё не занят.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}

	_, err := s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	id, err := s.repo.CreateUser(ctx, model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         "Administrator",
		Role:         model.RoleAdmin,
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil
		}
		return err
	}

	s.logger.Info("bootstrap admin created", zap.Int64("userID", id), zap.String("email", email))
	return nil
}

func (s *Service) authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
		}
		return nil, err
	}

	ok, err := auth.ComparePassword(user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	return user, nil
}

func (s *Service) newSession(user *model.User) (*Session, error) {
	pair, err := s.tokens.IssuePair(identityOf(user))
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Tokens: pair}, nil
}

func identityOf(u *model.User) model.Identity {
	return model.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
