// Package service реализует бизнес-логику кофейного магазина.
package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mmeshcher/coffeeshop/internal/auth"
	"github.com/mmeshcher/coffeeshop/internal/model"
	"github.com/mmeshcher/coffeeshop/internal/repository"
)

// Ошибки бизнес-логики. Обработчики HTTP сопоставляют каждой фиксированный код ответа.
var (
	// ErrValidation возвращается при некорректных или неполных входных данных.
	ErrValidation = errors.New("validation error")
	// ErrNotFound возвращается, если запрошенная сущность не существует.
	ErrNotFound = errors.New("not found")
	// ErrForbidden возвращается при нарушении прав владения или роли.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTransition возвращается при попытке перехода вне графа статусов.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrUnauthorized возвращается при неверных учётных данных или токене.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrProductNotFound возвращается, если товар из заказа или запроса не найден.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductUnavailable возвращается, если товар нельзя заказать.
	ErrProductUnavailable = errors.New("product unavailable")
	// ErrConflict возвращается при нарушении уникальности или ссылочной целостности.
	ErrConflict = errors.New("conflict")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateUser(ctx context.Context, u model.User) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	UpdateUserProfile(ctx context.Context, id int64, upd model.ProfileUpdate) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)

	CreateProduct(ctx context.Context, p model.Product) (*model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]model.Product, error)
	ListProducts(ctx context.Context, f model.ProductFilter) ([]model.Product, error)
	UpdateProduct(ctx context.Context, id int64, upd model.ProductUpdate) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	CreateOrder(ctx context.Context, o model.Order) (*model.Order, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	ListOrders(ctx context.Context, status model.OrderStatus) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, decide repository.StatusDecider) (*model.Order, error)
	GetStats(ctx context.Context, recent int) (*model.Stats, error)
}

// Service содержит бизнес-логику магазина.
type Service struct {
	repo   Repository
	tokens *auth.TokenManager
	logger *zap.Logger
}

// NewService создаёт новый сервис с указанным репозиторием и менеджером токенов.
func NewService(repo Repository, tokens *auth.TokenManager, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		tokens: tokens,
		logger: logger,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

func requireAdmin(caller model.Identity) error {
	if caller.Role != model.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

func requirePrivileged(caller model.Identity) error {
	if !caller.Role.IsPrivileged() {
		return ErrForbidden
	}
	return nil
}
