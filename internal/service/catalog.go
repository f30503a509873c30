package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/coffeeshop/internal/model"
	"github.com/mmeshcher/coffeeshop/internal/repository"
)

// Ограничения каталога и заказа. Количество и остаток хранятся в INTEGER.
const (
	MaxStock    = 1_000_000
	MaxQuantity = 1_000
)

// MaxPrice ограничивает цену одного товара.
var MaxPrice = decimal.NewFromInt(10_000_000)

// ProductInput содержит данные нового товара.
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Image       string
	RoastLevel  string
	Grind       string
	Size        string
	Stock       int
}

// ListProducts возвращает каталог с учётом фильтра.
func (s *Service) ListProducts(ctx context.Context, f model.ProductFilter) ([]model.Product, error) {
	return s.repo.ListProducts(ctx, f)
}

// GetProduct возвращает товар по идентификатору.
func (s *Service) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, mapProductError(err)
	}
	return p, nil
}

// CreateProduct добавляет товар в каталог.
func (s *Service) CreateProduct(ctx context.Context, caller model.Identity, in ProductInput) (*model.Product, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	p := model.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Image:       strings.TrimSpace(in.Image),
		RoastLevel:  strings.TrimSpace(in.RoastLevel),
		Grind:       strings.TrimSpace(in.Grind),
		Size:        strings.TrimSpace(in.Size),
		Stock:       in.Stock,
	}
	if p.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if err := checkPrice(p.Price); err != nil {
		return nil, err
	}
	if err := checkStock(p.Stock); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateProduct(ctx, p)
	if err != nil {
		return nil, mapProductError(err)
	}

	s.logger.Info("product created", zap.Int64("productID", created.ID), zap.Int64("actorID", caller.UserID))
	return created, nil
}

// UpdateProduct меняет переданные поля товара. Цена в уже оформленных заказах не меняется.
func (s *Service) UpdateProduct(ctx context.Context, caller model.Identity, id int64, upd model.ProductUpdate) (*model.Product, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	upd.Name = trimPtr(upd.Name)
	if upd.Name != nil && *upd.Name == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrValidation)
	}
	if upd.Price != nil {
		if err := checkPrice(*upd.Price); err != nil {
			return nil, err
		}
	}
	if upd.Stock != nil {
		if err := checkStock(*upd.Stock); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.UpdateProduct(ctx, id, upd)
	if err != nil {
		return nil, mapProductError(err)
	}

	s.logger.Info("product updated", zap.Int64("productID", id), zap.Int64("actorID", caller.UserID))
	return updated, nil
}

// DeleteProduct удаляет товар, если на него не ссылается ни один заказ.
func (s *Service) DeleteProduct(ctx context.Context, caller model.Identity, id int64) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}

	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return mapProductError(err)
	}

	s.logger.Info("product deleted", zap.Int64("productID", id), zap.Int64("actorID", caller.UserID))
	return nil
}

func checkPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	if price.GreaterThan(MaxPrice) {
		return fmt.Errorf("%w: price must be at most %s", ErrValidation, MaxPrice.String())
	}
	if !price.Equal(price.Round(2)) {
		return fmt.Errorf("%w: price must have at most two decimal places", ErrValidation)
	}
	return nil
}

func checkStock(stock int) error {
	if stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrValidation)
	}
	if stock > MaxStock {
		return fmt.Errorf("%w: stock must be at most %d", ErrValidation, MaxStock)
	}
	return nil
}

func mapProductError(err error) error {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return ErrProductNotFound
	case errors.Is(err, repository.ErrProductExists):
		return fmt.Errorf("%w: product already exists", ErrConflict)
	case errors.Is(err, repository.ErrProductInUse):
		return fmt.Errorf("%w: product is referenced by existing orders", ErrConflict)
	default:
		return err
	}
}
