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

// OrderItemInput описывает строку создаваемого заказа.
// Price присылает клиент; он не используется для расчёта и только журналируется при расхождении.
type OrderItemInput struct {
	ProductID int64
	Quantity  int
	Price     *decimal.Decimal
}

// CreateOrderInput содержит данные для оформления заказа.
type CreateOrderInput struct {
	Items           []OrderItemInput
	DeliveryAddress string
}

// CreateOrder оформляет заказ по текущим ценам каталога. Заказ создаётся целиком или не создаётся вовсе.
func (s *Service) CreateOrder(ctx context.Context, caller model.Identity, in CreateOrderInput) (*model.Order, error) {
	address := strings.TrimSpace(in.DeliveryAddress)
	if address == "" {
		return nil, fmt.Errorf("%w: delivery address is required", ErrValidation)
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: items are required", ErrValidation)
	}

	lines, err := mergeItems(in.Items)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}

	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]model.OrderItem, 0, len(lines))
	total := decimal.Zero
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %d", ErrProductNotFound, l.ProductID)
		}
		if !p.IsAvailable() {
			return nil, fmt.Errorf("%w: product %q is out of stock", ErrProductUnavailable, p.Name)
		}
		if l.Price != nil && !l.Price.Equal(p.Price) {
			s.logger.Warn("ignoring client-submitted price",
				zap.Int64("userID", caller.UserID),
				zap.Int64("productID", p.ID),
				zap.String("submitted", l.Price.String()),
				zap.String("catalog", p.Price.String()),
			)
		}

		item := model.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    l.Quantity,
			Price:       p.Price,
		}
		total = total.Add(item.Subtotal())
		items = append(items, item)
	}
	if _, err := model.DecimalToCents(total); err != nil {
		return nil, fmt.Errorf("%w: order total is too large", ErrValidation)
	}

	created, err := s.repo.CreateOrder(ctx, model.Order{
		UserID:          caller.UserID,
		Status:          model.OrderStatusPending,
		Total:           total,
		DeliveryAddress: address,
		Items:           items,
	})
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, fmt.Errorf("%w: product was removed while placing the order", ErrProductNotFound)
		}
		return nil, err
	}

	s.logger.Info("order created",
		zap.Int64("orderID", created.ID),
		zap.Int64("userID", caller.UserID),
		zap.String("total", created.Total.StringFixed(2)),
	)

	return created, nil
}

// mergeItems проверяет строки и складывает количества повторяющихся товаров, сохраняя порядок.
func mergeItems(in []OrderItemInput) ([]OrderItemInput, error) {
	index := make(map[int64]int, len(in))
	out := make([]OrderItemInput, 0, len(in))

	for i, it := range in {
		if it.ProductID <= 0 {
			return nil, fmt.Errorf("%w: items[%d].productId is required", ErrValidation, i)
		}
		if it.Quantity < 1 {
			return nil, fmt.Errorf("%w: items[%d].quantity must be at least 1", ErrValidation, i)
		}
		if it.Quantity > MaxQuantity {
			return nil, fmt.Errorf("%w: items[%d].quantity must be at most %d", ErrValidation, i, MaxQuantity)
		}

		if j, ok := index[it.ProductID]; ok {
			out[j].Quantity += it.Quantity
			if out[j].Quantity > MaxQuantity {
				return nil, fmt.Errorf("%w: total quantity of product %d must be at most %d", ErrValidation, it.ProductID, MaxQuantity)
			}
			continue
		}
		index[it.ProductID] = len(out)
		out = append(out, it)
	}

	return out, nil
}

// GetOrder возвращает заказ владельцу или сотруднику.
func (s *Service) GetOrder(ctx context.Context, caller model.Identity, id int64) (*model.Order, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, mapOrderError(err)
	}

	if !caller.Role.IsPrivileged() && order.UserID != caller.UserID {
		return nil, ErrForbidden
	}

	return order, nil
}

// ListOrdersForUser возвращает заказы пользователя, новые первыми.
func (s *Service) ListOrdersForUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.repo.GetOrdersByUser(ctx, userID)
}

// ListAllOrders возвращает все заказы для сотрудников с необязательным фильтром по статусу.
func (s *Service) ListAllOrders(ctx context.Context, caller model.Identity, statusFilter string) ([]model.Order, error) {
	if err := requirePrivileged(caller); err != nil {
		return nil, err
	}

	var status model.OrderStatus
	if strings.TrimSpace(statusFilter) != "" {
		st, ok := model.ParseOrderStatus(statusFilter)
		if !ok {
			return nil, fmt.Errorf("%w: invalid status: %s", ErrValidation, statusFilter)
		}
		status = st
	}

	return s.repo.ListOrders(ctx, status)
}

// UpdateStatus переводит заказ в новый статус по графу переходов.
// Покупатель может только отменить собственный заказ в статусе PENDING.
// Статус разбирается после загрузки заказа, поэтому несуществующий заказ всегда даёт ErrNotFound.
func (s *Service) UpdateStatus(ctx context.Context, caller model.Identity, id int64, newStatus string) (*model.Order, error) {
	var previous model.OrderStatus
	order, err := s.repo.UpdateOrderStatus(ctx, id, func(current model.Order) (model.OrderStatus, error) {
		if err := checkOwner(caller, current); err != nil {
			return "", err
		}
		target, err := parseTargetStatus(newStatus)
		if err != nil {
			return "", err
		}
		if err := checkTransition(caller, current, target); err != nil {
			return "", err
		}
		previous = current.Status
		return target, nil
	})
	if err != nil {
		return nil, mapOrderError(err)
	}

	s.logger.Info("order status updated",
		zap.Int64("orderID", order.ID),
		zap.Int64("actorID", caller.UserID),
		zap.String("from", string(previous)),
		zap.String("to", string(order.Status)),
	)

	return order, nil
}

// CancelOrder отменяет заказ от имени владельца или сотрудника.
func (s *Service) CancelOrder(ctx context.Context, caller model.Identity, id int64) (*model.Order, error) {
	return s.UpdateStatus(ctx, caller, id, string(model.OrderStatusCancelled))
}

func parseTargetStatus(raw string) (model.OrderStatus, error) {
	target, ok := model.ParseOrderStatus(raw)
	if ok {
		return target, nil
	}
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: status is required", ErrValidation)
	}
	return "", fmt.Errorf("%w: invalid status: %s", ErrValidation, raw)
}

func checkOwner(caller model.Identity, current model.Order) error {
	if !caller.Role.IsPrivileged() && current.UserID != caller.UserID {
		return ErrForbidden
	}
	return nil
}

func checkTransition(caller model.Identity, current model.Order, target model.OrderStatus) error {
	privileged := caller.Role.IsPrivileged()

	if err := checkOwner(caller, current); err != nil {
		return err
	}
	if !privileged && target != model.OrderStatusCancelled {
		return fmt.Errorf("%w: only staff can set status %s", ErrForbidden, target)
	}

	if target == model.OrderStatusCancelled && current.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot cancel order with status %s", ErrInvalidTransition, current.Status)
	}

	if !privileged && current.Status != model.OrderStatusPending {
		return fmt.Errorf("%w: order with status %s can only be cancelled by staff", ErrForbidden, current.Status)
	}

	if !current.Status.CanTransition(target) {
		return fmt.Errorf("%w: cannot change order status from %s to %s", ErrInvalidTransition, current.Status, target)
	}

	return nil
}

func mapOrderError(err error) error {
	if errors.Is(err, repository.ErrOrderNotFound) {
		return fmt.Errorf("%w: order not found", ErrNotFound)
	}
	return err
}
