package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/coffeeshop/internal/model"
)

const orderColumns = `id, user_id, status, total, delivery_address, created_at, updated_at`

// StatusDecider по текущему состоянию заказа выбирает новый статус или возвращает ошибку.
type StatusDecider func(current model.Order) (model.OrderStatus, error)

// CreateOrder атомарно сохраняет заказ вместе со всеми строками.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o model.Order) (*model.Order, error) {
	var created *model.Order
	err := r.withConflictRetry(ctx, func() error {
		var err error
		created, err = r.createOrderTx(ctx, o)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *PostgresRepository) createOrderTx(ctx context.Context, o model.Order) (*model.Order, error) {
	totalCents, err := model.DecimalToCents(o.Total)
	if err != nil {
		return nil, fmt.Errorf("order total: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	created := o
	var status string
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (user_id, status, total, delivery_address)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+orderColumns,
		o.UserID, string(o.Status), totalCents, o.DeliveryAddress,
	).Scan(&created.ID, &created.UserID, &status, &totalCents, &created.DeliveryAddress, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	created.Status = model.OrderStatus(status)
	created.Total = model.CentsToDecimal(totalCents)

	created.Items = make([]model.OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		item := it
		item.OrderID = created.ID
		priceCents, err := model.DecimalToCents(it.Price)
		if err != nil {
			return nil, fmt.Errorf("order item price: %w", err)
		}
		err = tx.QueryRow(ctx,
			`INSERT INTO order_items (order_id, product_id, product_name, quantity, price)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			created.ID, it.ProductID, it.ProductName, it.Quantity, priceCents,
		).Scan(&item.ID)
		if err != nil {
			if pgErrorCode(err) == pgerrcode.ForeignKeyViolation {
				return nil, fmt.Errorf("%w: %d", ErrProductNotFound, it.ProductID)
			}
			return nil, fmt.Errorf("insert order item: %w", err)
		}
		created.Items = append(created.Items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &created, nil
}

// GetOrder возвращает заказ вместе со строками.
func (r *PostgresRepository) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, err
	}

	orders := []model.Order{*o}
	if err := r.attachItems(ctx, r.pool, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// GetOrdersByUser возвращает заказы пользователя, новые первыми.
func (r *PostgresRepository) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return r.queryOrders(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
}

// ListOrders возвращает все заказы, новые первыми. status == "" отключает фильтр.
func (r *PostgresRepository) ListOrders(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	if status == "" {
		return r.queryOrders(ctx,
			`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC`,
		)
	}
	return r.queryOrders(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE status = $1
		 ORDER BY created_at DESC, id DESC`,
		string(status),
	)
}

// UpdateOrderStatus меняет статус заказа под блокировкой строки.
// decide вызывается с актуальным состоянием заказа внутри той же транзакции.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id int64, decide StatusDecider) (*model.Order, error) {
	var updated *model.Order
	err := r.withRetry(ctx, func() error {
		var err error
		updated, err = r.updateOrderStatusTx(ctx, id, decide)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *PostgresRepository) updateOrderStatusTx(ctx context.Context, id int64, decide StatusDecider) (*model.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanOrder(tx.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`,
		id,
	))
	if err != nil {
		return nil, err
	}

	orders := []model.Order{*current}
	if err := r.attachItems(ctx, tx, orders); err != nil {
		return nil, err
	}
	order := orders[0]

	next, err := decide(order)
	if err != nil {
		return nil, err
	}

	var updatedAt time.Time
	err = tx.QueryRow(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1 RETURNING updated_at`,
		id, string(next),
	).Scan(&updatedAt)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	order.Status = next
	order.UpdatedAt = updatedAt
	return &order, nil
}

// GetStats возвращает сводку для панели администратора.
func (r *PostgresRepository) GetStats(ctx context.Context, recent int) (*model.Stats, error) {
	stats := &model.Stats{OrdersByStatus: make(map[model.OrderStatus]int64)}

	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&stats.TotalProducts); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	var revenueCents int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*), COALESCE(SUM(total) FILTER (WHERE status <> $1), 0) FROM orders`,
		string(model.OrderStatusCancelled),
	).Scan(&stats.TotalOrders, &revenueCents)
	if err != nil {
		return nil, fmt.Errorf("sum orders: %w", err)
	}
	stats.TotalRevenue = model.CentsToDecimal(revenueCents)

	rows, err := r.pool.Query(ctx, `SELECT status, count(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count orders by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.OrdersByStatus[model.OrderStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	stats.RecentOrders, err = r.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC LIMIT $1`,
		recent,
	)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *PostgresRepository) queryOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if err := r.attachItems(ctx, r.pool, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// attachItems загружает строки для всех заказов одним запросом.
func (r *PostgresRepository) attachItems(ctx context.Context, q querier, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
		orders[i].Items = []model.OrderItem{}
	}

	rows, err := q.Query(ctx,
		`SELECT id, order_id, product_id, product_name, quantity, price
		 FROM order_items
		 WHERE order_id = ANY($1)
		 ORDER BY id`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it         model.OrderItem
			priceCents int64
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &priceCents); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		it.Price = model.CentsToDecimal(priceCents)

		i := index[it.OrderID]
		orders[i].Items = append(orders[i].Items, it)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	return nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o          model.Order
		status     string
		totalCents int64
	)
	err := row.Scan(&o.ID, &o.UserID, &status, &totalCents, &o.DeliveryAddress, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	o.Status = model.OrderStatus(status)
	o.Total = model.CentsToDecimal(totalCents)
	return &o, nil
}
