package service

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/coffeeshop/internal/model"
	"github.com/mmeshcher/coffeeshop/internal/repository"
)

// memRepo хранит данные в памяти и повторяет контракт PostgresRepository.
type memRepo struct {
	mu       sync.Mutex
	seq      int64
	base     time.Time
	users    map[int64]model.User
	products map[int64]model.Product
	orders   map[int64]model.Order

	// beforeCreateOrder вызывается под блокировкой перед вставкой заказа.
	beforeCreateOrder func(m *memRepo)
}

func newMemRepo() *memRepo {
	return &memRepo{
		base:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		users:    make(map[int64]model.User),
		products: make(map[int64]model.Product),
		orders:   make(map[int64]model.Order),
	}
}

func (m *memRepo) next() (int64, time.Time) {
	m.seq++
	return m.seq, m.base.Add(time.Duration(m.seq) * time.Second)
}

func (m *memRepo) addProduct(name string, price string, stock int) model.Product {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, now := m.next()
	p := model.Product{
		ID:        id,
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.products[id] = p
	return p
}

func (m *memRepo) setStatus(id int64, status model.OrderStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o := m.orders[id]
	o.Status = status
	m.orders[id] = o
}

func (m *memRepo) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *memRepo) Close() error { return nil }

func (m *memRepo) CreateUser(ctx context.Context, u model.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Email == u.Email {
			return 0, repository.ErrUserExists
		}
	}
	id, now := m.next()
	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now
	m.users[id] = u
	return id, nil
}

func (m *memRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (m *memRepo) UpdateUserProfile(ctx context.Context, id int64, upd model.ProfileUpdate) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&u.Name, upd.Name)
	set(&u.Phone, upd.Phone)
	set(&u.Address, upd.Address)
	set(&u.City, upd.City)
	set(&u.PostalCode, upd.PostalCode)
	m.users[id] = u
	return &u, nil
}

func (m *memRepo) ListUsers(ctx context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []model.User
	for _, u := range m.users {
		res = append(res, u)
	}
	return res, nil
}

func (m *memRepo) CreateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.products {
		if existing.Name == p.Name {
			return nil, repository.ErrProductExists
		}
	}
	id, now := m.next()
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	m.products[id] = p
	return &p, nil
}

func (m *memRepo) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &p, nil
}

func (m *memRepo) GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := make(map[int64]model.Product)
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			res[id] = p
		}
	}
	return res, nil
}

func (m *memRepo) ListProducts(ctx context.Context, f model.ProductFilter) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []model.Product
	for _, p := range m.products {
		if f.AvailableOnly && !p.IsAvailable() {
			continue
		}
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

func (m *memRepo) UpdateProduct(ctx context.Context, id int64, upd model.ProductUpdate) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	if upd.Stock != nil {
		p.Stock = *upd.Stock
	}
	m.products[id] = p
	return &p, nil
}

func (m *memRepo) DeleteProduct(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	for _, o := range m.orders {
		for _, it := range o.Items {
			if it.ProductID == id {
				return repository.ErrProductInUse
			}
		}
	}
	delete(m.products, id)
	return nil
}

func (m *memRepo) CreateOrder(ctx context.Context, o model.Order) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.beforeCreateOrder != nil {
		m.beforeCreateOrder(m)
	}
	for _, it := range o.Items {
		if _, ok := m.products[it.ProductID]; !ok {
			return nil, repository.ErrProductNotFound
		}
	}

	id, now := m.next()
	o.ID = id
	o.CreatedAt = now
	o.UpdatedAt = now
	o.Items = slices.Clone(o.Items)
	for i := range o.Items {
		o.Items[i].OrderID = id
		o.Items[i].ID = int64(i + 1)
	}
	m.orders[id] = o

	created := o
	created.Items = slices.Clone(o.Items)
	return &created, nil
}

func (m *memRepo) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return &o, nil
}

func (m *memRepo) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return m.filterOrders(func(o model.Order) bool { return o.UserID == userID }), nil
}

func (m *memRepo) ListOrders(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	return m.filterOrders(func(o model.Order) bool { return status == "" || o.Status == status }), nil
}

func (m *memRepo) filterOrders(keep func(model.Order) bool) []model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []model.Order
	for _, o := range m.orders {
		if keep(o) {
			res = append(res, o)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res
}

func (m *memRepo) UpdateOrderStatus(ctx context.Context, id int64, decide repository.StatusDecider) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	next, err := decide(o)
	if err != nil {
		return nil, err
	}
	_, now := m.next()
	o.Status = next
	o.UpdatedAt = now
	m.orders[id] = o
	return &o, nil
}

func (m *memRepo) GetStats(ctx context.Context, recent int) (*model.Stats, error) {
	all := m.filterOrders(func(model.Order) bool { return true })

	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &model.Stats{
		TotalOrders:    int64(len(all)),
		TotalProducts:  int64(len(m.products)),
		TotalRevenue:   decimal.Zero,
		OrdersByStatus: make(map[model.OrderStatus]int64),
	}
	for _, o := range all {
		stats.OrdersByStatus[o.Status]++
		if o.Status != model.OrderStatusCancelled {
			stats.TotalRevenue = stats.TotalRevenue.Add(o.Total)
		}
	}
	if len(all) > recent {
		all = all[:recent]
	}
	stats.RecentOrders = all
	return stats, nil
}
