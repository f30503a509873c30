// Package model содержит доменные сущности кофейного магазина.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Role описывает роль пользователя.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleStaff    Role = "STAFF"
	RoleAdmin    Role = "ADMIN"
)

// ParseRole приводит строковое значение роли к каноническому виду.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleCustomer, RoleStaff, RoleAdmin:
		return r, true
	default:
		return "", false
	}
}

// IsPrivileged сообщает, может ли роль управлять чужими заказами.
func (r Role) IsPrivileged() bool {
	return r == RoleStaff || r == RoleAdmin
}

// Identity описывает уже проверенного вызывающего пользователя.
type Identity struct {
	UserID int64
	Email  string
	Role   Role
}

// User представляет зарегистрированного пользователя магазина.
type User struct {
	ID           int64
	Email        string
	PasswordHash []byte
	Name         string
	Phone        string
	Role         Role
	Address      string
	City         string
	PostalCode   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProfileUpdate содержит изменяемые поля профиля. nil означает «не менять».
type ProfileUpdate struct {
	Name       *string
	Phone      *string
	Address    *string
	City       *string
	PostalCode *string
}

// Product описывает позицию каталога.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Image       string
	RoastLevel  string
	Grind       string
	Size        string
	Stock       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsAvailable сообщает, можно ли заказать товар.
func (p Product) IsAvailable() bool {
	return p.Stock > 0
}

// ProductFilter задаёт необязательные условия выборки каталога.
type ProductFilter struct {
	RoastLevel    string
	Grind         string
	Size          string
	AvailableOnly bool
}

// ProductUpdate содержит изменяемые поля товара. nil означает «не менять».
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Image       *string
	RoastLevel  *string
	Grind       *string
	Size        *string
	Stock       *int
}

// Order описывает заказ пользователя.
type Order struct {
	ID              int64
	UserID          int64
	Status          OrderStatus
	Total           decimal.Decimal
	DeliveryAddress string
	Items           []OrderItem
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem описывает строку заказа. Цена и название фиксируются в момент оформления.
type OrderItem struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

// Subtotal возвращает стоимость строки заказа.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Stats содержит сводку для панели администратора.
type Stats struct {
	TotalOrders    int64
	TotalProducts  int64
	TotalRevenue   decimal.Decimal
	OrdersByStatus map[OrderStatus]int64
	RecentOrders   []Order
}

// CentsToDecimal переводит сумму в копейках в десятичное значение.
func CentsToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// ErrAmountOutOfRange возвращается, когда сумма не помещается в int64 копеек.
var ErrAmountOutOfRange = errors.New("amount out of range")

// DecimalToCents переводит десятичную сумму в копейки с банковским округлением.
func DecimalToCents(d decimal.Decimal) (int64, error) {
	cents := d.RoundBank(2).Shift(2).BigInt()
	if !cents.IsInt64() {
		return 0, fmt.Errorf("%w: %s", ErrAmountOutOfRange, d.String())
	}
	return cents.Int64(), nil
}
