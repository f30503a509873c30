package handler

import (
	"time"

	"github.com/mmeshcher/coffeeshop/internal/model"
)

// Денежные суммы отдаются строкой с двумя знаками после запятой, время в RFC3339.

type userResponse struct {
	ID         int64  `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Phone      string `json:"phone,omitempty"`
	Role       string `json:"role"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Phone:      u.Phone,
		Role:       string(u.Role),
		Address:    u.Address,
		City:       u.City,
		PostalCode: u.PostalCode,
		CreatedAt:  u.CreatedAt.Format(time.RFC3339),
	}
}

func toUserResponses(users []model.User) []userResponse {
	resp := make([]userResponse, 0, len(users))
	for i := range users {
		resp = append(resp, toUserResponse(&users[i]))
	}
	return resp
}

type productResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Image       string `json:"image,omitempty"`
	RoastLevel  string `json:"roastLevel,omitempty"`
	Grind       string `json:"grind,omitempty"`
	Size        string `json:"size,omitempty"`
	Stock       int    `json:"stock"`
	Available   bool   `json:"available"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func toProductResponse(p *model.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Image:       p.Image,
		RoastLevel:  p.RoastLevel,
		Grind:       p.Grind,
		Size:        p.Size,
		Stock:       p.Stock,
		Available:   p.IsAvailable(),
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
}

type orderItemResponse struct {
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	Subtotal  string `json:"subtotal"`
}

type orderResponse struct {
	ID              int64               `json:"id"`
	UserID          int64               `json:"userId"`
	Status          string              `json:"status"`
	NextStatuses    []string            `json:"nextStatuses"`
	Total           string              `json:"total"`
	DeliveryAddress string              `json:"deliveryAddress"`
	Items           []orderItemResponse `json:"items"`
	CreatedAt       string              `json:"createdAt"`
	UpdatedAt       string              `json:"updatedAt"`
}

func toOrderResponse(o *model.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			ProductID: it.ProductID,
			Name:      it.ProductName,
			Quantity:  it.Quantity,
			Price:     it.Price.StringFixed(2),
			Subtotal:  it.Subtotal().StringFixed(2),
		})
	}

	next := make([]string, 0, 2)
	for _, st := range o.Status.NextStatuses() {
		next = append(next, string(st))
	}

	return orderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          string(o.Status),
		NextStatuses:    next,
		Total:           o.Total.StringFixed(2),
		DeliveryAddress: o.DeliveryAddress,
		Items:           items,
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       o.UpdatedAt.Format(time.RFC3339),
	}
}

func toOrderResponses(orders []model.Order) []orderResponse {
	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}
	return resp
}

type statsResponse struct {
	TotalOrders    int64            `json:"totalOrders"`
	TotalProducts  int64            `json:"totalProducts"`
	TotalRevenue   string           `json:"totalRevenue"`
	OrdersByStatus map[string]int64 `json:"ordersByStatus"`
	RecentOrders   []orderResponse  `json:"recentOrders"`
}

func toStatsResponse(s *model.Stats) statsResponse {
	byStatus := make(map[string]int64, len(model.OrderStatuses))
	for _, st := range model.OrderStatuses {
		byStatus[string(st)] = s.OrdersByStatus[st]
	}
	return statsResponse{
		TotalOrders:    s.TotalOrders,
		TotalProducts:  s.TotalProducts,
		TotalRevenue:   s.TotalRevenue.StringFixed(2),
		OrdersByStatus: byStatus,
		RecentOrders:   toOrderResponses(s.RecentOrders),
	}
}
