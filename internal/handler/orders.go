package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/coffeeshop/internal/service"
	"github.com/mmeshcher/coffeeshop/internal/validation"
)

type orderItemRequest struct {
	ProductID int64 `json:"productId" validate:"required"`
	Quantity  int   `json:"quantity" validate:"gte=1,max=1000"`
	// Price принимается для совместимости со старыми клиентами и не влияет на сумму заказа.
	Price *decimal.Decimal `json:"price,omitempty"`
}

type createOrderRequest struct {
	Items           []orderItemRequest `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress string             `json:"deliveryAddress" validate:"required"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// CreateOrder оформляет заказ текущего пользователя.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := validation.Decode(r.Body, &req); err != nil {
		h.fail(w, r, "create order", err)
		return
	}

	in := service.CreateOrderInput{
		DeliveryAddress: req.DeliveryAddress,
		Items:           make([]service.OrderItemInput, 0, len(req.Items)),
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, service.OrderItemInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}

	order, err := h.service.CreateOrder(r.Context(), caller, in)
	if err != nil {
		h.fail(w, r, "create order", err)
		return
	}

	respond(w, http.StatusCreated, "order", toOrderResponse(order))
}

// GetOrder возвращает заказ владельцу или сотруднику.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), caller, id)
	if err != nil {
		h.fail(w, r, "get order", err)
		return
	}

	respond(w, http.StatusOK, "order", toOrderResponse(order))
}

// GetMyOrders возвращает заказы текущего пользователя.
func (h *Handler) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	orders, err := h.service.ListOrdersForUser(r.Context(), caller.UserID)
	if err != nil {
		h.fail(w, r, "get my orders", err)
		return
	}

	respond(w, http.StatusOK, "orders", toOrderResponses(orders))
}

// ListOrders возвращает все заказы с необязательным фильтром ?status=.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	orders, err := h.service.ListAllOrders(r.Context(), caller, r.URL.Query().Get("status"))
	if err != nil {
		h.fail(w, r, "list orders", err)
		return
	}

	respond(w, http.StatusOK, "orders", toOrderResponses(orders))
}

// UpdateOrderStatus переводит заказ в новый статус.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if err := validation.Decode(r.Body, &req); err != nil {
		h.fail(w, r, "update order status", err)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), caller, id, req.Status)
	if err != nil {
		h.fail(w, r, "update order status", err)
		return
	}

	respond(w, http.StatusOK, "order", toOrderResponse(order))
}

// CancelOrder отменяет заказ.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	order, err := h.service.CancelOrder(r.Context(), caller, id)
	if err != nil {
		h.fail(w, r, "cancel order", err)
		return
	}

	respond(w, http.StatusOK, "order", toOrderResponse(order))
}
