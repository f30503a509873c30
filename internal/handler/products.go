package handler

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/coffeeshop/internal/model"
	"github.com/mmeshcher/coffeeshop/internal/service"
	"github.com/mmeshcher/coffeeshop/internal/validation"
)

type createProductRequest struct {
	Name        string           `json:"name" validate:"required"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Image       string           `json:"image"`
	RoastLevel  string           `json:"roastLevel"`
	Grind       string           `json:"grind"`
	Size        string           `json:"size"`
	Stock       int              `json:"stock" validate:"gte=0,max=1000000"`
}

type updateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Image       *string          `json:"image"`
	RoastLevel  *string          `json:"roastLevel"`
	Grind       *string          `json:"grind"`
	Size        *string          `json:"size"`
	Stock       *int             `json:"stock" validate:"omitempty,gte=0,max=1000000"`
}

// ListProducts возвращает каталог. Поддерживает фильтры roastLevel, grind, size и available.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.ProductFilter{
		RoastLevel: q.Get("roastLevel"),
		Grind:      q.Get("grind"),
		Size:       q.Get("size"),
	}
	if v := q.Get("available"); v != "" {
		available, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "available must be true or false")
			return
		}
		filter.AvailableOnly = available
	}

	products, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "list products", err)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for i := range products {
		resp = append(resp, toProductResponse(&products[i]))
	}
	respond(w, http.StatusOK, "products", resp)
}

// GetProduct возвращает товар по идентификатору.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get product", err)
		return
	}

	respond(w, http.StatusOK, "product", toProductResponse(p))
}

// CreateProduct добавляет товар в каталог.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req createProductRequest
	if err := validation.Decode(r.Body, &req); err != nil {
		h.fail(w, r, "create product", err)
		return
	}

	p, err := h.service.CreateProduct(r.Context(), caller, service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		Image:       req.Image,
		RoastLevel:  req.RoastLevel,
		Grind:       req.Grind,
		Size:        req.Size,
		Stock:       req.Stock,
	})
	if err != nil {
		h.fail(w, r, "create product", err)
		return
	}

	respond(w, http.StatusCreated, "product", toProductResponse(p))
}

// UpdateProduct меняет переданные поля товара.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req updateProductRequest
	if err := validation.Decode(r.Body, &req); err != nil {
		h.fail(w, r, "update product", err)
		return
	}

	p, err := h.service.UpdateProduct(r.Context(), caller, id, model.ProductUpdate{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
		RoastLevel:  req.RoastLevel,
		Grind:       req.Grind,
		Size:        req.Size,
		Stock:       req.Stock,
	})
	if err != nil {
		h.fail(w, r, "update product", err)
		return
	}

	respond(w, http.StatusOK, "product", toProductResponse(p))
}

// DeleteProduct удаляет товар из каталога.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), caller, id); err != nil {
		h.fail(w, r, "delete product", err)
		return
	}

	respondMessage(w, http.StatusOK, "product removed")
}
